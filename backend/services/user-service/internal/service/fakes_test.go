package service

import (
	"context"
	"sync"

	"evcharge/backend/libs/contracts"
)

type fakeWallets struct {
	mu       sync.Mutex
	calls    []int64
	failures int
	err      error
}

func (f *fakeWallets) ProvisionWallet(_ context.Context, userID int64) (*contracts.WalletResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, userID)
	if f.failures > 0 {
		f.failures--
		return nil, &contracts.RemoteCallError{Op: "provisionWallet", StatusCode: 503, Err: contracts.ErrNotFound}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &contracts.WalletResponse{WalletID: "w-1", UserID: userID}, nil
}

func (f *fakeWallets) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}
