package clients

import (
	"context"
	"net/http"

	"evcharge/backend/libs/contracts"
	"evcharge/backend/libs/httpx"
)

// WalletsClient provisions wallets at payment-service.
type WalletsClient struct {
	base *httpx.BaseClient
}

// NewWalletsClient returns client.
func NewWalletsClient(baseURL string, httpClient httpx.HTTPDoer) *WalletsClient {
	return &WalletsClient{base: httpx.NewBaseClient(baseURL, httpClient)}
}

// ProvisionWallet creates the user's wallet; an existing wallet is returned as is.
func (c *WalletsClient) ProvisionWallet(ctx context.Context, userID int64) (*contracts.WalletResponse, error) {
	var resp contracts.WalletResponse
	req := contracts.ProvisionWalletRequest{UserID: userID}
	if err := c.base.DoJSON(ctx, "provisionWallet", http.MethodPost, "/internal/wallets", req, &resp, nil); err != nil {
		return nil, err
	}
	return &resp, nil
}
