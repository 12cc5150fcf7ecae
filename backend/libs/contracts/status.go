package contracts

// SessionStatus is the lifecycle state of a charging session.
type SessionStatus string

const (
	SessionActive        SessionStatus = "active"
	SessionStopped       SessionStatus = "stopped"
	SessionSettling      SessionStatus = "settling"
	SessionSettled       SessionStatus = "settled"
	SessionFailedPayment SessionStatus = "failed_payment"
)

// IsTerminal reports whether no further transition is allowed.
func (s SessionStatus) IsTerminal() bool {
	return s == SessionSettled || s == SessionFailedPayment
}

// Valid reports whether s is a known status.
func (s SessionStatus) Valid() bool {
	switch s {
	case SessionActive, SessionStopped, SessionSettling, SessionSettled, SessionFailedPayment:
		return true
	}
	return false
}

// ChargerStatus is owned by the station subsystem.
type ChargerStatus string

const (
	ChargerAvailable   ChargerStatus = "available"
	ChargerInUse       ChargerStatus = "in_use"
	ChargerOffline     ChargerStatus = "offline"
	ChargerMaintenance ChargerStatus = "maintenance"
	ChargerReserved    ChargerStatus = "reserved"
)

// Valid reports whether s is a known charger status.
func (s ChargerStatus) Valid() bool {
	switch s {
	case ChargerAvailable, ChargerInUse, ChargerOffline, ChargerMaintenance, ChargerReserved:
		return true
	}
	return false
}

// StatusSource identifies who requested a charger status change.
type StatusSource string

const (
	SourceOCPP       StatusSource = "ocpp"
	SourceSettlement StatusSource = "settlement"
	SourceOperator   StatusSource = "operator"
)

// Valid reports whether s is a known source.
func (s StatusSource) Valid() bool {
	switch s {
	case SourceOCPP, SourceSettlement, SourceOperator:
		return true
	}
	return false
}

// PaymentStatus is the state of a PaymentRecord.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentSucceeded PaymentStatus = "succeeded"
	PaymentFailed    PaymentStatus = "failed"
	// PaymentRefunded is reached only from succeeded (or a pending record whose debit landed)
	// through a compensating credit.
	PaymentRefunded PaymentStatus = "refunded"
)

// IsTerminal reports whether the record may no longer be settled.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentSucceeded || s == PaymentFailed || s == PaymentRefunded
}

// Failure reasons shared by payment records and sessions.
const (
	ReasonInsufficientFunds = "insufficient_funds"
	ReasonRetriesExhausted  = "retries_exhausted"
	ReasonVoided            = "voided"
)
