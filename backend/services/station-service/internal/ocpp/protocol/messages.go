package protocol

import "time"

// IdTagInfo is returned for every idTag check.
type IdTagInfo struct {
	Status string `json:"status"`
}

// AuthorizeRequest payload.
type AuthorizeRequest struct {
	IdTag string `json:"idTag"`
}

// AuthorizeResponse payload.
type AuthorizeResponse struct {
	IdTagInfo IdTagInfo `json:"idTagInfo"`
}

// BootNotificationRequest payload.
type BootNotificationRequest struct {
	ChargePointVendor string `json:"chargePointVendor"`
	ChargePointModel  string `json:"chargePointModel"`
	ChargePointSerial string `json:"chargePointSerialNumber,omitempty"`
	ChargeBoxSerial   string `json:"chargeBoxSerialNumber,omitempty"`
	FirmwareVersion   string `json:"firmwareVersion,omitempty"`
}

// BootNotificationResponse payload.
type BootNotificationResponse struct {
	CurrentTime time.Time `json:"currentTime"`
	Interval    int       `json:"interval"`
	Status      string    `json:"status"`
}

// HeartbeatRequest is empty.
type HeartbeatRequest struct{}

// HeartbeatResponse returns server time.
type HeartbeatResponse struct {
	CurrentTime time.Time `json:"currentTime"`
}

// StatusNotificationRequest payload.
type StatusNotificationRequest struct {
	ConnectorID     int        `json:"connectorId"`
	ErrorCode       string     `json:"errorCode"`
	Status          string     `json:"status"`
	Info            string     `json:"info,omitempty"`
	Timestamp       *time.Time `json:"timestamp,omitempty"`
	VendorID        string     `json:"vendorId,omitempty"`
	VendorErrorCode string     `json:"vendorErrorCode,omitempty"`
}

// StatusNotificationResponse is empty.
type StatusNotificationResponse struct{}

// StartTransactionRequest payload.
type StartTransactionRequest struct {
	ConnectorID   int       `json:"connectorId"`
	IdTag         string    `json:"idTag"`
	MeterStart    int64     `json:"meterStart"`
	ReservationID *int      `json:"reservationId,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// StartTransactionResponse payload.
type StartTransactionResponse struct {
	TransactionID int64     `json:"transactionId"`
	IdTagInfo     IdTagInfo `json:"idTagInfo"`
}

// StopTransactionRequest payload.
type StopTransactionRequest struct {
	TransactionID   int64        `json:"transactionId"`
	IdTag           string       `json:"idTag,omitempty"`
	MeterStop       int64        `json:"meterStop"`
	Timestamp       time.Time    `json:"timestamp"`
	Reason          string       `json:"reason,omitempty"`
	TransactionData []MeterValue `json:"transactionData,omitempty"`
}

// StopTransactionResponse payload.
type StopTransactionResponse struct {
	IdTagInfo *IdTagInfo `json:"idTagInfo,omitempty"`
}

// MeterValuesRequest payload.
type MeterValuesRequest struct {
	ConnectorID   int          `json:"connectorId"`
	TransactionID *int64       `json:"transactionId,omitempty"`
	MeterValue    []MeterValue `json:"meterValue"`
}

// MeterValuesResponse is empty.
type MeterValuesResponse struct{}

// MeterValue groups samples taken at one instant.
type MeterValue struct {
	Timestamp    time.Time      `json:"timestamp"`
	SampledValue []SampledValue `json:"sampledValue"`
}

// SampledValue is a single reading. Value is a decimal string.
type SampledValue struct {
	Value     string `json:"value"`
	Context   string `json:"context,omitempty"`
	Measurand string `json:"measurand,omitempty"`
	Unit      string `json:"unit,omitempty"`
}
