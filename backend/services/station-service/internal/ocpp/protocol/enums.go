package protocol

// MessageType values of the OCPP-J framing.
const (
	MessageTypeCall       = 2
	MessageTypeCallResult = 3
	MessageTypeCallError  = 4
)

// Actions handled by the station service.
const (
	ActionAuthorize          = "Authorize"
	ActionBootNotification   = "BootNotification"
	ActionHeartbeat          = "Heartbeat"
	ActionMeterValues        = "MeterValues"
	ActionStatusNotification = "StatusNotification"
	ActionStartTransaction   = "StartTransaction"
	ActionStopTransaction    = "StopTransaction"
)

// Registration status values.
const (
	RegistrationAccepted = "Accepted"
	RegistrationRejected = "Rejected"
)

// IdTagInfo status values.
const (
	AuthorizationAccepted = "Accepted"
	AuthorizationBlocked  = "Blocked"
	AuthorizationInvalid  = "Invalid"
)

// StatusNotification connector status values.
const (
	ConnectorAvailable     = "Available"
	ConnectorPreparing     = "Preparing"
	ConnectorCharging      = "Charging"
	ConnectorSuspendedEV   = "SuspendedEV"
	ConnectorSuspendedEVSE = "SuspendedEVSE"
	ConnectorFinishing     = "Finishing"
	ConnectorReserved      = "Reserved"
	ConnectorUnavailable   = "Unavailable"
	ConnectorFaulted       = "Faulted"
)

// CallError codes.
const (
	ErrorNotImplemented     = "NotImplemented"
	ErrorFormationViolation = "FormationViolation"
	ErrorInternal           = "InternalError"
)

// Sampled value fields used for energy readings.
const (
	MeasurandEnergyImport = "Energy.Active.Import.Register"
	UnitWh                = "Wh"
	UnitKWh               = "kWh"
)
