package errors

var (
	ErrUnknown                  = New(ERR_UNKNOWN, "unknown error")
	ErrInvalidArgument          = New(ERR_INVALID_ARGUMENT, "invalid argument")
	ErrConfiguration            = New(ERR_CONFIGURATION, "configuration error")
	ErrProcessing               = New(ERR_PROCESSING, "error processing")
	ErrContextCanceled          = New(ERR_CONTEXT_CANCELED, "context canceled")
	ErrServiceUnavailable       = New(ERR_SERVICE_UNAVAILABLE, "service unavailable")
	ErrNetworkError             = New(ERR_NETWORK_ERROR, "network error")
	ErrNetworkTimeout           = New(ERR_NETWORK_TIMEOUT, "network timeout")
	ErrNetworkConnectionRefused = New(ERR_NETWORK_CONNECTION_REFUSED, "connection refused")
	ErrProcessStartup           = New(ERR_PROCESS_STARTUP, "process startup failure")
	ErrReadinessTimeout         = New(ERR_READINESS_TIMEOUT, "readiness timeout")
	ErrRPCUnavailable           = New(ERR_RPC_UNAVAILABLE, "rpc unavailable")
	ErrShutdownEscalation       = New(ERR_SHUTDOWN_ESCALATION, "shutdown escalation")
	ErrPortAllocation           = New(ERR_PORT_ALLOCATION, "port allocation exhausted")
	ErrCertificateProvision     = New(ERR_CERTIFICATE_PROVISION, "certificate provision error")
	ErrDataDirConflict          = New(ERR_DATA_DIR_CONFLICT, "data directory conflict")
)

// errors initialization functions

func NewUnknownError(message string, params ...interface{}) error {
	return New(ERR_UNKNOWN, message, params...)
}
func NewInvalidArgumentError(message string, params ...interface{}) error {
	return New(ERR_INVALID_ARGUMENT, message, params...)
}
func NewConfigurationError(message string, params ...interface{}) error {
	return New(ERR_CONFIGURATION, message, params...)
}
func NewProcessingError(message string, params ...interface{}) error {
	return New(ERR_PROCESSING, message, params...)
}
func NewContextCanceledError(message string, params ...interface{}) error {
	return New(ERR_CONTEXT_CANCELED, message, params...)
}
func NewServiceUnavailableError(message string, params ...interface{}) error {
	return New(ERR_SERVICE_UNAVAILABLE, message, params...)
}
func NewNetworkError(message string, params ...interface{}) error {
	return New(ERR_NETWORK_ERROR, message, params...)
}
func NewNetworkTimeoutError(message string, params ...interface{}) error {
	return New(ERR_NETWORK_TIMEOUT, message, params...)
}
func NewNetworkConnectionRefusedError(message string, params ...interface{}) error {
	return New(ERR_NETWORK_CONNECTION_REFUSED, message, params...)
}
func NewProcessStartupError(message string, params ...interface{}) error {
	return New(ERR_PROCESS_STARTUP, message, params...)
}
func NewReadinessTimeoutError(message string, params ...interface{}) error {
	return New(ERR_READINESS_TIMEOUT, message, params...)
}
func NewRPCUnavailableError(message string, params ...interface{}) error {
	return New(ERR_RPC_UNAVAILABLE, message, params...)
}
func NewShutdownEscalationError(message string, params ...interface{}) error {
	return New(ERR_SHUTDOWN_ESCALATION, message, params...)
}
func NewPortAllocationError(message string, params ...interface{}) error {
	return New(ERR_PORT_ALLOCATION, message, params...)
}
func NewCertificateProvisionError(message string, params ...interface{}) error {
	return New(ERR_CERTIFICATE_PROVISION, message, params...)
}
func NewDataDirConflictError(message string, params ...interface{}) error {
	return New(ERR_DATA_DIR_CONFLICT, message, params...)
}
