package errors

// ERR identifies the category of a harness error. Codes are stable so log
// scrapers can rely on them.
type ERR int32

const (
	ERR_UNKNOWN                    ERR = 0
	ERR_INVALID_ARGUMENT           ERR = 1
	ERR_CONFIGURATION              ERR = 2
	ERR_PROCESSING                 ERR = 3
	ERR_CONTEXT_CANCELED           ERR = 4
	ERR_SERVICE_UNAVAILABLE        ERR = 5
	ERR_NETWORK_ERROR              ERR = 10
	ERR_NETWORK_TIMEOUT            ERR = 11
	ERR_NETWORK_CONNECTION_REFUSED ERR = 12
	ERR_PROCESS_STARTUP            ERR = 20
	ERR_READINESS_TIMEOUT          ERR = 21
	ERR_RPC_UNAVAILABLE            ERR = 22
	ERR_SHUTDOWN_ESCALATION        ERR = 23
	ERR_PORT_ALLOCATION            ERR = 24
	ERR_CERTIFICATE_PROVISION      ERR = 25
	ERR_DATA_DIR_CONFLICT          ERR = 26
)

var ERR_name = map[int32]string{
	0:  "ERR_UNKNOWN",
	1:  "ERR_INVALID_ARGUMENT",
	2:  "ERR_CONFIGURATION",
	3:  "ERR_PROCESSING",
	4:  "ERR_CONTEXT_CANCELED",
	5:  "ERR_SERVICE_UNAVAILABLE",
	10: "ERR_NETWORK_ERROR",
	11: "ERR_NETWORK_TIMEOUT",
	12: "ERR_NETWORK_CONNECTION_REFUSED",
	20: "ERR_PROCESS_STARTUP",
	21: "ERR_READINESS_TIMEOUT",
	22: "ERR_RPC_UNAVAILABLE",
	23: "ERR_SHUTDOWN_ESCALATION",
	24: "ERR_PORT_ALLOCATION",
	25: "ERR_CERTIFICATE_PROVISION",
	26: "ERR_DATA_DIR_CONFLICT",
}

func (e ERR) String() string {
	if name, ok := ERR_name[int32(e)]; ok {
		return name
	}

	return "ERR_UNKNOWN"
}

func (e ERR) Enum() string {
	return e.String()
}
