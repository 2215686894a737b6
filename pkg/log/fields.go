package log

const (
	// Request
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldClientIP  = "client_ip"

	// Actor (matches pkg/middleware/auth.go keys)
	FieldUserID = "user_id"

	// Service
	FieldService = "service"

	// Domain
	FieldChannelID = "channel_id"
	FieldEventID   = "event_id"
	FieldEventType = "event_type"
	FieldQuery     = "query"
	FieldPage      = "page"

	// Log type (for audit log)
	FieldLogType = "log_type"
	LogTypeAudit = "audit"
)
