package log

const (
	// Request
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldClientIP  = "client_ip"

	// Actor (same key the auth middleware stores in the gin context)
	FieldUserID = "user_id"
	FieldEmail  = "email"

	// Domain
	FieldPostID   = "post_id"
	FieldTargetID = "target_id"
	FieldEvent    = "event_type"

	FieldService = "service"

	// Audit log
	FieldLogType = "log_type"
	FieldAction  = "action"
	LogTypeAudit = "audit"
)
