package log

// Common field names, so the same thing is never logged under two keys.
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldAction     = "action"
	FieldUsername   = "username"
	FieldRowIndex   = "row_index"
	FieldTable      = "table"
	FieldBackend    = "backend"
	FieldDuration   = "duration_ms"
	FieldStatusCode = "status_code"
	FieldError      = "error"
	FieldEventID    = "event_id"
	FieldQueue      = "queue"
	FieldExchange   = "exchange"
)

// Standard component names.
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentStorage = "storage"
	ComponentBackend = "backend"
	ComponentSheets  = "sheets"
	ComponentGroq    = "groq"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentMirror  = "mirror"
)
