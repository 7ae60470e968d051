package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldSession    = "session_id"
	FieldCategory   = "category"
	FieldTool       = "tool"
	FieldRowCount   = "row_count"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentAgent   = "agent"
	ComponentStorage = "storage"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentImport  = "import"
)

// Operations defines standard operation names
const (
	OpAnalyze  = "analyze"
	OpImport   = "import"
	OpReset    = "reset"
	OpChat     = "chat"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)
