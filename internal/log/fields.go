package log

// Common field names for structured logging.
const (
	FieldComponent     = "component"
	FieldOperation     = "operation"
	FieldError         = "error"
	FieldTransactionID = "transaction_id"
	FieldIdentity      = "identity"
	FieldPeriod        = "period"
	FieldAmountCents   = "amount_cents"
	FieldCategory      = "category"
	FieldType          = "type"
	FieldCount         = "count"
	FieldPhase         = "phase"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldStatusCode    = "status_code"
	FieldDuration      = "duration_ms"
)

// Components defines standard component names.
const (
	ComponentApp      = "app"
	ComponentHTTP     = "http"
	ComponentStore    = "store"
	ComponentSync     = "sync"
	ComponentAuth     = "auth"
	ComponentProfile  = "profile"
	ComponentDocstore = "docstore"
	ComponentCache    = "cache"
	ComponentAMQP     = "amqp"
	ComponentWorker   = "worker"
)

// Operations defines standard operation names.
const (
	OpAdd     = "add"
	OpEdit    = "edit"
	OpDelete  = "delete"
	OpReplace = "replace"
	OpUpsert  = "upsert"
	OpList    = "list"
	OpLoad    = "load"
	OpMigrate = "migrate"
	OpSignIn  = "sign_in"
	OpSignOut = "sign_out"
)
