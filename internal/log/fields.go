package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldUserID      = "user_id"
	FieldGoalID      = "goal_id"
	FieldGoalName    = "goal_name"
	FieldCategoryID  = "category_id"
	FieldTxID        = "transaction_id"
	FieldTxType      = "transaction_type"
	FieldAmount      = "amount"
	FieldProgress    = "progress"
	FieldMilestone   = "milestone"
	FieldKind        = "kind"
	FieldCount       = "count"
	FieldYear        = "year"
	FieldMonth       = "month"
	FieldDuration    = "duration_ms"
	FieldSheetsRange = "sheets_range"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentLedger    = "ledger"
	ComponentGoals     = "goals"
	ComponentCategory  = "category"
	ComponentReport    = "report"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentNotify    = "notify"
	ComponentScheduler = "scheduler"
	ComponentWorker    = "worker"
	ComponentSheets    = "sheets"
	ComponentBackend   = "backend"
)

// Operations defines standard operation names
const (
	OpRecord   = "record"
	OpReverse  = "reverse"
	OpReplace  = "replace"
	OpCreate   = "create"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpSweep    = "sweep"
	OpExport   = "export"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithTransaction adds the fields identifying a ledger entry.
func (f LogFields) WithTransaction(userID, txID int64, txType, amount string) LogFields {
	f[FieldUserID] = userID
	f[FieldTxID] = txID
	f[FieldTxType] = txType
	f[FieldAmount] = amount
	return f
}

// WithGoal adds goal identification fields.
func (f LogFields) WithGoal(userID, goalID int64, name string) LogFields {
	f[FieldUserID] = userID
	f[FieldGoalID] = goalID
	f[FieldGoalName] = name
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
