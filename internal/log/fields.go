package log

// Common field names for structured logging
const (
	FieldComponent      = "component"
	FieldRequestID      = "request_id"
	FieldClientIP       = "client_ip"
	FieldMethod         = "method"
	FieldPath           = "path"
	FieldQuery          = "query"
	FieldStatusCode     = "status_code"
	FieldDuration       = "duration_ms"
	FieldUserAgent      = "user_agent"
	FieldSuccess        = "success"
	FieldError          = "error"
	FieldErrorKind      = "error_kind"
	FieldOperation      = "operation"
	FieldTemplateID     = "template_id"
	FieldPendingID      = "pending_id"
	FieldCommittedID    = "committed_id"
	FieldOccurrenceDate = "occurrence_date"
	FieldAsOf           = "as_of"
	FieldAmountCents    = "amount_cents"
	FieldCurrency       = "currency"
	FieldCount          = "count"
	FieldEventType      = "event_type"
	FieldEventID        = "event_id"
)

// Component names
const (
	ComponentApp        = "app"
	ComponentHTTP       = "http"
	ComponentRecurrence = "recurrence"
	ComponentLedger     = "ledger"
	ComponentTemplate   = "template"
	ComponentRegistry   = "registry"
	ComponentAMQP       = "amqp"
	ComponentWorker     = "worker"
	ComponentSheets     = "sheets"
	ComponentTrace      = "trace"
	ComponentBackend    = "backend"
)

// Operation names
const (
	OpConfirm = "confirm"
	OpReject  = "reject"
	OpExport  = "export"
)

// LogFields is a builder for structured log fields.
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithRequestID(requestID string) LogFields {
	f[FieldRequestID] = requestID
	return f
}

func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

// WithError adds the error message; nil errors add nothing.
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithTransaction adds the identifiers of a pending/committed transaction pair.
// Zero ids are omitted.
func (f LogFields) WithTransaction(pendingID, committedID int64, amountCents int64, currency string) LogFields {
	if pendingID != 0 {
		f[FieldPendingID] = pendingID
	}
	if committedID != 0 {
		f[FieldCommittedID] = committedID
	}
	f[FieldAmountCents] = amountCents
	f[FieldCurrency] = currency
	return f
}

func (f LogFields) WithHTTPRequest(method, path, query, userAgent string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldQuery] = query
	if userAgent != "" {
		f[FieldUserAgent] = userAgent
	}
	return f
}

func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64, success bool) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = success
	return f
}

// ToSlice converts the fields to slog key/value arguments.
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
