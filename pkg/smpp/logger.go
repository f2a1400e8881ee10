package smpp

// Logger is the structured-logging contract the client writes every
// event through (spec.md §1 "the logger ... specified only by its
// write contract"; §6 "Logs are structured records (one mapping per
// event)"). Implementations are expected to attach log_metadata (the
// static per-client fields from ClientConfig) to every record.
type Logger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})

	// WithFields returns a Logger that folds the given fields into
	// every subsequent record, in addition to whatever fields were
	// already attached.
	WithFields(fields map[string]interface{}) Logger
}

// NopLogger discards everything. It is the fallback used whenever a
// ClientDependencies.Logger is left nil.
type NopLogger struct{}

func (NopLogger) Debug(msg string, fields ...interface{}) {}
func (NopLogger) Info(msg string, fields ...interface{})  {}
func (NopLogger) Warn(msg string, fields ...interface{})  {}
func (NopLogger) Error(msg string, fields ...interface{}) {}
func (NopLogger) WithFields(fields map[string]interface{}) Logger { return NopLogger{} }
