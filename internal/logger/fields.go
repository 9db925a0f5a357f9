package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// ============================================
// Tracing Fields (Context level)
// Propagated through the call chain via the context logger
// ============================================

const (
	// FieldRequestID is the HTTP request ID (UUID)
	FieldRequestID = "request_id"

	// FieldScanID identifies one reconcile-and-score run
	FieldScanID = "scan_id"

	// FieldComponent is the component/module name
	FieldComponent = "component"

	// FieldImageID is the short content hash of the uploaded image
	FieldImageID = "image_id"

	// FieldVariant is the prompt variant of a transcription call
	FieldVariant = "variant"

	// FieldProvider is the inference provider name
	FieldProvider = "provider"

	// FieldModel is the inference model identifier
	FieldModel = "model"
)

// ============================================
// Metric Fields (Entry level)
// Used for aggregation and alerting
// ============================================

const (
	// FieldDurationMs is the execution duration in milliseconds
	FieldDurationMs = "duration_ms"

	// FieldCount is a generic count field
	FieldCount = "count"

	// FieldSize is the data size in bytes
	FieldSize = "size"

	// FieldStatus is the operation status
	FieldStatus = "status"

	// FieldPath is the consensus path taken
	FieldPath = "path"
)
