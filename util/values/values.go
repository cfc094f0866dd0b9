package values

type contextKey string

const (
	ContextTracingKey contextKey = "tracing"

	HeaderRequestID     = "X-Request-ID"
	HeaderRequestSource = "X-Request-Source"
)

// Response statuses. util.StatusCode maps each to an HTTP status code.
const (
	Success        = "success"
	Created        = "created"
	Error          = "error"
	BadRequestBody = "bad_request"
	NotFound       = "not_found"
	Unavailable    = "service_unavailable"
	TooLarge       = "payload_too_large"
	NotAllowed     = "not_allowed"
)
