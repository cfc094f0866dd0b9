package rest

import (
	"fmt"
	"net/http"

	"github.com/bwise1/campus_safety/util"
	"github.com/bwise1/campus_safety/util/tracing"
	"github.com/bwise1/campus_safety/util/values"
)

type ServerResponse struct {
	Message    string
	Status     string
	StatusCode int
	Data       interface{}
	Err        error
	RequestID  string
}

// retryMessage is what clients see on a 503.
const retryMessage = "the service is temporarily unavailable, please retry shortly"

func (resp *ServerResponse) errorBody() ErrorBody {
	body := ErrorBody{Error: resp.Message, RequestID: resp.RequestID}
	switch resp.Status {
	case values.Unavailable:
		body.Message = retryMessage
	case values.BadRequestBody, values.TooLarge, values.NotFound:
		if resp.Err != nil {
			body.Message = resp.Err.Error()
		}
	default:
		if resp.Err != nil {
			body.Details = resp.Err.Error()
		}
	}
	return body
}

func respondWithError(err error, message, status string, tc *tracing.Context) *ServerResponse {
	return &ServerResponse{
		Message:    message,
		Status:     status,
		StatusCode: statusCode(status),
		Err:        err,
		RequestID:  tc.RequestID,
	}
}

func statusCode(status string) int {
	return util.StatusCode(status)
}

func tracingFrom(r *http.Request) tracing.Context {
	return tracing.FromContext(r.Context())
}

// ValidationError is a client fault: the message is safe to show and the
// request should not be retried unchanged.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}
