package apperr

import "net/http"

// Status values reported by Result.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Result is the {status, message} envelope every admin mutation answers with.
type Result struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`

	httpStatus int
}

// OK builds a successful result.
func OK(message string) Result {
	return Result{Status: StatusOK, Message: message, httpStatus: http.StatusOK}
}

// ResultFrom converts err into an error result, or OK(success) when err is nil.
func ResultFrom(err error, success string) Result {
	if err == nil {
		return OK(success)
	}
	return Result{Status: StatusError, Message: Message(err), httpStatus: HTTPStatus(err)}
}

// Failed reports whether the result carries an error.
func (r Result) Failed() bool {
	return r.Status == StatusError
}

// HTTPStatus returns the status code matching the error the result was
// built from.
func (r Result) HTTPStatus() int {
	if r.httpStatus != 0 {
		return r.httpStatus
	}
	if r.Failed() {
		return http.StatusInternalServerError
	}
	return http.StatusOK
}
