// Package output holds the machine-readable response shape shared by the
// CLI --json mode and the HTTP host.
package output

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/nzmon/nzmon/internal/errors"
)

// Envelope wraps every JSON response.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
}

// ErrorBody describes a failure for machine consumers.
type ErrorBody struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
	RequestID  string `json:"request_id,omitempty"`
}

// Machine-readable error codes.
const (
	CodeConfigNotFound = "CONFIG_NOT_FOUND"
	CodeConfigInvalid  = "CONFIG_INVALID"
	CodeUnreachable    = "DASHBOARD_UNREACHABLE"
	CodeAuthFailed     = "AUTH_FAILED"
	CodeNotFound       = "NOT_FOUND"
	CodeMalformed      = "MALFORMED_REPLY"
	CodeBadRequest     = "BAD_REQUEST"
	CodeUnknown        = "UNKNOWN"
)

// Success wraps data in a successful envelope.
func Success(data interface{}) Envelope {
	return Envelope{Success: true, Data: data}
}

// Failure wraps err in a failed envelope.
func Failure(err error) Envelope {
	return Envelope{Error: ErrorToBody(err)}
}

// ErrorToBody converts err to an ErrorBody with a mapped code.
func ErrorToBody(err error) *ErrorBody {
	if err == nil {
		return nil
	}

	var nzErr *errors.Error
	if errors.As(err, &nzErr) {
		return &ErrorBody{
			Code:       mapErrorCode(nzErr.Code, nzErr.Message),
			Message:    nzErr.Short(),
			Suggestion: nzErr.Suggestion,
		}
	}
	return &ErrorBody{Code: CodeUnknown, Message: errors.Summary(err)}
}

func mapErrorCode(code, message string) string {
	switch code {
	case errors.ErrConfig:
		lower := strings.ToLower(message)
		if strings.Contains(lower, "not found") {
			return CodeConfigNotFound
		}
		return CodeConfigInvalid
	case errors.ErrTransport:
		return CodeUnreachable
	case errors.ErrAuth:
		return CodeAuthFailed
	case errors.ErrNotFound:
		return CodeNotFound
	case errors.ErrMalformed:
		return CodeMalformed
	}
	return CodeUnknown
}

// HTTPStatus picks a response status for a mapped error code.
func HTTPStatus(code string) int {
	switch code {
	case CodeBadRequest:
		return http.StatusBadRequest
	case CodeConfigInvalid, CodeConfigNotFound:
		return http.StatusUnprocessableEntity
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnreachable, CodeAuthFailed, CodeMalformed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// WriteJSON writes env indented, one document per call.
func WriteJSON(w io.Writer, env Envelope) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(env)
}

// WriteSuccess writes a successful envelope around data.
func WriteSuccess(w io.Writer, data interface{}) error {
	return WriteJSON(w, Success(data))
}

// WriteError writes a failed envelope for err.
func WriteError(w io.Writer, err error) error {
	return WriteJSON(w, Failure(err))
}
