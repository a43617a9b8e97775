package output

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/nzmon/nzmon/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorToBody(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   string
		wantStatus int
	}{
		{"config invalid", errors.New(errors.ErrConfig, "Too many servers", ""), CodeConfigInvalid, http.StatusUnprocessableEntity},
		{"config missing", errors.New(errors.ErrConfig, "Config file not found", ""), CodeConfigNotFound, http.StatusUnprocessableEntity},
		{"transport", errors.New(errors.ErrTransport, "Request failed", ""), CodeUnreachable, http.StatusBadGateway},
		{"auth", errors.New(errors.ErrAuth, "Login rejected", ""), CodeAuthFailed, http.StatusBadGateway},
		{"not found", errors.New(errors.ErrNotFound, "server not found", ""), CodeNotFound, http.StatusNotFound},
		{"malformed", errors.New(errors.ErrMalformed, "invalid response", ""), CodeMalformed, http.StatusBadGateway},
		{"wrapped", fmt.Errorf("outer: %w", errors.New(errors.ErrAuth, "x", "")), CodeAuthFailed, http.StatusBadGateway},
		{"plain", stderrors.New("boom"), CodeUnknown, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := ErrorToBody(tt.err)
			require.NotNil(t, body)
			assert.Equal(t, tt.wantCode, body.Code)
			assert.Equal(t, tt.wantStatus, HTTPStatus(body.Code))
		})
	}

	assert.Nil(t, ErrorToBody(nil))
}

func TestErrorToBodyMessage(t *testing.T) {
	err := errors.WrapWithCode(stderrors.New("dial tcp: refused\nmore"), errors.ErrTransport,
		"Request failed", "Check the server URL")
	body := ErrorToBody(err)
	assert.Equal(t, "Request failed: dial tcp: refused", body.Message)
	assert.Equal(t, "Check the server URL", body.Suggestion)
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSuccess(&buf, map[string]int{"n": 1}))

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, true, got["success"])
	assert.NotContains(t, got, "error")

	buf.Reset()
	require.NoError(t, WriteError(&buf, errors.New(errors.ErrAuth, "Login rejected", "")))
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, false, got["success"])
	errBody, ok := got["error"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, CodeAuthFailed, errBody["code"])
	assert.Equal(t, "Login rejected", errBody["message"])
}

func TestHTTPStatusBadRequest(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(CodeBadRequest))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus("whatever"))
}
