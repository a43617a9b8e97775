package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/nzmon/nzmon/internal/config"
	"github.com/nzmon/nzmon/internal/errors"
	"github.com/nzmon/nzmon/internal/output"
)

// ProbeResponse is the body of POST /api/settings/test.
type ProbeResponse struct {
	OK      bool              `json:"ok"`
	Outcome string            `json:"outcome"`
	Servers int               `json:"servers"`
	Error   *output.ErrorBody `json:"error,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, output.Success(map[string]string{"status": "ok"}))
}

func (s *Server) handleItems(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, output.Success(s.widget.Items()))
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, output.Success(s.widget.Snapshot()))
}

func (s *Server) handlePoll(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, output.Success(s.widget.Poll(r.Context())))
}

func (s *Server) handleTooltip(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, s.widget.Tooltip()+"\n")
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, output.Success(s.widget.Settings().Redacted()))
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	next, ok := decodeSettings(w, r)
	if !ok {
		return
	}
	next = next.WithPasswordFrom(s.widget.Settings())

	if err := s.widget.ApplySettings(next); err != nil {
		s.log.Warn("settings rejected: %s", errors.Summary(err))
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, output.Success(s.widget.Settings().Redacted()))
}

// handleTestSettings probes the posted settings, or the current ones when
// the body is empty. A failed probe is still a 200: the outcome is the data.
func (s *Server) handleTestSettings(w http.ResponseWriter, r *http.Request) {
	current := s.widget.Settings()
	settings := current
	if r.ContentLength != 0 {
		posted, ok := decodeSettings(w, r)
		if !ok {
			return
		}
		settings = posted.WithPasswordFrom(current)
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.opts.ProbeTimeout)
	defer cancel()

	select {
	case res := <-s.widget.TestConnection(ctx, settings):
		writeJSON(w, r, http.StatusOK, output.Success(ProbeResponse{
			OK:      res.OK(),
			Outcome: res.Outcome.String(),
			Servers: res.Servers,
			Error:   output.ErrorToBody(res.Err),
		}))
	case <-ctx.Done():
		writeJSON(w, r, http.StatusGatewayTimeout, output.Failure(
			errors.WrapWithCode(ctx.Err(), errors.ErrTransport,
				"Connection test timed out", "")))
	}
}

// decodeSettings reads a settings body, answering 400 itself on failure.
func decodeSettings(w http.ResponseWriter, r *http.Request) (config.Settings, bool) {
	var s config.Settings
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&s); err != nil {
		writeJSON(w, r, http.StatusBadRequest, output.Envelope{Error: &output.ErrorBody{
			Code:    output.CodeBadRequest,
			Message: "Invalid settings body: " + err.Error(),
		}})
		return config.Settings{}, false
	}
	return s, true
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	env := output.Failure(err)
	writeJSON(w, r, output.HTTPStatus(env.Error.Code), env)
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, env output.Envelope) {
	if env.Error != nil {
		env.Error.RequestID = middleware.GetReqID(r.Context())
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = output.WriteJSON(w, env)
}
