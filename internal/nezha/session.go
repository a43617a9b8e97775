package nezha

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/nzmon/nzmon/internal/errors"
	"github.com/nzmon/nzmon/internal/logger"
)

// Session holds the bearer token for one set of credentials and performs
// login when there is none.
type Session struct {
	creds     Credentials
	transport *Transport
	log       logger.Logger

	mu     sync.Mutex // serializes login and guards token
	token  string
	logins int
}

// NewSession creates an unauthenticated session.
func NewSession(creds Credentials, transport *Transport, log logger.Logger) *Session {
	return &Session{
		creds:     creds,
		transport: transport,
		log:       logger.OrDefault(log),
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginData struct {
	Token string `json:"token"`
}

// EnsureAuthenticated logs in unless a token is already held. Concurrent
// callers queue on the session lock; the first logs in and the rest find the
// token and return.
func (s *Session) EnsureAuthenticated(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" {
		return nil
	}

	s.logins++
	url := s.creds.APIBase() + "/login"
	s.log.Debug("logging in to %s as %s", url, s.creds.Username)

	body, err := json.Marshal(loginRequest{Username: s.creds.Username, Password: s.creds.Password})
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrAuth, "Failed to encode login request", "")
	}

	resp, err := s.transport.Request(ctx, http.MethodPost, url, body, "")
	if err != nil {
		s.log.Warn("login to %s failed: %s", url, errors.Summary(err))
		return errors.WrapWithCode(err, errors.ErrAuth,
			"Login failed: dashboard unreachable",
			"Check the server URL and your network connection")
	}

	token := ""
	if resp.Success && len(resp.Data) > 0 {
		var data loginData
		if json.Unmarshal(resp.Data, &data) == nil {
			token = data.Token
		}
	}
	if token == "" {
		reason := resp.Error
		if reason == "" {
			reason = http.StatusText(resp.HTTPStatus)
		}
		s.log.Warn("login to %s rejected: %s", url, reason)
		return errors.New(errors.ErrAuth,
			"Login rejected: "+reason,
			"Check the username and password")
	}

	s.token = token
	s.log.Info("logged in to %s as %s", s.creds.APIBase(), s.creds.Username)
	return nil
}

// CurrentToken returns the held token and whether there is one.
func (s *Session) CurrentToken() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, s.token != ""
}

// Invalidate discards the token so the next call logs in again.
func (s *Session) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
}

// invalidateIfCurrent clears the token only if it is still the one that was
// rejected. A newer token from a concurrent login stays.
func (s *Session) invalidateIfCurrent(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == token {
		s.token = ""
	}
}

// LoginCount returns how many login attempts this session has made.
func (s *Session) LoginCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logins
}
