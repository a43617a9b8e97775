package nezha

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/nzmon/nzmon/internal/errors"
	"github.com/nzmon/nzmon/internal/logger"
	"github.com/sethvargo/go-retry"
)

// Client fetches server data for one set of credentials.
type Client struct {
	creds     Credentials
	transport *Transport
	session   *Session
	log       logger.Logger
}

// NewClient builds a client with its own transport and session.
func NewClient(creds Credentials, opts TransportOptions) *Client {
	log := logger.OrDefault(opts.Logger)
	opts.Logger = log
	transport := NewTransport(opts)
	return &Client{
		creds:     creds,
		transport: transport,
		session:   NewSession(creds, transport, log),
		log:       log,
	}
}

// Credentials returns the credentials the client was built with.
func (c *Client) Credentials() Credentials {
	return c.creds
}

// Session exposes the client's auth session.
func (c *Client) Session() *Session {
	return c.session
}

// reauthOnce allows one retry, immediately, after a rejected token.
func reauthOnce() retry.Backoff {
	return retry.WithMaxRetries(1, retry.BackoffFunc(func() (time.Duration, bool) {
		return 0, false
	}))
}

// get performs an authenticated GET. If the dashboard rejects the token, the
// token is dropped and the request is retried once with a fresh login. A
// second rejection is an ErrAuth error.
func (c *Client) get(ctx context.Context, path string) (*Response, error) {
	url := c.creds.APIBase() + path

	var resp *Response
	attempt := 0
	err := retry.Do(ctx, reauthOnce(), func(ctx context.Context) error {
		attempt++
		if err := c.session.EnsureAuthenticated(ctx); err != nil {
			return err
		}
		token, _ := c.session.CurrentToken()

		r, err := c.transport.Request(ctx, http.MethodGet, url, nil, token)
		if err != nil {
			return err
		}
		if !r.Unauthorized() {
			resp = r
			return nil
		}

		c.session.invalidateIfCurrent(token)
		if attempt > 1 {
			return errors.New(errors.ErrAuth,
				"Session rejected after re-authentication",
				"The account may lack API access; check it in the dashboard")
		}
		c.log.Debug("token rejected by %s, logging in again", url)
		return retry.RetryableError(errors.New(errors.ErrAuth, "Session token rejected", ""))
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// listResult turns a /server reply into a result. ok is false when the reply
// carried no server list, in which case the returned result is final.
func listResult(resp *Response) ([]Server, *ServerResult, bool) {
	if resp.Malformed {
		return nil, &ServerResult{Kind: ResultMalformed, Error: resp.Error, Raw: resp.Raw}, false
	}

	var entries []json.RawMessage
	if len(resp.Data) == 0 || json.Unmarshal(resp.Data, &entries) != nil {
		return nil, &ServerResult{Kind: ResultRaw, Error: resp.Error, Raw: resp.Raw}, false
	}

	servers := make([]Server, 0, len(entries))
	for _, raw := range entries {
		var s Server
		if err := json.Unmarshal(raw, &s); err != nil {
			continue
		}
		servers = append(servers, s)
	}
	return servers, nil, true
}

// FetchServer fetches the server list and picks the entry with the given ID.
// An absent ID is a ResultNotFound, not an error; errors are reserved for
// auth and transport failures.
func (c *Client) FetchServer(ctx context.Context, id int) (*ServerResult, error) {
	resp, err := c.get(ctx, "/server")
	if err != nil {
		return nil, err
	}

	servers, final, ok := listResult(resp)
	if !ok {
		return final, nil
	}

	for i := range servers {
		if servers[i].ID == id {
			return &ServerResult{Kind: ResultServer, Server: &servers[i], ID: id}, nil
		}
	}
	return &ServerResult{Kind: ResultNotFound, ID: id, Error: NotFoundError}, nil
}

// FetchServers fetches the whole server list.
func (c *Client) FetchServers(ctx context.Context) (*ServerResult, error) {
	resp, err := c.get(ctx, "/server")
	if err != nil {
		return nil, err
	}

	servers, final, ok := listResult(resp)
	if !ok {
		return final, nil
	}
	return &ServerResult{Kind: ResultServers, Servers: servers}, nil
}

// TestConnection logs in and fetches the server list.
func (c *Client) TestConnection(ctx context.Context) error {
	_, err := c.testConnection(ctx)
	return err
}

func (c *Client) testConnection(ctx context.Context) (int, error) {
	if err := c.session.EnsureAuthenticated(ctx); err != nil {
		return 0, err
	}
	result, err := c.FetchServers(ctx)
	if err != nil {
		return 0, err
	}
	if result.Kind != ResultServers {
		msg := result.Error
		if msg == "" {
			msg = "no server list in reply"
		}
		return 0, errors.New(errors.ErrMalformed,
			"Unexpected reply from dashboard: "+msg,
			"Check the server URL points at the dashboard, not the agent port")
	}
	return len(result.Servers), nil
}

// ProbeOutcome is the result class of a connection probe.
type ProbeOutcome int

const (
	// ProbeOK means login and listing both worked.
	ProbeOK ProbeOutcome = iota
	// ProbeFailed means auth, transport or the API reply failed.
	ProbeFailed
	// ProbeCrashed means the probe hit an unexpected panic.
	ProbeCrashed
)

func (o ProbeOutcome) String() string {
	switch o {
	case ProbeOK:
		return "ok"
	case ProbeFailed:
		return "failed"
	case ProbeCrashed:
		return "crashed"
	default:
		return "unknown"
	}
}

// ProbeResult is delivered once on the channel returned by Probe.
type ProbeResult struct {
	Outcome ProbeOutcome
	Err     error

	// Servers is the number of servers visible to the account on success.
	Servers int
}

// OK reports whether the probe succeeded.
func (r ProbeResult) OK() bool {
	return r.Outcome == ProbeOK
}

// Probe runs TestConnection on its own goroutine. The returned channel
// receives exactly one result and is then closed.
func (c *Client) Probe(ctx context.Context) <-chan ProbeResult {
	ch := make(chan ProbeResult, 1)
	go func() {
		defer close(ch)
		ch <- c.probe(ctx)
	}()
	return ch
}

func (c *Client) probe(ctx context.Context) (result ProbeResult) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("connection test panicked: %v", r)
			result = ProbeResult{
				Outcome: ProbeCrashed,
				Err:     fmt.Errorf("connection test crashed: %v", r),
			}
		}
	}()

	n, err := c.testConnection(ctx)
	if err != nil {
		return ProbeResult{Outcome: ProbeFailed, Err: err}
	}
	return ProbeResult{Outcome: ProbeOK, Servers: n}
}
