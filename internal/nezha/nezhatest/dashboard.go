// Package nezhatest provides an in-process fake Nezha dashboard for tests.
package nezhatest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// Dashboard is a fake dashboard API. Configure it with the setters; all
// counters are safe to read while requests are in flight.
type Dashboard struct {
	*httptest.Server

	mu         sync.Mutex
	username   string
	password   string
	servers    []map[string]any
	listBody   string
	loginDelay time.Duration
	reject     int  // number of upcoming list calls to answer with 401
	rejectAll  bool // answer every list call with 401
	httpStatus bool // send 401s as HTTP status instead of a JSON status field
	token      string
	logins     int
	lists      int
	authHeader []string
}

// NewDashboard starts a fake dashboard accepting the given account.
func NewDashboard(username, password string) *Dashboard {
	d := &Dashboard{username: username, password: password}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/login", d.handleLogin)
	mux.HandleFunc("/api/v1/server", d.handleServers)
	d.Server = httptest.NewServer(mux)
	return d
}

// SetServers replaces the server list.
func (d *Dashboard) SetServers(servers ...map[string]any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.servers = servers
	d.listBody = ""
}

// SetListBody makes the list endpoint answer with body verbatim.
func (d *Dashboard) SetListBody(body string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listBody = body
}

// SetLoginDelay slows logins down to widen race windows.
func (d *Dashboard) SetLoginDelay(delay time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.loginDelay = delay
}

// RejectNext answers the next n list calls with 401 regardless of token.
func (d *Dashboard) RejectNext(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reject = n
}

// RejectAll answers every list call with 401.
func (d *Dashboard) RejectAll(on bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rejectAll = on
}

// UseHTTPStatus sends rejections as a bare HTTP 401 instead of a JSON body
// with "status": 401.
func (d *Dashboard) UseHTTPStatus(on bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.httpStatus = on
}

// ExpireToken makes the current token invalid, as if it timed out.
func (d *Dashboard) ExpireToken() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.token = ""
}

// Logins returns the number of successful logins.
func (d *Dashboard) Logins() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.logins
}

// Lists returns the number of list calls received.
func (d *Dashboard) Lists() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lists
}

// AuthHeaders returns the Authorization header of every list call.
func (d *Dashboard) AuthHeaders() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.authHeader...)
}

func (d *Dashboard) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "bad request"})
		return
	}

	d.mu.Lock()
	delay := d.loginDelay
	d.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}

	d.mu.Lock()
	if req.Username != d.username || req.Password != d.password {
		d.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "error": "invalid credentials"})
		return
	}
	d.logins++
	d.token = fmt.Sprintf("token-%d", d.logins)
	token := d.token
	d.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    map[string]any{"token": token, "expire": time.Now().Add(time.Hour).Format(time.RFC3339)},
	})
}

func (d *Dashboard) handleServers(w http.ResponseWriter, r *http.Request) {
	d.mu.Lock()
	d.lists++
	auth := r.Header.Get("Authorization")
	d.authHeader = append(d.authHeader, auth)

	valid := d.token != "" && auth == "Bearer "+d.token
	if d.reject > 0 {
		d.reject--
		valid = false
	}
	if d.rejectAll {
		valid = false
	}
	httpStatus := d.httpStatus
	body := d.listBody
	servers := d.servers
	d.mu.Unlock()

	if !valid {
		if httpStatus {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": 401, "success": false, "error": "unauthorized"})
		return
	}

	if body != "" {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
		return
	}
	if servers == nil {
		servers = []map[string]any{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": servers})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Server builds a server entry with state and host sections. Extra state
// fields (such as net_in_speed) can be passed as key/value pairs.
func Server(id int, cpu, memUsed, memTotal, diskUsed, diskTotal float64, extra ...any) map[string]any {
	state := map[string]any{
		"cpu":       cpu,
		"mem_used":  memUsed,
		"disk_used": diskUsed,
	}
	for i := 0; i+1 < len(extra); i += 2 {
		if k, ok := extra[i].(string); ok {
			state[k] = extra[i+1]
		}
	}
	return map[string]any{
		"id":   id,
		"name": fmt.Sprintf("server-%d", id),
		"host": map[string]any{
			"platform":   "linux",
			"mem_total":  memTotal,
			"disk_total": diskTotal,
		},
		"state": state,
	}
}

// BareServer builds a server entry without state or host sections.
func BareServer(id int) map[string]any {
	return map[string]any{"id": id, "name": fmt.Sprintf("server-%d", id)}
}
