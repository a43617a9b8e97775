// Package nezha is a client for the Nezha monitoring dashboard API: a JSON
// transport, a login session that re-authenticates when the token expires,
// and server list fetching.
package nezha

import "strings"

// APIPrefix is appended to the configured base URL for every API call.
const APIPrefix = "/api/v1"

// Credentials identify one dashboard account. A Client never mutates them;
// changing settings means building a new Client.
type Credentials struct {
	BaseURL  string
	Username string
	Password string
}

// APIBase returns the base URL with trailing slashes removed and the API
// prefix appended.
func (c Credentials) APIBase() string {
	return strings.TrimRight(strings.TrimSpace(c.BaseURL), "/") + APIPrefix
}

// Server is one entry of the dashboard's server list.
type Server struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Host  *Host  `json:"host"`
	State *State `json:"state"`
}

// Host holds the mostly static properties of a server.
type Host struct {
	Platform        string   `json:"platform"`
	PlatformVersion string   `json:"platform_version"`
	Arch            string   `json:"arch"`
	CPU             []string `json:"cpu"`
	MemTotal        float64  `json:"mem_total"`
	DiskTotal       float64  `json:"disk_total"`
	SwapTotal       float64  `json:"swap_total"`
	BootTime        int64    `json:"boot_time"`
}

// State holds the live readings of a server. Network fields are pointers so
// a missing field can be told apart from a zero reading.
type State struct {
	CPU      float64 `json:"cpu"`
	MemUsed  float64 `json:"mem_used"`
	DiskUsed float64 `json:"disk_used"`
	Uptime   float64 `json:"uptime"`
	Load1    float64 `json:"load_1"`

	NetInSpeed  *float64 `json:"net_in_speed"`
	NetOutSpeed *float64 `json:"net_out_speed"`

	NetIn  *float64 `json:"net_in"`
	NetOut *float64 `json:"net_out"`

	NetInTransfer  *float64 `json:"net_in_transfer"`
	NetOutTransfer *float64 `json:"net_out_transfer"`
}

// Speeds returns the reported instantaneous rates in bytes per second.
// ok is false when neither speed field is present; a single missing field
// reads as 0.
func (s *State) Speeds() (up, down float64, ok bool) {
	if s.NetOutSpeed == nil && s.NetInSpeed == nil {
		return 0, 0, false
	}
	return deref(s.NetOutSpeed), deref(s.NetInSpeed), true
}

// Counters returns the cumulative byte counters. The net_in/net_out names
// win over net_in_transfer/net_out_transfer when a reply carries both.
func (s *State) Counters() (out, in float64, ok bool) {
	if s.NetOut != nil || s.NetIn != nil {
		return deref(s.NetOut), deref(s.NetIn), true
	}
	if s.NetOutTransfer != nil || s.NetInTransfer != nil {
		return deref(s.NetOutTransfer), deref(s.NetInTransfer), true
	}
	return 0, 0, false
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

// ResultKind tells the variants of a fetch result apart.
type ResultKind int

const (
	// ResultServer carries a single server payload.
	ResultServer ResultKind = iota
	// ResultServers carries the whole list.
	ResultServers
	// ResultNotFound means the list was fetched but the ID is not in it.
	ResultNotFound
	// ResultMalformed means the dashboard replied with something other than JSON.
	ResultMalformed
	// ResultRaw is a JSON reply without a server list, passed through as is.
	ResultRaw
)

func (k ResultKind) String() string {
	switch k {
	case ResultServer:
		return "server"
	case ResultServers:
		return "servers"
	case ResultNotFound:
		return "not found"
	case ResultMalformed:
		return "malformed"
	case ResultRaw:
		return "raw"
	default:
		return "unknown"
	}
}

// NotFoundError is the Error text of a ResultNotFound.
const NotFoundError = "server not found"

// ServerResult is the outcome of a fetch that reached the dashboard.
type ServerResult struct {
	Kind ResultKind

	// Server is set for ResultServer.
	Server *Server
	// Servers is set for ResultServers.
	Servers []Server

	// ID echoes the requested ID for ResultNotFound.
	ID int

	// Error describes ResultNotFound, ResultMalformed and (when the dashboard
	// sent one) ResultRaw.
	Error string

	// Raw is the reply body for ResultMalformed and ResultRaw.
	Raw string
}

// HasMetrics reports whether the result is a server with both live state
// and host totals.
func (r *ServerResult) HasMetrics() bool {
	return r != nil && r.Kind == ResultServer && r.Server != nil &&
		r.Server.State != nil && r.Server.Host != nil
}
