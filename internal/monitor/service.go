package monitor

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nzmon/nzmon/internal/config"
	"github.com/nzmon/nzmon/internal/errors"
	"github.com/nzmon/nzmon/internal/logger"
	"github.com/nzmon/nzmon/internal/nezha"
)

// Metric names used in item IDs.
const (
	MetricCPU  = "CPU"
	MetricMem  = "MEM"
	MetricDisk = "DISK"
	MetricNet  = "NET"

	// TotalItemID is the ID of the combined throughput item.
	TotalItemID = "TOTAL_NET"
)

// Connection states reported by the tooltip.
const (
	StateConnected     = "connected"
	StateNotConnected  = "not connected"
	StateNotConfigured = "not configured"
)

// Item is one displayable metric.
type Item struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Value    string `json:"value"`
	ServerID int    `json:"server_id,omitempty"`
	Metric   string `json:"metric"`
}

// Widget is what a display host needs from the service.
type Widget interface {
	Items() []Item
	Poll(ctx context.Context) Snapshot
	Snapshot() Snapshot
	Settings() config.Settings
	ApplySettings(s config.Settings) error
	TestConnection(ctx context.Context, s config.Settings) <-chan nezha.ProbeResult
	Tooltip() string
}

// ServiceOptions configures a Service.
type ServiceOptions struct {
	// Store persists settings accepted by ApplySettings. Defaults to
	// config.NopStore.
	Store config.Store

	// Transport is used for every client the service builds.
	Transport nezha.TransportOptions

	Concurrency int
	Clock       func() time.Time
	History     *History
	Logger      logger.Logger
}

// Service owns the settings, the API client, the poller and the latest
// snapshot. Hosts read snapshots while a poll is writing one.
type Service struct {
	opts    ServiceOptions
	store   config.Store
	rates   *RateComputer
	history *History
	log     logger.Logger

	mu       sync.RWMutex
	settings config.Settings
	client   *nezha.Client
	poller   *Poller
	snapshot Snapshot
}

var _ Widget = (*Service)(nil)

// NewService creates a service for the given settings. Nothing is fetched
// until Poll is called.
func NewService(settings config.Settings, opts ServiceOptions) *Service {
	log := logger.OrDefault(opts.Logger)
	opts.Logger = log
	if opts.Transport.Logger == nil {
		opts.Transport.Logger = log
	}
	store := opts.Store
	if store == nil {
		store = config.NopStore
	}
	history := opts.History
	if history == nil {
		history = NewHistory(DefaultHistorySize)
	}

	s := &Service{
		opts:    opts,
		store:   store,
		rates:   NewRateComputer(),
		history: history,
		log:     log,
	}
	s.install(settings.Normalized())
	return s
}

// install swaps in a client and poller for settings. Callers hold s.mu or
// are the constructor.
func (s *Service) install(settings config.Settings) {
	var client *nezha.Client
	var fetcher Fetcher
	if settings.Configured() {
		client = nezha.NewClient(credentialsFor(settings), s.opts.Transport)
		fetcher = client
	}

	s.settings = settings
	s.client = client
	s.poller = NewPoller(fetcher, settings.ServerIDs, s.rates, PollerOptions{
		Concurrency: s.opts.Concurrency,
		Clock:       s.opts.Clock,
		History:     s.history,
		Logger:      s.log,
	})
	s.snapshot = s.poller.Last()
}

func credentialsFor(s config.Settings) nezha.Credentials {
	return nezha.Credentials{BaseURL: s.ServerURL, Username: s.Username, Password: s.Password}
}

// Poll runs a poll cycle and stores its snapshot.
func (s *Service) Poll(ctx context.Context) Snapshot {
	s.mu.RLock()
	poller := s.poller
	s.mu.RUnlock()

	snap := poller.PollOnce(ctx)

	s.mu.Lock()
	// Settings may have been replaced mid-cycle; drop the stale result.
	if s.poller == poller {
		s.snapshot = snap
	}
	s.mu.Unlock()
	return snap
}

// Snapshot returns the latest snapshot.
func (s *Service) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot.Clone()
}

// History returns the service's reading history.
func (s *Service) History() *History {
	return s.history
}

// Items lists every metric: four per tracked server followed by the total.
func (s *Service) Items() []Item {
	snap := s.Snapshot()
	return ItemsFor(snap)
}

// ItemsFor lists the items of a snapshot.
func ItemsFor(snap Snapshot) []Item {
	items := make([]Item, 0, len(snap.Servers)*4+1)
	for _, srv := range snap.Servers {
		items = append(items,
			serverItem(srv.ID, MetricCPU, "CPU", srv.CPU),
			serverItem(srv.ID, MetricMem, "Memory", srv.Memory),
			serverItem(srv.ID, MetricDisk, "Disk", srv.Disk),
			serverItem(srv.ID, MetricNet, "Network", srv.Network),
		)
	}
	items = append(items, Item{
		ID:     TotalItemID,
		Label:  "Total network",
		Value:  snap.TotalNetwork,
		Metric: MetricNet,
	})
	return items
}

func serverItem(id int, metric, label, value string) Item {
	return Item{
		ID:       fmt.Sprintf("S%d%s", id, metric),
		Label:    fmt.Sprintf("S%d %s", id, label),
		Value:    value,
		ServerID: id,
		Metric:   metric,
	}
}

// Settings returns the current settings.
func (s *Service) Settings() config.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings.Normalized()
}

// ApplySettings validates and adopts new settings. The client is replaced
// wholesale so the old session token is never reused, rate state for IDs no
// longer tracked is dropped, and every value resets to the waiting
// placeholder. The settings are persisted before anything changes.
func (s *Service) ApplySettings(next config.Settings) error {
	next = next.Normalized()
	if err := config.ValidateSettings(next); err != nil {
		return err
	}
	if err := s.store.Save(next); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to save settings", "Check the config file location is writable")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	keep := make(map[int]bool, len(next.ServerIDs))
	for _, id := range next.ServerIDs {
		keep[id] = true
	}
	for _, id := range s.settings.ServerIDs {
		if !keep[id] {
			s.rates.Forget(id)
		}
	}
	s.history.Retain(next.ServerIDs)

	s.install(next)
	s.log.Info("settings applied: %s as %s, servers %s",
		next.ServerURL, next.Username, config.FormatIDs(next.ServerIDs))
	return nil
}

// TestConnection probes settings with a throwaway client, leaving the live
// session alone.
func (s *Service) TestConnection(ctx context.Context, settings config.Settings) <-chan nezha.ProbeResult {
	settings = settings.Normalized()
	if !settings.Configured() {
		ch := make(chan nezha.ProbeResult, 1)
		ch <- nezha.ProbeResult{
			Outcome: nezha.ProbeFailed,
			Err:     errors.New(errors.ErrConfig, "Server URL is required", "Enter your dashboard address"),
		}
		close(ch)
		return ch
	}
	return nezha.NewClient(credentialsFor(settings), s.opts.Transport).Probe(ctx)
}

// ConnectionState reports "connected" once the latest cycle got an answer
// from the dashboard for at least one server. Holding a token is not enough.
func (s *Service) ConnectionState() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch {
	case s.client == nil:
		return StateNotConfigured
	case s.snapshot.Reached():
		return StateConnected
	default:
		return StateNotConnected
	}
}

// Tooltip summarizes the configuration, connection state and the readings
// of every server that has some.
func (s *Service) Tooltip() string {
	settings := s.Settings()
	snap := s.Snapshot()
	state := s.ConnectionState()

	var b strings.Builder
	if settings.ServerURL != "" {
		fmt.Fprintf(&b, "Server: %s\n", settings.ServerURL)
	}
	if settings.Username != "" {
		fmt.Fprintf(&b, "User: %s\n", settings.Username)
	}
	if len(settings.ServerIDs) > 0 {
		ids := make([]string, len(settings.ServerIDs))
		for i, id := range settings.ServerIDs {
			ids[i] = fmt.Sprint(id)
		}
		fmt.Fprintf(&b, "Servers: %s\n", strings.Join(ids, ", "))
	}
	fmt.Fprintf(&b, "Status: %s\n", state)

	if state != StateConnected {
		return strings.TrimRight(b.String(), "\n")
	}

	for _, srv := range snap.Servers {
		fmt.Fprintf(&b, "\nServer %d:\n", srv.ID)
		for _, line := range []struct{ label, value string }{
			{"CPU", srv.CPU},
			{"Memory", srv.Memory},
			{"Disk", srv.Disk},
			{"Network", srv.Network},
		} {
			if line.value == "" || IsPlaceholder(line.value) {
				continue
			}
			fmt.Fprintf(&b, "  %s: %s\n", line.label, line.value)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
