package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nzmon/nzmon/internal/errors"
	"github.com/nzmon/nzmon/internal/logger"
	"github.com/nzmon/nzmon/internal/nezha"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the number of servers fetched at once.
const DefaultConcurrency = 4

// Fetcher fetches one server's data. *nezha.Client implements it.
type Fetcher interface {
	FetchServer(ctx context.Context, id int) (*nezha.ServerResult, error)
}

// PollerOptions configures a Poller.
type PollerOptions struct {
	// Concurrency caps parallel fetches. Zero means DefaultConcurrency.
	Concurrency int

	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time

	// History receives readings after every cycle. Optional.
	History *History

	Logger logger.Logger
}

// Poller runs poll cycles over an ordered list of server IDs.
type Poller struct {
	fetcher     Fetcher
	ids         []int
	rates       *RateComputer
	history     *History
	clock       func() time.Time
	epoch       time.Time
	concurrency int
	log         logger.Logger

	running sync.Mutex // held for the duration of a cycle

	mu   sync.Mutex
	last Snapshot
}

// NewPoller creates a poller. A nil fetcher means nothing is configured yet:
// cycles keep returning the waiting snapshot.
func NewPoller(fetcher Fetcher, ids []int, rates *RateComputer, opts PollerOptions) *Poller {
	if rates == nil {
		rates = NewRateComputer()
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	ids = append([]int(nil), ids...)

	return &Poller{
		fetcher:     fetcher,
		ids:         ids,
		rates:       rates,
		history:     opts.History,
		clock:       clock,
		epoch:       clock(),
		concurrency: concurrency,
		log:         logger.OrDefault(opts.Logger),
		last:        WaitingSnapshot(ids),
	}
}

// IDs returns the tracked server IDs in display order.
func (p *Poller) IDs() []int {
	return append([]int(nil), p.ids...)
}

// Last returns the most recent snapshot.
func (p *Poller) Last() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last.Clone()
}

// nowMs returns wall-clock milliseconds that advance with the monotonic
// clock, so samples never go backwards when the system clock is adjusted.
func (p *Poller) nowMs() int64 {
	return p.epoch.UnixMilli() + p.clock().Sub(p.epoch).Milliseconds()
}

// PollOnce runs one cycle and returns its snapshot. If a cycle is already in
// progress the previous snapshot is returned unchanged.
func (p *Poller) PollOnce(ctx context.Context) Snapshot {
	if !p.running.TryLock() {
		p.log.Warn("poll already in progress, skipping")
		return p.Last()
	}
	defer p.running.Unlock()

	if p.fetcher == nil {
		return p.Last()
	}

	snap := p.cycle(ctx)

	p.mu.Lock()
	p.last = snap
	p.mu.Unlock()
	return snap.Clone()
}

type fetchOutcome struct {
	result *nezha.ServerResult
	err    error
	atMs   int64
}

func (p *Poller) cycle(ctx context.Context) (snap Snapshot) {
	prev := p.Last()

	defer func() {
		if r := recover(); r != nil {
			p.log.Error("poll cycle panicked: %v", r)
			snap = WaitingSnapshot(p.ids).Failed(fmt.Sprint(r))
			snap.UpdatedAt = p.clock()
			snap.Cycle = prev.Cycle + 1
		}
	}()

	outcomes := p.fetchAll(ctx)

	snap = Snapshot{
		Servers:   make([]ServerSnapshot, len(p.ids)),
		UpdatedAt: p.clock(),
		Cycle:     prev.Cycle + 1,
	}

	// Rates are computed once per distinct ID, in display order.
	computed := make(map[int]ServerSnapshot, len(outcomes))
	var total Rates
	for i, id := range p.ids {
		s, ok := computed[id]
		if !ok {
			s = p.build(id, outcomes[id])
			computed[id] = s
			if p.history != nil {
				p.history.Push(s)
			}
		}
		snap.Servers[i] = s
		total.UploadBps += s.Rates.UploadBps
		total.DownloadBps += s.Rates.DownloadBps
	}

	snap.TotalRates = total
	snap.TotalNetwork = FormatNetwork(total)
	if p.history != nil {
		p.history.PushTotal(total.Total())
	}
	return snap
}

// fetchAll fetches every distinct ID. A panic in a fetch goroutine is
// re-raised here so the cycle's recover sees it.
func (p *Poller) fetchAll(ctx context.Context) map[int]fetchOutcome {
	var (
		mu       sync.Mutex
		outcomes = make(map[int]fetchOutcome, len(p.ids))
		panicked any
		g        errgroup.Group
		seen     = make(map[int]bool, len(p.ids))
	)
	g.SetLimit(p.concurrency)

	for _, id := range p.ids {
		if seen[id] {
			continue
		}
		seen[id] = true

		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					mu.Lock()
					panicked = r
					mu.Unlock()
				}
			}()

			result, err := p.fetcher.FetchServer(ctx, id)
			at := p.nowMs()

			mu.Lock()
			outcomes[id] = fetchOutcome{result: result, err: err, atMs: at}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if panicked != nil {
		panic(panicked)
	}
	return outcomes
}

// build turns one fetch outcome into formatted values, feeding the rate
// computer when the reply had readings.
func (p *Poller) build(id int, o fetchOutcome) ServerSnapshot {
	if o.err != nil {
		p.log.Warn("server %d: %s", id, errors.Summary(o.err))
		return placeholderServer(id, StatusFailed, PlaceholderFailed, errors.Summary(o.err))
	}
	if !o.result.HasMetrics() {
		reason := noDataReason(o.result)
		p.log.Debug("server %d: %s", id, reason)
		s := placeholderServer(id, StatusNoData, PlaceholderNoData, reason)
		if o.result != nil && o.result.Server != nil {
			s.Name = o.result.Server.Name
		}
		return s
	}

	srv := o.result.Server
	state, host := srv.State, srv.Host

	sample := SampleFromState(state, o.atMs)
	rates := p.rates.Compute(id, sample)
	p.log.Debug("server %d: network from %s", id, sample.Mode())

	return ServerSnapshot{
		ID:          id,
		Name:        srv.Name,
		Status:      StatusOK,
		CPU:         FormatCPU(state.CPU),
		Memory:      FormatUsage(state.MemUsed, host.MemTotal),
		Disk:        FormatUsage(state.DiskUsed, host.DiskTotal),
		Network:     FormatNetwork(rates),
		CPUPercent:  round2(state.CPU),
		MemPercent:  usagePercent(state.MemUsed, host.MemTotal),
		DiskPercent: usagePercent(state.DiskUsed, host.DiskTotal),
		Rates:       rates,
	}
}

func noDataReason(r *nezha.ServerResult) string {
	if r == nil {
		return "empty reply"
	}
	switch r.Kind {
	case nezha.ResultNotFound:
		return fmt.Sprintf("server %d not found", r.ID)
	case nezha.ResultMalformed:
		return nezha.MalformedError
	case nezha.ResultRaw:
		if r.Error != "" {
			return r.Error
		}
		return "no server list in reply"
	default:
		return "no state data"
	}
}
