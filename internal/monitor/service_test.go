package monitor

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/nzmon/nzmon/internal/config"
	"github.com/nzmon/nzmon/internal/errors"
	"github.com/nzmon/nzmon/internal/logger"
	"github.com/nzmon/nzmon/internal/nezha"
	"github.com/nzmon/nzmon/internal/nezha/nezhatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingStore struct {
	mu    sync.Mutex
	saved []config.Settings
	err   error
}

func (r *recordingStore) Save(s config.Settings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.saved = append(r.saved, s)
	return nil
}

func newTestService(t *testing.T, d *nezhatest.Dashboard, ids []int, store config.Store) *Service {
	t.Helper()
	settings := config.Settings{
		ServerURL: d.URL,
		Username:  "admin",
		Password:  "pw",
		ServerIDs: ids,
	}
	return NewService(settings, ServiceOptions{Store: store, Logger: logger.Noop()})
}

func TestServiceItems(t *testing.T) {
	d := nezhatest.NewDashboard("admin", "pw")
	defer d.Close()
	d.SetServers(nezhatest.Server(1, 0.5, 0, 0, 0, 0, "net_out_speed", 2048))

	svc := newTestService(t, d, []int{1, 2}, nil)

	items := svc.Items()
	require.Len(t, items, 9)

	wantIDs := []string{"S1CPU", "S1MEM", "S1DISK", "S1NET", "S2CPU", "S2MEM", "S2DISK", "S2NET", TotalItemID}
	for i, id := range wantIDs {
		assert.Equal(t, id, items[i].ID)
		assert.Equal(t, PlaceholderWaiting, items[i].Value)
	}
	assert.Equal(t, 1, items[0].ServerID)
	assert.Equal(t, MetricCPU, items[0].Metric)
	assert.Equal(t, "S1 CPU", items[0].Label)

	svc.Poll(context.Background())
	items = svc.Items()
	assert.Equal(t, "0.5%", items[0].Value)
	assert.Equal(t, "↑↓: 2.00 KB/s", items[3].Value)
	assert.Equal(t, PlaceholderNoData, items[4].Value)
	assert.Equal(t, "↑↓: 2.00 KB/s", items[8].Value)
}

func TestServiceUnconfigured(t *testing.T) {
	svc := NewService(config.DefaultSettings(), ServiceOptions{Logger: logger.Noop()})

	snap := svc.Poll(context.Background())
	assert.Equal(t, 0, snap.Cycle)
	assert.Equal(t, PlaceholderWaiting, snap.TotalNetwork)
	assert.Equal(t, StateNotConfigured, svc.ConnectionState())
	assert.Equal(t, "Servers: 1, 2, 3\nStatus: not configured", svc.Tooltip())
}

func TestServiceApplySettings(t *testing.T) {
	d := nezhatest.NewDashboard("admin", "pw")
	defer d.Close()
	d.SetServers(
		nezhatest.Server(1, 1, 0, 0, 0, 0, "net_out_transfer", 1000),
		nezhatest.Server(2, 2, 0, 0, 0, 0, "net_out_transfer", 1000),
	)

	store := &recordingStore{}
	svc := newTestService(t, d, []int{1, 2}, store)
	svc.Poll(context.Background())
	require.Equal(t, 2, svc.rates.Len())
	require.Equal(t, StateConnected, svc.ConnectionState())

	next := config.Settings{
		ServerURL: d.URL + "/",
		Username:  "admin",
		Password:  "pw",
		ServerIDs: []int{2, 5},
	}
	require.NoError(t, svc.ApplySettings(next))

	// Persisted in normalized form.
	require.Len(t, store.saved, 1)
	assert.Equal(t, d.URL, store.saved[0].ServerURL)
	assert.Equal(t, []int{2, 5}, svc.Settings().ServerIDs)

	// Removed IDs lose their counter state; kept ones don't.
	assert.Equal(t, 1, svc.rates.Len())

	// Fresh client, values back to waiting.
	assert.Equal(t, StateNotConnected, svc.ConnectionState())
	snap := svc.Snapshot()
	assert.Equal(t, []int{2, 5}, snap.IDs())
	for _, s := range snap.Servers {
		assert.Equal(t, PlaceholderWaiting, s.CPU)
	}
	assert.Equal(t, PlaceholderWaiting, snap.TotalNetwork)

	svc.Poll(context.Background())
	assert.Equal(t, 2, d.Logins())
}

func TestServiceApplySettingsRejected(t *testing.T) {
	d := nezhatest.NewDashboard("admin", "pw")
	defer d.Close()

	tests := []struct {
		name     string
		settings config.Settings
	}{
		{"too many servers", config.Settings{ServerURL: d.URL, Username: "a", ServerIDs: []int{1, 2, 3, 4, 5, 6, 7}}},
		{"non-positive id", config.Settings{ServerURL: d.URL, Username: "a", ServerIDs: []int{0}}},
		{"missing url", config.Settings{Username: "a", ServerIDs: []int{1}}},
		{"missing username", config.Settings{ServerURL: d.URL, ServerIDs: []int{1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &recordingStore{}
			svc := newTestService(t, d, []int{1}, store)

			err := svc.ApplySettings(tt.settings)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrConfig))
			assert.Empty(t, store.saved)
			assert.Equal(t, []int{1}, svc.Settings().ServerIDs)
		})
	}
}

func TestServiceApplySettingsStoreFailure(t *testing.T) {
	d := nezhatest.NewDashboard("admin", "pw")
	defer d.Close()

	store := &recordingStore{err: stderrors.New("disk full")}
	svc := newTestService(t, d, []int{1}, store)

	err := svc.ApplySettings(config.Settings{ServerURL: d.URL, Username: "admin", ServerIDs: []int{4}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Failed to save settings")
	assert.Equal(t, []int{1}, svc.Settings().ServerIDs)
}

func TestServiceTestConnection(t *testing.T) {
	d := nezhatest.NewDashboard("admin", "pw")
	defer d.Close()
	d.SetServers(nezhatest.BareServer(1))

	svc := newTestService(t, d, []int{1}, nil)

	wait := func(t *testing.T, ch <-chan nezha.ProbeResult) nezha.ProbeResult {
		t.Helper()
		select {
		case r := <-ch:
			return r
		case <-time.After(5 * time.Second):
			t.Fatal("probe did not resolve")
			return nezha.ProbeResult{}
		}
	}

	t.Run("ok", func(t *testing.T) {
		r := wait(t, svc.TestConnection(context.Background(), svc.Settings()))
		assert.Equal(t, nezha.ProbeOK, r.Outcome)
	})

	t.Run("bad password", func(t *testing.T) {
		s := svc.Settings()
		s.Password = "wrong"
		r := wait(t, svc.TestConnection(context.Background(), s))
		assert.Equal(t, nezha.ProbeFailed, r.Outcome)
		assert.True(t, errors.IsCode(r.Err, errors.ErrAuth))
	})

	t.Run("not configured", func(t *testing.T) {
		r := wait(t, svc.TestConnection(context.Background(), config.Settings{}))
		assert.Equal(t, nezha.ProbeFailed, r.Outcome)
		assert.True(t, errors.IsCode(r.Err, errors.ErrConfig))
	})

	// Probes never touch the live session.
	assert.Equal(t, StateNotConnected, svc.ConnectionState())
}

func TestServiceTooltip(t *testing.T) {
	d := nezhatest.NewDashboard("admin", "pw")
	defer d.Close()
	d.SetServers(nezhatest.Server(1, 0.5, 0, 0, 0, 0, "net_in_speed", 0, "net_out_speed", 0))

	svc := newTestService(t, d, []int{1, 9}, nil)

	assert.Equal(t,
		"Server: "+d.URL+"\nUser: admin\nServers: 1, 9\nStatus: not connected",
		svc.Tooltip())

	svc.Poll(context.Background())
	want := "Server: " + d.URL + "\n" +
		"User: admin\n" +
		"Servers: 1, 9\n" +
		"Status: connected\n" +
		"\n" +
		"Server 1:\n" +
		"  CPU: 0.5%\n" +
		"  Memory: 0% (0GB)\n" +
		"  Disk: 0% (0GB)\n" +
		"  Network: ↑↓: 0.00 B/s\n" +
		"\n" +
		"Server 9:"
	assert.Equal(t, want, svc.Tooltip())
}

func TestServiceConnectionStateFollowsLastCycle(t *testing.T) {
	d := nezhatest.NewDashboard("admin", "pw")
	defer d.Close()
	d.SetServers(nezhatest.Server(1, 1, 0, 0, 0, 0))

	svc := newTestService(t, d, []int{1, 2}, nil)
	svc.Poll(context.Background())
	require.Equal(t, StateConnected, svc.ConnectionState())

	// The session token survives, but nothing answers any more.
	d.Close()
	snap := svc.Poll(context.Background())
	for _, srv := range snap.Servers {
		require.Equal(t, StatusFailed, srv.Status)
	}
	_, held := svc.client.Session().CurrentToken()
	assert.True(t, held)
	assert.Equal(t, StateNotConnected, svc.ConnectionState())
	assert.Contains(t, svc.Tooltip(), "Status: not connected")
}

func TestServiceConcurrentReads(t *testing.T) {
	d := nezhatest.NewDashboard("admin", "pw")
	defer d.Close()
	d.SetServers(nezhatest.Server(1, 1, 0, 0, 0, 0))

	svc := newTestService(t, d, []int{1}, nil)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 5; i++ {
			svc.Poll(context.Background())
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			_ = svc.Items()
			_ = svc.Tooltip()
		}
	}()
	wg.Wait()

	assert.Equal(t, 5, svc.Snapshot().Cycle)
}

func TestItemsFor(t *testing.T) {
	items := ItemsFor(Snapshot{TotalNetwork: "x"})
	require.Len(t, items, 1)
	assert.Equal(t, TotalItemID, items[0].ID)
	assert.Equal(t, "x", items[0].Value)
}
