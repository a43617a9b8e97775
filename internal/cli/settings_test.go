package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nzmon/nzmon/internal/config"
	"github.com/nzmon/nzmon/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeSettings(t *testing.T) {
	current := config.Settings{
		ServerURL: "https://a.example.com",
		Username:  "admin",
		Password:  "pw",
		ServerIDs: []int{1},
	}

	tests := []struct {
		name    string
		flags   settingsFlags
		want    config.Settings
		wantErr bool
	}{
		{
			name:  "nothing given keeps everything",
			flags: settingsFlags{},
			want:  current,
		},
		{
			name:  "ids only",
			flags: settingsFlags{IDs: "3, 4"},
			want:  config.Settings{ServerURL: "https://a.example.com", Username: "admin", Password: "pw", ServerIDs: []int{3, 4}},
		},
		{
			name:  "url is normalized",
			flags: settingsFlags{URL: " https://b.example.com/ ", Username: "root"},
			want:  config.Settings{ServerURL: "https://b.example.com", Username: "root", Password: "pw", ServerIDs: []int{1}},
		},
		{
			name:    "bad ids",
			flags:   settingsFlags{IDs: "1,x"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := mergeSettings(current, tt.flags)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsCode(err, errors.ErrConfig))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSettingsSetCommand(t *testing.T) {
	d := newDashboard(t)

	t.Run("probes then saves to the yaml file", func(t *testing.T) {
		a := newTestApp(t, d, "1")
		var buf bytes.Buffer
		require.NoError(t, settingsSetCommand(context.Background(), &buf, a, settingsFlags{IDs: "2,5"}))

		assert.Contains(t, buf.String(), "Settings saved to "+a.path)
		assert.Equal(t, []int{2, 5}, a.svc.Settings().ServerIDs)

		reloaded, err := config.Load(a.path)
		require.NoError(t, err)
		assert.Equal(t, []int{2, 5}, reloaded.Settings.ServerIDs)
		assert.Equal(t, "pw", reloaded.Settings.Password)
		assert.Equal(t, 2*time.Second, reloaded.Interval)
	})

	t.Run("failed probe saves nothing", func(t *testing.T) {
		a := newTestApp(t, d, "1")
		err := settingsSetCommand(context.Background(), &bytes.Buffer{}, a, settingsFlags{Password: "wrong", IDs: "4"})
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.ErrAuth))
		assert.Contains(t, err.Error(), "Settings not saved")

		reloaded, err := config.Load(a.path)
		require.NoError(t, err)
		assert.Equal(t, []int{1}, reloaded.Settings.ServerIDs)
		assert.Equal(t, []int{1}, a.svc.Settings().ServerIDs)
	})

	t.Run("skip test", func(t *testing.T) {
		a := newTestApp(t, d, "1")
		require.NoError(t, settingsSetCommand(context.Background(), &bytes.Buffer{}, a,
			settingsFlags{Password: "wrong", IDs: "4", SkipTest: true}))
		assert.Equal(t, "wrong", a.svc.Settings().Password)
	})

	t.Run("invalid settings never reach the dashboard", func(t *testing.T) {
		a := newTestApp(t, d, "1")
		logins := d.Logins()
		err := settingsSetCommand(context.Background(), &bytes.Buffer{}, a, settingsFlags{IDs: "1,2,3,4,5,6,7"})
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.ErrConfig))
		assert.Equal(t, logins, d.Logins())
	})

	t.Run("legacy store", func(t *testing.T) {
		legacy := filepath.Join(t.TempDir(), "nezha_config.txt")
		a, err := loadApp(appOptions{ConfigPath: writeConfig(t, d, "1"), LegacyPath: legacy})
		require.NoError(t, err)

		require.NoError(t, settingsSetCommand(context.Background(), &bytes.Buffer{}, a, settingsFlags{IDs: "1,2"}))

		data, err := os.ReadFile(legacy)
		require.NoError(t, err)
		assert.Equal(t, d.URL+"\nadmin\npw\n1,2", string(data))
	})

	t.Run("json output redacts the password", func(t *testing.T) {
		withMachineMode(t)
		a := newTestApp(t, d, "1")
		var buf bytes.Buffer
		require.NoError(t, settingsSetCommand(context.Background(), &buf, a, settingsFlags{IDs: "1"}))

		env := decodeEnvelope(t, &buf)
		require.True(t, env.Success)
		var saved config.Settings
		require.NoError(t, json.Unmarshal(env.Data, &saved))
		assert.Equal(t, config.RedactedPassword, saved.Password)
		assert.NotContains(t, buf.String(), `"pw"`)
	})
}

func TestSettingsShowCommand(t *testing.T) {
	d := newDashboard(t)
	a := newTestApp(t, d, "1, 2")

	var buf bytes.Buffer
	require.NoError(t, settingsShowCommand(&buf, a))
	out := buf.String()
	assert.Contains(t, out, d.URL)
	assert.Contains(t, out, "admin")
	assert.Contains(t, out, config.RedactedPassword)
	assert.Contains(t, out, "1,2")
	assert.NotContains(t, out, "pw\n")
}

func TestOrDash(t *testing.T) {
	assert.Equal(t, "-", orDash(""))
	assert.Equal(t, "x", orDash("x"))
}
