package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luki/tempdash/internal/aggregate"
	"github.com/luki/tempdash/internal/store"
)

type testBackend struct {
	mu       sync.Mutex
	failGet  bool
	settings map[string]any
	posted   []map[string]any
	limits   []string
}

func newTestBackend(t *testing.T) (*testBackend, *httptest.Server) {
	t.Helper()
	b := &testBackend{settings: map[string]any{"deviceId": "dev-1", "enabled": true, "period": 2000, "amplitude": 5}}

	now := time.Now()
	var readings []map[string]any
	for i := 1; i <= 10; i++ {
		readings = append(readings, map[string]any{
			"timestamp": now.Add(-time.Duration(i) * time.Minute).UTC().Format(time.RFC3339),
			"value":     20 + float64(i),
		})
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/devices", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]string{"dev-1", "dev-2"})
	})
	mux.HandleFunc("/api/temperature-readings", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.limits = append(b.limits, r.URL.Query().Get("limit"))
		b.mu.Unlock()
		json.NewEncoder(w).Encode(readings)
	})
	mux.HandleFunc("/api/get-simulated-sensor-settings", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.failGet {
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]string{"error": "settings store unavailable"})
			return
		}
		json.NewEncoder(w).Encode(b.settings)
	})
	mux.HandleFunc("/api/set-simulated-sensor-settings", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		b.posted = append(b.posted, body)
		b.settings = map[string]any{
			"deviceId":  body["device_id"],
			"enabled":   body["enabled"],
			"period":    body["period"],
			"amplitude": body["amplitude"],
		}
		w.Write([]byte(`{"ok":true}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return b, srv
}

// execute runs tempdash with args against srv and returns its stdout.
func execute(t *testing.T, srv *httptest.Server, dataDir string, args ...string) (string, error) {
	t.Helper()
	cfgFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("log_level: error\n"), 0644))

	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args,
		"--config", cfgFile,
		"--api-url", srv.URL,
		"--data-dir", dataDir,
		"--log-file", "discard",
		"--no-color",
	))
	err := root.Execute()
	return out.String(), err
}

func TestDevicesCmd(t *testing.T) {
	_, srv := newTestBackend(t)

	out, err := execute(t, srv, t.TempDir(), "devices")
	require.NoError(t, err)
	assert.Contains(t, out, "DEVICE")
	assert.Contains(t, out, "dev-1")
	assert.Contains(t, out, "dev-2")

	out, err = execute(t, srv, t.TempDir(), "devices", "-o", "json")
	require.NoError(t, err)
	var devices []string
	require.NoError(t, json.Unmarshal([]byte(out), &devices))
	assert.Equal(t, []string{"dev-1", "dev-2"}, devices)
}

func TestReadingsCmd(t *testing.T) {
	b, srv := newTestBackend(t)
	dataDir := t.TempDir()

	out, err := execute(t, srv, dataDir, "readings", "dev-1", "--timescale", "minutely", "--format", "json")
	require.NoError(t, err)

	var rows []bucketRow
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	total := 0
	for _, r := range rows {
		total += r.Count
	}
	assert.Equal(t, 10, total)
	assert.Equal(t, []string{"3600"}, b.limits)

	ds, err := store.New(dataDir)
	require.NoError(t, err)
	cached, err := ds.Load("dev-1")
	require.NoError(t, err)
	assert.Len(t, cached, 10)
}

func TestReadingsCmdRawCSV(t *testing.T) {
	_, srv := newTestBackend(t)

	out, err := execute(t, srv, t.TempDir(), "readings", "dev-1", "--raw", "--format", "csv", "--limit", "10", "--record=false")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 11)
	assert.Equal(t, "timestamp,value", lines[0])
}

func TestReadingsCmdTable(t *testing.T) {
	_, srv := newTestBackend(t)

	out, err := execute(t, srv, t.TempDir(), "readings", "dev-1", "-t", "hourly")
	require.NoError(t, err)
	assert.Contains(t, out, "BUCKET")
	assert.Contains(t, out, "COUNT")
}

func TestReadingsCmdRejectsTimescale(t *testing.T) {
	_, srv := newTestBackend(t)

	_, err := execute(t, srv, t.TempDir(), "readings", "dev-1", "--timescale", "weekly")
	assert.ErrorIs(t, err, aggregate.ErrInvalidTimescale)
}

func TestSettingsGetCmd(t *testing.T) {
	_, srv := newTestBackend(t)

	out, err := execute(t, srv, t.TempDir(), "settings", "get", "dev-1", "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "device_id: dev-1")
	assert.Contains(t, out, "period: 2000")

	out, err = execute(t, srv, t.TempDir(), "settings", "get", "dev-1")
	require.NoError(t, err)
	assert.Contains(t, out, "2000 ms")
	assert.Contains(t, out, "enabled")
}

func TestSettingsSetCmd(t *testing.T) {
	b, srv := newTestBackend(t)

	out, err := execute(t, srv, t.TempDir(), "settings", "set", "dev-1", "--period", "3000")
	require.NoError(t, err)
	assert.Contains(t, out, "Settings applied!")
	assert.Contains(t, out, "3000 ms")

	require.Len(t, b.posted, 1)
	assert.Equal(t, map[string]any{
		"device_id": "dev-1",
		"enabled":   true,
		"period":    float64(3000),
		"amplitude": float64(5),
	}, b.posted[0])
}

func TestSettingsSetCmdErrors(t *testing.T) {
	b, srv := newTestBackend(t)

	_, err := execute(t, srv, t.TempDir(), "settings", "set", "dev-1")
	assert.ErrorContains(t, err, "nothing to change")

	_, err = execute(t, srv, t.TempDir(), "settings", "set", "dev-1", "--period", "50")
	assert.ErrorContains(t, err, "invalid sensor settings")
	assert.Empty(t, b.posted)
}

func TestVersionCmd(t *testing.T) {
	_, srv := newTestBackend(t)

	out, err := execute(t, srv, t.TempDir(), "version")
	require.NoError(t, err)
	assert.Contains(t, out, "tempdash version dev")
}

func TestSettingsSetCmdReadFailure(t *testing.T) {
	b, srv := newTestBackend(t)
	b.failGet = true

	_, err := execute(t, srv, t.TempDir(), "settings", "set", "dev-1", "--period", "3000")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "settings store unavailable")
	assert.Empty(t, b.posted)
}

func TestSettingsSetCmdInvalidCurrent(t *testing.T) {
	b, srv := newTestBackend(t)
	b.settings = map[string]any{"deviceId": "dev-1", "enabled": false, "period": 0, "amplitude": 0}

	_, err := execute(t, srv, t.TempDir(), "settings", "set", "dev-1", "--period", "3000")
	require.NoError(t, err)

	require.Len(t, b.posted, 1)
	assert.Equal(t, map[string]any{
		"device_id": "dev-1",
		"enabled":   true,
		"period":    float64(3000),
		"amplitude": float64(10),
	}, b.posted[0])
}

func TestCmdErrorsWrappedOnce(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/devices", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	mux.HandleFunc("/api/temperature-readings", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	_, err := execute(t, srv, t.TempDir(), "devices")
	require.Error(t, err)
	assert.Equal(t, 1, strings.Count(err.Error(), "listing devices"), err.Error())

	_, err = execute(t, srv, t.TempDir(), "readings", "dev-1")
	require.Error(t, err)
	assert.Equal(t, 1, strings.Count(err.Error(), "fetching readings for dev-1"), err.Error())
}
