package server

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"interviewprep/internal/config"
	appErrors "interviewprep/internal/errors"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSecretSource struct {
	mu      sync.Mutex
	version int64
	keys    []string
	err     error
}

func (f *fakeSecretSource) GetSecretV2(path string) (*config.VaultSecret, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &config.VaultSecret{Data: map[string]any{}, Version: f.version}, nil
}

func (f *fakeSecretSource) GetStringSliceSecret(path, key string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.keys, nil
}

func TestKeyWatcherPoll(t *testing.T) {
	source := &fakeSecretSource{version: 3, keys: []string{"k1", "k2"}}

	var got [][]string
	kw := NewKeyWatcher(source, "secret/data/keys", time.Minute, 2, func(keys []string, err error) {
		require.NoError(t, err)
		got = append(got, keys)
	}, appErrors.NewNopLogger())

	kw.poll()
	assert.Equal(t, [][]string{{"k1", "k2"}}, got)
	assert.Equal(t, int64(3), kw.Status()["last_version"])

	kw.poll()
	assert.Len(t, got, 1, "unchanged version must not reload")

	source.version = 4
	source.keys = []string{"k3"}
	kw.poll()
	assert.Equal(t, [][]string{{"k1", "k2"}, {"k3"}}, got)
}

func TestKeyWatcherReadFailure(t *testing.T) {
	source := &fakeSecretSource{err: fmt.Errorf("permission denied")}
	called := false
	kw := NewKeyWatcher(source, "secret/data/keys", time.Minute, 0, func([]string, error) { called = true }, nil)

	changed, err := kw.checkForUpdates()
	assert.False(t, changed)
	assert.ErrorContains(t, err, "permission denied")

	kw.poll()
	assert.False(t, called)
}

func TestKeyWatcherStartStop(t *testing.T) {
	kw := NewKeyWatcher(&fakeSecretSource{}, "p", 0, 0, func([]string, error) {}, nil)
	assert.Error(t, kw.Start(), "zero interval")

	kw = NewKeyWatcher(&fakeSecretSource{}, "p", time.Hour, 0, func([]string, error) {}, nil)
	require.NoError(t, kw.Start())
	assert.Error(t, kw.Start())
	assert.Equal(t, true, kw.Status()["running"])
	require.NoError(t, kw.Stop())
	require.NoError(t, kw.Stop())
}

type fakeReloader struct {
	mu     sync.Mutex
	files  map[config.Operation]string
	reload []config.Operation
	err    error
}

func (f *fakeReloader) Files() map[config.Operation]string { return f.files }

func (f *fakeReloader) Reload(op config.Operation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reload = append(f.reload, op)
	return f.err
}

func TestPromptWatcherOperationFor(t *testing.T) {
	dir := t.TempDir()
	analyze := filepath.Join(dir, "analyze.txt")
	pw := NewPromptWatcher(&fakeReloader{files: map[config.Operation]string{config.OpAnalyze: analyze}}, time.Millisecond, nil)

	tests := []struct {
		name   string
		event  fsnotify.Event
		wantOK bool
	}{
		{name: "write", event: fsnotify.Event{Name: analyze, Op: fsnotify.Write}, wantOK: true},
		{name: "atomic rename", event: fsnotify.Event{Name: analyze, Op: fsnotify.Create}, wantOK: true},
		{name: "chmod", event: fsnotify.Event{Name: analyze, Op: fsnotify.Chmod}},
		{name: "other file", event: fsnotify.Event{Name: filepath.Join(dir, "notes.txt"), Op: fsnotify.Write}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op, ok := pw.operationFor(tt.event)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, config.OpAnalyze, op)
			}
		})
	}
}

func TestPromptWatcherDebouncesReloads(t *testing.T) {
	reloader := &fakeReloader{files: map[config.Operation]string{}, err: fmt.Errorf("empty file")}
	pw := NewPromptWatcher(reloader, 20*time.Millisecond, nil)

	pw.scheduleReload(config.OpAnswers)
	pw.scheduleReload(config.OpAnswers)

	require.Eventually(t, func() bool {
		return pw.Status()["reload_count"] == 1
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, "empty file", pw.Status()["last_error"])
	reloader.mu.Lock()
	defer reloader.mu.Unlock()
	assert.Equal(t, []config.Operation{config.OpAnswers}, reloader.reload)
}

func TestPromptWatcherReloadsStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "analyze.txt")
	require.NoError(t, os.WriteFile(path, []byte("first {resume} {jd}"), 0600))

	cfg := config.Default()
	cfg.AI.Operations.Analyze.PromptFile = path
	store, err := config.LoadPromptStore(cfg)
	require.NoError(t, err)
	require.Equal(t, "first {resume} {jd}", store.Get(config.OpAnalyze))

	pw := NewPromptWatcher(store, 10*time.Millisecond, appErrors.NewNopLogger())
	require.NoError(t, pw.Start())
	t.Cleanup(func() { _ = pw.Stop() })

	require.NoError(t, os.WriteFile(path, []byte("second {resume} {jd}"), 0600))

	require.Eventually(t, func() bool {
		return store.Get(config.OpAnalyze) == "second {resume} {jd}"
	}, 3*time.Second, 20*time.Millisecond)
}

func TestPromptWatcherIdleWithoutFiles(t *testing.T) {
	pw := NewPromptWatcher(config.NewPromptStore(), 0, nil)
	require.NoError(t, pw.Start())
	assert.Equal(t, false, pw.Status()["running"])
	require.NoError(t, pw.Stop())
}

func TestRateLimiterPerKey(t *testing.T) {
	rl := NewRateLimiter(60, time.Minute, 2, nil)
	t.Cleanup(rl.Close)

	assert.True(t, rl.Allow("ip:a"))
	assert.True(t, rl.Allow("ip:a"))
	assert.False(t, rl.Allow("ip:a"))
	assert.True(t, rl.Allow("ip:b"))

	stats := rl.GetStats()
	assert.Equal(t, 2, stats["active_limiters"])
	assert.InDelta(t, 60.0, stats["rate_per_minute"], 0.001)

	rl.cleanup(-time.Second)
	assert.Equal(t, 0, rl.GetStats()["active_limiters"])
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{name: "forwarded for", headers: map[string]string{"X-Forwarded-For": "bogus, 203.0.113.7, 10.0.0.1"}, remote: "10.0.0.9:80", want: "203.0.113.7"},
		{name: "real ip", headers: map[string]string{"X-Real-IP": "198.51.100.2"}, remote: "10.0.0.9:80", want: "198.51.100.2"},
		{name: "remote addr", remote: "192.0.2.1:5555", want: "192.0.2.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := jsonRequest(t, "/analyze", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, getClientIP(req))
		})
	}
}

func TestMaskAPIKey(t *testing.T) {
	assert.Equal(t, "****", maskAPIKey("short"))
	assert.Equal(t, "abcdefgh****", maskAPIKey("abcdefghijkl"))
}
