package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaultsWhenMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
history:
  load_length: 50
autoimport:
  color: never
search_path: [src]
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.History.LoadLength)
	assert.Equal(t, Default().History.Path, cfg.History.Path)
	assert.Equal(t, ColorNever, cfg.Autoimport.Color)
	assert.True(t, cfg.Autoimport.Enabled)
	assert.Equal(t, []string{"src"}, cfg.SearchPath)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "autoimport:\n  color: never\n")
	t.Setenv("BPLPLUS_COLOR", "always")
	t.Setenv("BPLPLUS_AUTOIMPORT", "false")
	t.Setenv("BPLPLUS_HISTORY_LENGTH", "7")
	t.Setenv("BPLPLUS_PATH", "one"+string(os.PathListSeparator)+"two")
	t.Setenv("BPLPLUS_LOG_LEVEL", "debug")
	t.Setenv("BPLPLUS_UNRELATED", "ignored")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ColorAlways, cfg.Autoimport.Color)
	assert.False(t, cfg.Autoimport.Enabled)
	assert.Equal(t, 7, cfg.History.LoadLength)
	assert.Equal(t, []string{"one", "two"}, cfg.SearchPath)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadEnvBadValueIgnored(t *testing.T) {
	t.Setenv("BPLPLUS_HISTORY_LENGTH", "lots")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().History.LoadLength, cfg.History.LoadLength)
}

func TestLoadValidation(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "autoimport:\n  color: sometimes\n")
	_, err := Load(path)
	assert.ErrorContains(t, err, "autoimport.color")

	path = writeConfig(t, t.TempDir(), "history:\n  load_length: -1\n")
	_, err = Load(path)
	assert.ErrorContains(t, err, "history.load_length")

	path = writeConfig(t, t.TempDir(), "history: [\n")
	_, err = Load(path)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Autoimport.Color = ColorNever
	cfg.SearchPath = []string{"a", "b"}
	cfg.History.Path = ""

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, Save(cfg, path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestWatcherReloads(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "autoimport:\n  color: never\n")

	w, err := NewWatcher(path)
	require.NoError(t, err)

	changed := make(chan *Config, 16)
	w.OnChange(func(c *Config) {
		select {
		case changed <- c:
		default:
		}
	})
	w.StartAsync()
	defer func() {
		require.NoError(t, w.Stop())
		w.Wait()
	}()

	// unrelated files in the directory are ignored
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x: 1\n"), 0o644))
	require.NoError(t, os.WriteFile(path, []byte("autoimport:\n  color: always\n"), 0o644))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case c := <-changed:
			if c.Autoimport.Color == ColorAlways {
				return
			}
		case <-deadline:
			t.Fatal("config change not observed")
		}
	}
}

func TestWatcherReloadsOnRenameOver(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "autoimport:\n  color: never\n")

	w, err := NewWatcher(path)
	require.NoError(t, err)

	changed := make(chan *Config, 16)
	w.OnChange(func(c *Config) {
		select {
		case changed <- c:
		default:
		}
	})
	w.StartAsync()
	defer func() {
		require.NoError(t, w.Stop())
		w.Wait()
	}()

	tmp := filepath.Join(dir, "config.yaml.tmp")
	require.NoError(t, os.WriteFile(tmp, []byte("autoimport:\n  color: always\n"), 0o644))
	require.NoError(t, os.Rename(tmp, path))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case c := <-changed:
			if c.Autoimport.Color == ColorAlways {
				return
			}
		case <-deadline:
			t.Fatal("config change not observed")
		}
	}
}

func TestWatcherStopIdempotent(t *testing.T) {
	w, err := NewWatcher(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	w.StartAsync()
	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())
	w.Wait()
}
