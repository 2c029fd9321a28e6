package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

// isolate points the user config dir at a temp dir so a developer's own
// gobarber.yaml cannot leak into the test.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("HOME", dir)
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.APIBaseURL != "http://localhost:3333" {
		t.Fatalf("APIBaseURL = %q, want %q", cfg.APIBaseURL, "http://localhost:3333")
	}
	if cfg.SessionBackend != BackendSQLite {
		t.Fatalf("SessionBackend = %q, want %q", cfg.SessionBackend, BackendSQLite)
	}
	if cfg.SessionNamespace != "@GoBarber" {
		t.Fatalf("SessionNamespace = %q, want @GoBarber", cfg.SessionNamespace)
	}
	if want := filepath.Join(dir, "gobarber", "state.db"); cfg.SQLitePath != want {
		t.Fatalf("SQLitePath = %q, want %q", cfg.SQLitePath, want)
	}
	if cfg.APITimeout != 15*time.Second || cfg.WatchInterval != 30*time.Second {
		t.Fatalf("durations = %v/%v, want 15s/30s", cfg.APITimeout, cfg.WatchInterval)
	}
	if cfg.Location != time.Local {
		t.Fatalf("Location = %v, want Local", cfg.Location)
	}
}

func TestLoad_EnvAndAliases(t *testing.T) {
	isolate(t)
	t.Setenv("API_URL", "https://api.gobarber.test")
	t.Setenv("GOBARBER_SESSION_BACKEND", "Redis")
	t.Setenv("GOBARBER_SCHEDULE_TIMEZONE", "America/Sao_Paulo")
	t.Setenv("GOBARBER_WATCH_INTERVAL", "5s")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.APIBaseURL != "https://api.gobarber.test" {
		t.Fatalf("APIBaseURL = %q", cfg.APIBaseURL)
	}
	if cfg.SessionBackend != BackendRedis {
		t.Fatalf("SessionBackend = %q, want redis", cfg.SessionBackend)
	}
	if cfg.Location.String() != "America/Sao_Paulo" {
		t.Fatalf("Location = %v", cfg.Location)
	}
	if cfg.WatchInterval != 5*time.Second {
		t.Fatalf("WatchInterval = %v, want 5s", cfg.WatchInterval)
	}
}

func TestLoad_FlagsOverrideEnvAndFile(t *testing.T) {
	dir := isolate(t)
	file := filepath.Join(dir, "custom.yaml")
	if err := os.WriteFile(file, []byte("api:\n  base_url: http://from-file\nlog:\n  level: debug\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("GOBARBER_API_BASE_URL", "http://from-env")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	if err := fs.Parse([]string{"--config", file, "--api-url", "http://from-flag", "--ephemeral"}); err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	cfg, err := Load(fs)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.APIBaseURL != "http://from-flag" {
		t.Fatalf("APIBaseURL = %q, want flag value", cfg.APIBaseURL)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("LogLevel = %q, want debug from file", cfg.LogLevel)
	}
	if cfg.SessionBackend != BackendMemory {
		t.Fatalf("SessionBackend = %q, want memory", cfg.SessionBackend)
	}
	if cfg.ConfigFile != file {
		t.Fatalf("ConfigFile = %q, want %q", cfg.ConfigFile, file)
	}
}

func TestLoad_ConfigFileFromEnv(t *testing.T) {
	dir := isolate(t)
	file := filepath.Join(dir, "elsewhere.yaml")
	if err := os.WriteFile(file, []byte("log:\n  level: debug\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("GOBARBER_CONFIG", file)

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.ConfigFile != file {
		t.Fatalf("ConfigFile = %q, want %q", cfg.ConfigFile, file)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("LogLevel = %q, want debug from file", cfg.LogLevel)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "unknown backend", env: map[string]string{"GOBARBER_SESSION_BACKEND": "etcd"}},
		{name: "postgres without url", env: map[string]string{"GOBARBER_SESSION_BACKEND": "postgres"}},
		{name: "bad timeout", env: map[string]string{"GOBARBER_API_TIMEOUT": "soon"}},
		{name: "bad timezone", env: map[string]string{"GOBARBER_SCHEDULE_TIMEZONE": "Mars/Olympus"}},
		{name: "zero interval", env: map[string]string{"GOBARBER_WATCH_INTERVAL": "0s"}},
		{name: "missing config file", env: map[string]string{"GOBARBER_CONFIG": "/nonexistent/gobarber.yaml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			t.Setenv("DATABASE_URL", "")
			t.Setenv("GOBARBER_DATABASE_URL", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(nil); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
