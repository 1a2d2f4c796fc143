package internal

import (
	"log/slog"
	"strings"
	"testing"
	"time"

	pkgconfig "github.com/starford/headstone/pkg/config"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Backend.Enabled() {
		t.Error("backend should be disabled without a base URL")
	}
}

func TestBackendConfig_BaseURL(t *testing.T) {
	for _, tc := range []struct {
		url string
		ok  bool
	}{
		{"", true},
		{"http://localhost:8000", true},
		{"https://api.example.com/v1", true},
		{"localhost:8000", false},
		{"ftp://example.com", false},
		{"/relative", false},
	} {
		cfg := BackendConfig{BaseURL: tc.url, Timeout: time.Second}
		err := cfg.Validate()
		if tc.ok && err != nil {
			t.Errorf("%q: unexpected error: %v", tc.url, err)
		}
		if !tc.ok && err == nil {
			t.Errorf("%q: expected error", tc.url)
		}
	}
}

func TestApplicationConfig_Timezone(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.App.Timezone = "Not/AZone"
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown timezone should fail validation")
	}

	cfg.App.Timezone = "UTC"
	loc, err := cfg.App.Location()
	if err != nil {
		t.Fatalf("location: %v", err)
	}
	if loc.String() != "UTC" {
		t.Errorf("location = %s, want UTC", loc)
	}
}

func TestFullConfig_EnvOverrides(t *testing.T) {
	t.Setenv("HEADSTONE_HTTP_PORT", "9191")
	t.Setenv("HEADSTONE_BACKEND_URL", "http://backend.test")
	t.Setenv("HEADSTONE_SSE_REFRESH_THROTTLE", "500ms")
	t.Setenv("HEADSTONE_LOG_LEVEL", "debug")

	cfg := NewDefaultConfig()
	if err := pkgconfig.LoadEnv(cfg); err != nil {
		t.Fatalf("load env: %v", err)
	}
	if cfg.App.HTTP.Port != 9191 {
		t.Errorf("port = %d", cfg.App.HTTP.Port)
	}
	if !cfg.Backend.Enabled() || cfg.Backend.BaseURL != "http://backend.test" {
		t.Errorf("backend = %+v", cfg.Backend)
	}
	if cfg.SSE.RefreshThrottle != 500*time.Millisecond {
		t.Errorf("throttle = %s", cfg.SSE.RefreshThrottle)
	}
	if cfg.App.LogLevel != slog.LevelDebug {
		t.Errorf("log level = %s", cfg.App.LogLevel)
	}
	if cfg.SQLite.Path != "./headstone.db" {
		t.Errorf("sqlite path default lost: %q", cfg.SQLite.Path)
	}
}
