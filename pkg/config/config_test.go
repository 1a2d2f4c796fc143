package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type sample struct {
	Name    string        `yaml:"name" env:"SAMPLE_NAME"`
	Port    int           `yaml:"port" env:"SAMPLE_PORT"`
	Timeout time.Duration `yaml:"timeout" env:"SAMPLE_TIMEOUT"`
}

func (s *sample) Validate() error {
	if s.Port <= 0 {
		return errors.New("port must be positive")
	}
	return nil
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_ExpandsAndOverrides(t *testing.T) {
	t.Setenv("SAMPLE_HOST_NAME", "expanded")
	t.Setenv("SAMPLE_PORT", "9090")
	path := writeFile(t, "name: ${SAMPLE_HOST_NAME}\nport: 8080\ntimeout: 5s\n")

	var s sample
	if err := Load(path, &s); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Name != "expanded" {
		t.Errorf("name = %q", s.Name)
	}
	if s.Port != 9090 {
		t.Errorf("port = %d, want env override", s.Port)
	}
	if s.Timeout != 5*time.Second {
		t.Errorf("timeout = %v", s.Timeout)
	}
}

func TestLoad_Validation(t *testing.T) {
	path := writeFile(t, "name: x\nport: 0\n")
	var s sample
	err := Load(path, &s)
	if err == nil || !strings.Contains(err.Error(), "port must be positive") {
		t.Errorf("err = %v", err)
	}
}

func TestLoadWithDefaults_EnvOnly(t *testing.T) {
	t.Setenv("SAMPLE_NAME", "from-env")
	s := sample{Port: 1}
	if err := LoadWithDefaults(filepath.Join(t.TempDir(), "missing.yaml"), "", &s); err != nil {
		t.Fatalf("LoadWithDefaults: %v", err)
	}
	if s.Name != "from-env" || s.Port != 1 {
		t.Errorf("sample = %+v", s)
	}
}
