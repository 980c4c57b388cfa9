package config

import (
	"strings"
	"testing"
)

type envTestConfig struct {
	Port int `env:"MESA_TEST_PORT" envDefault:"123"`
}

type prefixedTestConfig struct {
	FeePercent int    `env:"TEST_FEE_PERCENT" envDefault:"2"`
	DBPath     string `env:"TEST_DB_PATH"`
}

func TestParseEnvDefaults(t *testing.T) {
	var cfg envTestConfig

	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Port != 123 {
		t.Fatalf("expected default port 123, got %d", cfg.Port)
	}
}

func TestParseEnvError(t *testing.T) {
	var cfg envTestConfig
	t.Setenv("MESA_TEST_PORT", "not-an-int")

	err := ParseEnv(&cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}

func TestParseEnvPrefixed(t *testing.T) {
	t.Setenv("MESA_TEST_DB_PATH", "/tmp/mesa.db")
	t.Setenv("TEST_FEE_PERCENT", "9")

	var cfg prefixedTestConfig
	if err := ParseEnvPrefixed(&cfg, EnvPrefix); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.DBPath != "/tmp/mesa.db" {
		t.Fatalf("db path = %q, want /tmp/mesa.db", cfg.DBPath)
	}
	if cfg.FeePercent != 2 {
		t.Fatalf("fee percent = %d, want default 2 (unprefixed variable ignored)", cfg.FeePercent)
	}
}
