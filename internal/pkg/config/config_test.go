package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	return &Config{
		Server:   ServerConfig{Port: 8000, ReadTimeout: 10, WriteTimeout: 10, RequestTimeout: 15},
		Database: DatabaseConfig{Driver: "postgres", Host: "localhost", Port: 5432, User: "campaign", DBName: "campaign", SSLMode: "disable", MaxConns: 10},
		NATS:     NATSConfig{URL: "nats://localhost:4222", Enabled: true},
		Valkey:   ValkeyConfig{Addr: "localhost:6379", Enabled: true},
		Temporal: TemporalConfig{HostPort: "localhost:7233", TaskQueue: "coverage-reports", ReportInterval: 15, WindowDays: 7},
		Realtime: RealtimeConfig{InboxSize: 256, WriteTimeout: 5, PingInterval: 30},
	}
}

func TestValidate_OK(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 0
	cfg.Database.Host = ""
	cfg.Realtime.InboxSize = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"server.port", "database.host", "realtime.inbox_size"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in error, got: %v", want, err)
		}
	}
}

func TestValidate_MemoryDriverSkipsDatabaseFields(t *testing.T) {
	cfg := validConfig()
	cfg.Database = DatabaseConfig{Driver: "memory"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_UnknownDriver(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Driver = "sqlite"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestValidate_DisabledNATSNeedsNoURL(t *testing.T) {
	cfg := validConfig()
	cfg.NATS = NATSConfig{Enabled: false}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{User: "u", Password: "p", Host: "db", Port: 5433, DBName: "campaign", SSLMode: "require"}
	want := "postgres://u:p@db:5433/campaign?sslmode=require"
	if got := d.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CANVASS_SERVER_PORT", "9100")
	t.Setenv("CANVASS_DATABASE_DRIVER", "memory")

	cfg, err := Load("canvass-test")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("expected port 9100, got %d", cfg.Server.Port)
	}
	if cfg.Database.Driver != "memory" {
		t.Errorf("expected memory driver, got %s", cfg.Database.Driver)
	}
	if cfg.Telemetry.ServiceName != "canvass-test" {
		t.Errorf("expected service name default, got %s", cfg.Telemetry.ServiceName)
	}
}
