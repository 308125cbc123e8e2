package config

import (
	"reflect"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_DSN", "host=localhost user=lensbook dbname=lensbook")
	t.Setenv("JWT_ACCESS_SECRET", "secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Environment != "development" {
		t.Errorf("environment = %q, want development", cfg.Environment)
	}
	if cfg.HTTP.Host != "0.0.0.0" {
		t.Errorf("host = %q, want 0.0.0.0", cfg.HTTP.Host)
	}
	if cfg.HTTP.Port != 7090 {
		t.Errorf("port = %d, want 7090", cfg.HTTP.Port)
	}
	if !reflect.DeepEqual(cfg.HTTP.AllowedOrigins, []string{"*"}) {
		t.Errorf("allowed origins = %v, want [*]", cfg.HTTP.AllowedOrigins)
	}
	if !reflect.DeepEqual(cfg.Contracts.RequiredSigners, []string{"CLIENT", "PHOTOGRAPHER"}) {
		t.Errorf("required signers = %v, want [CLIENT PHOTOGRAPHER]", cfg.Contracts.RequiredSigners)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("HTTP_HOST", "127.0.0.1")
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("HTTP_ALLOWED_ORIGINS", "https://app.example.com, https://admin.example.com")
	t.Setenv("DB_DSN", "host=db user=lensbook dbname=lensbook")
	t.Setenv("JWT_ACCESS_SECRET", "secret")
	t.Setenv("CONTRACT_REQUIRED_SIGNERS", "CLIENT")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Environment != "production" {
		t.Errorf("environment = %q, want production", cfg.Environment)
	}
	if cfg.HTTP.Port != 9000 {
		t.Errorf("port = %d, want 9000", cfg.HTTP.Port)
	}
	want := []string{"https://app.example.com", "https://admin.example.com"}
	if !reflect.DeepEqual(cfg.HTTP.AllowedOrigins, want) {
		t.Errorf("allowed origins = %v, want %v", cfg.HTTP.AllowedOrigins, want)
	}
	if !reflect.DeepEqual(cfg.Contracts.RequiredSigners, []string{"CLIENT"}) {
		t.Errorf("required signers = %v, want [CLIENT]", cfg.Contracts.RequiredSigners)
	}
}

func TestLoadMissingRequired(t *testing.T) {
	t.Run("missing dsn", func(t *testing.T) {
		t.Setenv("DB_DSN", "")
		t.Setenv("JWT_ACCESS_SECRET", "secret")
		if _, err := Load(); err == nil {
			t.Fatal("expected an error without DB_DSN")
		}
	})

	t.Run("missing secret", func(t *testing.T) {
		t.Setenv("DB_DSN", "host=localhost")
		t.Setenv("JWT_ACCESS_SECRET", "")
		if _, err := Load(); err == nil {
			t.Fatal("expected an error without JWT_ACCESS_SECRET")
		}
	})
}

func TestParseList(t *testing.T) {
	cases := []struct {
		raw  string
		want []string
	}{
		{"", nil},
		{"  ", nil},
		{"a", []string{"a"}},
		{"a,b", []string{"a", "b"}},
		{" a , ,b, ", []string{"a", "b"}},
	}
	for _, tc := range cases {
		if got := parseList(tc.raw); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("parseList(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}
