package config

import (
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("roadpass-test")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 8000 {
		t.Errorf("expected default port 8000, got %d", cfg.Server.Port)
	}
	if cfg.Saga.ReserveTimeoutSeconds != 1000 {
		t.Errorf("expected reserve timeout 1000, got %d", cfg.Saga.ReserveTimeoutSeconds)
	}
	if cfg.Region.MatchRadiusMeters != 10 {
		t.Errorf("expected match radius 10, got %f", cfg.Region.MatchRadiusMeters)
	}

	if len(cfg.Regions) != 2 {
		t.Fatalf("expected 2 default regions, got %d", len(cfg.Regions))
	}
	// Ireland must come first: list order resolves the box overlap.
	if cfg.Regions[0].Name != "ireland" || cfg.Regions[1].Name != "london" {
		t.Errorf("unexpected region order: %s, %s", cfg.Regions[0].Name, cfg.Regions[1].Name)
	}

	dsn := cfg.Database.DSN()
	if !strings.HasPrefix(dsn, "postgres://") || !strings.Contains(dsn, "sslmode=disable") {
		t.Errorf("unexpected DSN: %s", dsn)
	}
}

func TestRegionTablePreservesOrder(t *testing.T) {
	cfg, err := Load("roadpass-test")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	table := cfg.RegionTable()
	if len(table) != len(cfg.Regions) {
		t.Fatalf("expected %d regions, got %d", len(cfg.Regions), len(table))
	}
	for i, r := range table {
		if r.Name != cfg.Regions[i].Name || r.Endpoint != cfg.Regions[i].Endpoint {
			t.Errorf("region %d mismatch: %+v vs %+v", i, r, cfg.Regions[i])
		}
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := Load("roadpass-test")
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		return cfg
	}

	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"missing db host", func(c *Config) { c.Database.Host = "" }, "database.host"},
		{"missing planner url", func(c *Config) { c.Planner.BaseURL = "" }, "planner.base_url"},
		{"zero reserve timeout", func(c *Config) { c.Saga.ReserveTimeoutSeconds = 0 }, "reserve_timeout_seconds"},
		{"nameless region", func(c *Config) { c.Regions[0].Name = "" }, "regions[0].name"},
		{"inverted bounds", func(c *Config) {
			c.Regions[1].Bounds.MinLat = c.Regions[1].Bounds.MaxLat + 1
		}, "regions[1].bounds"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("expected error mentioning %q, got: %v", tc.wantErr, err)
			}
		})
	}

	if err := valid().Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}
