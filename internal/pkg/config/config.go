package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/openroads/roadpass/internal/core/domain"
)

// Config holds all application configuration. It is built once in main and
// passed explicitly to the components that need it.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Planner   PlannerConfig   `mapstructure:"planner"`
	Saga      SagaConfig      `mapstructure:"saga"`
	Regions   []RegionConfig  `mapstructure:"regions"`
	Region    LocalRegion     `mapstructure:"region"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	OTLPAddr    string `mapstructure:"otlp_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

// PlannerConfig points at the external route-planning service (OSRM API).
type PlannerConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// SagaConfig carries the per-phase timeouts for coordinator-to-region calls.
// Reserve calls may legitimately run very long while a region matches and
// locks segments; compensations are bounded tighter.
type SagaConfig struct {
	ReserveTimeoutSeconds int `mapstructure:"reserve_timeout_seconds"`
	ConfirmTimeoutSeconds int `mapstructure:"confirm_timeout_seconds"`
	CancelTimeoutSeconds  int `mapstructure:"cancel_timeout_seconds"`
}

// RegionConfig is one entry of the ordered region table. List order is the
// boundary lookup priority: the first box containing a point owns it.
type RegionConfig struct {
	Name     string        `mapstructure:"name"`
	Endpoint string        `mapstructure:"endpoint"`
	Bounds   domain.Bounds `mapstructure:"bounds"`
}

// LocalRegion identifies the regional binary's own deployment.
type LocalRegion struct {
	Name              string  `mapstructure:"name"`
	MatchRadiusMeters float64 `mapstructure:"match_radius_meters"`
}

// RegionTable converts the configured region list into domain regions,
// preserving order.
func (c *Config) RegionTable() []domain.Region {
	regions := make([]domain.Region, 0, len(c.Regions))
	for _, r := range c.Regions {
		regions = append(regions, domain.Region{
			Name:     r.Name,
			Endpoint: r.Endpoint,
			Bounds:   r.Bounds,
		})
	}
	return regions
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "roadpass")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "roadpass")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.otlp_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("planner.base_url", "http://router.project-osrm.org")
	v.SetDefault("planner.timeout_seconds", 30)
	v.SetDefault("saga.reserve_timeout_seconds", 1000)
	v.SetDefault("saga.confirm_timeout_seconds", 120)
	v.SetDefault("saga.cancel_timeout_seconds", 30)
	v.SetDefault("region.name", "london")
	v.SetDefault("region.match_radius_meters", 10)
	v.SetDefault("regions", defaultRegions())

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: ROADPASS_DATABASE_HOST → database.host
	v.SetEnvPrefix("ROADPASS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// defaultRegions mirrors the two-region development topology: Ireland first,
// then a London box that overlaps it — the list order resolves the overlap.
func defaultRegions() []map[string]any {
	return []map[string]any{
		{
			"name":     "ireland",
			"endpoint": "http://localhost:8001",
			"bounds": map[string]any{
				"min_lat": 51.4, "max_lat": 55.4,
				"min_lon": -10.7, "max_lon": -5.4,
			},
		},
		{
			"name":     "london",
			"endpoint": "http://localhost:8002",
			"bounds": map[string]any{
				"min_lat": 49.9, "max_lat": 60.9,
				"min_lon": -8.6, "max_lon": 1.8,
			},
		},
	}
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Database.Host == "" {
		errs = append(errs, "database.host is required")
	}
	if c.Database.User == "" {
		errs = append(errs, "database.user is required")
	}
	if c.Database.DBName == "" {
		errs = append(errs, "database.dbname is required")
	}
	if c.Planner.BaseURL == "" {
		errs = append(errs, "planner.base_url is required")
	}
	if c.Saga.ReserveTimeoutSeconds <= 0 {
		errs = append(errs, "saga.reserve_timeout_seconds must be positive")
	}
	if c.Region.MatchRadiusMeters <= 0 {
		errs = append(errs, "region.match_radius_meters must be positive")
	}
	for i, r := range c.Regions {
		if r.Name == "" {
			errs = append(errs, fmt.Sprintf("regions[%d].name is required", i))
		}
		if r.Endpoint == "" {
			errs = append(errs, fmt.Sprintf("regions[%d].endpoint is required", i))
		}
		if r.Bounds.MinLat > r.Bounds.MaxLat || r.Bounds.MinLon > r.Bounds.MaxLon {
			errs = append(errs, fmt.Sprintf("regions[%d].bounds is inverted", i))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
