// Package config assembles the typed runtime configuration from viper. Every
// setting can come from the YAML config file, a TALK2DATA_ environment
// variable, or a CLI flag; flags win over environment over file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full runtime configuration.
type Config struct {
	Server    ServerConfig
	Graph     GraphConfig
	Warehouse WarehouseConfig
	LLM       LLMConfig
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host              string
	Port              int
	CORSOrigins       []string
	RequestsPerMinute int
	APIKey            string
	ShutdownTimeout   time.Duration
}

// GraphConfig points at the semantic graph store.
type GraphConfig struct {
	DataDir string
}

// WarehouseConfig holds the warehouse connection and addressing settings.
// ConnectionProject is where the connection is established and billed;
// DataProject and Dataset are where the queried tables live.
type WarehouseConfig struct {
	Engine            string
	DSN               string
	ConnectionProject string
	DataProject       string
	Dataset           string
	MaxRows           int
	QueryTimeout      time.Duration
	MaxOpenConns      int
	MaxIdleConns      int
}

// LLMConfig selects and configures the model backend. Backend is "openai"
// for a direct provider connection or "gateway" for the shared model
// gateway.
type LLMConfig struct {
	Backend    string
	APIKey     string
	BaseURL    string
	GatewayURL string
	Model      string
	Timeout    time.Duration
}

// Init points viper at the config file and environment. Called once from the
// CLI before any command runs.
func Init(cfgFile string) {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("talk2data")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.talk2data")
	}

	viper.SetEnvPrefix("TALK2DATA")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	viper.ReadInConfig() // config file is optional
}

// Load materializes the typed configuration from viper.
func Load() (*Config, error) {
	setDefaults()

	cfg := &Config{
		Server: ServerConfig{
			Host:              viper.GetString("server.host"),
			Port:              viper.GetInt("server.port"),
			CORSOrigins:       viper.GetStringSlice("server.cors_origins"),
			RequestsPerMinute: viper.GetInt("server.requests_per_minute"),
			APIKey:            viper.GetString("server.api_key"),
			ShutdownTimeout:   viper.GetDuration("server.shutdown_timeout"),
		},
		Graph: GraphConfig{
			DataDir: viper.GetString("graph.data_dir"),
		},
		Warehouse: WarehouseConfig{
			Engine:            viper.GetString("warehouse.engine"),
			DSN:               viper.GetString("warehouse.dsn"),
			ConnectionProject: viper.GetString("warehouse.connection_project"),
			DataProject:       viper.GetString("warehouse.data_project"),
			Dataset:           viper.GetString("warehouse.dataset"),
			MaxRows:           viper.GetInt("warehouse.max_rows"),
			QueryTimeout:      viper.GetDuration("warehouse.query_timeout"),
			MaxOpenConns:      viper.GetInt("warehouse.max_open_conns"),
			MaxIdleConns:      viper.GetInt("warehouse.max_idle_conns"),
		},
		LLM: LLMConfig{
			Backend:    viper.GetString("llm.backend"),
			APIKey:     viper.GetString("llm.api_key"),
			BaseURL:    viper.GetString("llm.base_url"),
			GatewayURL: viper.GetString("llm.gateway_url"),
			Model:      viper.GetString("llm.model"),
			Timeout:    viper.GetDuration("llm.timeout"),
		},
	}

	// Data defaults to the connection project when the deployment does not
	// split them.
	if cfg.Warehouse.DataProject == "" {
		cfg.Warehouse.DataProject = cfg.Warehouse.ConnectionProject
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.cors_origins", []string{"*"})
	viper.SetDefault("server.requests_per_minute", 120)
	viper.SetDefault("server.shutdown_timeout", 30*time.Second)
	viper.SetDefault("graph.data_dir", "")
	viper.SetDefault("warehouse.engine", "sqlite")
	viper.SetDefault("warehouse.max_rows", 1000)
	viper.SetDefault("warehouse.query_timeout", 60*time.Second)
	viper.SetDefault("llm.backend", "openai")
	viper.SetDefault("llm.timeout", 60*time.Second)
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	switch c.LLM.Backend {
	case "openai", "gateway":
	default:
		return fmt.Errorf("unknown llm backend %q (want openai or gateway)", c.LLM.Backend)
	}
	if c.LLM.Backend == "gateway" && c.LLM.GatewayURL == "" {
		return fmt.Errorf("llm backend gateway requires llm.gateway_url")
	}
	return nil
}
