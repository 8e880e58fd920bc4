package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/spatial-cli/internal/analysis"
)

// Config holds the full application configuration.
type Config struct {
	Analysis analysis.Config `yaml:"analysis" mapstructure:"analysis"`
	Input    InputConfig     `yaml:"input" mapstructure:"input"`
	Output   OutputConfig    `yaml:"output" mapstructure:"output"`
	PostGIS  PostGISConfig   `yaml:"postgis" mapstructure:"postgis"`
	Batch    BatchConfig     `yaml:"batch" mapstructure:"batch"`
	Server   ServerConfig    `yaml:"server" mapstructure:"server"`
	Log      LogConfig       `yaml:"log" mapstructure:"log"`
}

// InputConfig names the layer an analysis reads.
type InputConfig struct {
	Path        string `yaml:"path" mapstructure:"path"`
	Table       string `yaml:"table" mapstructure:"table"`
	IDField     string `yaml:"id_field" mapstructure:"id_field"`
	ValueField  string `yaml:"value_field" mapstructure:"value_field"`
	GeomField   string `yaml:"geom_field" mapstructure:"geom_field"`
	Projected   bool   `yaml:"projected" mapstructure:"projected"`
	WebMercator bool   `yaml:"web_mercator" mapstructure:"web_mercator"`
}

// OutputConfig configures where results are written.
type OutputConfig struct {
	Dir            string `yaml:"dir" mapstructure:"dir"`
	Report         string `yaml:"report" mapstructure:"report"`
	IncludeWeights bool   `yaml:"include_weights" mapstructure:"include_weights"`
	LocalTable     string `yaml:"local_table" mapstructure:"local_table"`
}

// PostGISConfig configures the optional database connection.
type PostGISConfig struct {
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	MaxConcurrent int `yaml:"max_concurrent" mapstructure:"max_concurrent"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	MaxBodyMB      int      `yaml:"max_body_mb" mapstructure:"max_body_mb"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment. An empty path looks
// for config.yaml in the working directory.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Config file
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// Environment
	v.SetEnvPrefix("SPATIAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	def := analysis.DefaultConfig()
	v.SetDefault("analysis.neighbor_policy", def.NeighborPolicy)
	v.SetDefault("analysis.contiguity_mode", def.ContiguityMode)
	v.SetDefault("analysis.d_min", def.DMin)
	v.SetDefault("analysis.d_max", def.DMax)
	v.SetDefault("analysis.k", def.K)
	v.SetDefault("analysis.weight_style", def.WeightStyle)
	v.SetDefault("analysis.use_decay", def.UseDecay)
	v.SetDefault("analysis.self_include", def.SelfInclude)
	v.SetDefault("analysis.statistic", def.Statistic)
	v.SetDefault("analysis.scope", def.Scope)
	v.SetDefault("analysis.significance_threshold", def.SignificanceThreshold)
	v.SetDefault("analysis.assumption", def.Assumption)
	v.SetDefault("analysis.alternative", def.Alternative)
	v.SetDefault("analysis.distance_floor", def.DistanceFloor)
	v.SetDefault("analysis.snap_tolerance", def.SnapTolerance)
	v.SetDefault("input.path", "")
	v.SetDefault("input.table", "")
	v.SetDefault("input.id_field", "")
	v.SetDefault("input.value_field", "")
	v.SetDefault("input.geom_field", "geom")
	v.SetDefault("input.projected", false)
	v.SetDefault("input.web_mercator", false)
	v.SetDefault("output.dir", ".")
	v.SetDefault("output.report", "")
	v.SetDefault("output.include_weights", false)
	v.SetDefault("output.local_table", "spatial.local_results")
	v.SetDefault("postgis.database_url", "")
	v.SetDefault("batch.max_concurrent", analysis.DefaultBatchConcurrency)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.max_body_mb", 32)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional unless named)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings every command relies on.
func (c *Config) Validate() error {
	if err := c.Analysis.Validate(); err != nil {
		return eris.Wrap(err, "config: analysis")
	}
	if c.Batch.MaxConcurrent < 1 {
		return eris.Errorf("config: batch.max_concurrent must be at least 1, got %d", c.Batch.MaxConcurrent)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return eris.Errorf("config: server.port %d out of range", c.Server.Port)
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
