package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/jengzang/crime-eda-backend-go/internal/ingest"
	"github.com/jengzang/crime-eda-backend-go/internal/logging"
)

// envPrefix 环境变量前缀, e.g. CRIME_PORT, CRIME_LOG_LEVEL
const envPrefix = "CRIME"

// Config 应用配置
type Config struct {
	Port      string `mapstructure:"port"`
	DBPath    string `mapstructure:"db_path"`
	JWTSecret string `mapstructure:"jwt_secret"`

	// 数据源
	IncidentsPath   string `mapstructure:"incidents_path"`
	IncidentsFormat string `mapstructure:"incidents_format"` // csv 或 parquet
	AreasPath       string `mapstructure:"areas_path"`
	AreasHeader     bool   `mapstructure:"areas_header"`       // 多边形表首行为列名
	AreasIndexCol   bool   `mapstructure:"areas_index_column"` // 多边形表每行首列为索引, 读取时丢弃

	SnapshotKeep int `mapstructure:"snapshot_keep"` // 保留的快照数, 0 表示全部保留

	CacheTTL   time.Duration `mapstructure:"cache_ttl"`
	RateLimit  int           `mapstructure:"rate_limit"` // 每个窗口每个 IP 的最大请求数
	RateWindow time.Duration `mapstructure:"rate_window"`

	Log logging.Config `mapstructure:"log"`
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("port", ":8080")
	v.SetDefault("db_path", "./data/crime/snapshots.db")
	v.SetDefault("jwt_secret", "your-secret-key-change-in-production")
	v.SetDefault("incidents_path", "./data/crime/ChicagoCrimes(20152025).parquet")
	v.SetDefault("incidents_format", "parquet")
	v.SetDefault("areas_path", "./data/crime/CommAreas.csv")
	v.SetDefault("areas_header", true)
	v.SetDefault("areas_index_column", false)
	v.SetDefault("snapshot_keep", 30)
	v.SetDefault("cache_ttl", time.Hour)
	v.SetDefault("rate_limit", 120)
	v.SetDefault("rate_window", time.Minute)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	return v
}

// Load 加载配置: .env, 可选 YAML 文件, 然后 CRIME_* 环境变量
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := newViper()
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %q: %w", configPath, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// PolygonSchema 返回多边形表的物理布局
func (c *Config) PolygonSchema() ingest.PolygonSchema {
	return ingest.PolygonSchema{HasHeader: c.AreasHeader, DropLeadingColumn: c.AreasIndexCol}
}

// Validate 校验配置
func (c *Config) Validate() error {
	switch c.IncidentsFormat {
	case "csv", "parquet":
	default:
		return fmt.Errorf("invalid incidents_format %q: must be csv or parquet", c.IncidentsFormat)
	}
	if c.IncidentsPath == "" {
		return errors.New("incidents_path is required")
	}
	if c.AreasPath == "" {
		return errors.New("areas_path is required")
	}
	if c.CacheTTL < 0 {
		return errors.New("cache_ttl must not be negative")
	}
	if c.SnapshotKeep < 0 {
		return errors.New("snapshot_keep must not be negative")
	}
	if c.RateLimit <= 0 {
		return errors.New("rate_limit must be positive")
	}
	return nil
}
