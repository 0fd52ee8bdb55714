package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"db"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Log      LogConfig      `mapstructure:"log"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Grid     GridConfig     `mapstructure:"grid"`
	Export   ExportConfig   `mapstructure:"export"`
	Feature  FeatureConfig  `mapstructure:"feature"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port      int             `mapstructure:"port"`
	BaseURL   string          `mapstructure:"base_url"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// RateLimitConfig 选课接口限流（依赖 Redis，不可用时不限流）
type RateLimitConfig struct {
	Limit  int           `mapstructure:"limit"`
	Window time.Duration `mapstructure:"window"`
}

// DatabaseConfig PostgreSQL 数据库配置
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // 连接最大生命周期（分钟）
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // 空闲连接最大存活时间（分钟）
}

// DSN 生成 PostgreSQL 连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// RedisConfig Redis 缓存配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string   `mapstructure:"level"`
	Format string   `mapstructure:"format"`
	Output []string `mapstructure:"output"` // stdout / stderr / 文件路径
}

// 目录数据来源
const (
	CatalogSourceFile = "file"
	CatalogSourceHTTP = "http"
)

// CatalogConfig 课程目录配置
type CatalogConfig struct {
	Source       string        `mapstructure:"source"`      // file | http
	Dir          string        `mapstructure:"dir"`         // source=file 时的目录
	BaseURL      string        `mapstructure:"base_url"`    // source=http 时的前缀
	TitlesFile   string        `mapstructure:"titles_file"` // 课程名映射文件，可为空
	Subjects     []string      `mapstructure:"subjects"`    // 启动时加载的学科
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl"` // Redis 原始数据缓存时长，0 表示不缓存
	DemoFallback bool          `mapstructure:"demo_fallback"`
}

// GridConfig 周网格配置
type GridConfig struct {
	DayStart      string   `mapstructure:"day_start"`
	DayEnd        string   `mapstructure:"day_end"`
	PixelsPerHour float64  `mapstructure:"pixels_per_hour"`
	Days          []string `mapstructure:"days"`
}

// ExportConfig 课表导出配置
type ExportConfig struct {
	Weeks    int    `mapstructure:"weeks"`    // ics 周重复次数
	Timezone string `mapstructure:"timezone"` // ics 时区
}

// FeatureConfig 功能开关配置
type FeatureConfig struct {
	PersistenceEnabled bool `mapstructure:"persistence_enabled"`
}

// Load 从配置文件与环境变量加载配置
// 优先级：环境变量 > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	v := viper.New()

	// ── 默认值 ──
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:5173"})
	v.SetDefault("server.rate_limit.limit", 120)
	v.SetDefault("server.rate_limit.window", "1m")

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "course_planner")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "Asia/Hong_Kong")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)  // 60分钟
	v.SetDefault("db.conn_max_idle_time", 30) // 30分钟

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", []string{"stdout"})

	v.SetDefault("catalog.source", CatalogSourceFile)
	v.SetDefault("catalog.dir", "./data")
	v.SetDefault("catalog.base_url", "")
	v.SetDefault("catalog.titles_file", "")
	v.SetDefault("catalog.subjects", []string{})
	v.SetDefault("catalog.fetch_timeout", "30s")
	v.SetDefault("catalog.cache_ttl", "10m")
	v.SetDefault("catalog.demo_fallback", true)

	v.SetDefault("grid.day_start", "08:30")
	v.SetDefault("grid.day_end", "22:30")
	v.SetDefault("grid.pixels_per_hour", 60)
	v.SetDefault("grid.days", []string{})

	v.SetDefault("export.weeks", 13)
	v.SetDefault("export.timezone", "Asia/Hong_Kong")

	v.SetDefault("feature.persistence_enabled", false)

	// ── 配置文件 ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── 环境变量 ──
	v.SetEnvPrefix("PLANNER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		// 配置文件不存在时仅依赖默认值和环境变量
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	// 环境变量中的列表以逗号分隔
	cfg.Catalog.Subjects = splitList(strings.Join(cfg.Catalog.Subjects, ","))
	cfg.Grid.Days = splitList(strings.Join(cfg.Grid.Days, ","))
	cfg.Log.Output = splitList(strings.Join(cfg.Log.Output, ","))

	// ── 关键配置校验 ──
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("配置校验失败: server.port 必须在 1-65535 之间")
	}
	switch c.Catalog.Source {
	case CatalogSourceFile:
		if c.Catalog.Dir == "" {
			return fmt.Errorf("配置校验失败: catalog.source=file 时 catalog.dir 不能为空")
		}
	case CatalogSourceHTTP:
		if c.Catalog.BaseURL == "" {
			return fmt.Errorf("配置校验失败: catalog.source=http 时 catalog.base_url 不能为空")
		}
	default:
		return fmt.Errorf("配置校验失败: catalog.source 只能是 file 或 http，当前为 %q", c.Catalog.Source)
	}
	if c.Grid.PixelsPerHour <= 0 {
		return fmt.Errorf("配置校验失败: grid.pixels_per_hour 必须大于 0")
	}
	if err := c.Grid.validateWindow(); err != nil {
		return err
	}
	if c.Export.Weeks <= 0 {
		return fmt.Errorf("配置校验失败: export.weeks 必须大于 0")
	}
	return nil
}

// validateWindow 校验日窗口格式为 HH:MM 且 day_start < day_end
func (g *GridConfig) validateWindow() error {
	start, err := parseClock(g.DayStart)
	if err != nil {
		return fmt.Errorf("配置校验失败: grid.day_start %w", err)
	}
	end, err := parseClock(g.DayEnd)
	if err != nil {
		return fmt.Errorf("配置校验失败: grid.day_end %w", err)
	}
	if end <= start {
		return fmt.Errorf("配置校验失败: grid.day_end 必须晚于 grid.day_start")
	}
	return nil
}

func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("格式应为 HH:MM: %q", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
