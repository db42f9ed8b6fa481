// Package config loads karton settings from karton.yaml, KARTON_* environment
// variables and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"karton/pkg/label"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Scan      ScanConfig      `mapstructure:"scan"`
	Camera    CameraConfig    `mapstructure:"camera"`
	Hotfolder HotfolderConfig `mapstructure:"hotfolder"`
	OCR       OCRConfig       `mapstructure:"ocr"`
	JIS       StandardConfig  `mapstructure:"jis"`
	DIN       StandardConfig  `mapstructure:"din"`

	source string
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	// Driver is "postgres" or "sqlite".
	Driver      string `mapstructure:"driver"`
	DSN         string `mapstructure:"dsn"`
	Path        string `mapstructure:"path"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

type AuthConfig struct {
	JWTSecret  string        `mapstructure:"jwt_secret"`
	AccessTTL  time.Duration `mapstructure:"access_ttl"`
	RefreshTTL time.Duration `mapstructure:"refresh_ttl"`
}

type StorageConfig struct {
	UploadBase    string `mapstructure:"upload_base"`
	ImageDir      string `mapstructure:"image_dir"`
	RetentionDays int    `mapstructure:"retention_days"`
}

type ScanConfig struct {
	Preset          string        `mapstructure:"preset"`
	Interval        time.Duration `mapstructure:"interval"`
	DuplicateWindow time.Duration `mapstructure:"duplicate_window"`
	MaxWidth        int           `mapstructure:"max_width"`
	BinaryView      bool          `mapstructure:"binary_view"`
	SplitView       bool          `mapstructure:"split_view"`
}

type CameraConfig struct {
	Device    int           `mapstructure:"device"`
	Probe     int           `mapstructure:"probe"`
	Width     int           `mapstructure:"width"`
	Height    int           `mapstructure:"height"`
	ReplayDir string        `mapstructure:"replay_dir"`
	FrameRate time.Duration `mapstructure:"frame_rate"`
}

type HotfolderConfig struct {
	Dir      string        `mapstructure:"dir"`
	Workers  int           `mapstructure:"workers"`
	Debounce time.Duration `mapstructure:"debounce"`
}

type OCRConfig struct {
	Language      string  `mapstructure:"language"`
	MinConfidence float64 `mapstructure:"min_confidence"`
}

// StandardConfig mirrors label.Profile. Substitution tables are lists of
// two-character pairs, "O0" reading O as 0.
type StandardConfig struct {
	Catalog        []string     `mapstructure:"catalog"`
	Allowlist      string       `mapstructure:"allowlist"`
	MinSize        int          `mapstructure:"min_size"`
	WidthThreshold float64      `mapstructure:"width_threshold"`
	Paragraph      bool         `mapstructure:"paragraph"`
	MatchThreshold float64      `mapstructure:"match_threshold"`
	StripThreshold float64      `mapstructure:"strip_threshold"`
	MinLength      int          `mapstructure:"min_length"`
	Tables         TablesConfig `mapstructure:"tables"`
}

type TablesConfig struct {
	CharToDigit   []string `mapstructure:"char_to_digit"`
	DigitToChar   []string `mapstructure:"digit_to_char"`
	TypeCollapse  []string `mapstructure:"type_collapse"`
	TerminalLeft  string   `mapstructure:"terminal_left"`
	TerminalRight string   `mapstructure:"terminal_right"`
	PrefixFirst   []string `mapstructure:"prefix_first"`
	PrefixSecond  []string `mapstructure:"prefix_second"`
	PrefixN       []string `mapstructure:"prefix_n"`
	BodySuffix    []string `mapstructure:"body_suffix"`
	ISSMisreads   []string `mapstructure:"iss_misreads"`
}

// Load reads configuration. An empty path searches for karton.yaml in the
// working directory and /etc/karton; a missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("karton")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/karton/")
	}

	v.SetEnvPrefix("KARTON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// unprefixed names kept for existing deployments
	_ = v.BindEnv("database.dsn", "KARTON_DATABASE_DSN", "DB_DSN")
	_ = v.BindEnv("database.auto_migrate", "KARTON_DATABASE_AUTO_MIGRATE", "DB_AUTO_MIGRATE")
	_ = v.BindEnv("auth.jwt_secret", "KARTON_AUTH_JWT_SECRET", "JWT_SECRET")
	_ = v.BindEnv("storage.upload_base", "KARTON_STORAGE_UPLOAD_BASE", "UPLOAD_BASE")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.source = v.ConfigFileUsed()
	if cfg.Storage.ImageDir == "" {
		cfg.Storage.ImageDir = cfg.Storage.UploadBase + "/detections"
	}
	if _, err := cfg.Preset(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Source is the config file used, empty when running on defaults.
func (c *Config) Source() string { return c.source }

// Preset is the standard selected at startup.
func (c *Config) Preset() (label.Standard, error) {
	return label.ParseStandard(c.Scan.Preset)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8081")
	v.SetDefault("server.mode", "release")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "karton.db")
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("auth.jwt_secret", "dev-insecure-secret-change")
	v.SetDefault("auth.access_ttl", "24h")
	v.SetDefault("auth.refresh_ttl", "720h")

	v.SetDefault("storage.upload_base", "uploads")
	v.SetDefault("storage.retention_days", 90)

	v.SetDefault("scan.preset", "JIS")
	v.SetDefault("scan.interval", "2s")
	v.SetDefault("scan.duplicate_window", "5s")
	v.SetDefault("scan.max_width", 640)
	v.SetDefault("scan.binary_view", false)
	v.SetDefault("scan.split_view", false)

	v.SetDefault("camera.device", -1)
	v.SetDefault("camera.probe", 4)
	v.SetDefault("camera.width", 1280)
	v.SetDefault("camera.height", 720)
	v.SetDefault("camera.frame_rate", "100ms")

	v.SetDefault("hotfolder.workers", 1)
	v.SetDefault("hotfolder.debounce", "250ms")

	v.SetDefault("ocr.language", "eng")
	v.SetDefault("ocr.min_confidence", 0)

	for _, std := range label.Standards {
		p := label.DefaultProfile(std)
		key := strings.ToLower(std.String())
		v.SetDefault(key+".catalog", p.Catalog)
		v.SetDefault(key+".allowlist", p.Allowlist)
		v.SetDefault(key+".min_size", p.MinSize)
		v.SetDefault(key+".width_threshold", p.WidthThreshold)
		v.SetDefault(key+".paragraph", p.Paragraph)
		v.SetDefault(key+".match_threshold", p.MatchThreshold)
		v.SetDefault(key+".strip_threshold", p.StripThreshold)
		v.SetDefault(key+".min_length", p.MinLength)
		t := p.Tables
		v.SetDefault(key+".tables.char_to_digit", t.CharToDigit.Pairs())
		v.SetDefault(key+".tables.digit_to_char", t.DigitToChar.Pairs())
		v.SetDefault(key+".tables.type_collapse", t.TypeCollapse.Pairs())
		v.SetDefault(key+".tables.terminal_left", t.TerminalLeft)
		v.SetDefault(key+".tables.terminal_right", t.TerminalRight)
		v.SetDefault(key+".tables.prefix_first", t.PrefixFirst.Pairs())
		v.SetDefault(key+".tables.prefix_second", t.PrefixSecond.Pairs())
		v.SetDefault(key+".tables.prefix_n", t.PrefixN.Pairs())
		v.SetDefault(key+".tables.body_suffix", t.BodySuffix.Pairs())
		v.SetDefault(key+".tables.iss_misreads", t.ISSMisreads)
	}
}
