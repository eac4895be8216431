package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type App struct {
	Name string
	Env  string
}

type FileRotate struct {
	Enable     bool
	Filename   string
	MaxSizeMB  int `mapstructure:"max_size_mb"`
	MaxBackups int `mapstructure:"max_backups"`
	MaxAgeDays int `mapstructure:"max_age_days"`
	Compress   bool
}

type Log struct {
	Level string
	JSON  bool
	File  FileRotate
}

type Latency struct {
	Login  time.Duration
	List   time.Duration
	Mutate time.Duration
}

type Demo struct {
	Email    string
	Password string
}

type Backend struct {
	PerPage     int `mapstructure:"per_page"`
	Latency     Latency
	Demo        Demo
	BcryptCost  int     `mapstructure:"bcrypt_cost"`
	FailureRate float64 `mapstructure:"failure_rate"`
}

type JWT struct {
	// Secret empty means the fixed demo token is handed out instead of a JWT.
	Secret string
	Issuer string
	TTL    time.Duration
}

type SeedUser struct {
	ID        int64  `mapstructure:"id"`
	Email     string `mapstructure:"email"`
	FirstName string `mapstructure:"first_name"`
	LastName  string `mapstructure:"last_name"`
	Avatar    string `mapstructure:"avatar"`
}

type Config struct {
	App     App
	Log     Log
	Backend Backend
	JWT     JWT
	Seed    []SeedUser
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "user-console")
	v.SetDefault("app.env", "local")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("log.file.enable", false)
	v.SetDefault("log.file.filename", "logs/console.log")
	v.SetDefault("log.file.max_size_mb", 50)
	v.SetDefault("log.file.max_backups", 3)
	v.SetDefault("log.file.max_age_days", 7)
	v.SetDefault("log.file.compress", false)

	v.SetDefault("backend.per_page", 6)
	v.SetDefault("backend.latency.login", "1000ms")
	v.SetDefault("backend.latency.list", "800ms")
	v.SetDefault("backend.latency.mutate", "500ms")
	v.SetDefault("backend.demo.email", "eve.holt@reqres.in")
	v.SetDefault("backend.demo.password", "cityslicka")
	v.SetDefault("backend.bcrypt_cost", 10)
	v.SetDefault("backend.failure_rate", 0.0)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "user-console")
	v.SetDefault("jwt.ttl", "1h")
}

// Load reads path (or $CONFIG_PATH, or ./configs/config.local.yaml) on top of
// the built-in defaults. A missing file is not an error; APP_* env vars win over both.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
		if path == "" {
			path = "./configs/config.local.yaml"
		}
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			return nil, err
		}
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}
	return &c, nil
}
