// Package app wires the service together: configuration, connections,
// routing, and the process lifecycle.
package app

import (
	"errors"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type ServerConfig struct {
	Bind string
}

type MongoConfig struct {
	URL      string
	Database string
	User     string
	Pass     string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type LogConfig struct {
	Level string
}

type Config struct {
	Server ServerConfig
	Mongo  MongoConfig
	Redis  RedisConfig
	Log    LogConfig
}

// Load resolves configuration from defaults, an optional postline.yaml, and
// POSTLINE_* environment variables (POSTLINE_SERVER_BIND, POSTLINE_MONGO_URL,
// and so on). Env wins over file wins over defaults.
func Load() (Config, error) {
	v := viper.New()

	v.SetDefault("server.bind", ":5000")
	v.SetDefault("mongo.url", "mongodb://127.0.0.1:27017")
	v.SetDefault("mongo.database", "postline")
	v.SetDefault("mongo.user", "")
	v.SetDefault("mongo.pass", "")
	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("log.level", "info")

	v.SetEnvPrefix("POSTLINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("postline")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/postline")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParsedLevel resolves the configured log level, defaulting to info.
func (c LogConfig) ParsedLevel() logrus.Level {
	lvl, err := logrus.ParseLevel(c.Level)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}
