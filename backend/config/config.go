package config

import (
	"time"

	"github.com/spf13/viper"
)

type HTTP struct {
	Host string
	Port int
}

type DB struct {
	Driver string // mysql or sqlite
	Host   string
	Port   int
	User   string
	Pass   string
	Name   string
	Path   string // sqlite only
}

type Redis struct {
	Addr string
	Pass string
	DB   int
}

type Sweep struct {
	Interval           time.Duration
	HeartbeatThreshold time.Duration
}

type Config struct {
	HTTP  HTTP
	DB    DB
	Redis Redis
	Sweep Sweep
	JWT   struct {
		Secret       string
		Issuer       string
		ExpMin       int
		DeviceExpDay int
	}
}

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("backend.host", "127.0.0.1")
	v.SetDefault("backend.port", 9400)
	v.SetDefault("backend.db.driver", "mysql")
	v.SetDefault("backend.db.host", "127.0.0.1")
	v.SetDefault("backend.db.port", 3306)
	v.SetDefault("backend.db.user", "root")
	v.SetDefault("backend.db.pass", "")
	v.SetDefault("backend.db.name", "device_tracker")
	v.SetDefault("backend.db.path", "tracker.db")
	v.SetDefault("backend.sweep.interval_seconds", 60)
	v.SetDefault("backend.sweep.heartbeat_threshold_minutes", 15)
	v.SetDefault("backend.jwt.exp_min", 60)
	v.SetDefault("backend.jwt.device_exp_days", 365)
	// Missing config file is fine: defaults carry a dev setup.
	_ = v.ReadInConfig()

	cfg := &Config{
		HTTP: HTTP{Host: v.GetString("backend.host"), Port: v.GetInt("backend.port")},
		DB: DB{
			Driver: v.GetString("backend.db.driver"),
			Host:   v.GetString("backend.db.host"),
			Port:   v.GetInt("backend.db.port"),
			User:   v.GetString("backend.db.user"),
			Pass:   v.GetString("backend.db.pass"),
			Name:   v.GetString("backend.db.name"),
			Path:   v.GetString("backend.db.path"),
		},
		Redis: Redis{
			Addr: v.GetString("backend.redis.addr"),
			Pass: v.GetString("backend.redis.pass"),
			DB:   v.GetInt("backend.redis.db"),
		},
		Sweep: Sweep{
			Interval:           time.Duration(v.GetInt("backend.sweep.interval_seconds")) * time.Second,
			HeartbeatThreshold: time.Duration(v.GetInt("backend.sweep.heartbeat_threshold_minutes")) * time.Minute,
		},
	}
	cfg.JWT.Secret = v.GetString("backend.jwt.secret")
	if cfg.JWT.Secret == "" {
		cfg.JWT.Secret = "dev-secret"
	}
	cfg.JWT.Issuer = v.GetString("backend.jwt.issuer")
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "device-tracker"
	}
	cfg.JWT.ExpMin = v.GetInt("backend.jwt.exp_min")
	cfg.JWT.DeviceExpDay = v.GetInt("backend.jwt.device_exp_days")
	return cfg, nil
}
