package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

type AppConfig struct {
	ServerURL        string
	HeartbeatSeconds int
	PollSeconds      int
	RequestTimeout   time.Duration
	DBPath           string
	LogPath          string
	MaxRetries       int
	DisplayName      string
}

var (
	mu      sync.RWMutex
	cfg     AppConfig
	cfgFile string
)

func Init(path string) AppConfig {
	if path == "" {
		path = "config/agent.yaml"
	}
	cfgFile = path
	cfg = read(path)
	return cfg
}

func read(path string) AppConfig {
	defaultDir := filepath.Join(os.TempDir(), "device-tracker")

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("agent.server_url", "http://127.0.0.1:9400")
	v.SetDefault("agent.heartbeat_seconds", 300)
	v.SetDefault("agent.poll_seconds", 20)
	v.SetDefault("agent.request_timeout_seconds", 10)
	v.SetDefault("agent.db_path", filepath.Join(defaultDir, "agent.db"))
	v.SetDefault("agent.queue.max_retries", 20)
	_ = v.ReadInConfig()

	return AppConfig{
		ServerURL:        v.GetString("agent.server_url"),
		HeartbeatSeconds: v.GetInt("agent.heartbeat_seconds"),
		PollSeconds:      v.GetInt("agent.poll_seconds"),
		RequestTimeout:   time.Duration(v.GetInt("agent.request_timeout_seconds")) * time.Second,
		DBPath:           v.GetString("agent.db_path"),
		LogPath:          v.GetString("agent.log_path"),
		MaxRetries:       v.GetInt("agent.queue.max_retries"),
		DisplayName:      v.GetString("agent.display_name"),
	}
}

func Get() AppConfig {
	mu.RLock()
	defer mu.RUnlock()
	return cfg
}

// Watch reloads the config file on change and reports the new values.
// Used to re-apply the heartbeat period without restarting the agent.
func Watch(onChange func(AppConfig)) (func() error, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(cfgFile)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", cfgFile, err)
	}
	go func() {
		for {
			select {
			case evt, ok := <-watcher.Events:
				if !ok {
					return
				}
				if evt.Name != cfgFile {
					continue
				}
				if evt.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				next := read(cfgFile)
				mu.Lock()
				cfg = next
				mu.Unlock()
				onChange(next)
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return watcher.Close, nil
}
