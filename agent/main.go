package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"device-tracker/agent/internal/actions"
	"device-tracker/agent/internal/client"
	"device-tracker/agent/internal/config"
	"device-tracker/agent/internal/db"
	"device-tracker/agent/internal/logger"
	"device-tracker/agent/internal/monitor"
	"device-tracker/agent/internal/queue"
	"device-tracker/agent/internal/runner"

	"gorm.io/gorm"
)

func main() {
	var (
		cfgPath  = flag.String("config", "config/agent.yaml", "Path to configuration file")
		enroll   = flag.Bool("enroll", false, "Force re-enrollment even if a credential exists")
		username = flag.String("username", "", "Account username for enrollment")
		password = flag.String("password", "", "Account password for enrollment")
	)
	flag.Parse()

	cfg := config.Init(*cfgPath)
	if err := logger.Init(cfg.LogPath); err != nil {
		fmt.Fprintln(os.Stderr, "Cannot open log file:", err)
		return
	}

	adb, err := db.Init(cfg.DBPath)
	if err != nil {
		logger.Error("Cannot open local database:", err)
		return
	}
	if err := adb.AutoMigrate(&db.QueueEntry{}, &db.SequenceState{}, &db.Credential{}); err != nil {
		logger.Error("Cannot migrate local database:", err)
		return
	}

	cred, err := loadOrEnroll(adb, cfg, *enroll, *username, *password)
	if err != nil {
		logger.Error("Enrollment failed:", err)
		return
	}
	logger.Infof("Running as device %s", cred.DeviceID)

	q := queue.New(adb)
	collector := monitor.NewCollector(monitor.LoadSequence(adb))
	api := client.New(cfg.ServerURL, cred.DeviceID, cred.Token, cfg.RequestTimeout)

	r := runner.New(runner.Config{
		HeartbeatSeconds: cfg.HeartbeatSeconds,
		PollSeconds:      cfg.PollSeconds,
		MaxRetries:       cfg.MaxRetries,
	}, api, q, collector, actions.New())

	stopWatch, err := config.Watch(func(next config.AppConfig) {
		logger.Info("Config reloaded")
		r.SetInterval(next.HeartbeatSeconds)
	})
	if err != nil {
		logger.Warnf("Config watch disabled: %v", err)
	} else {
		defer func() { _ = stopWatch() }()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if n, err := q.Size(); err == nil && n > 0 {
		logger.Infof("Local queue holds %d undelivered samples", n)
	}
	r.Run(ctx)
	logger.Info("Shutdown complete")
}

func loadOrEnroll(adb *gorm.DB, cfg config.AppConfig, force bool, username, password string) (*db.Credential, error) {
	var cred db.Credential
	if !force {
		if err := adb.Order("id DESC").First(&cred).Error; err == nil && cred.Token != "" {
			return &cred, nil
		}
	}

	if username == "" {
		username = prompt("Username: ")
	}
	if password == "" {
		password = prompt("Password: ")
	}
	hostname, _ := os.Hostname()
	display := cfg.DisplayName
	if display == "" {
		display = hostname
	}

	api := client.New(cfg.ServerURL, "", "", cfg.RequestTimeout)
	resp, err := api.Enroll(context.Background(), client.EnrollRequest{
		Username:    username,
		Password:    password,
		DisplayName: display,
		Platform:    runtime.GOOS,
		Hostname:    hostname,
	})
	if err != nil {
		return nil, err
	}

	if err := adb.Where("1 = 1").Delete(&db.Credential{}).Error; err != nil {
		return nil, fmt.Errorf("clear old credential: %w", err)
	}
	cred = db.Credential{DeviceID: resp.DeviceID, Token: resp.Token}
	if err := adb.Create(&cred).Error; err != nil {
		return nil, fmt.Errorf("store credential: %w", err)
	}
	logger.Infof("Enrolled as device %s", resp.DeviceID)
	return &cred, nil
}

func prompt(label string) string {
	fmt.Print(label)
	line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	return strings.TrimSpace(line)
}
