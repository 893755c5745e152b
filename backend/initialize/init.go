package initialize

import (
	"fmt"
	"net/http"

	"device-tracker/backend/app/controllers"
	"device-tracker/backend/app/db"
	"device-tracker/backend/app/ipgeo"
	jwtutil "device-tracker/backend/app/jwt"
	"device-tracker/backend/app/middleware"
	"device-tracker/backend/app/models"
	"device-tracker/backend/app/repo"
	"device-tracker/backend/app/services"
	"device-tracker/backend/config"
	"device-tracker/backend/global"
	"device-tracker/backend/router"
	"device-tracker/backend/sweeper"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type App struct {
	Cfg     *config.Config
	DB      *gorm.DB
	Router  http.Handler
	Sweeper *sweeper.Sweeper

	Users     *services.UserService
	Devices   *services.DeviceService
	Telemetry *services.TelemetryService
	Commands  *services.CommandService
	Alerts    *services.AlertService
	Reports   *services.ReportService
}

func Build(configPath string) (*App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	global.Config = cfg

	gdb, err := db.Connect(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	global.Mdb = gdb

	if err := gdb.AutoMigrate(
		&models.User{},
		&models.Device{},
		&models.TelemetryEvent{},
		&models.Command{},
		&models.Alert{},
	); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	// Redis is optional; without it the geo cache falls back to memory.
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Pass, DB: cfg.Redis.DB})
		global.Rdb = rdb
	}

	userRepo := repo.NewUserRepository(gdb)
	deviceRepo := repo.NewDeviceRepository(gdb)
	telemetryRepo := repo.NewTelemetryRepository(gdb)
	commandRepo := repo.NewCommandRepository(gdb)
	alertRepo := repo.NewAlertRepository(gdb)

	userSvc := services.NewUserService(userRepo)
	deviceSvc := services.NewDeviceService(deviceRepo)
	alertSvc := services.NewAlertService(gdb, alertRepo, telemetryRepo, deviceRepo, cfg.Sweep.HeartbeatThreshold)
	geoSvc := ipgeo.New(rdb)
	telemetrySvc := services.NewTelemetryService(gdb, telemetryRepo, deviceRepo, alertSvc, geoSvc)
	commandSvc := services.NewCommandService(gdb, commandRepo)
	reportSvc := services.NewReportService(telemetryRepo, commandRepo)

	if err := userSvc.EnsureAdmin("admin", "admin123"); err != nil {
		global.Logger.Warn().Err(err).Msg("admin bootstrap failed")
	}

	signer := &jwtutil.Signer{
		Secret:       []byte(cfg.JWT.Secret),
		Issuer:       cfg.JWT.Issuer,
		ExpMin:       cfg.JWT.ExpMin,
		DeviceExpDay: cfg.JWT.DeviceExpDay,
	}
	mw := &middleware.Auth{Signer: signer}

	authCtrl := controllers.NewAuthController(userSvc, signer)
	adminCtrl := controllers.NewAdminController(userSvc)
	deviceCtrl := controllers.NewDeviceController(deviceSvc, userSvc, commandSvc, signer)
	telemetryCtrl := controllers.NewTelemetryController(telemetrySvc)
	cmdCtrl := controllers.NewCommandController(commandSvc, deviceSvc)
	alertCtrl := controllers.NewAlertController(alertSvc, deviceSvc)
	reportCtrl := controllers.NewReportController(deviceSvc, reportSvc)

	h := router.NewRouter(authCtrl, adminCtrl, deviceCtrl, telemetryCtrl, cmdCtrl, alertCtrl, reportCtrl, mw)
	h = middleware.Logging(h)

	return &App{
		Cfg:       cfg,
		DB:        gdb,
		Router:    h,
		Sweeper:   sweeper.New(alertSvc, cfg.Sweep.Interval),
		Users:     userSvc,
		Devices:   deviceSvc,
		Telemetry: telemetrySvc,
		Commands:  commandSvc,
		Alerts:    alertSvc,
		Reports:   reportSvc,
	}, nil
}
