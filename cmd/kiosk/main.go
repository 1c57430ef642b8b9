// Command kiosk runs an attendance check-in session against a line-oriented
// scanner (keyboard wedge on stdin or a serial device file).
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Spok95/school-office/internal/checkin"
	"github.com/Spok95/school-office/internal/config"
	"github.com/Spok95/school-office/internal/db"
	"github.com/Spok95/school-office/internal/logging"
	"github.com/Spok95/school-office/internal/observability"
	"github.com/Spok95/school-office/internal/sms"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Не удалось загрузить .env файл, используем переменные окружения")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	device := flag.String("device", cfg.ScannerDevice, "scanner device file, - for stdin")
	school := flag.Int64("school", cfg.KioskSchoolID, "school id")
	user := flag.Int64("user", cfg.KioskUserID, "user id recorded as marked_by")
	flag.Parse()

	lg, err := logging.Init(cfg.LogLevel, cfg.Env, "kiosk")
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer lg.Closer()
	logger := lg.Base

	flush, err := observability.InitSentry(cfg.SentryDSN, cfg.Env, cfg.Release)
	if err != nil {
		logger.Warn("sentry init failed", zap.Error(err))
	}
	defer flush()

	if *school <= 0 || *user <= 0 {
		logger.Fatal("KIOSK_SCHOOL_ID и KIOSK_USER_ID обязательны")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("db open", zap.Error(err))
	}
	defer func() { _ = database.Close() }()
	store := db.NewStore(database)

	var debounce checkin.Debouncer
	if cfg.SharedDebounce {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer func() { _ = rdb.Close() }()
		debounce = checkin.NewRedisDebouncer(rdb, *school, checkin.DefaultWindow)
	}

	var notifier checkin.Notifier
	if cfg.SMS.NotifyOnCheckIn && cfg.SMS.APIURL != "" {
		svc := sms.NewService(sms.NewHTTPGateway(sms.HTTPGatewayConfig{
			URL:      cfg.SMS.APIURL,
			APIKey:   cfg.SMS.APIKey,
			SenderID: cfg.SMS.SenderID,
		}), store, sms.Options{SuccessCode: cfg.SMS.SuccessCode, CostPerSMS: cfg.SMS.CostPerSMS}, logger)
		notifier = sms.NewCheckInNotifier(svc, cfg.Location)
	}

	sink := checkin.SinkFunc(func(ev checkin.Event) {
		fields := []zap.Field{zap.String("event", string(ev.Kind)), zap.String("state", string(ev.State))}
		if ev.Code != "" {
			fields = append(fields, zap.String("code", ev.Code))
		}
		if ev.Entry != nil {
			fields = append(fields,
				zap.String("student", ev.Entry.StudentID),
				zap.String("name", ev.Entry.Name),
				zap.String("class", ev.Entry.Class+"/"+ev.Entry.Section),
				zap.Int("roll", ev.Entry.Roll))
		}
		if ev.Message != "" {
			fields = append(fields, zap.String("message", ev.Message))
		}
		logger.Info("check-in", fields...)
	})

	sess := checkin.NewSession(checkin.Config{
		SchoolID: *school,
		MarkedBy: *user,
		Location: cfg.Location,
	}, store, checkin.NewDeviceScanner(*device), debounce, notifier, sink, logger)

	if err := sess.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("session failed", zap.Error(err))
		os.Exit(1)
	}
}
