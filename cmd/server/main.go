package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Spok95/school-office/internal/app"
	"github.com/Spok95/school-office/internal/assets"
	"github.com/Spok95/school-office/internal/checkin"
	"github.com/Spok95/school-office/internal/config"
	"github.com/Spok95/school-office/internal/db"
	"github.com/Spok95/school-office/internal/documents"
	"github.com/Spok95/school-office/internal/export"
	"github.com/Spok95/school-office/internal/jobs"
	"github.com/Spok95/school-office/internal/logging"
	"github.com/Spok95/school-office/internal/mailer"
	"github.com/Spok95/school-office/internal/observability"
	"github.com/Spok95/school-office/internal/payment"
	"github.com/Spok95/school-office/internal/promotion"
	"github.com/Spok95/school-office/internal/raster"
	"github.com/Spok95/school-office/internal/sms"
	"github.com/Spok95/school-office/internal/tg"
	"github.com/Spok95/school-office/internal/verify"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
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

	lg, err := logging.Init(cfg.LogLevel, cfg.Env, "server")
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("db open", zap.Error(err))
	}
	defer func() { _ = database.Close() }()
	if err := db.Migrate(ctx, database); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}
	store := db.NewStore(database)

	loader := assets.NewLoader(&http.Client{}, cfg.Raster.PhotoTimeout, logger)
	wk := raster.NewWkhtml(raster.Options{BinPath: cfg.Raster.WkhtmltopdfPath, Settle: cfg.Raster.Settle}, logger)
	exporter := export.NewService(loader, wk, wk, export.Options{
		PublicOrigin: cfg.PublicOrigin,
		Currency:     cfg.CurrencySymbol,
		DPI:          cfg.Raster.DPI,
	}, logger)
	builder := documents.NewBuilder(store, cfg.Location)

	deps := app.Deps{
		Store:       store,
		Documents:   builder,
		Exporter:    exporter,
		Verifier:    verify.New(store, builder, exporter, logger),
		Promotion:   promotion.NewService(store, logger),
		JWTSecret:   cfg.JWTSecret,
		Location:    cfg.Location,
		VerifyLimit: cfg.VerifyLimit,
		Log:         logger,
	}

	if cfg.SMS.APIURL != "" {
		svc := sms.NewService(sms.NewHTTPGateway(sms.HTTPGatewayConfig{
			URL:      cfg.SMS.APIURL,
			APIKey:   cfg.SMS.APIKey,
			SenderID: cfg.SMS.SenderID,
		}), store, sms.Options{SuccessCode: cfg.SMS.SuccessCode, CostPerSMS: cfg.SMS.CostPerSMS}, logger)
		deps.SMS = svc
		if cfg.SMS.NotifyOnCheckIn {
			deps.CheckInNotifier = sms.NewCheckInNotifier(svc, cfg.Location)
		}
	}

	if cfg.SharedDebounce {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer func() { _ = rdb.Close() }()
		deps.CheckInDebounce = func(schoolID int64) checkin.Debouncer {
			return checkin.NewRedisDebouncer(rdb, schoolID, checkin.DefaultWindow)
		}
	}

	runner := jobs.New(ctx, logger)

	if cfg.Midtrans.ServerKey != "" {
		var notifier payment.Notifier
		if cfg.Mail.SendgridKey != "" {
			sender := mailer.NewSendgridSender(cfg.Mail.SendgridKey, cfg.Mail.FromName, cfg.Mail.From)
			notifier = mailer.NewReceipts(store, sender, cfg.CurrencySymbol, cfg.Location, logger)
		}
		pay := payment.NewService(payment.NewMidtrans(cfg.Midtrans.ServerKey, cfg.Midtrans.Production),
			store, cfg.Midtrans.ServerKey, notifier, logger)
		deps.Payments = pay
		// заказы, по которым не пришёл callback
		runner.Every(cfg.ReconcileEvery, "payments_reconcile", func(ctx context.Context) error {
			_, err := pay.ReconcilePending(ctx, 10*time.Minute, 100)
			return err
		})
	}

	if cfg.BotToken != "" && cfg.SummaryChatID != 0 {
		bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
		if err != nil {
			logger.Warn("telegram bot init failed, daily summary disabled", zap.Error(err))
		} else {
			summary := tg.NewSummary(bot, store, cfg.SummaryChatID, cfg.Location, logger)
			runner.DailyAt(cfg.SummaryHour, cfg.SummaryMinute, cfg.Location, "attendance_summary", summary.Post)
		}
	}

	logger.Info("server starting", zap.String("addr", cfg.HTTPAddr), zap.String("env", cfg.Env))
	if err := app.New(deps).Run(ctx, cfg.HTTPAddr); err != nil {
		logger.Error("server stopped", zap.Error(err))
	}
}
