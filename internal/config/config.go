package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	DatabaseURL    string
	Location       *time.Location
	HTTPAddr       string
	LogLevel       string
	Env            string // dev|prod
	SentryDSN      string
	Release        string
	PublicOrigin   string // база для ссылок проверки документов
	JWTSecret      string
	CurrencySymbol string
	VerifyLimit    int // запросов проверки в минуту с одного IP

	Raster   RasterConfig
	SMS      SMSConfig
	Midtrans MidtransConfig
	Mail     MailConfig

	RedisAddr      string
	SharedDebounce bool // общий интервал антидребезга для всех киосков (через Redis)

	BotToken      string
	SummaryChatID int64
	SummaryHour   int // время ежедневной сводки, по Location
	SummaryMinute int

	ReconcileEvery time.Duration

	ScannerDevice string
	KioskSchoolID int64
	KioskUserID   int64
}

type RasterConfig struct {
	WkhtmltopdfPath string
	DPI             float64
	Settle          time.Duration
	PhotoTimeout    time.Duration
}

type SMSConfig struct {
	APIURL          string
	APIKey          string
	SenderID        string
	SuccessCode     string
	CostPerSMS      float64
	NotifyOnCheckIn bool
}

type MidtransConfig struct {
	ServerKey  string
	Production bool
}

type MailConfig struct {
	SendgridKey string
	From        string
	FromName    string
}

func Load() (*Config, error) {
	tz := getenv("TZ", "Asia/Dhaka")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.Local
	}

	dpi, err := getFloat("RASTER_DPI", 300)
	if err != nil {
		return nil, err
	}
	settle, err := getDuration("RASTER_SETTLE", 300*time.Millisecond)
	if err != nil {
		return nil, err
	}
	photoTimeout, err := getDuration("PHOTO_TIMEOUT", 8*time.Second)
	if err != nil {
		return nil, err
	}
	smsCost, err := getFloat("SMS_COST", 0.35)
	if err != nil {
		return nil, err
	}
	summaryChat, err := getInt("SUMMARY_CHAT_ID", 0)
	if err != nil {
		return nil, err
	}
	summaryHour, summaryMinute, err := getClock("SUMMARY_AT", "17:00")
	if err != nil {
		return nil, err
	}
	verifyLimit, err := getInt("VERIFY_RATE_LIMIT", 30)
	if err != nil {
		return nil, err
	}
	reconcileEvery, err := getDuration("RECONCILE_INTERVAL", 5*time.Minute)
	if err != nil {
		return nil, err
	}
	kioskSchool, err := getInt("KIOSK_SCHOOL_ID", 0)
	if err != nil {
		return nil, err
	}
	kioskUser, err := getInt("KIOSK_USER_ID", 0)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DatabaseURL:    mustEnv("DATABASE_URL"),
		Location:       loc,
		HTTPAddr:       getenv("HTTP_ADDR", ":8080"),
		LogLevel:       getenv("LOG_LEVEL", "info"),
		Env:            getenv("ENV", "dev"),
		SentryDSN:      os.Getenv("SENTRY_DSN"),
		Release:        getenv("RELEASE", "dev"),
		PublicOrigin:   strings.TrimRight(getenv("PUBLIC_ORIGIN", "http://localhost:8080"), "/"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		CurrencySymbol: getenv("CURRENCY_SYMBOL", "৳"),
		VerifyLimit:    int(verifyLimit),
		Raster: RasterConfig{
			WkhtmltopdfPath: os.Getenv("WKHTMLTOPDF_PATH"),
			DPI:             dpi,
			Settle:          settle,
			PhotoTimeout:    photoTimeout,
		},
		SMS: SMSConfig{
			APIURL:          os.Getenv("SMS_API_URL"),
			APIKey:          os.Getenv("SMS_API_KEY"),
			SenderID:        os.Getenv("SMS_SENDER_ID"),
			SuccessCode:     getenv("SMS_SUCCESS_CODE", "202"),
			CostPerSMS:      smsCost,
			NotifyOnCheckIn: getBool("SMS_NOTIFY_CHECKIN", false),
		},
		Midtrans: MidtransConfig{
			ServerKey:  os.Getenv("MIDTRANS_SERVER_KEY"),
			Production: getBool("MIDTRANS_PRODUCTION", false),
		},
		Mail: MailConfig{
			SendgridKey: os.Getenv("SENDGRID_API_KEY"),
			From:        getenv("MAIL_FROM", "noreply@localhost"),
			FromName:    getenv("MAIL_FROM_NAME", "School Office"),
		},
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		SharedDebounce: getBool("DEBOUNCE_SHARED", false),
		BotToken:       os.Getenv("BOT_TOKEN"),
		SummaryChatID:  summaryChat,
		SummaryHour:    summaryHour,
		SummaryMinute:  summaryMinute,
		ReconcileEvery: reconcileEvery,
		ScannerDevice:  getenv("SCANNER_DEVICE", "-"),
		KioskSchoolID:  kioskSchool,
		KioskUserID:    kioskUser,
	}
	if cfg.SharedDebounce && cfg.RedisAddr == "" {
		return nil, fmt.Errorf("DEBOUNCE_SHARED требует REDIS_ADDR")
	}
	return cfg, nil
}

func mustEnv(k string) string {
	v := os.Getenv(k)
	if v == "" {
		panic("required env " + k + " is empty")
	}
	return v
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getBool(k string, def bool) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(k)))
	switch v {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return def
}

func getInt(k string, def int64) (int64, error) {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", k, err)
	}
	return n, nil
}

func getFloat(k string, def float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", k, err)
	}
	return f, nil
}

func getDuration(k string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", k, err)
	}
	return d, nil
}

// getClock: "HH:MM".
func getClock(k, def string) (int, int, error) {
	t, err := time.Parse("15:04", getenv(k, def))
	if err != nil {
		return 0, 0, fmt.Errorf("%s: %w", k, err)
	}
	return t.Hour(), t.Minute(), nil
}
