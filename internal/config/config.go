package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	DBUser        string
	DBPassword    string
	DBName        string
	DBHost        string
	DBPort        string
	RedisHost     string
	RedisPort     string
	RedisPassword string
	BotToken      string
	AdminID       int64

	MinPayout     decimal.Decimal
	ReferralBonus decimal.Decimal

	// BroadcastRate is the outbound ceiling in messages per second.
	BroadcastRate      float64
	OnboardingMessages []string
	OnboardingDelay    time.Duration
	StateTTL           time.Duration

	ReminderInterval time.Duration
	ReminderAge      time.Duration

	LogLevel            string
	LogFormat           string
	MetricsAddr         string
	MetricsAllowedCIDRs []string
}

var defaultOnboarding = []string{
	"🚀 Мы помогаем партнёрам зарабатывать на рекомендациях.",
	"💰 За каждого приглашённого партнёра, подписавшего соглашение, вы получаете вознаграждение.",
	"📝 Подпишите партнёрское соглашение, чтобы получить реферальную ссылку.",
}

func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	return &Config{
		DBUser:              getEnv("DB_USER", "postgres"),
		DBPassword:          getEnv("DB_PASSWORD", "postgres"),
		DBName:              getEnv("DB_NAME", "partner_bot"),
		DBHost:              getEnv("DB_HOST", "localhost"),
		DBPort:              getEnv("DB_PORT", "5432"),
		RedisHost:           getEnv("REDIS_HOST", "localhost"),
		RedisPort:           getEnv("REDIS_PORT", "6379"),
		RedisPassword:       getEnv("REDIS_PASSWORD", ""),
		BotToken:            getEnv("TELEGRAM_BOT_TOKEN", ""),
		AdminID:             getInt64("ADMIN_ID", 0),
		MinPayout:           getDecimal("MIN_PAYOUT", decimal.NewFromInt(1000)),
		ReferralBonus:       getDecimal("REFERRAL_BONUS", decimal.NewFromInt(500)),
		BroadcastRate:       getFloat("BROADCAST_RATE", 10),
		OnboardingMessages:  getList("ONBOARDING_MESSAGES", "||", defaultOnboarding),
		OnboardingDelay:     getDuration("ONBOARDING_DELAY", time.Second),
		StateTTL:            getDuration("STATE_TTL", 30*time.Minute),
		ReminderInterval:    getDuration("PAYOUT_REMINDER_INTERVAL", time.Hour),
		ReminderAge:         getDuration("PAYOUT_REMINDER_AGE", 24*time.Hour),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		LogFormat:           getEnv("LOG_FORMAT", "console"),
		MetricsAddr:         getEnv("METRICS_ADDR", ":9090"),
		MetricsAllowedCIDRs: getList("METRICS_ALLOWED_CIDRS", ",", []string{"127.0.0.0/8", "::1/128"}),
	}
}

// Validate reports settings the bot cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.BotToken == "" {
		errs = append(errs, errors.New("TELEGRAM_BOT_TOKEN is not set"))
	}
	if c.AdminID == 0 {
		errs = append(errs, errors.New("ADMIN_ID is not set"))
	}
	if !c.MinPayout.IsPositive() {
		errs = append(errs, errors.New("MIN_PAYOUT must be positive"))
	}
	if c.BroadcastRate <= 0 {
		errs = append(errs, errors.New("BROADCAST_RATE must be positive"))
	}
	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getInt64(key string, fallback int64) int64 {
	v, err := strconv.ParseInt(getEnv(key, ""), 10, 64)
	if err != nil {
		return fallback
	}
	return v
}

func getFloat(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(getEnv(key, ""), 64)
	if err != nil {
		return fallback
	}
	return v
}

func getDecimal(key string, fallback decimal.Decimal) decimal.Decimal {
	v, err := decimal.NewFromString(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func getList(key, sep string, fallback []string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(raw, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
