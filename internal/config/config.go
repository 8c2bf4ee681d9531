package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBPath     string
	RawMailDir string
	OutputDir  string

	MasterDataBaseURL     string
	MasterDataToken       string
	MasterDataRateLimit   int
	MasterDataTimeoutMs   int
	MasterDataLookbackHrs int

	MatchedThreshold  float64
	NotFoundThreshold float64
	CategoryMissCap   float64

	DefaultTaxRate   string
	DefaultCurrency  string
	QuoteSenderName  string
	QuoteSenderEmail string
	QuoteReplyTo     string

	ConfirmPhrase    string
	UnlockIdleSec    int
	AttachmentMaxMB  int
	PreflightPDFScan bool

	GmailClientID     string
	GmailClientSecret string
	GmailRedirectURI  string
	GmailRefreshToken string

	IMAPHost     string
	IMAPPort     int
	IMAPSecure   bool
	IMAPUser     string
	IMAPPassword string
	IMAPMarkSeen bool

	ReplyMonitorProvider    string
	ReplyMonitorLabel       string
	ReplyMonitorIntervalSec int
	ReplyMonitorFetchMax    int
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:     getEnv("DB_PATH", filepath.Join(cwd, "data", "app.db")),
		RawMailDir: getEnv("MAIL_RAW_DIR", filepath.Join(cwd, "data", "raw")),
		OutputDir:  getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),

		MasterDataBaseURL:     getEnv("MASTERDATA_BASE_URL", "https://masterdata.local/api/v1"),
		MasterDataToken:       getEnv("MASTERDATA_TOKEN", ""),
		MasterDataRateLimit:   getEnvInt("MASTERDATA_RATE_LIMIT_RPS", 5),
		MasterDataTimeoutMs:   getEnvInt("MASTERDATA_TIMEOUT_MS", 30000),
		MasterDataLookbackHrs: getEnvInt("MASTERDATA_INCREMENTAL_HOURS", 24),

		MatchedThreshold:  getEnvFloat("MATCH_MATCHED_THRESHOLD", 0.85),
		NotFoundThreshold: getEnvFloat("MATCH_NOT_FOUND_THRESHOLD", 0.40),
		CategoryMissCap:   getEnvFloat("MATCH_CATEGORY_MISS_CAP", 0.40),

		DefaultTaxRate:   getEnv("QUOTE_TAX_RATE", "0.1"),
		DefaultCurrency:  getEnv("QUOTE_CURRENCY", "CNY"),
		QuoteSenderName:  getEnv("QUOTE_SENDER_NAME", "Purchasing Desk"),
		QuoteSenderEmail: getEnv("QUOTE_SENDER_EMAIL", ""),
		QuoteReplyTo:     getEnv("QUOTE_REPLY_TO", ""),

		ConfirmPhrase:    getEnv("DISPATCH_CONFIRM_PHRASE", "CONFIRM SEND"),
		UnlockIdleSec:    getEnvInt("DISPATCH_UNLOCK_IDLE_SEC", 120),
		AttachmentMaxMB:  getEnvInt("DISPATCH_ATTACHMENT_MAX_MB", 15),
		PreflightPDFScan: getEnvBool("DISPATCH_PREFLIGHT_PDF", true),

		GmailClientID:     getEnv("GMAIL_CLIENT_ID", ""),
		GmailClientSecret: getEnv("GMAIL_CLIENT_SECRET", ""),
		GmailRedirectURI:  getEnv("GMAIL_REDIRECT_URI", "https://developers.google.com/oauthplayground"),
		GmailRefreshToken: getEnv("GMAIL_REFRESH_TOKEN", ""),

		IMAPHost:     getEnv("IMAP_HOST", ""),
		IMAPPort:     getEnvInt("IMAP_PORT", 993),
		IMAPSecure:   getEnvBool("IMAP_SECURE", true),
		IMAPUser:     getEnv("IMAP_USER", ""),
		IMAPPassword: getEnv("IMAP_PASSWORD", ""),
		IMAPMarkSeen: getEnvBool("IMAP_MARK_SEEN", false),

		ReplyMonitorProvider:    getEnv("REPLY_MONITOR_PROVIDER", "gmail"),
		ReplyMonitorLabel:       getEnv("REPLY_MONITOR_LABEL", "INBOX"),
		ReplyMonitorIntervalSec: getEnvInt("REPLY_MONITOR_INTERVAL_SEC", 60),
		ReplyMonitorFetchMax:    getEnvInt("REPLY_MONITOR_FETCH_MAX", 20),
	}

	return cfg, nil
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}
