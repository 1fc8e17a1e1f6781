package config

import (
	"fmt"
	"os"
	"strconv"
)

// Trigger modes
const (
	ModeAuto = "auto"
	ModeIdle = "idle"
	ModePoll = "poll"
)

// Output formats applied to enriched records before emission
const (
	FormatFull           = "full"
	FormatRaw            = "raw"
	FormatHeadersSnippet = "headersSnippet"
)

// Attachment handling modes
const (
	AttachmentsNone     = "none"
	AttachmentsMetadata = "metadataOnly"
	AttachmentsBinary   = "binary"
)

// MinPollIntervalSeconds is the enforced floor for the trigger poll interval.
const MinPollIntervalSeconds = 10

// Config holds the application configuration
type Config struct {
	StatePath string
	LogLevel  string

	Account AccountConfig
	Trigger TriggerConfig
}

// AccountConfig holds the IMAP server credentials
type AccountConfig struct {
	Host             string
	Port             int
	Username         string
	Password         string
	TLS              bool
	AllowInsecureTLS bool
}

// TriggerConfig configures the change-detection trigger
type TriggerConfig struct {
	Enabled             bool
	ID                  string
	Mailbox             string
	Mode                string
	PollIntervalSeconds int
	OutputFormat        string

	AttachmentMode  string
	BinaryKeyPrefix string

	MarkSeen      bool
	ExtraFlagsCSV string
	MoveTarget    string

	// Attachment filter
	MaxAttachmentSize int64
	AllowedMIMECSV    string
	FilenamePattern   string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		StatePath: getEnv("STATE_PATH", "/data/mailflow.db"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		Account: AccountConfig{
			Host:             getEnv("IMAP_HOST", ""),
			Port:             getEnvInt("IMAP_PORT", 993),
			Username:         getEnv("IMAP_USERNAME", ""),
			Password:         getEnv("IMAP_PASSWORD", ""),
			TLS:              getEnvBool("IMAP_TLS", true),
			AllowInsecureTLS: getEnvBool("IMAP_ALLOW_INSECURE_TLS", false),
		},
		Trigger: TriggerConfig{
			Enabled:             getEnvBool("TRIGGER_ENABLED", false),
			ID:                  getEnv("TRIGGER_ID", "default"),
			Mailbox:             getEnv("TRIGGER_MAILBOX", "INBOX"),
			Mode:                getEnv("TRIGGER_MODE", ModeAuto),
			PollIntervalSeconds: getEnvInt("TRIGGER_POLL_INTERVAL", 60),
			OutputFormat:        getEnv("TRIGGER_OUTPUT_FORMAT", FormatFull),
			AttachmentMode:      getEnv("TRIGGER_ATTACHMENT_MODE", AttachmentsNone),
			BinaryKeyPrefix:     getEnv("TRIGGER_BINARY_PREFIX", "attachment_"),
			MarkSeen:            getEnvBool("TRIGGER_MARK_SEEN", false),
			ExtraFlagsCSV:       getEnv("TRIGGER_EXTRA_FLAGS", ""),
			MoveTarget:          getEnv("TRIGGER_MOVE_TARGET", ""),
			MaxAttachmentSize:   getEnvInt64("ATTACHMENT_MAX_SIZE", 0),
			AllowedMIMECSV:      getEnv("ATTACHMENT_ALLOWED_MIME", ""),
			FilenamePattern:     getEnv("ATTACHMENT_FILENAME_PATTERN", ""),
		},
	}

	// Enforce the poll interval floor rather than rejecting short values
	if cfg.Trigger.PollIntervalSeconds < MinPollIntervalSeconds {
		cfg.Trigger.PollIntervalSeconds = MinPollIntervalSeconds
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.StatePath == "" {
		return fmt.Errorf("STATE_PATH is required")
	}

	if c.Account.Host == "" {
		return fmt.Errorf("IMAP_HOST is required")
	}
	if c.Account.Username == "" {
		return fmt.Errorf("IMAP_USERNAME is required")
	}
	if c.Account.Password == "" {
		return fmt.Errorf("IMAP_PASSWORD is required")
	}
	if c.Account.Port < 1 || c.Account.Port > 65535 {
		return fmt.Errorf("invalid IMAP_PORT: %d", c.Account.Port)
	}

	switch c.Trigger.Mode {
	case ModeAuto, ModeIdle, ModePoll:
	default:
		return fmt.Errorf("invalid TRIGGER_MODE: %s", c.Trigger.Mode)
	}

	switch c.Trigger.OutputFormat {
	case FormatFull, FormatRaw, FormatHeadersSnippet:
	default:
		return fmt.Errorf("invalid TRIGGER_OUTPUT_FORMAT: %s", c.Trigger.OutputFormat)
	}

	switch c.Trigger.AttachmentMode {
	case AttachmentsNone, AttachmentsMetadata, AttachmentsBinary:
	default:
		return fmt.Errorf("invalid TRIGGER_ATTACHMENT_MODE: %s", c.Trigger.AttachmentMode)
	}

	if c.Trigger.Enabled && c.Trigger.Mailbox == "" {
		return fmt.Errorf("TRIGGER_MAILBOX is required when the trigger is enabled")
	}

	return nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an environment variable as an integer or returns a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvInt64 gets an environment variable as an int64 or returns a default value
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvBool gets an environment variable as a boolean or returns a default value
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
