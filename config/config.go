package config

import (
	"time"
)

type AppConfig struct {
	APIPort     string `env:"PORT" envDefault:"11433"`
	APIKey      string `env:"API_KEY,required"`
	RabbitMQURL string `env:"RABBITMQ_URL"`
}

type DatabaseConfig struct {
	Host            string `env:"REPLYSTACK_POSTGRES_HOST,required"`
	Port            string `env:"REPLYSTACK_POSTGRES_PORT,required"`
	User            string `env:"REPLYSTACK_POSTGRES_USER,required"`
	DBName          string `env:"REPLYSTACK_POSTGRES_DB_NAME,required"`
	Password        string `env:"REPLYSTACK_POSTGRES_PASSWORD,required"`
	MaxConn         int    `env:"REPLYSTACK_POSTGRES_DB_MAX_CONN" envDefault:"20"`
	MaxIdleConn     int    `env:"REPLYSTACK_POSTGRES_DB_MAX_IDLE_CONN" envDefault:"10"`
	ConnMaxLifetime int    `env:"REPLYSTACK_POSTGRES_DB_CONN_MAX_LIFETIME" envDefault:"60"`
	LogLevel        string `env:"REPLYSTACK_POSTGRES_LOG_LEVEL" envDefault:"WARN"`
	SSLMode         string `env:"REPLYSTACK_POSTGRES_SSL_MODE" envDefault:"disable"`
}

type ImapConfig struct {
	Server             string        `env:"IMAP_SERVER" envDefault:"imap.gmail.com"`
	Port               int           `env:"IMAP_PORT" envDefault:"993"`
	Username           string        `env:"IMAP_USERNAME"`
	Password           string        `env:"IMAP_PASSWORD"`
	TLS                bool          `env:"IMAP_USE_TLS" envDefault:"true"`
	Folder             string        `env:"IMAP_FOLDER" envDefault:"INBOX"`
	ConnectionTimeout  time.Duration `env:"IMAP_CONNECTION_TIMEOUT" envDefault:"30s"`
	ConnectionStaleAge time.Duration `env:"IMAP_CONNECTION_STALE_AGE" envDefault:"5m"`
}

type MailConfig struct {
	Provider       string `env:"MAIL_PROVIDER" envDefault:"sendgrid"`
	SendgridAPIKey string `env:"SENDGRID_API_KEY"`
	ResendAPIKey   string `env:"RESEND_API_KEY"`
	SMTPHost       string `env:"SMTP_HOST"`
	SMTPPort       int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUsername   string `env:"SMTP_USERNAME"`
	SMTPPassword   string `env:"SMTP_PASSWORD"`
	FromEmail      string `env:"FROM_EMAIL" envDefault:"noreply@example.com"`
	FromName       string `env:"FROM_NAME" envDefault:"ReplyStack"`
	SendTimeout    time.Duration `env:"MAIL_SEND_TIMEOUT" envDefault:"30s"`
}

type AIConfig struct {
	Provider       string        `env:"AI_PROVIDER" envDefault:"none"`
	OpenAIAPIKey   string        `env:"OPENAI_API_KEY"`
	OpenAIModel    string        `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	GeminiAPIKey   string        `env:"GEMINI_API_KEY"`
	GeminiModel    string        `env:"GEMINI_MODEL" envDefault:"gemini-1.5-flash"`
	RequestTimeout time.Duration `env:"AI_REQUEST_TIMEOUT" envDefault:"60s"`
	MaxTokens      int           `env:"AI_MAX_TOKENS" envDefault:"1000"`
	Temperature    float64       `env:"AI_TEMPERATURE" envDefault:"0.7"`
}

type MonitorConfig struct {
	AutoStart        bool          `env:"AUTO_START_MONITORING" envDefault:"false"`
	CheckInterval    time.Duration `env:"EMAIL_CHECK_INTERVAL" envDefault:"30s"`
	MinCheckInterval time.Duration `env:"EMAIL_MIN_CHECK_INTERVAL" envDefault:"10s"`
	MaxPerCheck      int           `env:"MAX_EMAILS_PER_CHECK" envDefault:"50"`
	AutoReplyEnabled bool          `env:"ENABLE_AUTO_REPLY" envDefault:"true"`
	CooldownWindow   time.Duration `env:"AUTO_REPLY_COOLDOWN" envDefault:"24h"`
}

type BulkConfig struct {
	BatchSize         int           `env:"BULK_EMAIL_BATCH_SIZE" envDefault:"10"`
	InterBatchDelay   time.Duration `env:"BULK_EMAIL_DELAY" envDefault:"1s"`
	MaxBulkRecipients int           `env:"MAX_BULK_RECIPIENTS" envDefault:"1000"`
}

type DomainGateConfig struct {
	DefaultAllowedDomains []string      `env:"DEFAULT_ALLOWED_DOMAINS" envSeparator:"," envDefault:"gmail.com,outlook.com"`
	BlockedDomains        []string      `env:"BLOCKED_DOMAINS" envSeparator:","`
	CacheTTL              time.Duration `env:"DOMAIN_CACHE_TTL" envDefault:"5m"`
	FailClosed            bool          `env:"DOMAIN_GATE_FAIL_CLOSED" envDefault:"false"`
}

type RedisConfig struct {
	URL string `env:"REDIS_URL"`
}

type RetentionConfig struct {
	AuditRetentionDays int `env:"AUDIT_RETENTION_DAYS" envDefault:"90"`
}
