package config

import (
	"log"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"

	"github.com/replystack/replystack/internal/logger"
	"github.com/replystack/replystack/internal/tracing"
)

type Config struct {
	AppConfig        *AppConfig
	Logger           *logger.Config
	Tracing          *tracing.JaegerConfig
	DatabaseConfig   *DatabaseConfig
	ImapConfig       *ImapConfig
	MailConfig       *MailConfig
	AIConfig         *AIConfig
	MonitorConfig    *MonitorConfig
	BulkConfig       *BulkConfig
	DomainGateConfig *DomainGateConfig
	RedisConfig      *RedisConfig
	RetentionConfig  *RetentionConfig
}

func InitConfig() (*Config, error) {
	config := &Config{
		AppConfig:        &AppConfig{},
		Logger:           &logger.Config{},
		Tracing:          &tracing.JaegerConfig{},
		DatabaseConfig:   &DatabaseConfig{},
		ImapConfig:       &ImapConfig{},
		MailConfig:       &MailConfig{},
		AIConfig:         &AIConfig{},
		MonitorConfig:    &MonitorConfig{},
		BulkConfig:       &BulkConfig{},
		DomainGateConfig: &DomainGateConfig{},
		RedisConfig:      &RedisConfig{},
		RetentionConfig:  &RetentionConfig{},
	}

	err := godotenv.Load()
	if err != nil {
		log.Print("Unable to load .env file")
	}

	err = env.Parse(config)
	if err != nil {
		log.Fatalf("Error loading replystack config: %v", err)
	}

	return config, nil
}
