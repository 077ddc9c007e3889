package services

import (
	"time"

	"github.com/replystack/replystack/config"
	"github.com/replystack/replystack/interfaces"
	"github.com/replystack/replystack/internal/cache"
	"github.com/replystack/replystack/internal/logger"
	"github.com/replystack/replystack/internal/repository"
	"github.com/replystack/replystack/services/bulk"
	"github.com/replystack/replystack/services/domaingate"
	"github.com/replystack/replystack/services/events"
	"github.com/replystack/replystack/services/mailbox"
	"github.com/replystack/replystack/services/monitor"
	"github.com/replystack/replystack/services/reply"
	"github.com/replystack/replystack/services/stats"
	"github.com/replystack/replystack/services/transport"
)

type Services struct {
	ProcessedCache cache.ProcessedCache
	EventPublisher interfaces.EventPublisher
	MailboxReader  interfaces.MailboxReader
	ReplyGenerator interfaces.ReplyGenerator
	MailTransport  interfaces.MailTransport
	DomainGate     interfaces.DomainGate
	MonitorService interfaces.MonitorService
	BulkService    interfaces.BulkCampaignService
	StatsService   interfaces.StatsService
}

func InitServices(cfg *config.Config, log logger.Logger, repos *repository.Repositories) (*Services, error) {
	// Processed IDs live in redis when configured, in process memory
	// otherwise. TTL is four polling intervals with a one hour floor so
	// the cache outlives transient monitor hiccups.
	ttl := 4 * cfg.MonitorConfig.CheckInterval
	if ttl < time.Hour {
		ttl = time.Hour
	}
	var processed cache.ProcessedCache
	if cfg.RedisConfig.URL != "" {
		redisCache, err := cache.NewRedisCache(cfg.RedisConfig.URL, ttl)
		if err != nil {
			return nil, err
		}
		processed = redisCache
	} else {
		processed = cache.NewMemoryCache(ttl)
	}

	// The event publisher is optional; a missing broker only disables
	// event fan-out.
	var publisher interfaces.EventPublisher
	if cfg.AppConfig.RabbitMQURL != "" {
		p, err := events.NewRabbitPublisher(cfg.AppConfig.RabbitMQURL, log)
		if err != nil {
			log.Warnf("event publisher disabled: %v", err)
		} else {
			publisher = p
		}
	}

	mailboxReader := mailbox.NewIMAPMailbox(cfg.ImapConfig, log)
	replyGenerator := reply.NewReplyService(cfg.AIConfig, cfg.MailConfig, log)
	mailTransport := transport.NewMailTransport(cfg.MailConfig, log)
	gate := domaingate.NewDomainGate(repos.DomainRepository, cfg.DomainGateConfig, log)

	monitorService := monitor.NewMonitorService(
		cfg.MonitorConfig,
		log,
		mailboxReader,
		replyGenerator,
		mailTransport,
		gate,
		processed,
		repos.ReplyRecordRepository,
		repos.MonitorStatusRepository,
		publisher,
	)
	bulkService := bulk.NewBulkService(cfg.BulkConfig, log, mailTransport, repos.BulkJobRepository)
	statsService := stats.NewStatsService(repos.ReplyRecordRepository, log)

	return &Services{
		ProcessedCache: processed,
		EventPublisher: publisher,
		MailboxReader:  mailboxReader,
		ReplyGenerator: replyGenerator,
		MailTransport:  mailTransport,
		DomainGate:     gate,
		MonitorService: monitorService,
		BulkService:    bulkService,
		StatsService:   statsService,
	}, nil
}
