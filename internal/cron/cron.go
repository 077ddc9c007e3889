package cron

import (
	"context"
	"sync"
	"time"

	"github.com/caarlos0/env/v6"
	cronv3 "github.com/robfig/cron/v3"

	"github.com/replystack/replystack/config"
	"github.com/replystack/replystack/interfaces"
	cron_config "github.com/replystack/replystack/internal/cron/config"
	"github.com/replystack/replystack/internal/logger"
	"github.com/replystack/replystack/internal/repository"
	"github.com/replystack/replystack/internal/tracing"
	"github.com/replystack/replystack/internal/utils"
)

const GroupMaintenance = "maintenance"

var jobLocks = struct {
	sync.Mutex
	locks map[string]*sync.Mutex
}{
	locks: map[string]*sync.Mutex{
		GroupMaintenance: new(sync.Mutex),
	},
}

type CronManager struct {
	cfg     *config.Config
	log     logger.Logger
	cron    *cronv3.Cron
	stopCh  chan struct{}
	jobIDs  map[string]cronv3.EntryID
	records repository.ReplyRecordRepository
	gate    interfaces.DomainGate
}

func NewCronManager(cfg *config.Config, log logger.Logger, records repository.ReplyRecordRepository, gate interfaces.DomainGate) *CronManager {
	return &CronManager{
		cfg:     cfg,
		log:     log,
		stopCh:  make(chan struct{}),
		jobIDs:  make(map[string]cronv3.EntryID),
		records: records,
		gate:    gate,
	}
}

// Start initializes and starts the cron scheduler.
func (cm *CronManager) Start() {
	cm.log.Info("Starting cron manager")
	cronOptions := []cronv3.Option{
		cronv3.WithSeconds(),
		cronv3.WithChain(
			cronv3.SkipIfStillRunning(cronv3.DefaultLogger),
			cronv3.Recover(cronv3.DefaultLogger),
		),
	}
	c := cronv3.New(cronOptions...)
	cm.registerJobs(c)
	c.Start()
	cm.cron = c
}

// Stop gracefully stops the cron manager and waits for running jobs.
func (cm *CronManager) Stop() {
	if cm.cron != nil {
		cm.log.Info("Stopping cron manager")
		ctx := cm.cron.Stop()
		<-ctx.Done()
	}
	close(cm.stopCh)
}

func (cm *CronManager) registerJobs(c *cronv3.Cron) {
	var cronConfig cron_config.Config
	if err := env.Parse(&cronConfig); err != nil {
		cm.log.Fatalf("Failed to parse cron config from environment: %v", err)
	}

	if cronConfig.CronScheduleAuditPrune != "" {
		id, err := c.AddFunc(cronConfig.CronScheduleAuditPrune, func() {
			jobLocks.locks[GroupMaintenance].Lock()
			defer jobLocks.locks[GroupMaintenance].Unlock()
			cm.pruneAuditLog()
		})
		if err != nil {
			cm.log.Fatalf("Could not add audit prune cron job: %v", err)
		}
		cm.jobIDs["audit_prune"] = id
		cm.log.Infof("Registered audit prune job with schedule: %s", cronConfig.CronScheduleAuditPrune)
	}

	if cronConfig.CronScheduleDomainRefresh != "" {
		id, err := c.AddFunc(cronConfig.CronScheduleDomainRefresh, func() {
			cm.refreshDomainCache()
		})
		if err != nil {
			cm.log.Fatalf("Could not add domain refresh cron job: %v", err)
		}
		cm.jobIDs["domain_refresh"] = id
		cm.log.Infof("Registered domain refresh job with schedule: %s", cronConfig.CronScheduleDomainRefresh)
	}
}

// pruneAuditLog deletes audit rows past the retention window.
func (cm *CronManager) pruneAuditLog() {
	ctx := context.Background()
	span, ctx := tracing.StartTracerSpan(ctx, "CronManager.pruneAuditLog")
	defer span.Finish()
	tracing.TagComponentCronJob(span)

	retention := time.Duration(cm.cfg.RetentionConfig.AuditRetentionDays) * 24 * time.Hour
	if retention <= 0 {
		return
	}
	cutoff := utils.Now().Add(-retention)

	deleted, err := cm.records.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		tracing.TraceErr(span, err)
		cm.log.Errorf("Failed to prune audit log: %v", err)
		return
	}
	if deleted > 0 {
		cm.log.Infof("Pruned %d audit records older than %s", deleted, cutoff.Format(time.RFC3339))
	}
}

func (cm *CronManager) refreshDomainCache() {
	ctx := context.Background()
	span, ctx := tracing.StartTracerSpan(ctx, "CronManager.refreshDomainCache")
	defer span.Finish()
	tracing.TagComponentCronJob(span)

	if err := cm.gate.Refresh(ctx); err != nil {
		tracing.TraceErr(span, err)
		cm.log.Warnf("Failed to refresh domain cache: %v", err)
	}
}
