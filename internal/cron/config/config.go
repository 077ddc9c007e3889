package cron_config

type Config struct {
	// Schedules use the six-field cron syntax with a seconds column.
	// Empty disables the job.
	CronScheduleAuditPrune    string `env:"CRON_SCHEDULE_AUDIT_PRUNE" envDefault:"0 0 3 * * *"`
	CronScheduleDomainRefresh string `env:"CRON_SCHEDULE_DOMAIN_REFRESH" envDefault:"0 */10 * * * *"`
}
