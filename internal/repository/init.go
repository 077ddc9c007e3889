package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/replystack/replystack/config"
	"github.com/replystack/replystack/internal/models"
)

type Repositories struct {
	ReplyRecordRepository   ReplyRecordRepository
	DomainRepository        DomainRepository
	BulkJobRepository       BulkJobRepository
	MonitorStatusRepository MonitorStatusRepository
}

func InitRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		ReplyRecordRepository:   NewReplyRecordRepository(db),
		DomainRepository:        NewDomainRepository(db),
		BulkJobRepository:       NewBulkJobRepository(db),
		MonitorStatusRepository: NewMonitorStatusRepository(db),
	}
}

func MigrateDB(dbConfig *config.DatabaseConfig, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	sqlDB.SetMaxOpenConns(5)

	err = db.AutoMigrate(
		&models.ReplyRecord{},
		&models.DomainPolicy{},
		&models.BulkJob{},
		&models.MonitorStatus{},
	)

	sqlDB.SetMaxIdleConns(dbConfig.MaxIdleConn)
	sqlDB.SetMaxOpenConns(dbConfig.MaxConn)
	sqlDB.SetConnMaxLifetime(time.Duration(dbConfig.ConnMaxLifetime) * time.Minute)

	return err
}
