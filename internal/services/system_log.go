package services

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/mediahub/backend/internal/models"
	"github.com/mediahub/backend/pkg/logger"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

const (
	LogLevelInfo    = "info"
	LogLevelWarning = "warning"
	LogLevelError   = "error"

	logRetentionKey         = "log_retention_days"
	defaultLogRetentionDays = 30
)

// LogEntry is what callers hand to Record.
type LogEntry struct {
	Level     string
	Module    string
	Action    string
	Message   string
	UserID    string
	IP        string
	UserAgent string
	Extra     interface{}
}

type SystemLogService struct {
	db *gorm.DB
}

func NewSystemLogService(db *gorm.DB) *SystemLogService {
	return &SystemLogService{db: db}
}

// Record stores an audit row. Failures are logged and swallowed so auditing
// never breaks the request that triggered it.
func (s *SystemLogService) Record(ctx context.Context, entry LogEntry) {
	if s == nil || s.db == nil {
		return
	}
	if entry.Level == "" {
		entry.Level = LogLevelInfo
	}

	var extra string
	if entry.Extra != nil {
		if b, err := json.Marshal(entry.Extra); err == nil {
			extra = string(b)
		}
	}

	row := &models.SystemLog{
		Level:     entry.Level,
		Module:    entry.Module,
		Action:    entry.Action,
		Message:   entry.Message,
		IP:        entry.IP,
		UserAgent: entry.UserAgent,
		Extra:     extra,
		CreatedAt: time.Now().UTC(),
	}
	if entry.UserID != "" {
		uid := entry.UserID
		row.UserID = &uid
	}

	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		logger.Warn().Err(err).Str("module", entry.Module).Str("action", entry.Action).Msg("failed to write system log")
	}
}

// CleanupOldLogs deletes logs older than retentionDays and returns the
// number of removed rows. retentionDays <= 0 disables cleanup.
func (s *SystemLogService) CleanupOldLogs(retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)
	result := s.db.Where("created_at < ?", cutoff).Delete(&models.SystemLog{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (s *SystemLogService) GetRetentionDays() int {
	var cfg models.SystemConfig
	if err := s.db.Where("config_key = ?", logRetentionKey).First(&cfg).Error; err != nil {
		return defaultLogRetentionDays
	}
	days, err := strconv.Atoi(cfg.Value)
	if err != nil {
		return defaultLogRetentionDays
	}
	return days
}

// LogCleanupScheduler prunes old system logs once a day.
type LogCleanupScheduler struct {
	service *SystemLogService
	cron    *cron.Cron
}

func NewLogCleanupScheduler(service *SystemLogService) *LogCleanupScheduler {
	return &LogCleanupScheduler{
		service: service,
		cron:    cron.New(),
	}
}

// Start runs one cleanup immediately, then schedules the daily job.
func (s *LogCleanupScheduler) Start() error {
	s.RunOnce()

	if _, err := s.cron.AddFunc("@daily", s.RunOnce); err != nil {
		return err
	}
	s.cron.Start()
	logger.Info().Msg("log cleanup scheduler started")
	return nil
}

// Stop waits for a running cleanup to finish.
func (s *LogCleanupScheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *LogCleanupScheduler) RunOnce() {
	days := s.service.GetRetentionDays()
	if days <= 0 {
		logger.Info().Msg("log cleanup disabled (retention_days <= 0)")
		return
	}

	deleted, err := s.service.CleanupOldLogs(days)
	if err != nil {
		logger.Error().Err(err).Msg("log cleanup failed")
		return
	}
	if deleted > 0 {
		logger.Info().Int64("deleted", deleted).Int("retention_days", days).Msg("old system logs removed")
	}
}
