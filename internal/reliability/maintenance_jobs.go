package reliability

import (
	"context"
	"fmt"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/Mohitkundu360/jp-morgan-dashboard/internal/database"
)

// DailyMaintenanceJob performs nightly database maintenance
type DailyMaintenanceJob struct {
	portfolioDB *database.DB
	dataDir     string
	log         zerolog.Logger
}

// NewDailyMaintenanceJob creates the nightly maintenance job
func NewDailyMaintenanceJob(portfolioDB *database.DB, dataDir string, log zerolog.Logger) *DailyMaintenanceJob {
	return &DailyMaintenanceJob{
		portfolioDB: portfolioDB,
		dataDir:     dataDir,
		log:         log.With().Str("job", "daily_maintenance").Logger(),
	}
}

// Run executes the daily maintenance job
func (j *DailyMaintenanceJob) Run() {
	j.log.Info().Msg("Starting daily maintenance")
	startTime := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	// Step 1: Full integrity check (PRAGMA integrity_check, not just a ping)
	if err := j.portfolioDB.HealthCheck(ctx); err != nil {
		j.log.Error().Err(err).Msg("CRITICAL: Portfolio database integrity check failed")
		return
	}

	// Step 2: WAL checkpoint to prevent bloat
	if err := j.portfolioDB.WALCheckpoint("TRUNCATE"); err != nil {
		j.log.Warn().Err(err).Msg("WAL checkpoint failed")
		// Not critical, continue
	}

	// Step 3: Check disk space
	if err := j.checkDiskSpace(); err != nil {
		j.log.Error().Err(err).Msg("Disk space check failed")
	}

	// Step 4: Log database growth
	if stats, err := j.portfolioDB.GetStats(); err == nil {
		j.log.Info().
			Float64("size_mb", float64(stats.SizeBytes)/1024/1024).
			Float64("wal_size_mb", float64(stats.WALSizeBytes)/1024/1024).
			Msg("Database metrics")
	}

	j.log.Info().
		Dur("duration_ms", time.Since(startTime)).
		Msg("Daily maintenance completed successfully")
}

// Name returns the job name for scheduler
func (j *DailyMaintenanceJob) Name() string {
	return "daily_maintenance"
}

// checkDiskSpace verifies sufficient disk space is available
func (j *DailyMaintenanceJob) checkDiskSpace() error {
	stat := syscall.Statfs_t{}
	if err := syscall.Statfs(j.dataDir, &stat); err != nil {
		return fmt.Errorf("failed to stat filesystem: %w", err)
	}

	availableBytes := stat.Bavail * uint64(stat.Bsize)
	availableGB := float64(availableBytes) / 1e9

	j.log.Debug().Float64("available_gb", availableGB).Msg("Disk space check")

	if availableGB < 0.5 {
		return fmt.Errorf("critical: only %.2f GB free", availableGB)
	}
	if availableGB < 5.0 {
		j.log.Warn().Float64("available_gb", availableGB).Msg("Disk space running low")
	}

	return nil
}

// BackupJob creates and rotates remote backups
type BackupJob struct {
	backupService *BackupService
	retentionDays int
	log           zerolog.Logger
}

// NewBackupJob creates the scheduled backup job
func NewBackupJob(backupService *BackupService, retentionDays int, log zerolog.Logger) *BackupJob {
	return &BackupJob{
		backupService: backupService,
		retentionDays: retentionDays,
		log:           log.With().Str("job", "backup").Logger(),
	}
}

// Run executes the backup job
func (j *BackupJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	if err := j.backupService.CreateAndUploadBackup(ctx); err != nil {
		j.log.Error().Err(err).Msg("Backup failed")
		return
	}

	if err := j.backupService.RotateOldBackups(ctx, j.retentionDays); err != nil {
		j.log.Error().Err(err).Msg("Backup rotation failed")
	}
}

// Name returns the job name for scheduler
func (j *BackupJob) Name() string {
	return "backup"
}
