package app

import (
	"context"
	"time"

	"github.com/plughub/core/internal/config"
	"github.com/plughub/core/internal/modules/backup"
	catalogsync "github.com/plughub/core/internal/modules/catalog/sync"
	pkgcron "github.com/plughub/core/internal/pkg/cron"
	"github.com/plughub/core/internal/pkg/taskqueue"
	"go.uber.org/zap"
)

const backupKeepCount = 14

func registerCronJobs(
	sched *pkgcron.Scheduler,
	cfg *config.AppConfig,
	syncSvc *catalogsync.Service,
	backupH *backup.Handler,
	taskSvc *taskqueue.Service,
	logger *zap.Logger,
) {
	log := logger.Named("Cron")

	if cfg.Sync.Enable {
		interval := time.Duration(cfg.Sync.IntervalMinutes) * time.Minute
		sched.Register(pkgcron.Job{
			Name:        "sync_channels",
			Description: "Pull new channel posts into the catalog",
			Interval:    interval,
			Fn: func(ctx context.Context) error {
				counters, err := syncSvc.Sync(ctx, "cron")
				if err != nil {
					return err
				}
				log.Info("scheduled sync finished",
					zap.Int("added", counters.Added()),
					zap.Int("skipped", counters.Skipped),
					zap.Int("errors", counters.Errors))
				return nil
			},
		})
	}

	sched.Register(pkgcron.Job{
		Name:        "auto_backup",
		Description: "Archive catalog collections to the backup directory",
		Interval:    24 * time.Hour,
		Fn: func(ctx context.Context) error {
			filename, err := backupH.CreateLocalBackup(ctx, backupKeepCount)
			if err != nil {
				return err
			}
			log.Info("backup created", zap.String("filename", filename))
			return nil
		},
	})

	sched.Register(pkgcron.Job{
		Name:        "cleanup_tasks",
		Description: "Drop finished queue tasks older than a week",
		Interval:    24 * time.Hour,
		Fn: func(ctx context.Context) error {
			before := time.Now().AddDate(0, 0, -7).UnixMilli()
			return taskSvc.DeleteCompleted(ctx, before)
		},
	})
}
