package cron

import (
	"context"

	"go.uber.org/zap"

	"backoffice.GO/config"
	"backoffice.GO/service/audit"
	"backoffice.GO/service/report"
)

// Sweeper expires overdue reservations.
type Sweeper interface {
	SweepExpired(ctx context.Context) (int, error)
}

// SweepJob expires overdue reservations so their holds stop counting.
func SweepJob(sw Sweeper, logger *zap.Logger) JobFunc {
	return func(ctx context.Context) error {
		n, err := sw.SweepExpired(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			logger.Info("reservations expired", zap.Int("count", n))
		}
		return nil
	}
}

// DailyReportJob persists the daily summary for today.
func DailyReportJob(reports *report.Service, logger *zap.Logger) JobFunc {
	return func(ctx context.Context) error {
		run, _, err := reports.Run(ctx, report.RunRequest{Kind: string(report.KindDaily)}, audit.System())
		if err != nil {
			return err
		}
		logger.Info("daily report stored", zap.String("run", run.RunToken), zap.Int("rows", run.RowsCount))
		return nil
	}
}

// RegisterDefaults registers the standard jobs with their configured schedules.
func RegisterDefaults(s *Scheduler, sw Sweeper, reports *report.Service, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	schedules := config.CronSchedules()
	if err := s.Register(config.JobReservationSweep, schedules[config.JobReservationSweep], SweepJob(sw, logger)); err != nil {
		return err
	}
	return s.Register(config.JobDailyReport, schedules[config.JobDailyReport], DailyReportJob(reports, logger))
}
