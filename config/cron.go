package config

// Cron job names and their schedules. Schedules can be overridden per job.
const (
	JobReservationSweep = "reservations.sweep"
	JobDailyReport      = "reports.daily"
)

// CronSchedules maps job names to robfig/cron schedule specs.
func CronSchedules() map[string]string {
	return map[string]string{
		JobReservationSweep: GetEnv("RESERVATION_SWEEP_SCHEDULE", "@every 5m"),
		JobDailyReport:      GetEnv("DAILY_REPORT_SCHEDULE", "0 23 * * *"),
	}
}
