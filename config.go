package boxline

import "time"

// Config holds configuration for the Tracker.
type Config struct {
	// DayShiftStart is the cron expression marking the start of the day shift.
	DayShiftStart string

	// NightShiftStart is the cron expression marking the start of the night shift.
	NightShiftStart string

	// OperationTimeout bounds a single engine command. Zero means no bound.
	OperationTimeout time.Duration

	// ActivitySubject is the subject activity entries are published under
	// when a NATS sink is configured.
	ActivitySubject string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DayShiftStart:    "0 6 * * *",
		NightShiftStart:  "0 18 * * *",
		OperationTimeout: 30 * time.Second,
		ActivitySubject:  "boxline.activity.step",
	}
}
