package interfaces

import "time"

// JobStatus is a point-in-time snapshot of one scheduled job
type JobStatus struct {
	Name      string     `json:"name"`
	Schedule  string     `json:"schedule"`
	LastRun   *time.Time `json:"last_run,omitempty"`
	NextRun   *time.Time `json:"next_run,omitempty"`
	IsRunning bool       `json:"is_running"`
	LastError string     `json:"last_error,omitempty"`
}

// SchedulerService dispatches registered jobs on cron schedules
type SchedulerService interface {
	// RegisterJob adds a named job with a cron schedule
	RegisterJob(name string, schedule string, handler func() error) error

	// Start begins dispatching registered jobs
	Start() error

	// Stop halts dispatch and waits for an in-flight job to finish
	Stop() error

	// IsRunning returns true if the scheduler has been started
	IsRunning() bool

	// GetJobStatus returns the status of one registered job
	GetJobStatus(name string) (*JobStatus, error)

	// ListJobs returns the status of every registered job, sorted by name
	ListJobs() []*JobStatus
}
