package interfaces

// SchedulerService drives the recurring enqueue-and-process cycle.
type SchedulerService interface {
	// Start registers the cron entry and begins scheduling.
	Start() error

	// Stop stops the scheduler and waits for an in-flight cycle to finish.
	Stop()

	// TriggerNow runs one enqueue-and-process cycle immediately, skipping if
	// a cycle is already in flight.
	TriggerNow()
}
