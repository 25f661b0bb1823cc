// Package jobs hosts the background worker, its task definitions and the
// queue observability endpoints.
package jobs

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
)
