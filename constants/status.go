package constants

// JobStatus is the processing state of a document's background pass.
type JobStatus string

// Stable values (store these exact strings in DB).
const (
	JobStatusPending JobStatus = "PENDING" // uploaded, waiting for a worker
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusDone    JobStatus = "DONE"
	JobStatusSkipped JobStatus = "SKIPPED" // format has no extraction path
	JobStatusFailed  JobStatus = "FAILED"
)
