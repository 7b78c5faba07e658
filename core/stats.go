package core

// Stats represents a point-in-time snapshot of JobSystem state.
type Stats struct {
	State            string
	Workers          int
	WorkerRestarts   int64
	QueuedBackground int
	QueuedMainThread int
	Active           int
	LiveJobs         int
}
