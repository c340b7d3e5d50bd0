package exec

const (
	// DefaultMaxPoolSize bounds how many worker sessions one task batch
	// may hold open concurrently.
	DefaultMaxPoolSize = 16

	// DefaultWorkerDSN is the per-node connection string template,
	// rendered with the node's host then port.
	DefaultWorkerDSN = "host=%s port=%d dbname=postgres sslmode=disable"
)

// RuntimeConfig carries the knobs for one scheduler instance.
type RuntimeConfig struct {
	// MaxPoolSize is handed to the task executor as the batch
	// concurrency bound.
	MaxPoolSize int
	// WorkerDSN is the connection template used when dialing workers.
	WorkerDSN string
	// DisableRecover if true, executor goroutines will not capture
	// panics. Test only feature hopefully.
	DisableRecover bool
}

func NewRuntimeConfig() *RuntimeConfig {
	return &RuntimeConfig{
		MaxPoolSize: DefaultMaxPoolSize,
		WorkerDSN:   DefaultWorkerDSN,
	}
}
