package autorate

// retryState is the per-container verification machine. A container
// enters verifying after its first accepted click and terminates as
// verified or abandoned; no timer for it may fire after termination.
type retryState int

const (
	retryVerifying retryState = iota
	retryVerified
	retryAbandoned
)

type containerRetry struct {
	state retryState
	// attempts counts accepted clicks, the first pass included.
	attempts int
	cancel   func()
}

func (r *containerRetry) terminal() bool {
	return r.state == retryVerified || r.state == retryAbandoned
}
