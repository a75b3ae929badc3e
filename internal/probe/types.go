package probe

import "context"

// CheckResult holds the outcome of a single pool ping
type CheckResult struct {
	Pool      string  `json:"pool"`
	Verdict   Verdict `json:"value"`
	Completed bool    `json:"completed"`
	ErrorKind string  `json:"error_kind,omitempty"`
	Message   string  `json:"message"`
	LatencyMS float64 `json:"latency_ms"`
}

// Healthy reports whether the probe completed with a Healthy verdict.
func (r CheckResult) Healthy() bool {
	return r.Completed && r.Verdict == Healthy
}

// Checker is implemented by anything that can ping a connection pool.
type Checker interface {
	Check(ctx context.Context, req Request) CheckResult
}
