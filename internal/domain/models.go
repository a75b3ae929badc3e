package domain

import (
	"time"

	"github.com/hamed0406/poolprobe/internal/probe"
)

// PingResult is what the API returns for one probe.
type PingResult struct {
	RequestID string           `json:"request_id"`
	Pool      string           `json:"pool"`
	Value     *uint64          `json:"value"` // nil when no verdict was produced
	Healthy   bool             `json:"healthy"`
	ErrorKind string           `json:"error_kind,omitempty"`
	Message   string           `json:"message,omitempty"`
	LatencyMS float64          `json:"latency_ms"`
	CheckedAt time.Time        `json:"checked_at"`
	DNS       *probe.DNSStatus `json:"dns,omitempty"`
}

// NewPingResult converts a probe.CheckResult.
func NewPingResult(requestID string, res probe.CheckResult, at time.Time) PingResult {
	out := PingResult{
		RequestID: requestID,
		Pool:      res.Pool,
		Healthy:   res.Healthy(),
		ErrorKind: res.ErrorKind,
		Message:   res.Message,
		LatencyMS: res.LatencyMS,
		CheckedAt: at,
	}
	if res.Completed {
		v := uint64(res.Verdict)
		out.Value = &v
	}
	return out
}
