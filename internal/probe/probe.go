// Package probe pings an application-server connection pool through its
// management API and turns the reply into a binary health verdict.
//
// A probe is one linear pass: validate the request, compile the extraction
// pattern, fetch the ping endpoint, extract the status token and map it.
// Nothing is shared between passes.
package probe

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// SuccessToken is the only captured value that maps to Healthy.
const SuccessToken = "SUCCESS"

const pingPath = "management/domain/resources/ping-connection-pool"

var (
	ErrInvalidParameters = errors.New("invalid parameters")
	ErrInvalidPattern    = errors.New("invalid pattern")
	ErrFetchFailed       = errors.New("cannot fetch data")
	ErrEmptyResult       = errors.New("result is empty")
)

// Verdict is the value handed to the monitoring agent.
type Verdict uint64

const (
	Unhealthy Verdict = 0
	Healthy   Verdict = 1
)

func (v Verdict) String() string {
	if v == Healthy {
		return "healthy"
	}
	return "unhealthy"
}

// VerdictFor maps an extracted token to a Verdict. The comparison is exact
// and case-sensitive.
func VerdictFor(token string) Verdict {
	if token == SuccessToken {
		return Healthy
	}
	return Unhealthy
}

// Request is the six-parameter input of a probe. Every field is mandatory.
type Request struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	Pool     string `json:"pool"`
	Pattern  string `json:"pattern"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// RequestFromParams builds a Request from the agent's ordered parameters:
// host, port, pool, pattern, username, password.
func RequestFromParams(params []string) (Request, error) {
	if len(params) != 6 {
		return Request{}, fmt.Errorf("%w: want 6 parameters, got %d", ErrInvalidParameters, len(params))
	}
	return Request{
		Host:     params[0],
		Port:     params[1],
		Pool:     params[2],
		Pattern:  params[3],
		Username: params[4],
		Password: params[5],
	}, nil
}

// Validate reports every empty field in one error.
func (r Request) Validate() error {
	var err error
	for _, f := range []struct{ name, value string }{
		{"host", r.Host},
		{"port", r.Port},
		{"pool", r.Pool},
		{"pattern", r.Pattern},
		{"username", r.Username},
		{"password", r.Password},
	} {
		if f.value == "" {
			err = multierr.Append(err, fmt.Errorf("%s is required", f.name))
		}
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParameters, err)
	}
	return nil
}

// PoolURL composes the ping-connection-pool URL. Host is expected to carry
// the scheme, e.g. "https://appserver".
func PoolURL(r Request) string {
	return fmt.Sprintf("%s:%s/%s/?appname=&id=%s&modulename=&targetName=&__remove_empty_entries__=true",
		r.Host, r.Port, pingPath, url.QueryEscape(r.Pool))
}

// Prober drives Fetcher and Pattern for one request at a time. It holds no
// per-probe state and is safe for concurrent use.
type Prober struct {
	Fetcher Fetcher
	Logger  *zap.Logger
}

func NewProber(f Fetcher, logger *zap.Logger) *Prober {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Prober{Fetcher: f, Logger: logger}
}

// Ping runs one probe. A non-nil error means no verdict could be produced;
// an Unhealthy verdict with a nil error is a successful probe of a failing
// pool.
func (p *Prober) Ping(ctx context.Context, req Request) (Verdict, error) {
	log := p.logger().With(zap.String("host", req.Host), zap.String("pool", req.Pool))

	if err := req.Validate(); err != nil {
		log.Debug("probe_invalid_parameters", zap.Error(err))
		return Unhealthy, err
	}

	pattern, err := CompilePattern(req.Pattern)
	if err != nil {
		log.Warn("probe_invalid_pattern", zap.String("pattern", req.Pattern), zap.Error(err))
		return Unhealthy, err
	}

	target := PoolURL(req)
	body, err := p.Fetcher.Fetch(ctx, target, req.Username, req.Password)
	if err != nil {
		log.Warn("probe_fetch_failed", zap.String("url", target), zap.Error(err))
		return Unhealthy, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}

	ext := pattern.Extract(body)
	if !ext.Matched {
		log.Info("probe_empty_result", zap.String("pattern", req.Pattern), zap.Int("bytes", len(body)))
		return Unhealthy, ErrEmptyResult
	}

	v := VerdictFor(ext.Text)
	log.Debug("probe_verdict", zap.String("token", ext.Text), zap.Stringer("verdict", v))
	return v, nil
}

// Check runs Ping and folds the outcome into a CheckResult.
func (p *Prober) Check(ctx context.Context, req Request) CheckResult {
	start := time.Now()
	v, err := p.Ping(ctx, req)
	res := CheckResult{
		Pool:      req.Pool,
		Verdict:   v,
		Completed: err == nil,
		LatencyMS: time.Since(start).Seconds() * 1000,
	}
	if err != nil {
		res.ErrorKind = ErrorKind(err)
		res.Message = err.Error()
		return res
	}
	res.Message = v.String()
	return res
}

// ErrorKind returns a stable label for the error class of err.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidParameters):
		return "invalid_parameters"
	case errors.Is(err, ErrInvalidPattern):
		return "invalid_pattern"
	case errors.Is(err, ErrFetchFailed):
		return "fetch_failed"
	case errors.Is(err, ErrEmptyResult):
		return "empty_result"
	default:
		return "unknown"
	}
}

func (p *Prober) logger() *zap.Logger {
	if p.Logger == nil {
		return zap.NewNop()
	}
	return p.Logger
}
