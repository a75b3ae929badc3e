// Package agent adapts the pool probe to the item-key contract of a
// monitoring agent: a key with ordered string parameters in, an unsigned
// value or an error message out.
package agent

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/hamed0406/poolprobe/internal/probe"
)

// PingPoolKey is the item key served by the pool probe.
const PingPoolKey = "glassfish.ping.connection.pool"

// Return codes of an item handler.
const (
	RetOK   = 0
	RetFail = 1
)

// Result is what the agent reads back after an item invocation. Value is
// only meaningful when OK is set; Message and Kind are set on failure. Kind
// uses the probe error kinds, with invalid_parameters also covering key
// errors.
type Result struct {
	OK      bool   `json:"ok"`
	Value   uint64 `json:"value"`
	Message string `json:"message,omitempty"`
	Kind    string `json:"error_kind,omitempty"`
}

// Code maps the result to RetOK or RetFail.
func (r Result) Code() int {
	if r.OK {
		return RetOK
	}
	return RetFail
}

func valueResult(v uint64) Result { return Result{OK: true, Value: v} }

func failResult(kind, msg string) Result { return Result{Kind: kind, Message: msg} }

const kindInvalidParameters = "invalid_parameters"

// Handler serves one item key.
type Handler func(ctx context.Context, params []string) Result

// Item describes a registered key.
type Item struct {
	Key        string `json:"key"`
	HasParams  bool   `json:"has_params"`
	TestParams string `json:"test_params,omitempty"`
}

// Registry maps item keys to handlers.
type Registry struct {
	logger   *zap.Logger
	items    map[string]Item
	handlers map[string]Handler
}

// NewRegistry returns a Registry with the pool ping key registered against
// checker.
func NewRegistry(checker probe.Checker, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{
		logger:   logger,
		items:    make(map[string]Item),
		handlers: make(map[string]Handler),
	}
	r.Register(Item{
		Key:        PingPoolKey,
		HasParams:  true,
		TestParams: `https://localhost,4848,DerbyPool,"exit_code.:.(\w+).,",admin,admin`,
	}, PingPoolHandler(checker, logger))
	return r
}

// Register adds or replaces the handler for item.Key.
func (r *Registry) Register(item Item, h Handler) {
	r.items[item.Key] = item
	r.handlers[item.Key] = h
}

// Items lists registered keys sorted by name.
func (r *Registry) Items() []Item {
	out := make([]Item, 0, len(r.items))
	for _, it := range r.items {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Invoke dispatches key with params.
func (r *Registry) Invoke(ctx context.Context, key string, params []string) Result {
	h, ok := r.handlers[key]
	if !ok {
		r.logger.Debug("agent_unsupported_key", zap.String("key", key))
		return failResult(kindInvalidParameters, "Unsupported item key.")
	}
	item := r.items[key]
	if !item.HasParams && len(params) > 0 {
		return failResult(kindInvalidParameters, "Item does not allow parameters.")
	}
	return h(ctx, params)
}

// InvokeKey parses a raw key string and dispatches it.
func (r *Registry) InvokeKey(ctx context.Context, raw string) Result {
	key, params, err := ParseKey(raw)
	if err != nil {
		return failResult(kindInvalidParameters, err.Error())
	}
	return r.Invoke(ctx, key, params)
}

// PingPoolHandler serves PingPoolKey: six parameters in, 1/0 out.
func PingPoolHandler(checker probe.Checker, logger *zap.Logger) Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context, params []string) Result {
		logger.Debug("agent_ping_pool", zap.Int("param_num", len(params)))

		req, err := probe.RequestFromParams(params)
		if err != nil {
			return failResult(kindInvalidParameters, "Invalid number of parameters")
		}
		res := checker.Check(ctx, req)
		if res.Completed {
			return valueResult(uint64(res.Verdict))
		}
		kind := res.ErrorKind
		if kind == "" {
			kind = "unknown"
		}
		return failResult(kind, messageFor(res))
	}
}

func messageFor(res probe.CheckResult) string {
	if res.ErrorKind == "empty_result" {
		return "Result is empty"
	}
	msg := res.Message
	if msg == "" {
		return "Probe failed"
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}

// String renders the result the way an agent prints it.
func (r Result) String() string {
	if r.OK {
		return fmt.Sprintf("%d", r.Value)
	}
	return "ZBX_NOTSUPPORTED: " + r.Message
}
