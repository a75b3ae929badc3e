package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/hamed0406/poolprobe/internal/agent"
	"github.com/hamed0406/poolprobe/internal/domain"
	apimw "github.com/hamed0406/poolprobe/internal/httpapi/middleware"
	"github.com/hamed0406/poolprobe/internal/metrics"
	"github.com/hamed0406/poolprobe/internal/probe"
)

type Server struct {
	Logger  *zap.Logger
	Checker probe.Checker
	Agent   *agent.Registry
	Metrics *metrics.Metrics
	// Diagnose annotates fetch failures; nil disables the DNS lookup.
	Diagnose func(ctx context.Context, host string) probe.DNSStatus
}

func NewServer(l *zap.Logger, c probe.Checker, reg *agent.Registry, m *metrics.Metrics) *Server {
	return &Server{Logger: l, Checker: c, Agent: reg, Metrics: m, Diagnose: probe.DiagnoseHost}
}

// Router wires the API. keys guards everything under /api; rpm/burst
// configure the per-IP limiter (rpm 0 disables it).
func (s *Server) Router(keys []string, rpm, burst int) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(apimw.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-API-Key", apimw.RequestIDHeader},
		ExposedHeaders: []string{apimw.RequestIDHeader},
		MaxAge:         300,
	}))
	if s.Metrics != nil {
		r.Use(s.countRequests)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	if s.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.Metrics.Handler())
	}

	r.Route("/api", func(api chi.Router) {
		api.Use(apimw.RateLimit(rpm, burst))
		api.Use(apimw.RequireKey(keys))

		api.Post("/ping", s.handlePing)
		api.Get("/items", s.handleItems)
		api.Get("/item", s.handleItem)
	})

	return r
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	var req probe.Request
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad payload"})
		return
	}

	id := apimw.RequestIDFrom(r.Context())
	res := s.Checker.Check(r.Context(), req)
	out := domain.NewPingResult(id, res, time.Now().UTC())

	if res.ErrorKind == "fetch_failed" && s.Diagnose != nil {
		dns := s.Diagnose(r.Context(), probe.HostOf(req.Host))
		out.DNS = &dns
		s.Logger.Info("dns_check",
			zap.String("request_id", id),
			zap.String("host", dns.Host),
			zap.String("class", dns.Class),
			zap.Strings("ips", dns.IPs),
			zap.Strings("nameservers", dns.Nameservers),
			zap.String("cname", dns.CNAME),
			zap.String("resolver_error", dns.ResolverError),
		)
	}

	s.Logger.Info("ping_pool",
		zap.String("request_id", id),
		zap.String("host", req.Host),
		zap.String("pool", req.Pool),
		zap.Bool("completed", res.Completed),
		zap.Uint64("value", uint64(res.Verdict)),
		zap.String("error_kind", res.ErrorKind),
		zap.Float64("latency_ms", res.LatencyMS),
	)

	writeJSON(w, statusFor(res.ErrorKind), out)
}

func (s *Server) handleItems(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Agent.Items())
}

func (s *Server) handleItem(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "key is required"})
		return
	}
	res := s.Agent.InvokeKey(r.Context(), key)
	writeJSON(w, statusFor(res.Kind), res)
}

// statusFor maps a probe error kind to the HTTP status of /api/ping and
// /api/item.
func statusFor(kind string) int {
	switch kind {
	case "":
		return http.StatusOK
	case "invalid_parameters", "invalid_pattern":
		return http.StatusBadRequest
	case "fetch_failed":
		return http.StatusBadGateway
	case "empty_result":
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.Metrics.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
