package observability

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const (
	healthStatusOK          = "ok"
	healthStatusUnavailable = "unavailable"

	readHeaderTimeout = 5 * time.Second
)

// ReadyCheck returns nil when the subsystem it guards is ready.
type ReadyCheck func(ctx context.Context) error

// HealthHandler serves liveness at /healthz. It always returns 200 {"status":"ok"}.
func HealthHandler() http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, _ *http.Request) {
		writeHealth(rw, http.StatusOK, healthStatusOK)
	})
}

// ReadyHandler serves readiness at /readyz: 200 when every check passes,
// 503 {"status":"unavailable"} otherwise.
func ReadyHandler(checks ...ReadyCheck) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, hr *http.Request) {
		for _, check := range checks {
			if check(hr.Context()) != nil {
				writeHealth(rw, http.StatusServiceUnavailable, healthStatusUnavailable)

				return
			}
		}

		writeHealth(rw, http.StatusOK, healthStatusOK)
	})
}

func writeHealth(rw http.ResponseWriter, code int, status string) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(code)

	data, err := json.Marshal(map[string]string{"status": status})
	if err != nil {
		return
	}

	_, _ = rw.Write(data)
}

// PrometheusProvider returns a MeterProvider whose instruments are served by
// the returned /metrics handler from a dedicated registry.
func PrometheusProvider() (*sdkmetric.MeterProvider, http.Handler, error) {
	registry := prometheus.NewRegistry()

	exporter, err := promexporter.New(promexporter.WithRegisterer(registry))
	if err != nil {
		return nil, nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))

	return mp, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), nil
}

// DiagnosticsServer exposes /healthz, /readyz and /metrics over HTTP while a
// long session runs.
type DiagnosticsServer struct {
	server   *http.Server
	listener net.Listener
	provider *sdkmetric.MeterProvider
}

// NewDiagnosticsServer starts serving at addr. Readiness is reported through checks.
func NewDiagnosticsServer(ctx context.Context, addr string, logger *slog.Logger, checks ...ReadyCheck) (*DiagnosticsServer, error) {
	provider, metricsHandler, err := PrometheusProvider()
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/healthz", HealthHandler())
	mux.Handle("/readyz", ReadyHandler(checks...))
	mux.Handle("/metrics", metricsHandler)

	var lc net.ListenConfig

	listener, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("listen on %s: %w", addr, err), provider.Shutdown(ctx))
	}

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}

	go func() {
		serveErr := srv.Serve(listener)
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			logger.Warn("diagnostics server stopped", "error", serveErr)
		}
	}()

	return &DiagnosticsServer{server: srv, listener: listener, provider: provider}, nil
}

// Addr returns the address the server is listening on.
func (d *DiagnosticsServer) Addr() string {
	return d.listener.Addr().String()
}

// Meter returns a meter whose instruments appear on /metrics.
func (d *DiagnosticsServer) Meter() metric.Meter {
	return d.provider.Meter(meterName)
}

// Close shuts down the server and the metrics provider.
func (d *DiagnosticsServer) Close(ctx context.Context) error {
	var errs []error

	err := d.server.Shutdown(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("shutdown diagnostics server: %w", err))
	}

	err = d.provider.Shutdown(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("shutdown metrics provider: %w", err))
	}

	return errors.Join(errs...)
}
