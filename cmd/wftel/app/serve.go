// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"golang.org/x/sync/errgroup"

	"github.com/stacklok/wftel/pkg/logger"
	"github.com/stacklok/wftel/pkg/services"
	"github.com/stacklok/wftel/pkg/telemetry"
	"github.com/stacklok/wftel/pkg/versions"
)

const (
	defaultAddress    = ":8080"
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 5 * time.Second
)

type serveFlags struct {
	address    string
	customTags string
}

func newServeCmd() *cobra.Command {
	flags := &serveFlags{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the instrumented HTTP server",
		Long: `Configure telemetry against the Wavefront proxy and start serving HTTP.

Every request gets a server span and request metrics. Metrics are pushed
every reportingIntervalSeconds; spans every flushIntervalSeconds. On
SIGINT or SIGTERM the server drains and pending telemetry is flushed.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), flags)
		},
	}

	cmd.Flags().StringVar(&flags.address, "address", defaultAddress, "Address to listen on")
	cmd.Flags().StringVar(&flags.customTags, "custom-tags", "",
		"Extra application tags as comma-separated key=value pairs (e.g. team=payments,region=us-east-1)")

	return cmd
}

func runServe(ctx context.Context, flags *serveFlags) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("configuration loading failed: %w", err)
	}

	extra, err := telemetry.ParseCustomTags(flags.customTags)
	if err != nil {
		return fmt.Errorf("invalid --custom-tags: %w", err)
	}
	if len(extra) > 0 {
		tags := maps.Clone(cfg.CustomTags)
		if tags == nil {
			tags = make(map[string]string, len(extra))
		}
		maps.Copy(tags, extra)
		cfg.CustomTags = tags
	}

	reg := services.New()
	h, err := telemetry.Configure(ctx, cfg, reg)
	if err != nil {
		return fmt.Errorf("failed to configure telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := h.Shutdown(shutdownCtx); err != nil {
			logger.Warnf("failed to flush telemetry on shutdown: %v", err)
		}
	}()
	installGlobals(h)

	router, err := newRouter(reg)
	if err != nil {
		return err
	}

	listener, err := net.Listen("tcp", flags.address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", flags.address, err)
	}
	return serve(ctx, listener, router)
}

// installGlobals makes the handle the process-wide OpenTelemetry default so
// third-party instrumentation reports through the proxy too.
func installGlobals(h *telemetry.Handle) {
	otel.SetLogger(logger.NewLogr())
	otel.SetTracerProvider(h.Tracer().TracerProvider())
	otel.SetMeterProvider(h.MetricsReporter().MeterProvider())
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
}

// newRouter builds the HTTP routes, instrumented with the middleware of the
// telemetry handle published in reg.
func newRouter(reg *services.Registry) (http.Handler, error) {
	h, err := telemetry.FromRegistry(reg)
	if err != nil {
		return nil, err
	}
	mw, err := telemetry.NewHTTPMiddleware(
		h.Tracer().TracerProvider(),
		h.MetricsReporter().MeterProvider(),
		h.Tags(),
		telemetry.WithRouteFunc(chiRoutePattern),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create telemetry middleware: %w", err)
	}

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.Recoverer,
		mw,
	)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Get("/version", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(versions.GetVersionInfo()); err != nil {
			logger.Errorf("failed to encode version response: %v", err)
		}
	})
	if promHandler := h.PrometheusHandler(); promHandler != nil {
		r.Method(http.MethodGet, "/metrics", promHandler)
	}

	return r, nil
}

// chiRoutePattern returns the matched chi route template, available once the
// router has dispatched the request.
func chiRoutePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return ""
	}
	return rctx.RoutePattern()
}

// serve runs the server on listener until ctx is canceled, then drains it.
func serve(ctx context.Context, listener net.Listener, handler http.Handler) error {
	srv := &http.Server{
		BaseContext:       func(net.Listener) context.Context { return ctx },
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("starting HTTP server on %s", listener.Addr())
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server stopped with error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		logger.Infof("HTTP server stopped")
		return nil
	})

	return g.Wait()
}
