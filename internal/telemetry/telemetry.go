package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

const (
	serviceName    = "routinebuilder"
	serviceVersion = "1.0.0"
)

// rotatingFile keeps at most 3 compressed 10 MB backups for 28 days.
func rotatingFile(logDir, name string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   filepath.Join(logDir, name),
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	}
}

// InitLogger writes JSON logs to <logDir>/routinebuilder.log and makes the logger the slog
// default. Nothing goes to stdout, which belongs to the chat.
func InitLogger(logDir string, debug bool) (*slog.Logger, func() error, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	file := rotatingFile(logDir, serviceName+".log")

	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	handler := slog.NewJSONHandler(file, &slog.HandlerOptions{
		Level: level,
	})

	logger := slog.New(handler).With("service", serviceName)
	slog.SetDefault(logger)

	return logger, file.Close, nil
}

// metricInterval is how often the periodic reader flushes to the metrics file.
const metricInterval = 10 * time.Second

// Providers holds the tracer and meter handed to the worker client and the files behind them.
type Providers struct {
	Tracer trace.Tracer
	Meter  metric.Meter

	tp    *sdktrace.TracerProvider
	mp    *sdkmetric.MeterProvider
	files []io.Closer
}

// InitTelemetry registers global trace and meter providers that export to
// routinebuilder_traces.log and routinebuilder_metrics.log under logDir.
func InitTelemetry(ctx context.Context, logDir string) (*Providers, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(serviceVersion),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	p := &Providers{}
	if err := p.startTracing(logDir, res); err != nil {
		return nil, err
	}
	if err := p.startMetrics(logDir, res); err != nil {
		_ = p.Shutdown(ctx)
		return nil, err
	}

	otel.SetTracerProvider(p.tp)
	otel.SetMeterProvider(p.mp)
	p.Tracer = p.tp.Tracer(serviceName)
	p.Meter = p.mp.Meter(serviceName)
	return p, nil
}

func (p *Providers) startTracing(logDir string, res *resource.Resource) error {
	out := rotatingFile(logDir, serviceName+"_traces.log")
	exp, err := stdouttrace.New(stdouttrace.WithWriter(out), stdouttrace.WithPrettyPrint())
	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}
	p.files = append(p.files, out)
	p.tp = sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp), sdktrace.WithResource(res))
	return nil
}

func (p *Providers) startMetrics(logDir string, res *resource.Resource) error {
	out := rotatingFile(logDir, serviceName+"_metrics.log")
	exp, err := stdoutmetric.New(stdoutmetric.WithWriter(out), stdoutmetric.WithPrettyPrint())
	if err != nil {
		return fmt.Errorf("failed to create metric exporter: %w", err)
	}
	p.files = append(p.files, out)
	reader := sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(metricInterval))
	p.mp = sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader), sdkmetric.WithResource(res))
	return nil
}

// Shutdown flushes pending spans and metrics, then closes the export files.
func (p *Providers) Shutdown(ctx context.Context) error {
	var errList []error
	if p.tp != nil {
		if err := p.tp.Shutdown(ctx); err != nil {
			errList = append(errList, fmt.Errorf("failed to shutdown tracer provider: %w", err))
		}
	}
	if p.mp != nil {
		if err := p.mp.Shutdown(ctx); err != nil {
			errList = append(errList, fmt.Errorf("failed to shutdown meter provider: %w", err))
		}
	}
	for _, f := range p.files {
		if err := f.Close(); err != nil {
			errList = append(errList, err)
		}
	}
	p.files = nil
	return errors.Join(errList...)
}
