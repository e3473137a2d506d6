package rdb

import (
	"context"
	"fmt"
	"time"

	"github.com/hatlonely/dbviewer/log"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type ObservableOptions struct {
	// Name 组件名称，作为指标名前缀、日志 component 字段和 span 属性
	Name string `cfg:"name" def:"dbviewer"`

	EnableMetrics bool `cfg:"enableMetrics"`
	EnableLogging bool `cfg:"enableLogging"`
	EnableTracing bool `cfg:"enableTracing"`
}

// ObservableMetrics 封装 prometheus 指标
type ObservableMetrics struct {
	operationCounter  *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	selectedRows      prometheus.Histogram
}

func NewObservableMetrics(name string, registerer prometheus.Registerer) (*ObservableMetrics, error) {
	metrics := &ObservableMetrics{
		operationCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: name + "_db_operations_total",
				Help: "Total number of database operations",
			},
			[]string{"operation", "status"},
		),
		operationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    name + "_db_operation_duration_seconds",
				Help:    "Duration of database operations in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
			},
			[]string{"operation"},
		),
		selectedRows: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    name + "_db_selected_rows",
				Help:    "Number of rows returned by table loads",
				Buckets: []float64{0, 1, 10, 100, 1000, 10000},
			},
		),
	}

	for _, c := range []prometheus.Collector{metrics.operationCounter, metrics.operationDuration, metrics.selectedRows} {
		if err := registerer.Register(c); err != nil {
			return nil, errors.Wrap(err, "register metrics")
		}
	}
	return metrics, nil
}

// ObservableProvider 装饰器，为 Opener 打开的连接添加指标、追踪和日志
type ObservableProvider struct {
	opener  Opener
	name    string
	logger  log.Logger
	metrics *ObservableMetrics
	tracer  trace.Tracer
}

// NewObservableProviderWithOptions registerer 为空时使用独立的 registry
func NewObservableProviderWithOptions(opener Opener, options *ObservableOptions, logger log.Logger, registerer prometheus.Registerer) (*ObservableProvider, error) {
	if opener == nil {
		return nil, errors.New("opener is nil")
	}
	if options == nil {
		return nil, errors.New("options is nil")
	}

	obs := &ObservableProvider{opener: opener, name: options.Name}

	if options.EnableLogging {
		if logger == nil {
			logger = log.Default()
		}
		obs.logger = logger.WithGroup("observableProvider")
	}

	if options.EnableMetrics {
		if registerer == nil {
			registerer = prometheus.NewRegistry()
		}
		metrics, err := NewObservableMetrics(options.Name, registerer)
		if err != nil {
			return nil, err
		}
		obs.metrics = metrics
	}

	if options.EnableTracing {
		obs.tracer = otel.Tracer(fmt.Sprintf("rdb.%s", options.Name))
	}

	return obs, nil
}

func (obs *ObservableProvider) Open(ctx context.Context) (Session, error) {
	var session Session
	err := obs.observe(ctx, "open", nil, func(ctx context.Context) error {
		var err error
		session, err = obs.opener.Open(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &observableSession{Session: session, obs: obs}, nil
}

// observe 统一的操作观测逻辑
func (obs *ObservableProvider) observe(ctx context.Context, operation string, attrs []attribute.KeyValue, fn func(context.Context) error) error {
	start := time.Now()

	var span trace.Span
	if obs.tracer != nil {
		ctx, span = obs.tracer.Start(ctx, "rdb."+operation, trace.WithAttributes(append(attrs,
			attribute.String("component", obs.name),
			attribute.String("operation", operation),
		)...))
		defer span.End()
	}

	err := fn(ctx)
	duration := time.Since(start)

	if span != nil {
		span.SetAttributes(attribute.Int64("duration_ms", duration.Milliseconds()))
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			span.RecordError(err)
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}

	if obs.metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		obs.metrics.operationCounter.WithLabelValues(operation, status).Inc()
		obs.metrics.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
	}

	if obs.logger != nil {
		if err != nil {
			obs.logger.ErrorContext(ctx, "database operation failed",
				"component", obs.name,
				"operation", operation,
				"duration_ms", duration.Milliseconds(),
				"error", err.Error(),
			)
		} else {
			obs.logger.DebugContext(ctx, "database operation completed",
				"component", obs.name,
				"operation", operation,
				"duration_ms", duration.Milliseconds(),
			)
		}
	}

	return err
}

type observableSession struct {
	Session
	obs *ObservableProvider
}

func (s *observableSession) SelectAll(ctx context.Context, table string) (*ResultSet, error) {
	var result *ResultSet
	err := s.obs.observe(ctx, "select", []attribute.KeyValue{attribute.String("table", table)}, func(ctx context.Context) error {
		var err error
		result, err = s.Session.SelectAll(ctx, table)
		return err
	})
	if err == nil && s.obs.metrics != nil {
		s.obs.metrics.selectedRows.Observe(float64(len(result.Rows)))
	}
	return result, err
}

func (s *observableSession) UpdateCell(ctx context.Context, table, column, keyColumn string, value, key any) error {
	attrs := []attribute.KeyValue{
		attribute.String("table", table),
		attribute.String("column", column),
	}
	return s.obs.observe(ctx, "update", attrs, func(ctx context.Context) error {
		return s.Session.UpdateCell(ctx, table, column, keyColumn, value, key)
	})
}
