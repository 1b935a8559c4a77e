package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	resultOK       = "ok"
	resultNotFound = "not_found"
	resultInvalid  = "invalid"
	resultError    = "error"
)

// InstrumentedStore wraps a Store with per-operation prometheus metrics.
type InstrumentedStore struct {
	next Store

	ops     *prometheus.CounterVec
	latency *prometheus.HistogramVec
}

func WithMetrics(next Store, reg prometheus.Registerer) *InstrumentedStore {
	s := &InstrumentedStore{
		next: next,
		ops: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_store_operations_total",
				Help: "Catalog store operations by result",
			},
			[]string{"op", "result"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "catalog_store_operation_duration_seconds",
				Help:    "Catalog store operation latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"op"},
		),
	}
	reg.MustRegister(s.ops, s.latency)
	return s
}

func (s *InstrumentedStore) observe(op string, start time.Time, err error) {
	s.latency.WithLabelValues(op).Observe(time.Since(start).Seconds())
	s.ops.WithLabelValues(op, resultLabel(err)).Inc()
}

func resultLabel(err error) string {
	var ve *ValidationError
	switch {
	case err == nil:
		return resultOK
	case errors.Is(err, ErrNotFound):
		return resultNotFound
	case errors.As(err, &ve):
		return resultInvalid
	default:
		return resultError
	}
}

func (s *InstrumentedStore) Ping(ctx context.Context) error {
	return s.next.Ping(ctx)
}

func (s *InstrumentedStore) List(ctx context.Context, limit int) ([]Product, error) {
	start := time.Now()
	out, err := s.next.List(ctx, limit)
	s.observe("list", start, err)
	return out, err
}

func (s *InstrumentedStore) Get(ctx context.Context, id int64) (Product, bool, error) {
	start := time.Now()
	p, ok, err := s.next.Get(ctx, id)
	if err == nil && !ok {
		s.observe("get", start, ErrNotFound)
	} else {
		s.observe("get", start, err)
	}
	return p, ok, err
}

func (s *InstrumentedStore) Add(ctx context.Context, in Product) (Product, error) {
	start := time.Now()
	p, err := s.next.Add(ctx, in)
	s.observe("add", start, err)
	return p, err
}

func (s *InstrumentedStore) Update(ctx context.Context, id int64, patch Product) (Product, error) {
	start := time.Now()
	p, err := s.next.Update(ctx, id, patch)
	s.observe("update", start, err)
	return p, err
}

func (s *InstrumentedStore) Remove(ctx context.Context, id int64) error {
	start := time.Now()
	err := s.next.Remove(ctx, id)
	s.observe("remove", start, err)
	return err
}

func (s *InstrumentedStore) Clear(ctx context.Context) error {
	start := time.Now()
	err := s.next.Clear(ctx)
	s.observe("clear", start, err)
	return err
}
