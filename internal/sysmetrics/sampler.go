package sysmetrics

import (
	"context"
	"sync"
	"time"

	"github.com/HerbHall/kioskwatch/internal/clock"
	"github.com/HerbHall/kioskwatch/pkg/models"
	"go.uber.org/zap"
)

// DefaultInterval is the sampling interval when none is configured.
const DefaultInterval = 5 * time.Second

// Sampler collects metrics periodically and caches the last classified
// sample for snapshot readers.
type Sampler struct {
	collector  Collector
	thresholds Thresholds
	interval   time.Duration
	clock      clock.Clock
	logger     *zap.Logger

	mu      sync.RWMutex
	last    models.SystemMetrics
	hasLast bool
	lastErr error
}

// NewSampler creates a Sampler. It collects nothing until Sample or Run.
func NewSampler(c Collector, th Thresholds, clk clock.Clock, logger *zap.Logger) *Sampler {
	return &Sampler{
		collector:  c,
		thresholds: th,
		interval:   DefaultInterval,
		clock:      clk,
		logger:     logger,
	}
}

// Last returns the most recent successful sample.
func (s *Sampler) Last() (models.SystemMetrics, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.hasLast {
		return models.SystemMetrics{}, false
	}
	out := s.last
	out.Warnings = append([]string(nil), s.last.Warnings...)
	return out, true
}

// Err returns the error of the latest collection attempt, if it failed.
func (s *Sampler) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// Sample collects and caches one sample. A failed collection keeps the
// previous sample.
func (s *Sampler) Sample(ctx context.Context) error {
	m, err := s.collector.Collect(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = err
	if err != nil {
		return err
	}

	prev := s.last.Health
	s.last = Classify(m, s.thresholds)
	s.hasLast = true
	if s.last.Health != prev && s.last.Health != models.LevelHealthy {
		s.logger.Warn("host metrics degraded",
			zap.String("health", string(s.last.Health)),
			zap.Strings("warnings", s.last.Warnings),
		)
	}
	return nil
}

// Run samples immediately and then on every interval until ctx is done.
func (s *Sampler) Run(ctx context.Context) {
	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	s.sampleAndLog(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			s.sampleAndLog(ctx)
		}
	}
}

func (s *Sampler) sampleAndLog(ctx context.Context) {
	if err := s.Sample(ctx); err != nil && ctx.Err() == nil {
		s.logger.Warn("metrics collection failed", zap.Error(err))
	}
}
