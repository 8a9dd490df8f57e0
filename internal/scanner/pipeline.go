// Package scanner turns raw lines from a ticket scanner into published scan
// events: extract a PNR, look it up and announce the result.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HerbHall/kioskwatch/internal/clock"
	"github.com/HerbHall/kioskwatch/internal/lookup"
	"github.com/HerbHall/kioskwatch/internal/pnr"
	"github.com/HerbHall/kioskwatch/internal/telemetry"
	"github.com/HerbHall/kioskwatch/pkg/models"
	"github.com/HerbHall/kioskwatch/pkg/plugin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Event topics published by the pipeline.
const (
	TopicScan  = "scanner.scan"
	TopicError = "scanner.error"
)

// Pipeline defaults.
const (
	DefaultLookupTimeout = 5 * time.Second
	DefaultFaultBackoff  = 2 * time.Second
)

// Options configures a Pipeline.
type Options struct {
	ScannerID     string
	Port          string
	LookupTimeout time.Duration
	FaultBackoff  time.Duration
}

// Pipeline resolves scans concurrently. Each line becomes an independent
// unit of work, so a slow lookup never holds up reading or other scans, and
// results are published in completion order.
type Pipeline struct {
	provider lookup.Provider
	bus      plugin.EventBus
	clock    clock.Clock
	opts     Options
	metrics  *telemetry.Metrics
	logger   *zap.Logger

	wg        sync.WaitGroup
	inFlight  atomic.Int64
	lastScan  atomic.Int64
	faults    atomic.Int64
	lastFault atomic.Pointer[models.ScannerFault]
}

// NewPipeline creates a Pipeline. metrics may be nil.
func NewPipeline(provider lookup.Provider, bus plugin.EventBus, clk clock.Clock, opts Options, metrics *telemetry.Metrics, logger *zap.Logger) *Pipeline {
	if opts.LookupTimeout <= 0 {
		opts.LookupTimeout = DefaultLookupTimeout
	}
	if opts.FaultBackoff <= 0 {
		opts.FaultBackoff = DefaultFaultBackoff
	}
	return &Pipeline{
		provider: provider,
		bus:      bus,
		clock:    clk,
		opts:     opts,
		metrics:  metrics,
		logger:   logger,
	}
}

// Run reads src until it returns io.EOF or ctx is cancelled. Read faults are
// published and followed by a backoff; they never end the loop.
func (p *Pipeline) Run(ctx context.Context, src LineSource) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		line, err := src.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.fault(ctx, err)
			if !p.backoff(ctx) {
				return ctx.Err()
			}
			continue
		}

		p.Submit(ctx, line)
	}
}

// Submit schedules one scanned line for resolution.
func (p *Pipeline) Submit(ctx context.Context, raw string) {
	p.SubmitAs(ctx, p.opts.ScannerID, raw)
}

// SubmitAs is Submit for a line read by another scanner.
func (p *Pipeline) SubmitAs(ctx context.Context, scannerID, raw string) {
	scannedAt := p.clock.Now()
	p.lastScan.Store(scannedAt.UnixNano())
	p.wg.Add(1)
	p.inFlight.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.inFlight.Add(-1)
		ev := p.resolve(ctx, scannerID, raw, scannedAt)
		p.publish(ctx, TopicScan, ev.ResolvedAt, &ev)
		p.metrics.ScanEvent(string(ev.Result))
	}()
}

// Wait blocks until every submitted scan has been published.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}

// InFlight returns the number of scans still being resolved.
func (p *Pipeline) InFlight() int {
	return int(p.inFlight.Load())
}

// LastScan returns when the most recent line was submitted, or the zero
// time if none was.
func (p *Pipeline) LastScan() time.Time {
	n := p.lastScan.Load()
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

// Faults returns the number of read faults and the most recent one.
func (p *Pipeline) Faults() (int64, *models.ScannerFault) {
	return p.faults.Load(), p.lastFault.Load()
}

func (p *Pipeline) resolve(ctx context.Context, scannerID, raw string, scannedAt time.Time) models.ScanEvent {
	ev := models.ScanEvent{
		ID:         uuid.NewString(),
		ScannerID:  scannerID,
		RawPayload: strings.TrimRight(raw, "\r\n"),
		ScannedAt:  scannedAt,
	}

	code, tier := pnr.ExtractTier(raw)
	if tier == pnr.TierNone {
		ev.Result = models.ScanInvalidFormat
		ev.ResolvedAt = p.clock.Now()
		p.logger.Debug("scan without reservation code", zap.String("scan_id", ev.ID))
		return ev
	}
	ev.ExtractedID = code

	// Shutdown drains lookups rather than failing them; the timeout still
	// bounds each one.
	lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.opts.LookupTimeout)
	defer cancel()

	start := time.Now()
	records, err := p.lookup(lctx, code)
	p.metrics.ObserveLookup(time.Since(start))

	switch {
	case err != nil:
		ev.Result = models.ScanLookupError
		ev.Error = err.Error()
		p.logger.Warn("record lookup failed",
			zap.String("scan_id", ev.ID),
			zap.String("pnr", code),
			zap.Error(err),
		)
	case len(records) == 0:
		ev.Result = models.ScanNotFound
	default:
		ev.Result = models.ScanFound
		ev.Records = records
	}
	ev.ResolvedAt = p.clock.Now()

	p.logger.Debug("scan resolved",
		zap.String("scan_id", ev.ID),
		zap.String("pnr", code),
		zap.Stringer("tier", tier),
		zap.String("result", string(ev.Result)),
	)
	return ev
}

// lookup calls the provider, turning a panic into an error.
func (p *Pipeline) lookup(ctx context.Context, code string) (recs []models.PassengerRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("panic in record provider", zap.Any("panic", r), zap.Stack("stack"))
			err = fmt.Errorf("record provider panic: %v", r)
		}
	}()
	return p.provider.Lookup(ctx, code)
}

func (p *Pipeline) fault(ctx context.Context, err error) {
	f := &models.ScannerFault{
		ScannerID: p.opts.ScannerID,
		Port:      p.opts.Port,
		Error:     err.Error(),
		At:        p.clock.Now(),
	}
	p.faults.Add(1)
	p.lastFault.Store(f)
	p.metrics.ScannerFault()
	p.logger.Error("scanner read failed",
		zap.String("scanner_id", f.ScannerID),
		zap.String("port", f.Port),
		zap.Error(err),
	)
	p.publish(ctx, TopicError, f.At, f)
}

// backoff waits FaultBackoff. It returns false if ctx ended first.
func (p *Pipeline) backoff(ctx context.Context) bool {
	t := p.clock.NewTicker(p.opts.FaultBackoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C():
		return true
	}
}

func (p *Pipeline) publish(ctx context.Context, topic string, at time.Time, payload any) {
	if p.bus == nil {
		return
	}
	_ = p.bus.Publish(context.WithoutCancel(ctx), plugin.Event{
		Topic:     topic,
		Source:    "scanner",
		Timestamp: at,
		Payload:   payload,
	})
}
