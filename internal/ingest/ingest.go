// Package ingest drives the line pipeline: parse, verify, detect, then fan
// each reportable change out to the configured sinks.
package ingest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/sweeney/parking-logger/internal/frame"
	"github.com/sweeney/parking-logger/internal/logic"
	"github.com/sweeney/parking-logger/internal/serial"
	"github.com/sweeney/parking-logger/internal/status"
)

// Sink receives reportable changes.
type Sink interface {
	// Name identifies the sink in logs.
	Name() string

	// Write persists or forwards one change event.
	Write(ctx context.Context, event logic.ChangeEvent) error
}

// Outcome is the result of handling one line.
type Outcome int

const (
	// Empty means the line carried no data.
	Empty Outcome = iota
	// Malformed means the line is not a well-formed data frame.
	Malformed
	// IntegrityFailure means the checksum did not match.
	IntegrityFailure
	// Suppressed means the detector found nothing to report.
	Suppressed
	// Reported means every sink accepted the change.
	Reported
	// PartiallyDelivered means at least one sink rejected the change.
	PartiallyDelivered
)

func (o Outcome) String() string {
	switch o {
	case Empty:
		return "empty"
	case Malformed:
		return "malformed"
	case IntegrityFailure:
		return "integrity failure"
	case Suppressed:
		return "suppressed"
	case Reported:
		return "reported"
	case PartiallyDelivered:
		return "partially delivered"
	default:
		return "unknown"
	}
}

// Options configures a Pipeline.
type Options struct {
	Detector *logic.Detector
	Sinks    []Sink
	Log      zerolog.Logger

	// Tracker, if set, receives every reported change and the running counts.
	Tracker *status.Tracker

	// Now defaults to time.Now.
	Now func() time.Time

	// NewID defaults to a random UUID.
	NewID func() string
}

// Pipeline processes lines one at a time.
type Pipeline struct {
	detector *logic.Detector
	sinks    []Sink
	log      zerolog.Logger
	tracker  *status.Tracker
	now      func() time.Time
	newID    func() string

	mu     sync.Mutex
	counts status.Counts
}

// New creates a Pipeline. A nil Detector gets the default debounce window.
func New(opts Options) *Pipeline {
	p := &Pipeline{
		detector: opts.Detector,
		sinks:    opts.Sinks,
		log:      opts.Log,
		tracker:  opts.Tracker,
		now:      opts.Now,
		newID:    opts.NewID,
	}
	if p.detector == nil {
		p.detector = logic.NewDetector(logic.DefaultMinStateDuration)
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.newID == nil {
		p.newID = uuid.NewString
	}
	return p
}

// HandleLine runs one line through the pipeline and reports what happened to it.
func (p *Pipeline) HandleLine(ctx context.Context, line string) Outcome {
	if strings.TrimSpace(line) == "" {
		return Empty
	}

	outcome := p.handle(ctx, line)

	p.mu.Lock()
	p.counts.Lines++
	switch outcome {
	case Malformed:
		p.counts.Malformed++
	case IntegrityFailure:
		p.counts.ChecksumFailures++
	}
	p.mu.Unlock()

	if p.tracker != nil {
		p.tracker.SetCounts(p.Counts())
	}
	return outcome
}

func (p *Pipeline) handle(ctx context.Context, line string) Outcome {
	f, err := frame.Parse(line)
	if err != nil {
		p.log.Warn().Err(err).Str("line", strings.TrimSpace(line)).Msg("discarding line")
		return Malformed
	}

	if !f.Verify() {
		p.log.Warn().
			Str("line", strings.TrimSpace(line)).
			Str("checksum", f.Checksum).
			Int64("computed", frame.Checksum(f.Covered)).
			Msg("checksum mismatch, discarding line")
		return IntegrityFailure
	}

	now := p.now()
	description, ok := p.detector.Observe(f.Record, now)
	if !ok {
		p.log.Debug().Str("record", f.Record.String()).Msg("no reportable change")
		return Suppressed
	}

	event := logic.ChangeEvent{
		ID:          p.newID(),
		Timestamp:   now,
		Record:      f.Record,
		Description: description,
	}
	p.logState(event)

	if p.tracker != nil {
		p.tracker.RecordChange(event)
	}

	if failed := p.deliver(ctx, event); failed > 0 {
		p.log.Warn().
			Str("id", event.ID).
			Int("failed", failed).
			Int("sinks", len(p.sinks)).
			Msg("change only partially delivered")
		return PartiallyDelivered
	}
	return Reported
}

func (p *Pipeline) logState(event logic.ChangeEvent) {
	fields := event.Record.Fields()
	e := p.log.Info().Str("id", event.ID).Str("change", event.Description)
	if len(fields) > 0 {
		e = e.Str("available", fields[0])
	}
	for i, s := range event.Record.Slots() {
		e = e.Str(fmt.Sprintf("slot%d", i+1), s)
	}
	e.Msg("slot state changed")
}

// deliver writes the event to every sink concurrently and returns how many
// failed. Sink writes are not cancelled by a stop signal.
func (p *Pipeline) deliver(ctx context.Context, event logic.ChangeEvent) int {
	ctx = context.WithoutCancel(ctx)

	var (
		g      errgroup.Group
		failed atomic.Int32
	)
	for _, s := range p.sinks {
		s := s
		g.Go(func() error {
			if err := s.Write(ctx, event); err != nil {
				failed.Add(1)
				p.log.Error().Err(err).Str("sink", s.Name()).Str("id", event.ID).Msg("sink write failed")
				return err
			}
			return nil
		})
	}
	_ = g.Wait()

	n := int(failed.Load())
	if n > 0 {
		p.mu.Lock()
		p.counts.SinkFailures += n
		p.mu.Unlock()
	}
	return n
}

// Counts returns line outcome counts, including the detector's.
func (p *Pipeline) Counts() status.Counts {
	d := p.detector.Counts()

	p.mu.Lock()
	c := p.counts
	p.mu.Unlock()

	c.Unchanged = d.Unchanged
	c.Debounced = d.Debounced
	c.Reported = d.Reported
	return c
}

// Detector returns the pipeline's change detector.
func (p *Pipeline) Detector() *logic.Detector {
	return p.detector
}

// Run drains all available lines from src on every tick until ctx is done or
// the source fails. The source is closed exactly once before Run returns.
func (p *Pipeline) Run(ctx context.Context, src serial.Source, tick <-chan time.Time) error {
	defer func() {
		if err := src.Close(); err != nil {
			p.log.Warn().Err(err).Msg("close source")
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick:
			if err := p.drain(ctx, src); err != nil {
				return fmt.Errorf("read source: %w", err)
			}
		}
	}
}

func (p *Pipeline) drain(ctx context.Context, src serial.Source) error {
	for ctx.Err() == nil {
		line, err := src.ReadLine()
		if err != nil {
			return err
		}
		if line == "" {
			return nil
		}
		p.HandleLine(ctx, line)
	}
	return nil
}
