// Package printjob turns a receipt into a print job, sends it through the
// printer session and reports every attempt as an Outcome value.
package printjob

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"struk-print/internal/printer"
	"struk-print/internal/receipt"
)

// Session is the part of *printer.Session the orchestrator drives
type Session interface {
	State() printer.State
	Device() (printer.Device, bool)
	Send(ctx context.Context, data []byte) error
}

// Outcome reports one print attempt. Err is nil on success.
type Outcome struct {
	JobID     string
	Kind      receipt.Kind
	ReceiptNo string
	Record    receipt.Record
	Device    printer.Device
	Bytes     int
	Err       error
	Started   time.Time
	Finished  time.Time
}

// OK reports whether the job reached the printer
func (o Outcome) OK() bool { return o.Err == nil }

// ErrKind classifies the failure, "" on success
func (o Outcome) ErrKind() printer.ErrorKind { return printer.KindOf(o.Err) }

// Orchestrator prints receipts over a session
type Orchestrator struct {
	session Session
	log     zerolog.Logger
	now     func() time.Time
	newID   func() string

	mu        sync.Mutex
	observers map[int]func(Outcome)
	nextObs   int
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithLogger sets the orchestrator logger
func WithLogger(l zerolog.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithIDs replaces the job id generator
func WithIDs(newID func() string) Option {
	return func(o *Orchestrator) { o.newID = newID }
}

// New creates an orchestrator printing through s
func New(s Session, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		session:   s,
		log:       zerolog.Nop(),
		now:       time.Now,
		newID:     uuid.NewString,
		observers: make(map[int]func(Outcome)),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.log = o.log.With().Str("component", "printjob").Logger()
	return o
}

// Subscribe registers fn for every outcome and returns a function that
// removes it
func (o *Orchestrator) Subscribe(fn func(Outcome)) (unsubscribe func()) {
	o.mu.Lock()
	id := o.nextObs
	o.nextObs++
	o.observers[id] = fn
	o.mu.Unlock()

	return func() {
		o.mu.Lock()
		delete(o.observers, id)
		o.mu.Unlock()
	}
}

// PrintReceipt builds the receipt and sends it. It fails with NotConnected
// without building anything when the session is not Connected. Failures,
// panics included, come back in the Outcome.
func (o *Orchestrator) PrintReceipt(ctx context.Context, kind receipt.Kind, rec receipt.Record, store receipt.Store) (out Outcome) {
	out = Outcome{
		JobID:     o.newID(),
		Kind:      kind,
		ReceiptNo: rec.TextOr("no_struk", ""),
		Record:    rec.Clone(),
		Started:   o.now(),
	}
	log := o.log.With().Str("job", out.JobID).Str("kind", string(kind)).Logger()

	defer func() {
		if r := recover(); r != nil {
			out.Err = fmt.Errorf("print job panicked: %v", r)
			log.Error().Err(out.Err).Msg("print failed")
		}
		out.Finished = o.now()
		o.notify(out)
	}()

	if o.session.State() != printer.Connected {
		out.Err = &printer.Error{Kind: printer.NotConnected, Op: "print"}
		log.Warn().Msg("print without connection")
		return out
	}
	out.Device, _ = o.session.Device()

	job := receipt.Build(kind, rec, store)
	out.Bytes = len(job)

	if err := o.session.Send(ctx, job); err != nil {
		out.Err = err
		log.Error().Err(err).Int("bytes", out.Bytes).Msg("print failed")
		return out
	}
	log.Info().Int("bytes", out.Bytes).Str("device", out.Device.Address).Msg("printed")
	return out
}

func (o *Orchestrator) notify(out Outcome) {
	o.mu.Lock()
	fns := make([]func(Outcome), 0, len(o.observers))
	for _, fn := range o.observers {
		fns = append(fns, fn)
	}
	o.mu.Unlock()

	for _, fn := range fns {
		func() {
			defer func() {
				if r := recover(); r != nil {
					o.log.Error().Interface("panic", r).Msg("outcome observer panicked")
				}
			}()
			fn(out)
		}()
	}
}
