package printer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// State of a printer session
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	Disconnecting
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Disconnecting:
		return "disconnecting"
	}
	return "unknown"
}

// Event is emitted to observers on every state change. Err is set when the
// change was caused by a failure, such as a dropped link.
type Event struct {
	State  State
	Device Device
	Err    error
	Time   time.Time
}

// Session owns the single printer connection of a process. Only the session
// mutates its state; callers read it through State and Device or observe it
// through Subscribe.
type Session struct {
	backends       []Backend
	selector       Selector
	connectTimeout time.Duration
	log            zerolog.Logger

	mu     sync.Mutex
	state  State
	gen    uint64
	active Backend
	device Device
	cancel context.CancelFunc
	// connecting is closed once the pending Connect has returned
	connecting chan struct{}

	sendMu sync.Mutex

	obsMu     sync.Mutex
	observers map[int]func(Event)
	nextObs   int
}

// Option configures a Session
type Option func(*Session)

// WithBackends sets the candidate backends in preference order
func WithBackends(b ...Backend) Option {
	return func(s *Session) { s.backends = b }
}

// WithSelector sets how a device is chosen among the discovered ones
func WithSelector(sel Selector) Option {
	return func(s *Session) { s.selector = sel }
}

// WithConnectTimeout bounds discovery plus connect. Zero means no bound.
func WithConnectTimeout(d time.Duration) Option {
	return func(s *Session) { s.connectTimeout = d }
}

// WithLogger sets the session logger
func WithLogger(l zerolog.Logger) Option {
	return func(s *Session) { s.log = l }
}

// NewSession creates a disconnected session
func NewSession(opts ...Option) *Session {
	s := &Session{
		selector:  FirstDevice,
		log:       zerolog.Nop(),
		observers: make(map[int]func(Event)),
	}
	for _, o := range opts {
		o(s)
	}
	s.log = s.log.With().Str("component", "session").Logger()
	return s
}

// State returns the current connection state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Device returns the connected device
func (s *Session) Device() (Device, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.device, s.state == Connected
}

// Subscribe registers fn for state change events and returns a function
// that removes it. fn runs on the goroutine that caused the change.
func (s *Session) Subscribe(fn func(Event)) (unsubscribe func()) {
	s.obsMu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	s.obsMu.Unlock()

	return func() {
		s.obsMu.Lock()
		delete(s.observers, id)
		s.obsMu.Unlock()
	}
}

func (s *Session) emit(state State, dev Device, err error) {
	ev := Event{State: state, Device: dev, Err: err, Time: time.Now()}

	s.obsMu.Lock()
	fns := make([]func(Event), 0, len(s.observers))
	for _, fn := range s.observers {
		fns = append(fns, fn)
	}
	s.obsMu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// Connect selects the first available backend, discovers devices, lets the
// selector choose one and opens the link. It fails fast with Busy unless the
// session is Disconnected.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.state != Disconnected {
		state := s.state
		s.mu.Unlock()
		return Errorf(Busy, "connect", "session is %s", state)
	}
	b := s.pick()
	if b == nil {
		s.mu.Unlock()
		s.log.Warn().Msg("no transport available")
		return &Error{Kind: NoTransportAvailable, Op: "connect"}
	}

	var (
		cctx   context.Context
		cancel context.CancelFunc
	)
	if s.connectTimeout > 0 {
		cctx, cancel = context.WithTimeout(ctx, s.connectTimeout)
	} else {
		cctx, cancel = context.WithCancel(ctx)
	}
	s.gen++
	gen := s.gen
	done := make(chan struct{})
	s.state = Connecting
	s.active = b
	s.cancel = cancel
	s.connecting = done
	s.mu.Unlock()
	defer close(done)
	defer cancel()

	log := s.log.With().Str("backend", string(b.Transport())).Logger()
	log.Info().Msg("connecting")
	s.emit(Connecting, Device{}, nil)

	dev, err := s.open(cctx, b, gen)
	if err != nil {
		if errors.Is(cctx.Err(), context.Canceled) && ctx.Err() == nil {
			// aborted through Disconnect
			err = &Error{Kind: UserCancelled, Op: "connect", Err: err}
		}
		log.Error().Err(err).Msg("connect failed")
		s.fail(gen, err)
		return err
	}

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		// Disconnect waits on done, so b is still ours to tear down
		_ = b.Disconnect()
		err := &Error{Kind: UserCancelled, Op: "connect", Err: errors.New("disconnected while connecting")}
		log.Info().Str("device", dev.Address).Msg("connect abandoned")
		return err
	}
	s.state = Connected
	s.active = b
	s.device = dev
	s.cancel = nil
	s.connecting = nil
	s.mu.Unlock()

	log.Info().Str("device", dev.Address).Str("name", dev.Name).Msg("connected")
	s.emit(Connected, dev, nil)
	return nil
}

func (s *Session) pick() Backend {
	for _, b := range s.backends {
		if b != nil && b.Available() {
			return b
		}
	}
	return nil
}

func (s *Session) open(ctx context.Context, b Backend, gen uint64) (Device, error) {
	devices, err := b.Discover(ctx)
	if err != nil {
		return Device{}, Wrap(DeviceNotFound, "discover", err)
	}
	if len(devices) == 0 {
		return Device{}, &Error{Kind: DeviceNotFound, Op: "discover"}
	}

	dev, err := s.selector(ctx, devices)
	if err != nil {
		return Device{}, Wrap(UserCancelled, "select", err)
	}
	if dev.Transport == "" {
		dev.Transport = b.Transport()
	}

	if err := b.Connect(ctx, dev, s.dropHandler(gen)); err != nil {
		return dev, Wrap(ConnectFailed, "connect", err)
	}
	return dev, nil
}

// fail returns a Connecting session to Disconnected, unless Disconnect
// already took it over.
func (s *Session) fail(gen uint64, err error) {
	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return
	}
	s.state = Disconnected
	s.active = nil
	s.cancel = nil
	s.connecting = nil
	s.mu.Unlock()
	s.emit(Disconnected, Device{}, err)
}

func (s *Session) dropHandler(gen uint64) func(error) {
	return func(cause error) {
		s.mu.Lock()
		if s.gen != gen || s.state != Connected {
			s.mu.Unlock()
			return
		}
		s.gen++
		b, dev := s.active, s.device
		s.state = Disconnected
		s.active = nil
		s.device = Device{}
		s.mu.Unlock()

		err := &Error{Kind: LinkDropped, Op: "link", Err: cause}
		s.log.Warn().Err(err).Str("device", dev.Address).Msg("link dropped")
		_ = b.Disconnect()
		s.emit(Disconnected, dev, err)
	}
}

// Send writes a job to the printer, chunked per the active backend policy.
// A failed write leaves the session Connected; a dropped link forces it to
// Disconnected and reports LinkDropped.
func (s *Session) Send(ctx context.Context, data []byte) error {
	s.mu.Lock()
	if s.state != Connected {
		s.mu.Unlock()
		return &Error{Kind: NotConnected, Op: "send"}
	}
	b, dev, gen := s.active, s.device, s.gen
	s.mu.Unlock()

	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	policy := b.ChunkPolicy()
	log := s.log.With().Str("backend", string(b.Transport())).Str("device", dev.Address).Logger()

	calls, err := WriteChunked(ctx, policy, data, func(ctx context.Context, p []byte) error {
		if !s.current(gen) {
			return ErrLinkDropped
		}
		return b.Write(ctx, p)
	})
	if err == nil {
		log.Debug().Int("bytes", len(data)).Int("chunks", calls).Msg("sent")
		return nil
	}

	if KindOf(err) == LinkDropped || !s.current(gen) {
		s.dropHandler(gen)(err)
		err = &Error{Kind: LinkDropped, Op: "send", Err: err}
	} else {
		err = &Error{Kind: WriteFailed, Op: "send", Err: err}
	}
	log.Error().Err(err).Int("bytes", len(data)).Int("chunks", calls).Msg("send failed")
	return err
}

func (s *Session) current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen == gen && s.state == Connected
}

// Disconnect tears the link down. It is a no-op on a Disconnected session
// and always ends in Disconnected, whatever the backend reports. A pending
// connect is cancelled and the session stays Disconnecting until that
// connect has returned and released the backend, so it must not be called
// from a Selector or an observer on the connecting goroutine. An in-flight
// send is abandoned at its next chunk boundary.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	switch s.state {
	case Disconnected, Disconnecting:
		s.mu.Unlock()
		return nil
	}
	wasConnected := s.state == Connected
	b, dev := s.active, s.device
	pending := s.connecting
	s.connecting = nil
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.gen++
	s.state = Disconnecting
	s.mu.Unlock()

	s.emit(Disconnecting, dev, nil)
	if pending != nil {
		<-pending
	}
	if wasConnected && b != nil {
		s.sendMu.Lock()
		if err := b.Disconnect(); err != nil {
			s.log.Warn().Err(err).Msg("backend teardown")
		}
		s.sendMu.Unlock()
	}

	s.mu.Lock()
	s.state = Disconnected
	s.active = nil
	s.device = Device{}
	s.mu.Unlock()

	s.log.Info().Str("device", dev.Address).Msg("disconnected")
	s.emit(Disconnected, dev, nil)
	return nil
}
