// Package bridge reaches OS-paired printers through the operating system's
// Bluetooth serial bridge: an RFCOMM device node on Linux, a COM port on
// Windows. The whole job is written in one call unless a chunk size is set.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.bug.st/serial"

	"struk-print/internal/printer"
)

// Config for the bridge backend
type Config struct {
	Channel    int
	BaudRate   int
	ChunkSize  int
	ChunkDelay time.Duration
	// BindTimeout bounds the wait for the device node to appear
	BindTimeout time.Duration
}

// DefaultConfig matches common 58mm Bluetooth receipt printers
func DefaultConfig() Config {
	return Config{
		Channel:     1,
		BaudRate:    115200,
		BindTimeout: 15 * time.Second,
	}
}

// host is the platform side of the bridge
type host interface {
	Available() bool
	PoweredOn(ctx context.Context) (bool, error)
	PowerOn(ctx context.Context) error
	Paired(ctx context.Context) ([]printer.Device, error)
	Bind(ctx context.Context, dev printer.Device, channel int) (link, error)
}

// link is a bound serial device node
type link interface {
	Path() string
	Alive() bool
	Close() error
}

type port interface {
	io.Writer
	io.Closer
}

type opener func(path string, baud int) (port, error)

// openSerial opens the device node 8N1
func openSerial(path string, baud int) (port, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	p, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open port %s: %w", path, err)
	}
	return p, nil
}

// Backend implements printer.Backend over the serial bridge
type Backend struct {
	cfg   Config
	host  host
	open  opener
	log   zerolog.Logger
	watch time.Duration

	mu   sync.Mutex
	link link
	port port
	stop chan struct{}
}

// Option configures a Backend
type Option func(*Backend)

// WithLogger sets the backend logger
func WithLogger(l zerolog.Logger) Option {
	return func(b *Backend) { b.log = l }
}

// New creates a bridge backend for the current platform
func New(cfg Config, opts ...Option) *Backend {
	if cfg.Channel <= 0 {
		cfg.Channel = 1
	}
	if cfg.BaudRate <= 0 {
		cfg.BaudRate = 115200
	}
	b := &Backend{
		cfg:   cfg,
		open:  openSerial,
		log:   zerolog.Nop(),
		watch: time.Second,
	}
	for _, o := range opts {
		o(b)
	}
	b.log = b.log.With().Str("backend", string(printer.TransportBridge)).Logger()
	if b.host == nil {
		b.host = newHost(cfg, b.log)
	}
	return b
}

func (b *Backend) Transport() printer.Transport { return printer.TransportBridge }

func (b *Backend) Available() bool { return b.host.Available() }

func (b *Backend) ChunkPolicy() printer.ChunkPolicy {
	return printer.ChunkPolicy{Size: b.cfg.ChunkSize, Delay: b.cfg.ChunkDelay}
}

// Discover lists OS-paired devices, switching the adapter on first if needed
func (b *Backend) Discover(ctx context.Context) ([]printer.Device, error) {
	if !b.host.Available() {
		return nil, &printer.Error{Kind: printer.BridgeUnavailable, Op: "discover"}
	}

	on, err := b.host.PoweredOn(ctx)
	if err != nil {
		return nil, printer.Wrap(printer.RadioDisabled, "discover", err)
	}
	if !on {
		b.log.Info().Msg("adapter off, powering on")
		if err := b.host.PowerOn(ctx); err != nil {
			return nil, printer.Wrap(printer.RadioDisabled, "discover", err)
		}
	}

	devices, err := b.host.Paired(ctx)
	if err != nil {
		return nil, printer.Wrap(printer.DeviceNotFound, "discover", err)
	}
	for i := range devices {
		devices[i].Transport = printer.TransportBridge
	}
	b.log.Debug().Int("devices", len(devices)).Msg("paired devices")
	return devices, nil
}

// Connect binds the device node and opens it
func (b *Backend) Connect(ctx context.Context, dev printer.Device, onDrop func(error)) error {
	b.mu.Lock()
	busy := b.port != nil
	b.mu.Unlock()
	if busy {
		return printer.Errorf(printer.ConnectFailed, "connect", "already connected")
	}

	bctx := ctx
	if b.cfg.BindTimeout > 0 {
		var cancel context.CancelFunc
		bctx, cancel = context.WithTimeout(ctx, b.cfg.BindTimeout)
		defer cancel()
	}

	l, err := b.host.Bind(bctx, dev, b.cfg.Channel)
	if err != nil {
		return printer.Wrap(printer.ConnectFailed, "bind", err)
	}
	p, err := b.open(l.Path(), b.cfg.BaudRate)
	if err != nil {
		_ = l.Close()
		return printer.Wrap(printer.ConnectFailed, "open", err)
	}

	stop := make(chan struct{})
	b.mu.Lock()
	b.link, b.port, b.stop = l, p, stop
	b.mu.Unlock()

	b.log.Info().Str("device", dev.Address).Str("path", l.Path()).Msg("bridge open")
	go b.watchLink(l, stop, onDrop)
	return nil
}

// watchLink reports a drop once the device node goes away
func (b *Backend) watchLink(l link, stop chan struct{}, onDrop func(error)) {
	t := time.NewTicker(b.watch)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			if !l.Alive() {
				if onDrop != nil {
					onDrop(fmt.Errorf("%s went away", l.Path()))
				}
				return
			}
		}
	}
}

// Write sends p in a single call
func (b *Backend) Write(_ context.Context, p []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.port == nil {
		return &printer.Error{Kind: printer.NotConnected, Op: "write"}
	}
	n, err := b.port.Write(p)
	if err != nil {
		return printer.Wrap(printer.WriteFailed, "write", err)
	}
	if n < len(p) {
		return printer.Errorf(printer.WriteFailed, "write", "short write: %d of %d bytes", n, len(p))
	}
	return nil
}

// Disconnect closes the port and releases the device node
func (b *Backend) Disconnect() error {
	b.mu.Lock()
	l, p, stop := b.link, b.port, b.stop
	b.link, b.port, b.stop = nil, nil, nil
	b.mu.Unlock()

	if stop != nil {
		close(stop)
	}
	var errs []error
	if p != nil {
		errs = append(errs, p.Close())
	}
	if l != nil {
		errs = append(errs, l.Close())
	}
	return errors.Join(errs...)
}

// parsePaired reads `bluetoothctl devices Paired` output
func parsePaired(out string) []printer.Device {
	var devices []printer.Device
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "Device ") {
			continue
		}
		// Format: "Device XX:XX:XX:XX:XX:XX DeviceName"
		parts := strings.SplitN(strings.TrimPrefix(line, "Device "), " ", 2)
		if len(parts) == 2 {
			devices = append(devices, printer.Device{Address: parts[0], Name: parts[1]})
		} else if parts[0] != "" {
			devices = append(devices, printer.Device{Address: parts[0], Name: parts[0]})
		}
	}
	return devices
}

// parsePowered reads the Powered line of `bluetoothctl show`
func parsePowered(out string) (bool, bool) {
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if v, ok := strings.CutPrefix(line, "Powered:"); ok {
			return strings.TrimSpace(v) == "yes", true
		}
	}
	return false, false
}
