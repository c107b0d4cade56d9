// Package ble reaches printers over Bluetooth Low Energy GATT. Jobs go to the
// first writable characteristic found on the printer, in small paced chunks.
package ble

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	gble "github.com/go-ble/ble"
	"github.com/rs/zerolog"

	"struk-print/internal/printer"
)

// ServiceUUIDs are the GATT services thermal receipt printers commonly expose
var ServiceUUIDs = []gble.UUID{
	gble.MustParse("000018f0-0000-1000-8000-00805f9b34fb"),
	gble.MustParse("49535343-fe7d-4ae5-8fa9-9fafd205e455"),
	gble.MustParse("0000ff00-0000-1000-8000-00805f9b34fb"),
	gble.MustParse("e7810a71-73ae-499d-8c15-faa9aef0c3f2"),
}

// Config for the BLE backend
type Config struct {
	ChunkSize   int
	ChunkDelay  time.Duration
	ScanTimeout time.Duration
	// AcceptAll lists every advertising device, not just those announcing
	// one of ServiceUUIDs
	AcceptAll bool
}

// DefaultConfig keeps each write within a typical link MTU
func DefaultConfig() Config {
	return Config{
		ChunkSize:   100,
		ChunkDelay:  50 * time.Millisecond,
		ScanTimeout: 8 * time.Second,
		AcceptAll:   true,
	}
}

// advert is what discovery keeps of an advertisement
type advert struct {
	Addr     string
	Name     string
	Services []gble.UUID
	RSSI     int
}

// gattClient is the part of gble.Client the backend uses
type gattClient interface {
	DiscoverProfile(force bool) (*gble.Profile, error)
	WriteCharacteristic(c *gble.Characteristic, value []byte, noRsp bool) error
	CancelConnection() error
	Disconnected() <-chan struct{}
}

// radio is the host adapter
type radio interface {
	Available() bool
	Scan(ctx context.Context, h func(advert)) error
	Dial(ctx context.Context, addr string) (gattClient, error)
}

// Backend implements printer.Backend over GATT
type Backend struct {
	cfg   Config
	radio radio
	log   zerolog.Logger

	mu     sync.Mutex
	client gattClient
	char   *gble.Characteristic
	noRsp  bool
	closed chan struct{}
}

// Option configures a Backend
type Option func(*Backend)

// WithLogger sets the backend logger
func WithLogger(l zerolog.Logger) Option {
	return func(b *Backend) { b.log = l }
}

// New creates a BLE backend on the default host adapter
func New(cfg Config, opts ...Option) *Backend {
	b := &Backend{cfg: cfg, log: zerolog.Nop()}
	for _, o := range opts {
		o(b)
	}
	b.log = b.log.With().Str("backend", string(printer.TransportBLE)).Logger()
	if b.radio == nil {
		b.radio = newRadio(b.log)
	}
	return b
}

var _ printer.Backend = (*Backend)(nil)

func (b *Backend) Transport() printer.Transport { return printer.TransportBLE }

func (b *Backend) Available() bool { return b.radio.Available() }

func (b *Backend) ChunkPolicy() printer.ChunkPolicy {
	return printer.ChunkPolicy{Size: b.cfg.ChunkSize, Delay: b.cfg.ChunkDelay}
}

// Discover scans for ScanTimeout and returns the devices seen, printers
// announcing a known service first, then by signal strength.
func (b *Backend) Discover(ctx context.Context) ([]printer.Device, error) {
	if b.cfg.ScanTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.cfg.ScanTimeout)
		defer cancel()
	}

	var mu sync.Mutex
	seen := make(map[string]advert)
	err := b.radio.Scan(ctx, func(a advert) {
		if !b.cfg.AcceptAll && !knownService(a.Services) {
			return
		}
		key := strings.ToUpper(a.Addr)
		mu.Lock()
		defer mu.Unlock()
		prev, ok := seen[key]
		if ok && a.Name == "" {
			a.Name = prev.Name
		}
		if ok && len(a.Services) == 0 {
			a.Services = prev.Services
		}
		seen[key] = a
	})
	if err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
		return nil, printer.Wrap(printer.RadioDisabled, "scan", err)
	}
	if err := parentErr(ctx); err != nil {
		return nil, err
	}

	mu.Lock()
	found := make([]advert, 0, len(seen))
	for _, a := range seen {
		found = append(found, a)
	}
	mu.Unlock()

	sort.Slice(found, func(i, j int) bool {
		ki, kj := knownService(found[i].Services), knownService(found[j].Services)
		if ki != kj {
			return ki
		}
		if found[i].RSSI != found[j].RSSI {
			return found[i].RSSI > found[j].RSSI
		}
		return found[i].Addr < found[j].Addr
	})

	devices := make([]printer.Device, len(found))
	for i, a := range found {
		name := a.Name
		if name == "" {
			name = a.Addr
		}
		devices[i] = printer.Device{Address: a.Addr, Name: name, Transport: printer.TransportBLE}
	}
	b.log.Debug().Int("devices", len(devices)).Msg("scan done")
	return devices, nil
}

// parentErr reports cancellation from the caller, as opposed to the end of
// the scan window
func parentErr(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return printer.Wrap(printer.UserCancelled, "scan", ctx.Err())
	}
	return nil
}

func knownService(uuids []gble.UUID) bool {
	for _, u := range uuids {
		for _, k := range ServiceUUIDs {
			if u.Equal(k) {
				return true
			}
		}
	}
	return false
}

// writable picks the first characteristic accepting writes, walking the
// services in order. noRsp is set when it takes write without response.
func writable(p *gble.Profile) (c *gble.Characteristic, noRsp bool) {
	if p == nil {
		return nil, false
	}
	for _, s := range p.Services {
		for _, ch := range s.Characteristics {
			if ch.Property&gble.CharWriteNR != 0 {
				return ch, true
			}
			if ch.Property&gble.CharWrite != 0 {
				return ch, false
			}
		}
	}
	return nil, false
}

// Connect opens a GATT session, finds the print characteristic and starts
// watching for the peer going away.
func (b *Backend) Connect(ctx context.Context, dev printer.Device, onDrop func(error)) error {
	b.mu.Lock()
	busy := b.client != nil
	b.mu.Unlock()
	if busy {
		return printer.Errorf(printer.ConnectFailed, "connect", "already connected")
	}

	client, err := b.radio.Dial(ctx, dev.Address)
	if err != nil {
		return printer.Wrap(printer.ConnectFailed, "dial", err)
	}

	prof, err := client.DiscoverProfile(true)
	if err != nil {
		_ = client.CancelConnection()
		return printer.Wrap(printer.ConnectFailed, "discover profile", err)
	}
	char, noRsp := writable(prof)
	if char == nil {
		_ = client.CancelConnection()
		return &printer.Error{Kind: printer.NoWritableCharacteristic, Op: "connect",
			Err: fmt.Errorf("%d services searched", len(prof.Services))}
	}

	closed := make(chan struct{})
	b.mu.Lock()
	b.client, b.char, b.noRsp, b.closed = client, char, noRsp, closed
	b.mu.Unlock()

	b.log.Info().
		Str("device", dev.Address).
		Str("characteristic", char.UUID.String()).
		Bool("no_response", noRsp).
		Msg("gatt ready")

	go func() {
		select {
		case <-closed:
		case <-client.Disconnected():
			b.mu.Lock()
			stale := b.client != client
			b.mu.Unlock()
			if !stale && onDrop != nil {
				onDrop(errors.New("peer disconnected"))
			}
		}
	}()
	return nil
}

// Write sends one chunk to the print characteristic
func (b *Backend) Write(_ context.Context, p []byte) error {
	b.mu.Lock()
	client, char, noRsp := b.client, b.char, b.noRsp
	b.mu.Unlock()
	if client == nil {
		return &printer.Error{Kind: printer.NotConnected, Op: "write"}
	}
	if err := client.WriteCharacteristic(char, p, noRsp); err != nil {
		return printer.Wrap(printer.WriteFailed, "write", err)
	}
	return nil
}

// Disconnect closes the GATT session
func (b *Backend) Disconnect() error {
	b.mu.Lock()
	client, closed := b.client, b.closed
	b.client, b.char, b.closed = nil, nil, nil
	b.mu.Unlock()

	if client == nil {
		return nil
	}
	close(closed)
	return client.CancelConnection()
}
