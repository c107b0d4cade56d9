package bridge

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"struk-print/internal/printer"
)

type fakeHost struct {
	available  bool
	powered    bool
	poweredErr error
	powerOnErr error
	paired     []printer.Device
	bindErr    error

	powerOns int
	link     *fakeLink
}

func (h *fakeHost) Available() bool { return h.available }

func (h *fakeHost) PoweredOn(context.Context) (bool, error) { return h.powered, h.poweredErr }

func (h *fakeHost) PowerOn(context.Context) error {
	h.powerOns++
	if h.powerOnErr != nil {
		return h.powerOnErr
	}
	h.powered = true
	return nil
}

func (h *fakeHost) Paired(context.Context) ([]printer.Device, error) {
	return append([]printer.Device(nil), h.paired...), nil
}

func (h *fakeHost) Bind(_ context.Context, dev printer.Device, channel int) (link, error) {
	if h.bindErr != nil {
		return nil, h.bindErr
	}
	h.link = &fakeLink{path: "/dev/rfcomm0"}
	h.link.alive.Store(true)
	return h.link, nil
}

type fakeLink struct {
	path   string
	alive  atomic.Bool
	closes atomic.Int32
}

func (l *fakeLink) Path() string { return l.path }
func (l *fakeLink) Alive() bool  { return l.alive.Load() }

func (l *fakeLink) Close() error {
	l.closes.Add(1)
	return nil
}

type fakePort struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	writes int
	short  bool
	err    error
	closed int
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writes++
	if p.err != nil {
		return 0, p.err
	}
	if p.short {
		return len(b) / 2, nil
	}
	return p.buf.Write(b)
}

func (p *fakePort) Close() error {
	p.closed++
	return nil
}

func withHost(h host) Option { return func(b *Backend) { b.host = h } }

func withPort(p *fakePort, gotPath *string) Option {
	return func(b *Backend) {
		b.open = func(path string, baud int) (port, error) {
			if gotPath != nil {
				*gotPath = path
			}
			return p, nil
		}
	}
}

func withWatch(d time.Duration) Option { return func(b *Backend) { b.watch = d } }

func readyHost() *fakeHost {
	return &fakeHost{
		available: true,
		powered:   true,
		paired:    []printer.Device{{Address: "66:22:B3:0A:11:02", Name: "RPP02N"}},
	}
}

func TestDiscover(t *testing.T) {
	h := readyHost()
	b := New(DefaultConfig(), withHost(h))

	devices, err := b.Discover(context.Background())
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, printer.TransportBridge, devices[0].Transport)
	assert.Equal(t, "RPP02N", devices[0].Name)
	assert.Zero(t, h.powerOns)
	assert.True(t, b.Available())
}

func TestDiscoverFailures(t *testing.T) {
	tests := []struct {
		name string
		host *fakeHost
		want printer.ErrorKind
	}{
		{"bridge missing", &fakeHost{}, printer.BridgeUnavailable},
		{"no adapter", &fakeHost{available: true, poweredErr: errors.New("no adapter")}, printer.RadioDisabled},
		{"power on refused", &fakeHost{available: true, powerOnErr: errors.New("blocked by rfkill")}, printer.RadioDisabled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(DefaultConfig(), withHost(tt.host)).Discover(context.Background())
			assert.Equal(t, tt.want, printer.KindOf(err))
		})
	}
}

func TestDiscoverPowersOn(t *testing.T) {
	h := readyHost()
	h.powered = false

	devices, err := New(DefaultConfig(), withHost(h)).Discover(context.Background())
	require.NoError(t, err)
	assert.Len(t, devices, 1)
	assert.Equal(t, 1, h.powerOns)
}

func TestConnectWriteDisconnect(t *testing.T) {
	h := readyHost()
	p := &fakePort{}
	var path string
	b := New(DefaultConfig(), withHost(h), withPort(p, &path))

	assert.Equal(t, printer.ChunkPolicy{}, b.ChunkPolicy())
	assert.ErrorIs(t, b.Write(context.Background(), []byte{1}), printer.ErrNotConnected)

	require.NoError(t, b.Connect(context.Background(), h.paired[0], nil))
	assert.Equal(t, "/dev/rfcomm0", path)

	job := bytes.Repeat([]byte("0123456789"), 500)
	require.NoError(t, b.Write(context.Background(), job))
	assert.Equal(t, 1, p.writes)
	assert.Equal(t, job, p.buf.Bytes())

	require.NoError(t, b.Disconnect())
	require.NoError(t, b.Disconnect())
	assert.Equal(t, 1, p.closed)
	assert.Equal(t, int32(1), h.link.closes.Load())
	assert.ErrorIs(t, b.Write(context.Background(), []byte{1}), printer.ErrNotConnected)
}

func TestWriteFailures(t *testing.T) {
	h := readyHost()
	p := &fakePort{short: true}
	b := New(DefaultConfig(), withHost(h), withPort(p, nil))
	require.NoError(t, b.Connect(context.Background(), h.paired[0], nil))
	defer b.Disconnect()

	err := b.Write(context.Background(), make([]byte, 10))
	assert.ErrorIs(t, err, printer.ErrWriteFailed)
	assert.ErrorContains(t, err, "short write: 5 of 10 bytes")

	p.short, p.err = false, errors.New("broken pipe")
	assert.ErrorIs(t, b.Write(context.Background(), make([]byte, 10)), printer.ErrWriteFailed)
}

func TestConnectFailures(t *testing.T) {
	h := readyHost()
	h.bindErr = errors.New("host is down")
	b := New(DefaultConfig(), withHost(h))
	err := b.Connect(context.Background(), h.paired[0], nil)
	assert.ErrorIs(t, err, printer.ErrConnectFailed)

	h = readyHost()
	b = New(DefaultConfig(), withHost(h))
	b.open = func(string, int) (port, error) { return nil, errors.New("permission denied") }
	err = b.Connect(context.Background(), h.paired[0], nil)
	assert.ErrorIs(t, err, printer.ErrConnectFailed)
	assert.Equal(t, int32(1), h.link.closes.Load())
}

func TestLinkWatch(t *testing.T) {
	h := readyHost()
	b := New(DefaultConfig(), withHost(h), withPort(&fakePort{}, nil), withWatch(5*time.Millisecond))

	dropped := make(chan error, 1)
	require.NoError(t, b.Connect(context.Background(), h.paired[0], func(err error) { dropped <- err }))

	h.link.alive.Store(false)
	select {
	case err := <-dropped:
		assert.ErrorContains(t, err, "/dev/rfcomm0")
	case <-time.After(time.Second):
		t.Fatal("drop not reported")
	}
}

func TestSessionOverBridge(t *testing.T) {
	h := readyHost()
	p := &fakePort{}
	b := New(DefaultConfig(), withHost(h), withPort(p, nil))
	s := printer.NewSession(printer.WithBackends(b))

	require.NoError(t, s.Connect(context.Background()))
	dev, ok := s.Device()
	require.True(t, ok)
	assert.Equal(t, "RPP02N (66:22:B3:0A:11:02)", dev.String())

	job := make([]byte, 4096)
	require.NoError(t, s.Send(context.Background(), job))
	assert.Equal(t, 1, p.writes)

	require.NoError(t, s.Disconnect())
	assert.Equal(t, 1, p.closed)
}

func TestChunkedBridge(t *testing.T) {
	h := readyHost()
	p := &fakePort{}
	cfg := DefaultConfig()
	cfg.ChunkSize = 512
	b := New(cfg, withHost(h), withPort(p, nil))
	s := printer.NewSession(printer.WithBackends(b))

	require.NoError(t, s.Connect(context.Background()))
	require.NoError(t, s.Send(context.Background(), make([]byte, 1300)))
	assert.Equal(t, 3, p.writes)
	assert.Equal(t, 1300, p.buf.Len())
}

func TestParsePaired(t *testing.T) {
	out := "Device 66:22:B3:0A:11:02 RPP02N\n" +
		"Device 00:1B:10:73:AD:9F Printer 58mm BT\n" +
		"garbage line\n" +
		"  Device 11:22:33:44:55:66\n\n"

	assert.Equal(t, []printer.Device{
		{Address: "66:22:B3:0A:11:02", Name: "RPP02N"},
		{Address: "00:1B:10:73:AD:9F", Name: "Printer 58mm BT"},
		{Address: "11:22:33:44:55:66", Name: "11:22:33:44:55:66"},
	}, parsePaired(out))
	assert.Empty(t, parsePaired(""))
}

func TestParsePowered(t *testing.T) {
	on, found := parsePowered("Controller 00:1A:7D:DA:71:13 (public)\n\tName: host\n\tPowered: yes\n")
	assert.True(t, found)
	assert.True(t, on)

	on, found = parsePowered("\tPowered: no\n")
	assert.True(t, found)
	assert.False(t, on)

	_, found = parsePowered("No default controller available\n")
	assert.False(t, found)
}

func TestPorts(t *testing.T) {
	assert.Equal(t, "COM3", comPath("COM3"))
	assert.Equal(t, `\\.\COM12`, comPath("COM12"))
	assert.Equal(t, `\\.\COM12`, comPath(`\\.\COM12`))
	assert.True(t, isBluetoothPort(`\Device\BthModem0`))
	assert.False(t, isBluetoothPort(`\Device\Serial0`))
}
