package status

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"struk-print/internal/printer"
	"struk-print/internal/printjob"
)

func TestSession(t *testing.T) {
	dev := printer.Device{Address: "66:22:B3:0A:11:02", Name: "RPP02N"}
	tests := []struct {
		name  string
		event printer.Event
		want  Message
	}{
		{"connecting", printer.Event{State: printer.Connecting}, Message{"Mencari printer Bluetooth...", Info}},
		{"connected", printer.Event{State: printer.Connected, Device: dev}, Message{"Terhubung ke printer: RPP02N", Success}},
		{"unnamed", printer.Event{State: printer.Connected, Device: printer.Device{Address: "COM5"}}, Message{"Terhubung ke printer: COM5", Success}},
		{"disconnecting", printer.Event{State: printer.Disconnecting}, Message{"Memutuskan printer...", Info}},
		{"dropped", printer.Event{State: printer.Disconnected, Err: &printer.Error{Kind: printer.LinkDropped}}, Message{"Printer terputus", Failure}},
		{"disconnected", printer.Event{State: printer.Disconnected}, Message{"Printer diputuskan", Info}},
		{"connect failed", printer.Event{State: printer.Disconnected, Err: &printer.Error{Kind: printer.ConnectFailed}}, Message{}},
		{"cancelled", printer.Event{State: printer.Disconnected, Err: &printer.Error{Kind: printer.UserCancelled}}, Message{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Session(tt.event))
		})
	}
}

func TestConnect(t *testing.T) {
	assert.Equal(t, "Tidak ada printer yang dipilih", Connect(&printer.Error{Kind: printer.UserCancelled}).Text)
	assert.Equal(t, Info, Connect(printer.Errorf(printer.Busy, "connect", "session is connected")).Level)
	assert.Equal(t, "Printer tidak ditemukan", Connect(printer.Wrap(printer.DeviceNotFound, "discover", errors.New("empty"))).Text)
	assert.Equal(t, "Bluetooth mati, nyalakan terlebih dahulu", Connect(printer.ErrRadioDisabled).Text)

	m := Connect(&printer.Error{Kind: printer.ConnectFailed, Op: "connect", Err: errors.New("page timeout")})
	assert.Equal(t, "Gagal koneksi: connect: failed to connect to printer: page timeout", m.Text)
	assert.Equal(t, Failure, m.Level)
}

func TestPrint(t *testing.T) {
	assert.Equal(t, Message{"Struk berhasil dicetak!", Success}, Print(printjob.Outcome{}))
	assert.Equal(t, "Hubungkan printer Bluetooth terlebih dahulu!",
		Print(printjob.Outcome{Err: &printer.Error{Kind: printer.NotConnected, Op: "print"}}).Text)
	assert.Equal(t, "Gagal cetak: send: printer connection lost",
		Print(printjob.Outcome{Err: &printer.Error{Kind: printer.LinkDropped, Op: "send"}}).Text)
}

type refusingBackend struct{}

func (refusingBackend) Transport() printer.Transport { return printer.TransportBLE }
func (refusingBackend) Available() bool              { return true }
func (refusingBackend) Discover(context.Context) ([]printer.Device, error) {
	return []printer.Device{{Address: "66:22:B3:0A:11:02"}}, nil
}
func (refusingBackend) Connect(context.Context, printer.Device, func(error)) error {
	return errors.New("page timeout")
}
func (refusingBackend) Write(context.Context, []byte) error { return nil }
func (refusingBackend) Disconnect() error                   { return nil }
func (refusingBackend) ChunkPolicy() printer.ChunkPolicy    { return printer.ChunkPolicy{} }

func TestFailedConnectShownOnce(t *testing.T) {
	s := printer.NewSession(printer.WithBackends(refusingBackend{}))

	var shown []Message
	s.Subscribe(func(e printer.Event) {
		if m := Session(e); m.Text != "" {
			shown = append(shown, m)
		}
	})
	err := s.Connect(context.Background())
	shown = append(shown, Connect(err))

	var failures int
	for _, m := range shown {
		if m.Level == Failure {
			failures++
		}
	}
	assert.Equal(t, 1, failures)
	assert.Equal(t, Message{"Mencari printer Bluetooth...", Info}, shown[0])
	assert.Equal(t, "Gagal koneksi: connect: failed to connect to printer: page timeout", shown[len(shown)-1].Text)
	assert.Len(t, shown, 2)
}
