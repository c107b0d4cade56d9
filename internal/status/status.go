// Package status turns session events and print outcomes into the short
// messages shown to the cashier.
package status

import (
	"errors"

	"struk-print/internal/printer"
	"struk-print/internal/printjob"
)

// Level is how a message should be presented
type Level int

const (
	Info Level = iota
	Success
	Failure
)

// Message is one line for the status bar
type Message struct {
	Text  string
	Level Level
}

// Session describes a session state change. The zero Message means there
// is nothing to show.
func Session(e printer.Event) Message {
	switch e.State {
	case printer.Connecting:
		return Message{"Mencari printer Bluetooth...", Info}
	case printer.Connected:
		return Message{"Terhubung ke printer: " + deviceName(e.Device), Success}
	case printer.Disconnecting:
		return Message{"Memutuskan printer...", Info}
	}
	if errors.Is(e.Err, printer.ErrLinkDropped) {
		return Message{"Printer terputus", Failure}
	}
	if e.Err != nil {
		// a failed connect, reported once through Connect
		return Message{}
	}
	return Message{"Printer diputuskan", Info}
}

// Connect describes a failed connect attempt
func Connect(err error) Message {
	switch printer.KindOf(err) {
	case printer.UserCancelled:
		return Message{"Tidak ada printer yang dipilih", Info}
	case printer.NoTransportAvailable:
		return Message{"Bluetooth tidak tersedia di perangkat ini", Failure}
	case printer.BridgeUnavailable:
		return Message{"Koneksi serial Bluetooth tidak tersedia", Failure}
	case printer.RadioDisabled:
		return Message{"Bluetooth mati, nyalakan terlebih dahulu", Failure}
	case printer.DeviceNotFound:
		return Message{"Printer tidak ditemukan", Failure}
	case printer.Busy:
		return Message{"Printer sedang terhubung", Info}
	}
	return Message{"Gagal koneksi: " + err.Error(), Failure}
}

// Print describes the outcome of a print job
func Print(o printjob.Outcome) Message {
	if o.OK() {
		return Message{"Struk berhasil dicetak!", Success}
	}
	if o.ErrKind() == printer.NotConnected {
		return Message{"Hubungkan printer Bluetooth terlebih dahulu!", Failure}
	}
	return Message{"Gagal cetak: " + o.Err.Error(), Failure}
}

func deviceName(d printer.Device) string {
	if d.Name != "" {
		return d.Name
	}
	return d.Address
}
