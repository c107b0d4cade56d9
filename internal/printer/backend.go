package printer

import (
	"context"
	"strings"
	"time"
)

// Transport identifies a backend family
type Transport string

const (
	TransportBridge Transport = "bridge"
	TransportBLE    Transport = "ble"
)

// Device describes a printer a backend can connect to. Address is a MAC on
// Linux, a COM port on Windows, or a BLE address.
type Device struct {
	Address   string
	Name      string
	Transport Transport
}

func (d Device) String() string {
	if d.Name == "" || d.Name == d.Address {
		return d.Address
	}
	return d.Name + " (" + d.Address + ")"
}

// ChunkPolicy bounds the size of each backend write and the pause between
// writes. Size <= 0 sends the whole buffer in one write.
type ChunkPolicy struct {
	Size  int
	Delay time.Duration
}

// Backend is one way of reaching a printer. A session drives exactly one
// backend at a time and never issues two calls against it concurrently.
type Backend interface {
	Transport() Transport
	// Available reports whether the runtime capability exists on this host
	Available() bool
	Discover(ctx context.Context) ([]Device, error)
	// Connect opens the link. onDrop must be called, at most once and
	// without backend locks held, when the remote side goes away outside
	// of Disconnect.
	Connect(ctx context.Context, dev Device, onDrop func(error)) error
	// Write sends one chunk
	Write(ctx context.Context, p []byte) error
	// Disconnect is unconditional and idempotent
	Disconnect() error
	ChunkPolicy() ChunkPolicy
}

// Selector picks the device to connect to. Returning an error aborts the
// connect; errors without a kind are reported as UserCancelled.
type Selector func(ctx context.Context, devices []Device) (Device, error)

// FirstDevice selects the first discovered device
func FirstDevice(_ context.Context, devices []Device) (Device, error) {
	return devices[0], nil
}

// ByAddress selects the device with the given address, falling back to a
// case-insensitive name match.
func ByAddress(addr string) Selector {
	return func(_ context.Context, devices []Device) (Device, error) {
		for _, d := range devices {
			if strings.EqualFold(d.Address, addr) {
				return d, nil
			}
		}
		for _, d := range devices {
			if strings.EqualFold(d.Name, addr) {
				return d, nil
			}
		}
		return Device{}, Errorf(DeviceNotFound, "select", "no device matches %q", addr)
	}
}
