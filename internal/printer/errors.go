package printer

import (
	"errors"
	"fmt"
)

// ErrorKind names one failure class. Every connect, send and disconnect
// resolves to success or exactly one kind.
type ErrorKind string

const (
	NoTransportAvailable     ErrorKind = "no_transport_available"
	BridgeUnavailable        ErrorKind = "bridge_unavailable"
	RadioDisabled            ErrorKind = "radio_disabled"
	DeviceNotFound           ErrorKind = "device_not_found"
	UserCancelled            ErrorKind = "user_cancelled"
	ConnectFailed            ErrorKind = "connect_failed"
	NoWritableCharacteristic ErrorKind = "no_writable_characteristic"
	WriteFailed              ErrorKind = "write_failed"
	LinkDropped              ErrorKind = "link_dropped"
	NotConnected             ErrorKind = "not_connected"
	Busy                     ErrorKind = "busy"
)

var kindText = map[ErrorKind]string{
	NoTransportAvailable:     "no printer transport available",
	BridgeUnavailable:        "native serial bridge unavailable",
	RadioDisabled:            "bluetooth adapter is off",
	DeviceNotFound:           "no printer found",
	UserCancelled:            "device selection cancelled",
	ConnectFailed:            "failed to connect to printer",
	NoWritableCharacteristic: "printer exposes no writable characteristic",
	WriteFailed:              "failed to write to printer",
	LinkDropped:              "printer connection lost",
	NotConnected:             "printer not connected",
	Busy:                     "printer session busy",
}

// Error is a classified printer failure
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	msg := kindText[e.Kind]
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so the sentinels below work with
// errors.Is regardless of Op and cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is
var (
	ErrNoTransportAvailable     = &Error{Kind: NoTransportAvailable}
	ErrBridgeUnavailable        = &Error{Kind: BridgeUnavailable}
	ErrRadioDisabled            = &Error{Kind: RadioDisabled}
	ErrDeviceNotFound           = &Error{Kind: DeviceNotFound}
	ErrUserCancelled            = &Error{Kind: UserCancelled}
	ErrConnectFailed            = &Error{Kind: ConnectFailed}
	ErrNoWritableCharacteristic = &Error{Kind: NoWritableCharacteristic}
	ErrWriteFailed              = &Error{Kind: WriteFailed}
	ErrLinkDropped              = &Error{Kind: LinkDropped}
	ErrNotConnected             = &Error{Kind: NotConnected}
	ErrBusy                     = &Error{Kind: Busy}
)

// Errorf builds a classified error with a formatted cause
func Errorf(kind ErrorKind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// Wrap classifies err. An err that already carries a kind keeps it.
func Wrap(kind ErrorKind, op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *Error
	if errors.As(err, &pe) {
		return err
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind carried by err, or "" for unclassified errors
func KindOf(err error) ErrorKind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}
