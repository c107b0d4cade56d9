//go:build !linux && !windows

package bridge

import (
	"context"

	"github.com/rs/zerolog"

	"struk-print/internal/printer"
)

// noHost reports the bridge missing so the session falls back to BLE
type noHost struct{}

func newHost(Config, zerolog.Logger) host { return noHost{} }

func (noHost) Available() bool { return false }

func (noHost) PoweredOn(context.Context) (bool, error) { return false, printer.ErrBridgeUnavailable }

func (noHost) PowerOn(context.Context) error { return printer.ErrBridgeUnavailable }

func (noHost) Paired(context.Context) ([]printer.Device, error) {
	return nil, printer.ErrBridgeUnavailable
}

func (noHost) Bind(context.Context, printer.Device, int) (link, error) {
	return nil, printer.ErrBridgeUnavailable
}
