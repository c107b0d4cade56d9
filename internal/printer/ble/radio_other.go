//go:build !linux

package ble

import (
	"context"

	"github.com/rs/zerolog"

	"struk-print/internal/printer"
)

// noRadio is used where no HCI backend is wired
type noRadio struct{}

func newRadio(zerolog.Logger) radio { return noRadio{} }

func (noRadio) Available() bool { return false }

func (noRadio) Scan(context.Context, func(advert)) error {
	return printer.ErrNoTransportAvailable
}

func (noRadio) Dial(context.Context, string) (gattClient, error) {
	return nil, printer.ErrNoTransportAvailable
}
