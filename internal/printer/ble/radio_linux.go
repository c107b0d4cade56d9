//go:build linux

package ble

import (
	"context"
	"sync"

	gble "github.com/go-ble/ble"
	"github.com/go-ble/ble/linux"
	"github.com/rs/zerolog"
)

// hciRadio opens the HCI adapter on first use. Opening needs CAP_NET_ADMIN;
// when it fails the backend reports itself unavailable.
type hciRadio struct {
	log zerolog.Logger

	once sync.Once
	dev  gble.Device
	err  error
}

func newRadio(log zerolog.Logger) radio {
	return &hciRadio{log: log}
}

func (r *hciRadio) device() (gble.Device, error) {
	r.once.Do(func() {
		d, err := linux.NewDevice()
		if err != nil {
			r.log.Debug().Err(err).Msg("hci device unavailable")
			r.err = err
			return
		}
		r.dev = d
	})
	return r.dev, r.err
}

func (r *hciRadio) Available() bool {
	_, err := r.device()
	return err == nil
}

func (r *hciRadio) Scan(ctx context.Context, h func(advert)) error {
	d, err := r.device()
	if err != nil {
		return err
	}
	return d.Scan(ctx, false, func(a gble.Advertisement) {
		if !a.Connectable() {
			return
		}
		h(advert{
			Addr:     a.Addr().String(),
			Name:     a.LocalName(),
			Services: a.Services(),
			RSSI:     a.RSSI(),
		})
	})
}

func (r *hciRadio) Dial(ctx context.Context, addr string) (gattClient, error) {
	d, err := r.device()
	if err != nil {
		return nil, err
	}
	c, err := d.Dial(ctx, gble.NewAddr(addr))
	if err != nil {
		return nil, err
	}
	return c, nil
}
