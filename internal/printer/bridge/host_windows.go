//go:build windows

package bridge

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sys/windows/registry"

	"struk-print/internal/printer"
)

const serialCommKey = `HARDWARE\DEVICEMAP\SERIALCOMM`

// windowsHost maps paired SPP printers to the COM ports Windows creates for
// them. There is nothing to bind and no radio switch to flip.
type windowsHost struct {
	log zerolog.Logger
}

func newHost(_ Config, log zerolog.Logger) host {
	return &windowsHost{log: log}
}

func (h *windowsHost) Available() bool {
	key, err := registry.OpenKey(registry.LOCAL_MACHINE, serialCommKey, registry.READ)
	if err != nil {
		return false
	}
	key.Close()
	return true
}

func (h *windowsHost) PoweredOn(context.Context) (bool, error) { return true, nil }

func (h *windowsHost) PowerOn(context.Context) error { return nil }

// Paired lists Bluetooth COM ports, or every COM port when none look like
// Bluetooth.
func (h *windowsHost) Paired(context.Context) ([]printer.Device, error) {
	ports, err := serialComm()
	if err != nil {
		return nil, err
	}

	var devices []printer.Device
	for _, p := range ports {
		if isBluetoothPort(p.name) {
			devices = append(devices, printer.Device{Address: p.port, Name: p.port + " " + p.name})
		}
	}
	if len(devices) == 0 {
		for _, p := range ports {
			devices = append(devices, printer.Device{Address: p.port, Name: p.port})
		}
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].Address < devices[j].Address })
	return devices, nil
}

func (h *windowsHost) Bind(_ context.Context, dev printer.Device, _ int) (link, error) {
	if !strings.HasPrefix(strings.ToUpper(dev.Address), "COM") {
		return nil, fmt.Errorf("invalid COM port: %s", dev.Address)
	}
	return comLink{path: comPath(dev.Address)}, nil
}

type comPort struct {
	name string
	port string
}

// serialComm reads the COM port map from the registry
func serialComm() ([]comPort, error) {
	key, err := registry.OpenKey(registry.LOCAL_MACHINE, serialCommKey, registry.READ)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", serialCommKey, err)
	}
	defer key.Close()

	names, err := key.ReadValueNames(-1)
	if err != nil {
		return nil, err
	}

	var ports []comPort
	for _, name := range names {
		val, _, err := key.GetStringValue(name)
		if err == nil {
			ports = append(ports, comPort{name: name, port: val})
		}
	}
	return ports, nil
}

// comLink is a plain COM port; Windows owns its lifetime
type comLink struct {
	path string
}

func (l comLink) Path() string { return l.path }
func (l comLink) Alive() bool  { return true }
func (l comLink) Close() error { return nil }
