//go:build linux

package bridge

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"struk-print/internal/printer"
)

type runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// linuxHost drives BlueZ through bluetoothctl and rfcomm
type linuxHost struct {
	run      runner
	lookPath func(string) (string, error)
	stat     func(string) (os.FileInfo, error)
	log      zerolog.Logger
}

func newHost(_ Config, log zerolog.Logger) host {
	return &linuxHost{run: runCommand, lookPath: exec.LookPath, stat: os.Stat, log: log}
}

func (h *linuxHost) Available() bool {
	for _, bin := range []string{"bluetoothctl", "rfcomm"} {
		if _, err := h.lookPath(bin); err != nil {
			return false
		}
	}
	return h.privilegeHelper() != ""
}

// privilegeHelper picks pkexec when present since it works from a GUI session
func (h *linuxHost) privilegeHelper() string {
	if os.Geteuid() == 0 {
		return "root"
	}
	for _, helper := range []string{"pkexec", "sudo"} {
		if _, err := h.lookPath(helper); err == nil {
			return helper
		}
	}
	return ""
}

func (h *linuxHost) privileged(args ...string) (string, []string) {
	switch h.privilegeHelper() {
	case "root":
		return args[0], args[1:]
	case "pkexec":
		return "pkexec", args
	default:
		return "sudo", append([]string{"-n"}, args...)
	}
}

func (h *linuxHost) PoweredOn(ctx context.Context) (bool, error) {
	out, err := h.run(ctx, "bluetoothctl", "show")
	if err != nil {
		return false, fmt.Errorf("bluetoothctl show: %w", err)
	}
	on, found := parsePowered(string(out))
	if !found {
		return false, fmt.Errorf("no bluetooth adapter")
	}
	return on, nil
}

func (h *linuxHost) PowerOn(ctx context.Context) error {
	if _, err := h.run(ctx, "bluetoothctl", "power", "on"); err != nil {
		return fmt.Errorf("bluetoothctl power on: %w", err)
	}
	on, err := h.PoweredOn(ctx)
	if err != nil {
		return err
	}
	if !on {
		return fmt.Errorf("adapter did not power on")
	}
	return nil
}

func (h *linuxHost) Paired(ctx context.Context) ([]printer.Device, error) {
	out, err := h.run(ctx, "bluetoothctl", "devices", "Paired")
	if err != nil {
		return nil, fmt.Errorf("failed to list paired devices: %w", err)
	}
	return parsePaired(string(out)), nil
}

// freeSlot finds an unused /dev/rfcommN
func (h *linuxHost) freeSlot(ctx context.Context) (string, int, error) {
	for i := 0; i < 10; i++ {
		devPath := fmt.Sprintf("/dev/rfcomm%d", i)
		out, _ := h.run(ctx, "rfcomm", "show", devPath)
		if len(out) == 0 || strings.Contains(string(out), "No such device") {
			return devPath, i, nil
		}
	}
	return "", -1, fmt.Errorf("no available RFCOMM device slots")
}

// Bind runs `rfcomm connect` in the background and returns once the device
// node appears.
func (h *linuxHost) Bind(ctx context.Context, dev printer.Device, channel int) (link, error) {
	devPath, devNum, err := h.freeSlot(ctx)
	if err != nil {
		return nil, err
	}
	if h.privilegeHelper() == "" {
		return nil, fmt.Errorf("root privileges required for RFCOMM")
	}

	procCtx, cancel := context.WithCancel(context.Background())
	name, args := h.privileged("rfcomm", "connect", fmt.Sprintf("/dev/rfcomm%d", devNum), dev.Address, fmt.Sprint(channel))
	cmd := exec.CommandContext(procCtx, name, args...)

	stderr, _ := cmd.StderrPipe()
	stdout, _ := cmd.StdoutPipe()

	log := h.log.With().Str("device", dev.Address).Str("path", devPath).Logger()
	log.Debug().Msg("rfcomm connect")

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start rfcomm: %w", err)
	}
	for _, r := range []io.Reader{stdout, stderr} {
		go func(r io.Reader) {
			scanner := bufio.NewScanner(r)
			for scanner.Scan() {
				log.Debug().Str("rfcomm", scanner.Text()).Msg("rfcomm output")
			}
		}(r)
	}

	l := &rfcommLink{path: devPath, cmd: cmd, cancel: cancel, host: h}

	t := time.NewTicker(500 * time.Millisecond)
	defer t.Stop()
	for {
		if _, err := h.stat(devPath); err == nil {
			// give the node a moment to settle
			time.Sleep(500 * time.Millisecond)
			return l, nil
		}
		select {
		case <-ctx.Done():
			_ = l.Close()
			return nil, fmt.Errorf("waiting for %s: %w", devPath, ctx.Err())
		case <-t.C:
		}
	}
}

// rfcommLink owns the rfcomm connect process
type rfcommLink struct {
	path   string
	cmd    *exec.Cmd
	cancel context.CancelFunc
	host   *linuxHost

	mu     sync.Mutex
	closed bool
}

func (l *rfcommLink) Path() string { return l.path }

func (l *rfcommLink) Alive() bool {
	_, err := l.host.stat(l.path)
	return err == nil
}

// Close stops the rfcomm process and releases the node
func (l *rfcommLink) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true

	l.cancel()
	name, args := l.host.privileged("rfcomm", "release", l.path)
	_ = exec.Command(name, args...).Run()

	if l.cmd != nil && l.cmd.Process != nil {
		_ = l.cmd.Process.Kill()
		_ = l.cmd.Wait()
	}
	return nil
}
