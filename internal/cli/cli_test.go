package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"struk-print/internal/config"
	"struk-print/internal/escpos"
	"struk-print/internal/imaging"
	"struk-print/internal/printer"
	"struk-print/internal/receipt"
)

type fakeBackend struct {
	transport printer.Transport
	available bool
	devices   []printer.Device
	writeErr  error

	mu          sync.Mutex
	connected   printer.Device
	writes      [][]byte
	disconnects int
}

func (f *fakeBackend) Transport() printer.Transport { return f.transport }
func (f *fakeBackend) Available() bool              { return f.available }

func (f *fakeBackend) Discover(context.Context) ([]printer.Device, error) {
	out := make([]printer.Device, len(f.devices))
	for i, d := range f.devices {
		d.Transport = f.transport
		out[i] = d
	}
	return out, nil
}

func (f *fakeBackend) Connect(_ context.Context, dev printer.Device, _ func(error)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = dev
	return nil
}

func (f *fakeBackend) Write(_ context.Context, p []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, append([]byte(nil), p...))
	return f.writeErr
}

func (f *fakeBackend) Disconnect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnects++
	return nil
}

func (f *fakeBackend) ChunkPolicy() printer.ChunkPolicy { return printer.ChunkPolicy{} }

func (f *fakeBackend) sent() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return bytes.Join(f.writes, nil)
}

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

var t0 = time.Date(2026, 1, 15, 9, 30, 0, 0, time.Local)

func testOptions(t *testing.T, backends ...printer.Backend) *RootOptions {
	t.Helper()
	cfg := config.Default()
	cfg.Journal.Path = filepath.Join(t.TempDir(), "struk.db")
	return &RootOptions{
		Config:   cfg,
		Backends: backends,
		Now:      func() time.Time { return t0 },
	}
}

func run(t *testing.T, opts *RootOptions, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand(opts)
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func writeRecord(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rec.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const pulsaRecord = `no_hp: "081234567890"
operator: XL
nominal: 50000
harga: 52000
`

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "struk", cmd.Use)

	for _, name := range []string{"kinds", "template", "preview", "devices", "print", "history"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}

	format := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "text", format.DefValue)
}

func TestInvalidFormat(t *testing.T) {
	_, err := run(t, testOptions(t), "kinds", "--format", "xml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestKinds(t *testing.T) {
	opts := testOptions(t)
	out, err := run(t, opts, "kinds")
	require.NoError(t, err)
	assert.Contains(t, out, "listrik_pasca")
	assert.Contains(t, out, "Struk Listrik Pascabayar")
	assert.Contains(t, out, "Token listrik prabayar")

	out, err = run(t, opts, "kinds", "--format", "json")
	require.NoError(t, err)
	var kinds []map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &kinds))
	require.Len(t, kinds, len(receipt.Kinds()))
	assert.Equal(t, "kios", kinds[0]["kind"])
}

func TestTemplate(t *testing.T) {
	opts := testOptions(t)
	out, err := run(t, opts, "template", "pulsa")
	require.NoError(t, err)

	var rec map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &rec))
	assert.Equal(t, "STR260115093000", rec["no_struk"])
	assert.Equal(t, "15/01/2026 09:30", rec["tanggal"])
	assert.Equal(t, "Telkomsel", rec["operator"])
	assert.Equal(t, 0, rec["harga"])

	out, err = run(t, opts, "template", "KIOS", "--format", "json")
	require.NoError(t, err)
	var kios receipt.Record
	require.NoError(t, json.Unmarshal([]byte(out), &kios))
	assert.Equal(t, []receipt.LineItem{{Quantity: 1}}, kios.Items())
	assert.Equal(t, "Tunai", kios.Text("metode_bayar"))

	_, err = run(t, opts, "template", "laundry")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestPreview(t *testing.T) {
	opts := testOptions(t)
	path := writeRecord(t, pulsaRecord)

	out, err := run(t, opts, "preview", "pulsa", "-f", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Struk Pembelian Pulsa")
	assert.Contains(t, out, "081234567890")
	assert.Contains(t, out, "Rp 52.000")
	assert.Contains(t, out, "STR260115093000")

	out, err = run(t, opts, "preview", "pulsa", "-f", path, "--hex")
	require.NoError(t, err)
	assert.Contains(t, out, "00000000  1b 40")

	out, err = run(t, opts, "preview", "pulsa", "-f", path, "--format", "json")
	require.NoError(t, err)
	var doc escpos.Document
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.True(t, doc.Cut)
	assert.NotEmpty(t, doc.Lines)

	img := filepath.Join(t.TempDir(), "pulsa.png")
	out, err = run(t, opts, "preview", "pulsa", "-f", path, "--png", img)
	require.NoError(t, err)
	assert.Contains(t, out, img)
	f, err := os.Open(img)
	require.NoError(t, err)
	defer f.Close()
	decoded, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, imaging.PaperWidth, decoded.Bounds().Dx())
}

func TestPreviewBadRecord(t *testing.T) {
	opts := testOptions(t)

	_, err := run(t, opts, "preview", "pulsa", "-f", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = run(t, opts, "preview", "pulsa", "-f", writeRecord(t, "harga: [52000"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestDevices(t *testing.T) {
	br := &fakeBackend{transport: printer.TransportBridge}
	gatt := &fakeBackend{transport: printer.TransportBLE, available: true, devices: []printer.Device{
		{Address: "66:22:B3:0A:11:02", Name: "RPP02N"},
	}}
	opts := testOptions(t, br, gatt)

	out, err := run(t, opts, "devices")
	require.NoError(t, err)
	assert.Contains(t, out, "bridge (unavailable)")
	assert.Contains(t, out, "66:22:B3:0A:11:02")
	assert.Contains(t, out, "RPP02N")

	out, err = run(t, opts, "devices", "--format", "json")
	require.NoError(t, err)
	var results []backendJSON
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 2)
	assert.False(t, results[0].Available)
	assert.Equal(t, []deviceJSON{{"66:22:B3:0A:11:02", "RPP02N", "ble"}}, results[1].Devices)
}

func TestDevicesNoTransport(t *testing.T) {
	opts := testOptions(t, &fakeBackend{transport: printer.TransportBLE})
	_, err := run(t, opts, "devices")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.True(t, errors.Is(err, printer.ErrNoTransportAvailable))
}

func TestPrintAndHistory(t *testing.T) {
	gatt := &fakeBackend{transport: printer.TransportBLE, available: true, devices: []printer.Device{
		{Address: "66:22:B3:0A:11:02", Name: "RPP02N"},
	}}
	opts := testOptions(t, gatt)
	path := writeRecord(t, pulsaRecord)

	out, err := run(t, opts, "print", "pulsa", "-f", path)
	require.NoError(t, err)
	assert.Contains(t, out, "printed")
	assert.Contains(t, out, "STR260115093000")
	assert.Contains(t, out, "RPP02N (66:22:B3:0A:11:02)")

	rec, err := opts.loadRecord(receipt.Pulsa, path)
	require.NoError(t, err)
	assert.Equal(t, receipt.Build(receipt.Pulsa, rec, opts.Config.Store), gatt.sent())
	assert.Equal(t, 1, gatt.disconnects)

	out, err = run(t, opts, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "pulsa")
	assert.Contains(t, out, "STR260115093000")
	assert.Contains(t, out, "OK")

	out, err = run(t, opts, "history", "--format", "json")
	require.NoError(t, err)
	var entries []entryJSON
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 1)
	assert.True(t, entries[0].OK)
	assert.Equal(t, "66:22:B3:0A:11:02", entries[0].Device)
	assert.Equal(t, "ble", entries[0].Transport)
	assert.Equal(t, len(gatt.sent()), entries[0].Bytes)
}

func TestPrintDeviceFlag(t *testing.T) {
	gatt := &fakeBackend{transport: printer.TransportBLE, available: true, devices: []printer.Device{
		{Address: "66:22:B3:0A:11:02", Name: "RPP02N"},
		{Address: "DC:0D:30:00:00:01", Name: "MTP-II"},
	}}
	opts := testOptions(t, gatt)

	_, err := run(t, opts, "print", "kios", "--device", "mtp-ii")
	require.NoError(t, err)
	assert.Equal(t, "DC:0D:30:00:00:01", gatt.connected.Address)

	_, err = run(t, opts, "print", "kios", "--device", "00:00:00:00:00:00")
	require.Error(t, err)
	assert.True(t, errors.Is(err, printer.ErrDeviceNotFound))
}

func TestPrintFailure(t *testing.T) {
	gatt := &fakeBackend{transport: printer.TransportBLE, available: true, writeErr: errors.New("gatt write rejected"),
		devices: []printer.Device{{Address: "66:22:B3:0A:11:02", Name: "RPP02N"}}}
	opts := testOptions(t, gatt)

	out, err := run(t, opts, "print", "pulsa")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.True(t, errors.Is(err, printer.ErrWriteFailed))
	assert.Contains(t, out, "failed")

	out, err = run(t, opts, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "write_failed")
}

func TestPrintNoTransport(t *testing.T) {
	opts := testOptions(t, &fakeBackend{transport: printer.TransportBridge})
	_, err := run(t, opts, "print", "pulsa")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.True(t, errors.Is(err, printer.ErrNoTransportAvailable))

	out, err := run(t, opts, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "No prints recorded yet")
}

func TestHistoryDisabled(t *testing.T) {
	opts := testOptions(t)
	opts.Config.Journal.Enabled = false
	_, err := run(t, opts, "history")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestPaperLine(t *testing.T) {
	assert.Equal(t, "TOTAL", paperLine(escpos.Line{Text: "TOTAL"}))
	assert.Equal(t, "          TERIMA KASIH", paperLine(escpos.Line{Text: "TERIMA KASIH", Style: escpos.Style{Align: escpos.Center}}))
	assert.Equal(t, "            K I O S", paperLine(escpos.Line{Text: "KIOS", Style: escpos.Style{Align: escpos.Center, Double: true}}))
}
