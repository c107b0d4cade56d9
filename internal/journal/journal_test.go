package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"struk-print/internal/printer"
	"struk-print/internal/printjob"
	"struk-print/internal/receipt"
)

func setupJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(":memory:", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func outcome(id string, at time.Time, err error) printjob.Outcome {
	return printjob.Outcome{
		JobID:     id,
		Kind:      receipt.Pulsa,
		ReceiptNo: "STR" + id,
		Record:    receipt.Record{"no_hp": "0812", "harga": 52000},
		Device:    printer.Device{Address: "66:22:B3:0A:11:02", Transport: printer.TransportBLE},
		Bytes:     321,
		Err:       err,
		Started:   at,
		Finished:  at.Add(time.Second),
	}
}

func TestRecordAndRecent(t *testing.T) {
	j := setupJournal(t)
	ctx := context.Background()
	t0 := time.Date(2026, 1, 15, 9, 30, 0, 0, time.UTC)

	require.NoError(t, j.Record(ctx, outcome("a", t0, nil)))
	require.NoError(t, j.Record(ctx, outcome("b", t0.Add(time.Minute), &printer.Error{Kind: printer.LinkDropped, Op: "send"})))
	require.NoError(t, j.Record(ctx, outcome("c", t0.Add(2*time.Minute), nil)))

	entries, err := j.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "c", entries[0].JobID)
	assert.Equal(t, "b", entries[1].JobID)

	b := entries[1]
	assert.False(t, b.OK)
	assert.Equal(t, printer.LinkDropped, b.ErrorKind)
	assert.Equal(t, "send: printer connection lost", b.Error)
	assert.Equal(t, receipt.Pulsa, b.Kind)
	assert.Equal(t, "STRb", b.ReceiptNo)
	assert.Equal(t, printer.TransportBLE, b.Transport)
	assert.Equal(t, 321, b.Bytes)
	assert.Equal(t, int64(52000), b.Record.Int("harga"))
	assert.Equal(t, t0.Add(time.Minute), b.Started)
	assert.True(t, entries[0].OK)

	all, err := j.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestRecentSubSecondOrder(t *testing.T) {
	j := setupJournal(t)
	ctx := context.Background()
	t0 := time.Date(2026, 1, 15, 9, 30, 5, 0, time.UTC)

	// inserted out of order so the id tiebreak cannot help
	for _, o := range []struct {
		id string
		at time.Duration
	}{
		{"late", 500 * time.Millisecond},
		{"whole", 0},
		{"mid", 120 * time.Millisecond},
		{"early", 100 * time.Millisecond},
	} {
		require.NoError(t, j.Record(ctx, outcome(o.id, t0.Add(o.at), nil)))
	}

	entries, err := j.Recent(ctx, 10)
	require.NoError(t, err)
	var ids []string
	for _, e := range entries {
		ids = append(ids, e.JobID)
	}
	assert.Equal(t, []string{"late", "mid", "early", "whole"}, ids)
	assert.Equal(t, t0.Add(120*time.Millisecond+time.Second), entries[1].Finished)
}

func TestDuplicateJob(t *testing.T) {
	j := setupJournal(t)
	o := outcome("dup", time.Now(), nil)
	require.NoError(t, j.Record(context.Background(), o))
	assert.Error(t, j.Record(context.Background(), o))
}

type connected struct{}

func (connected) State() printer.State { return printer.Connected }
func (connected) Device() (printer.Device, bool) {
	return printer.Device{Address: "COM5", Transport: printer.TransportBridge}, true
}
func (connected) Send(context.Context, []byte) error { return nil }

func TestAttach(t *testing.T) {
	j := setupJournal(t)
	o := printjob.New(connected{})
	detach := j.Attach(o)

	rec := receipt.Record{"no_struk": "STR1", "items": []receipt.LineItem{{Name: "Kopi", Quantity: 2, Price: 3000}}}
	out := o.PrintReceipt(context.Background(), receipt.Kios, rec, receipt.Store{Name: "X"})
	require.True(t, out.OK())

	detach()
	o.PrintReceipt(context.Background(), receipt.Kios, rec, receipt.Store{Name: "X"})

	entries, err := j.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, out.JobID, entries[0].JobID)
	assert.Equal(t, "COM5", entries[0].Device)
	assert.Equal(t, []receipt.LineItem{{Name: "Kopi", Quantity: 2, Price: 3000}}, entries[0].Record.Items())
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "struk.db")
	j, err := Open(path, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, j.Record(context.Background(), outcome("x", time.Now(), nil)))
	require.NoError(t, j.Close())

	j, err = Open(path, zerolog.Nop())
	require.NoError(t, err)
	defer j.Close()
	entries, err := j.Recent(context.Background(), 5)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
