package receipt

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestRecordInt(t *testing.T) {
	tests := []struct {
		name string
		v    any
		want int64
	}{
		{"absent", nil, 0},
		{"int", 52000, 52000},
		{"int64", int64(-3), -3},
		{"uint8", uint8(7), 7},
		{"float", 2500.9, 2500},
		{"nan", math.NaN(), 0},
		{"string", "125000", 125000},
		{"padded string", "  42 ", 42},
		{"leading digits", "12abc", 12},
		{"decimal string", "12.5", 12},
		{"signed string", "-15", -15},
		{"garbage", "abc", 0},
		{"empty", "", 0},
		{"json number", json.Number("900"), 900},
		{"bool", true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Record{"x": tt.v}.Int("x"))
		})
	}
}

func TestRecordText(t *testing.T) {
	rec := Record{"name": "Budi", "empty": "", "count": 3, "fee": 2.5}
	assert.Equal(t, "Budi", rec.Text("name"))
	assert.Equal(t, Placeholder, rec.Text("empty"))
	assert.Equal(t, Placeholder, rec.Text("missing"))
	assert.Equal(t, "3", rec.Text("count"))
	assert.Equal(t, "2.5", rec.Text("fee"))
	assert.Equal(t, "Tunai", rec.TextOr("empty", "Tunai"))
	assert.True(t, rec.Has("name"))
	assert.False(t, rec.Has("empty"))
}

func TestLineItemSubtotal(t *testing.T) {
	tests := []LineItem{
		{Quantity: 0, Price: 0},
		{Quantity: 0, Price: 5000},
		{Quantity: 3, Price: 0},
		{Quantity: 3, Price: 2500},
		{Quantity: 1000, Price: 999999},
	}
	for _, it := range tests {
		assert.Equal(t, it.Quantity*it.Price, it.Subtotal())
		it.Quantity++
		assert.Equal(t, it.Quantity*it.Price, it.Subtotal())
	}
}

func TestRecordItemsFromYAML(t *testing.T) {
	src := `
items:
  - nama: Kopi
    qty: 2
    harga: 3000
  - nama: Roti
    qty: "-1"
    harga: 4000
`
	var rec Record
	require.NoError(t, yaml.Unmarshal([]byte(src), &rec))

	items := rec.Items()
	require.Len(t, items, 2)
	assert.Equal(t, LineItem{Name: "Kopi", Quantity: 2, Price: 3000}, items[0])
	assert.Equal(t, LineItem{Name: "Roti", Quantity: 0, Price: 4000}, items[1])
}

func TestRecordItemsFromJSON(t *testing.T) {
	var rec Record
	require.NoError(t, json.Unmarshal([]byte(`{"items":[{"nama":"Teh","qty":1.0,"harga":"2500"}]}`), &rec))
	assert.Equal(t, []LineItem{{Name: "Teh", Quantity: 1, Price: 2500}}, rec.Items())
	assert.Nil(t, Record{}.Items())
}

func TestRecordClone(t *testing.T) {
	rec := Record{"a": "x", "items": []LineItem{{Name: "k", Quantity: 1, Price: 2}}}
	c := rec.Clone()
	c["a"] = "y"
	c["items"].([]LineItem)[0].Name = "z"
	assert.Equal(t, "x", rec["a"])
	assert.Equal(t, "k", rec.Items()[0].Name)
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind(" Listrik_Pasca ")
	require.NoError(t, err)
	assert.Equal(t, ListrikPasca, k)

	_, err = ParseKind("voucher")
	assert.ErrorContains(t, err, `unknown receipt kind "voucher"`)

	assert.Len(t, Kinds(), 10)
	assert.Equal(t, "Struk Pembayaran PDAM", PDAM.Title())
	assert.Equal(t, DefaultTitle, Kind("x").Title())
}

func TestSchemaAndNewRecord(t *testing.T) {
	now := time.Date(2026, 3, 7, 8, 5, 9, 0, time.Local)

	for _, info := range Kinds() {
		fields := Schema(info.Kind)
		require.GreaterOrEqual(t, len(fields), 3, info.Kind)
		assert.Equal(t, "no_struk", fields[0].ID)
		assert.True(t, fields[0].ReadOnly)
		assert.Equal(t, "tanggal", fields[1].ID)
	}
	assert.Nil(t, Schema(Kind("x")))

	rec := NewRecord(ListrikPasca, now)
	assert.Equal(t, "STR260307080509", rec["no_struk"])
	assert.Equal(t, "07/03/2026 08:05", rec["tanggal"])
	assert.Equal(t, int64(2500), rec.Int("admin_fee"))
	assert.Equal(t, "R1/900VA", rec.Text("tarif_daya"))
	assert.Equal(t, int64(0), rec.Int("denda"))

	kios := NewRecord(Kios, now)
	assert.Equal(t, []LineItem{{Quantity: 1}}, kios.Items())
	assert.Equal(t, "Tunai", kios.Text("metode_bayar"))

	// each editing session owns its item slice
	kios["items"].([]LineItem)[0].Name = "changed"
	assert.Equal(t, "", NewRecord(Kios, now).Items()[0].Name)
}

func TestFormatRupiah(t *testing.T) {
	assert.Equal(t, "Rp 0", FormatRupiah(0))
	assert.Equal(t, "Rp 500", FormatRupiah(500))
	assert.Equal(t, "Rp 5.000", FormatRupiah(5000))
	assert.Equal(t, "Rp 1.250.000", FormatRupiah(1250000))
	assert.Equal(t, "Rp -1.000", FormatRupiah(-1000))
}

func TestParseRupiah(t *testing.T) {
	tests := map[string]int64{
		"":             0,
		"52000":        52000,
		"52.000":       52000,
		"Rp 1.250.000": 1250000,
		" rp2.500 ":    2500,
		"-1.000":       -1000,
		"12,5":         0,
		"abc":          0,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseRupiah(in), in)
	}
	assert.Equal(t, int64(1250000), ParseRupiah(FormatRupiah(1250000)))
}

func TestRow(t *testing.T) {
	assert.Equal(t, "Nama"+spaces(24)+"Budi", Row("Nama", "Budi"))
	assert.Len(t, Row("Nama", "Budi"), 32)

	long := Row("Stand Meter Awal Sekali", "0001234-0005678")
	assert.Equal(t, "Stand Meter Awal Sekali 0001234-0005678", long)

	exact := Row("0123456789012345", "0123456789012345")
	assert.Equal(t, "0123456789012345 0123456789012345", exact)
}

func spaces(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = ' '
	}
	return string(b)
}
