package receipt

import (
	"strconv"

	"struk-print/internal/escpos"
)

// sheet wraps the byte builder with the receipt row vocabulary
type sheet struct {
	*escpos.Builder
}

func (s sheet) row(label, value string) sheet {
	s.Line(Row(label, value))
	return s
}

func (s sheet) total(label, value string) sheet {
	s.Command(escpos.BoldOn)
	s.Line(Row(label, value))
	s.Command(escpos.BoldOff)
	return s
}

func (s sheet) divider() sheet {
	s.Line(divider)
	return s
}

// Build renders one receipt into a complete print job: header, the
// kind-specific body, footer and paper cut. The output depends only on its
// arguments.
func Build(k Kind, rec Record, store Store) []byte {
	s := sheet{escpos.New()}
	header(s, k, rec, store)
	if body, ok := bodies[k]; ok {
		body(s, rec)
	}
	footer(s)
	return s.Bytes()
}

func header(s sheet, k Kind, rec Record, store Store) {
	s.Command(escpos.Init, escpos.AlignCenter, escpos.BoldOn, escpos.DoubleSize)
	s.Line(store.Name)
	s.Command(escpos.NormalSize, escpos.BoldOff)
	s.Line(store.Address)
	s.Line("Telp: " + store.Phone)
	s.Line(doubleDivider)
	s.Command(escpos.BoldOn)
	s.Line(k.Title())
	s.Command(escpos.BoldOff)
	s.Line(doubleDivider)
	s.Command(escpos.AlignLeft)
	s.Line("No: " + rec.Text("no_struk"))
	s.Line("Tgl: " + rec.Text("tanggal"))
	s.divider()
}

func footer(s sheet) {
	s.divider()
	s.Command(escpos.AlignCenter, escpos.BoldOn)
	s.Line("Terima Kasih!")
	s.Command(escpos.BoldOff)
	s.Line("Simpan struk sebagai bukti")
	s.Command(escpos.Feed5, escpos.CutPaper)
}

var bodies = map[Kind]func(sheet, Record){
	Kios:         kiosBody,
	Aplikasi:     aplikasiBody,
	Laptop:       laptopBody,
	ListrikPra:   listrikPraBody,
	ListrikPasca: listrikPascaBody,
	Transfer:     transferBody,
	Pulsa:        pulsaBody,
	Internet:     internetBody,
	PDAM:         pdamBody,
	BPJS:         bpjsBody,
}

// Totals is the arithmetic of a kiosk sale
type Totals struct {
	Subtotal int64
	Discount int64
	Total    int64
	Paid     int64
	Change   int64
}

// KiosTotals sums the line items and derives total and change
func KiosTotals(rec Record) Totals {
	var t Totals
	for _, it := range rec.Items() {
		t.Subtotal = addSat(t.Subtotal, it.Subtotal())
	}
	t.Discount = rec.Int("diskon")
	t.Total = subSat(t.Subtotal, t.Discount)
	t.Paid = rec.Int("bayar")
	if t.Paid > t.Total {
		t.Change = subSat(t.Paid, t.Total)
	}
	return t
}

func kiosBody(s sheet, d Record) {
	if d.Has("nama_pelanggan") {
		s.row("Pelanggan", d.Text("nama_pelanggan")).divider()
	}
	for _, it := range d.Items() {
		name := it.Name
		if name == "" {
			name = Placeholder
		}
		s.Line(name)
		s.row("  "+strconv.FormatInt(it.Quantity, 10)+" x "+FormatRupiah(it.Price), FormatRupiah(it.Subtotal()))
	}
	t := KiosTotals(d)
	s.divider().row("Subtotal", FormatRupiah(t.Subtotal))
	if t.Discount > 0 {
		s.row("Diskon", "-"+FormatRupiah(t.Discount))
	}
	s.total("TOTAL", FormatRupiah(t.Total)).
		divider().
		row("Bayar ("+d.TextOr("metode_bayar", "Tunai")+")", FormatRupiah(t.Paid)).
		row("Kembali", FormatRupiah(t.Change))
}

func aplikasiBody(s sheet, d Record) {
	s.row("Pelanggan", d.Text("nama_pelanggan")).divider().
		row("Aplikasi", d.Text("nama_aplikasi")).
		row("Versi", d.Text("versi")).
		row("Lisensi", d.Text("lisensi")).
		row("Kode", d.Text("kode_lisensi")).divider().
		total("TOTAL", FormatRupiah(d.Int("harga"))).
		row("Bayar", d.TextOr("metode_bayar", "Tunai"))
}

func laptopBody(s sheet, d Record) {
	service, parts := d.Int("biaya_jasa"), d.Int("biaya_sparepart")
	s.row("Pelanggan", d.Text("nama_pelanggan")).
		row("No. HP", d.Text("no_hp")).
		row("Laptop", d.Text("merk_laptop")).divider().
		row("Jasa", d.Text("jenis_jasa")).
		row("Deskripsi", d.Text("deskripsi")).
		row("Sparepart", d.Text("sparepart")).divider().
		row("Biaya Jasa", FormatRupiah(service)).
		row("Biaya Part", FormatRupiah(parts)).
		total("TOTAL", FormatRupiah(sum(service, parts))).divider().
		row("Garansi", d.Text("garansi"))
}

func listrikPraBody(s sheet, d Record) {
	amount, admin := d.Int("nominal"), d.Int("admin_fee")
	s.row("ID Pel", d.Text("id_pelanggan")).
		row("Nama", d.Text("nama_pelanggan")).
		row("Tarif/Daya", d.Text("tarif_daya")).divider()
	s.Command(escpos.AlignCenter, escpos.BoldOn)
	s.Line(d.TextOr("token", "--------------------"))
	s.Command(escpos.BoldOff, escpos.AlignLeft)
	s.row("kWh", d.Text("kwh")).divider().
		row("Nominal", FormatRupiah(amount)).
		row("Admin", FormatRupiah(admin)).
		total("TOTAL", FormatRupiah(sum(amount, admin)))
}

// penaltyRows emits bill, admin and the optional penalty, then the bold total
func penaltyRows(s sheet, billLabel string, bill, admin, penalty int64) {
	s.row(billLabel, FormatRupiah(bill)).row("Admin", FormatRupiah(admin))
	if penalty > 0 {
		s.row("Denda", FormatRupiah(penalty))
	} else {
		penalty = 0
	}
	s.total("TOTAL", FormatRupiah(sum(bill, admin, penalty)))
}

func listrikPascaBody(s sheet, d Record) {
	s.row("ID Pel", d.Text("id_pelanggan")).
		row("Nama", d.Text("nama_pelanggan")).
		row("Tarif/Daya", d.Text("tarif_daya")).
		row("Periode", d.Text("periode")).
		row("Stand Meter", d.Text("stand_meter")).divider()
	penaltyRows(s, "Tagihan", d.Int("tagihan"), d.Int("admin_fee"), d.Int("denda"))
}

func transferBody(s sheet, d Record) {
	amount, admin := d.Int("nominal"), d.Int("admin_fee")
	s.row("Pengirim", d.Text("pengirim")).
		row("Rek Asal", d.Text("rek_pengirim")).
		row("Bank", d.Text("bank_pengirim")).divider().
		row("Penerima", d.Text("penerima")).
		row("Rek Tujuan", d.Text("rek_penerima")).
		row("Bank Tujuan", d.Text("bank_penerima"))
	if d.Has("berita") {
		s.row("Berita", d.Text("berita"))
	}
	s.divider().
		row("Nominal", FormatRupiah(amount)).
		row("Admin", FormatRupiah(admin)).
		total("TOTAL", FormatRupiah(sum(amount, admin)))
}

func pulsaBody(s sheet, d Record) {
	s.row("No. HP", d.Text("no_hp")).
		row("Operator", d.Text("operator")).
		row("Jenis", d.Text("jenis")).divider().
		row("Nominal", FormatRupiah(d.Int("nominal"))).
		row("SN", d.Text("sn")).
		total("HARGA", FormatRupiah(d.Int("harga")))
}

func internetBody(s sheet, d Record) {
	bill, admin := d.Int("tagihan"), d.Int("admin_fee")
	s.row("ID Pel", d.Text("id_pelanggan")).
		row("Nama", d.Text("nama_pelanggan")).
		row("Provider", d.Text("provider")).
		row("Paket", d.Text("paket")).
		row("Periode", d.Text("periode")).divider().
		row("Tagihan", FormatRupiah(bill)).
		row("Admin", FormatRupiah(admin)).
		total("TOTAL", FormatRupiah(sum(bill, admin)))
}

func pdamBody(s sheet, d Record) {
	s.row("ID Pel", d.Text("id_pelanggan")).
		row("Nama", d.Text("nama_pelanggan")).
		row("Alamat", d.Text("alamat")).
		row("Periode", d.Text("periode")).divider().
		row("Stand Meter", d.Text("stand_meter")+" m3").
		row("Pemakaian", d.Text("pemakaian")+" m3")
	penaltyRows(s, "Tagihan", d.Int("tagihan"), d.Int("admin_fee"), d.Int("denda"))
}

func bpjsBody(s sheet, d Record) {
	s.row("No. Peserta", d.Text("no_peserta")).
		row("Nama", d.Text("nama_pelanggan")).
		row("Segmen", d.Text("segmen")).
		row("Jml Peserta", d.TextOr("jumlah_peserta", "1")).
		row("Periode", d.Text("periode")).divider()
	penaltyRows(s, "Premi/Iuran", d.Int("premi"), d.Int("admin_fee"), d.Int("denda"))
}
