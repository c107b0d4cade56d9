package receipt

import "time"

// FieldType controls how a field is edited
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldNumber   FieldType = "number"
	FieldSelect   FieldType = "select"
	FieldTextArea FieldType = "textarea"
	FieldItems    FieldType = "items"
)

// Field describes one editable receipt field
type Field struct {
	ID       string
	Label    string
	Type     FieldType
	Options  []string
	Default  any
	ReadOnly bool
}

var (
	payMethods  = []string{"Tunai", "Transfer", "QRIS", "E-Wallet"}
	banks       = []string{"BRI", "BNI", "BCA", "Mandiri", "BSI", "DANA", "OVO", "GoPay", "ShopeePay", "Lainnya"}
	adminFee    = Field{ID: "admin_fee", Label: "Biaya Admin", Type: FieldNumber, Default: 2500}
	customer    = Field{ID: "nama_pelanggan", Label: "Nama Pelanggan", Type: FieldText, Default: ""}
	tariffPower = Field{ID: "tarif_daya", Label: "Tarif/Daya", Type: FieldText, Default: "R1/900VA"}
	period      = Field{ID: "periode", Label: "Periode", Type: FieldText, Default: ""}
	penalty     = Field{ID: "denda", Label: "Denda", Type: FieldNumber, Default: 0}
)

func textField(id, label string) Field   { return Field{ID: id, Label: label, Type: FieldText, Default: ""} }
func numberField(id, label string) Field { return Field{ID: id, Label: label, Type: FieldNumber, Default: 0} }
func selectField(id, label string, opts []string, def string) Field {
	return Field{ID: id, Label: label, Type: FieldSelect, Options: opts, Default: def}
}

var schemas = map[Kind][]Field{
	Kios: {
		customer,
		{ID: "items", Label: "Daftar Item", Type: FieldItems, Default: []LineItem{{Quantity: 1}}},
		numberField("diskon", "Diskon (Rp)"),
		selectField("metode_bayar", "Metode Pembayaran", payMethods, "Tunai"),
		numberField("bayar", "Jumlah Bayar"),
	},
	Aplikasi: {
		customer,
		textField("nama_aplikasi", "Nama Aplikasi"),
		textField("versi", "Versi"),
		selectField("lisensi", "Tipe Lisensi", []string{"Personal", "Business", "Enterprise", "Lifetime"}, "Personal"),
		textField("kode_lisensi", "Kode Lisensi"),
		numberField("harga", "Harga"),
		selectField("metode_bayar", "Metode Pembayaran", payMethods[:3], "Tunai"),
	},
	Laptop: {
		customer,
		textField("no_hp", "No. HP Pelanggan"),
		textField("merk_laptop", "Merk/Tipe Laptop"),
		selectField("jenis_jasa", "Jenis Jasa", []string{
			"Perbaikan Hardware", "Instal Windows", "Instal Software",
			"Pemasangan Sparepart", "Service Ringan", "Service Berat",
		}, "Perbaikan Hardware"),
		{ID: "deskripsi", Label: "Deskripsi Pekerjaan", Type: FieldTextArea, Default: ""},
		{ID: "sparepart", Label: "Sparepart (jika ada)", Type: FieldText, Default: "-"},
		numberField("biaya_jasa", "Biaya Jasa"),
		numberField("biaya_sparepart", "Biaya Sparepart"),
		{ID: "garansi", Label: "Garansi", Type: FieldText, Default: "7 Hari"},
	},
	ListrikPra: {
		textField("id_pelanggan", "ID Pelanggan / No. Meter"),
		customer,
		tariffPower,
		numberField("nominal", "Nominal Token"),
		adminFee,
		textField("token", "Token (20 Digit)"),
		textField("kwh", "Jumlah kWh"),
	},
	ListrikPasca: {
		textField("id_pelanggan", "ID Pelanggan"),
		customer,
		tariffPower,
		period,
		textField("stand_meter", "Stand Meter"),
		numberField("tagihan", "Tagihan"),
		adminFee,
		penalty,
	},
	Transfer: {
		textField("pengirim", "Nama Pengirim"),
		textField("rek_pengirim", "No. Rek Pengirim"),
		selectField("bank_pengirim", "Bank Pengirim", banks, "BRI"),
		textField("penerima", "Nama Penerima"),
		textField("rek_penerima", "No. Rek Penerima"),
		selectField("bank_penerima", "Bank Tujuan", banks, "BCA"),
		numberField("nominal", "Nominal Transfer"),
		adminFee,
		textField("berita", "Berita Acara"),
	},
	Pulsa: {
		textField("no_hp", "Nomor HP"),
		selectField("operator", "Operator", []string{"Telkomsel", "Indosat", "XL", "Tri", "Smartfren", "Axis"}, "Telkomsel"),
		selectField("jenis", "Jenis", []string{"Pulsa Reguler", "Paket Data", "Paket Nelpon", "Paket SMS"}, "Pulsa Reguler"),
		numberField("nominal", "Nominal"),
		numberField("harga", "Harga Jual"),
		textField("sn", "Serial Number (SN)"),
	},
	Internet: {
		textField("id_pelanggan", "ID Pelanggan"),
		customer,
		selectField("provider", "Provider", []string{"IndiHome", "Biznet", "MyRepublic", "First Media", "MNC Play", "CBN", "Lainnya"}, "IndiHome"),
		textField("paket", "Paket"),
		period,
		numberField("tagihan", "Tagihan"),
		adminFee,
	},
	PDAM: {
		textField("id_pelanggan", "ID Pelanggan"),
		customer,
		textField("alamat", "Alamat"),
		period,
		textField("stand_meter", "Stand Meter (m³)"),
		textField("pemakaian", "Pemakaian (m³)"),
		numberField("tagihan", "Tagihan"),
		adminFee,
		penalty,
	},
	BPJS: {
		textField("no_peserta", "No. Peserta / VA"),
		{ID: "nama_pelanggan", Label: "Nama Peserta", Type: FieldText, Default: ""},
		selectField("segmen", "Segmen", []string{"BPJS Kesehatan", "BPJS Ketenagakerjaan"}, "BPJS Kesehatan"),
		{ID: "jumlah_peserta", Label: "Jumlah Peserta", Type: FieldNumber, Default: 1},
		period,
		numberField("premi", "Premi/Iuran"),
		adminFee,
		penalty,
	},
}

// Schema returns the editable fields of a kind, led by the receipt number and
// date. Unknown kinds have no fields.
func Schema(k Kind) []Field {
	fields, ok := schemas[k]
	if !ok {
		return nil
	}
	out := make([]Field, 0, len(fields)+2)
	out = append(out,
		Field{ID: "no_struk", Label: "No. Struk", Type: FieldText, ReadOnly: true},
		Field{ID: "tanggal", Label: "Tanggal", Type: FieldText, ReadOnly: true},
	)
	return append(out, fields...)
}

// NewRecord starts an editing session for a kind with every schema default
// filled in and a receipt number and date taken from now.
func NewRecord(k Kind, now time.Time) Record {
	rec := Record{}
	for _, f := range Schema(k) {
		switch f.ID {
		case "no_struk":
			rec[f.ID] = ReceiptNumber(now)
		case "tanggal":
			rec[f.ID] = FormatDate(now)
		default:
			if items, ok := f.Default.([]LineItem); ok {
				rec[f.ID] = append([]LineItem(nil), items...)
				continue
			}
			rec[f.ID] = f.Default
		}
	}
	return rec
}

// ReceiptNumber formats a receipt number as STRyyMMddHHmmss
func ReceiptNumber(t time.Time) string {
	return "STR" + t.Format("060102150405")
}

// FormatDate formats the printed receipt date
func FormatDate(t time.Time) string {
	return t.Format("02/01/2006 15:04")
}
