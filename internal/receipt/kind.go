package receipt

import (
	"fmt"
	"strings"
)

// Kind identifies one of the receipt layouts
type Kind string

const (
	Kios         Kind = "kios"
	Aplikasi     Kind = "aplikasi"
	Laptop       Kind = "laptop"
	ListrikPra   Kind = "listrik_pra"
	ListrikPasca Kind = "listrik_pasca"
	Transfer     Kind = "transfer"
	Pulsa        Kind = "pulsa"
	Internet     Kind = "internet"
	PDAM         Kind = "pdam"
	BPJS         Kind = "bpjs"
)

// DefaultTitle is printed for a kind that has no catalogue entry
const DefaultTitle = "STRUK"

// Info describes a kind for menus
type Info struct {
	Kind        Kind
	Title       string
	Description string
}

var catalogue = []Info{
	{Kios, "Struk Kios", "Struk penjualan kios umum"},
	{Aplikasi, "Struk Pembelian Aplikasi", "Struk pembelian software/aplikasi"},
	{Laptop, "Struk Jasa Laptop", "Perbaikan, instal Windows, sparepart"},
	{ListrikPra, "Struk Listrik Prabayar", "Token listrik prabayar"},
	{ListrikPasca, "Struk Listrik Pascabayar", "Tagihan listrik pascabayar"},
	{Transfer, "Struk Transfer Dana", "Transfer antar rekening/bank"},
	{Pulsa, "Struk Pembelian Pulsa", "Pembelian pulsa & paket data"},
	{Internet, "Struk Pembayaran Internet", "Tagihan internet/WiFi"},
	{PDAM, "Struk Pembayaran PDAM", "Tagihan air PDAM"},
	{BPJS, "Struk Pembayaran BPJS", "BPJS Kesehatan & Ketenagakerjaan"},
}

// Kinds returns the catalogue in menu order
func Kinds() []Info {
	out := make([]Info, len(catalogue))
	copy(out, catalogue)
	return out
}

// ParseKind resolves a kind identifier, case-insensitively
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, info := range catalogue {
		if info.Kind == k {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown receipt kind %q", s)
}

// Title returns the heading printed on the receipt
func (k Kind) Title() string {
	for _, info := range catalogue {
		if info.Kind == k {
			return info.Title
		}
	}
	return DefaultTitle
}

func (k Kind) String() string {
	return string(k)
}
