package main

import (
	"strconv"
	"strings"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"struk-print/internal/receipt"
)

// buildForm returns an editor for the schema fields of k. Every edit writes
// into rec while holding mu and then calls changed.
func buildForm(k receipt.Kind, rec receipt.Record, mu *sync.Mutex, changed func()) fyne.CanvasObject {
	set := func(id string, v any) {
		mu.Lock()
		rec[id] = v
		mu.Unlock()
		changed()
	}

	form := widget.NewForm()
	var items *itemsEditor

	for _, f := range receipt.Schema(k) {
		f := f
		mu.Lock()
		text := rec.Text(f.ID)
		if !rec.Has(f.ID) {
			text = ""
		}
		mu.Unlock()

		switch {
		case f.ReadOnly:
			form.Append(f.Label, widget.NewLabel(text))

		case f.Type == receipt.FieldItems:
			items = &itemsEditor{rec: rec, mu: mu, changed: changed, box: container.NewVBox()}
			items.rebuild()

		case f.Type == receipt.FieldNumber:
			e := widget.NewEntry()
			e.SetPlaceHolder("0")
			mu.Lock()
			if n := rec.Int(f.ID); n != 0 {
				e.SetText(strconv.FormatInt(n, 10))
			}
			mu.Unlock()
			e.OnChanged = func(s string) { set(f.ID, receipt.ParseRupiah(s)) }
			form.Append(f.Label, e)

		case f.Type == receipt.FieldSelect:
			s := widget.NewSelect(f.Options, nil)
			if text != "" {
				s.SetSelected(text)
			}
			s.OnChanged = func(v string) { set(f.ID, v) }
			form.Append(f.Label, s)

		case f.Type == receipt.FieldTextArea:
			e := widget.NewMultiLineEntry()
			e.SetText(text)
			e.SetMinRowsVisible(3)
			e.OnChanged = func(s string) { set(f.ID, s) }
			form.Append(f.Label, e)

		default:
			e := widget.NewEntry()
			e.SetText(text)
			e.OnChanged = func(s string) { set(f.ID, s) }
			form.Append(f.Label, e)
		}
	}

	if items == nil {
		return form
	}
	return container.NewVBox(
		form,
		widget.NewSeparator(),
		widget.NewLabelWithStyle("Daftar Barang", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		items.box,
	)
}

// itemsEditor edits the kios line item list
type itemsEditor struct {
	rec     receipt.Record
	mu      *sync.Mutex
	changed func()
	box     *fyne.Container
}

// update applies fn to a copy of the item list and stores it back
func (e *itemsEditor) update(fn func([]receipt.LineItem) []receipt.LineItem) {
	e.mu.Lock()
	e.rec["items"] = fn(e.rec.Items())
	e.mu.Unlock()
	e.changed()
}

func (e *itemsEditor) rebuild() {
	e.mu.Lock()
	list := e.rec.Items()
	e.mu.Unlock()

	rows := make([]fyne.CanvasObject, 0, len(list)+1)
	for i, it := range list {
		rows = append(rows, e.row(i, it))
	}

	add := widget.NewButtonWithIcon("Tambah Barang", theme.ContentAddIcon(), func() {
		e.update(func(items []receipt.LineItem) []receipt.LineItem {
			return append(items, receipt.LineItem{Quantity: 1})
		})
		e.rebuild()
	})
	rows = append(rows, add)

	e.box.Objects = rows
	e.box.Refresh()
}

func (e *itemsEditor) row(i int, it receipt.LineItem) fyne.CanvasObject {
	name := widget.NewEntry()
	name.SetPlaceHolder("Nama barang")
	name.SetText(it.Name)
	name.OnChanged = func(s string) {
		e.update(func(items []receipt.LineItem) []receipt.LineItem {
			items[i].Name = s
			return items
		})
	}

	qty := widget.NewEntry()
	qty.SetPlaceHolder("Qty")
	qty.SetText(strconv.FormatInt(it.Quantity, 10))
	qty.OnChanged = func(s string) {
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil || n < 0 {
			n = 0
		}
		e.update(func(items []receipt.LineItem) []receipt.LineItem {
			items[i].Quantity = n
			return items
		})
	}

	price := widget.NewEntry()
	price.SetPlaceHolder("Harga")
	if it.Price != 0 {
		price.SetText(strconv.FormatInt(it.Price, 10))
	}
	price.OnChanged = func(s string) {
		p := receipt.ParseRupiah(s)
		e.update(func(items []receipt.LineItem) []receipt.LineItem {
			items[i].Price = p
			return items
		})
	}

	remove := widget.NewButtonWithIcon("", theme.DeleteIcon(), func() {
		e.update(func(items []receipt.LineItem) []receipt.LineItem {
			return append(items[:i], items[i+1:]...)
		})
		e.rebuild()
	})

	return container.NewBorder(nil, nil, nil, remove,
		container.NewGridWithColumns(3, name, qty, price))
}
