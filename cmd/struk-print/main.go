package main

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"github.com/rs/zerolog"

	"struk-print/internal/config"
	"struk-print/internal/imaging"
	"struk-print/internal/journal"
	"struk-print/internal/logging"
	"struk-print/internal/printer"
	"struk-print/internal/printjob"
	"struk-print/internal/receipt"
	"struk-print/internal/status"
)

const (
	AppVersion = "1.0.0"
	AppName    = "Struk Print"
)

type App struct {
	fyneApp fyne.App
	window  fyne.Window
	cfg     *config.Config
	log     zerolog.Logger

	session *printer.Session
	orch    *printjob.Orchestrator
	journal *journal.Journal

	mu     sync.Mutex
	kind   receipt.Kind
	record receipt.Record

	// Widgets that need updating
	statusLabel *widget.Label
	connectBtn  *widget.Button
	printBtn    *widget.Button
	kindSelect  *widget.Select
	formBox     *fyne.Container
	previewImg  *canvas.Image
}

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		cfg = config.Default()
	}
	log := logging.New(cfg.Log.Level, os.Stderr)

	a := app.New()
	w := a.NewWindow(fmt.Sprintf("%s v%s", AppName, AppVersion))
	w.Resize(fyne.NewSize(900, 640))

	strukApp := &App{
		fyneApp: a,
		window:  w,
		cfg:     cfg,
		log:     log,
		kind:    receipt.Kios,
	}
	strukApp.record = receipt.NewRecord(strukApp.kind, time.Now())
	strukApp.setupPrinter()

	w.SetMainMenu(strukApp.buildMenu())
	w.SetContent(strukApp.buildUI())
	w.SetOnClosed(func() {
		strukApp.cleanup()
	})
	strukApp.updatePreview()
	w.ShowAndRun()
}

// setupPrinter wires the session, the orchestrator and the journal, and
// routes their events to the status bar.
func (a *App) setupPrinter() {
	p := a.cfg.Printer
	var selector printer.Selector = a.chooseDevice
	if p.Device != "" {
		selector = printer.ByAddress(p.Device)
	}
	a.session = printer.NewSession(
		printer.WithBackends(p.Backends(a.log)...),
		printer.WithSelector(selector),
		printer.WithConnectTimeout(p.ConnectTimeout),
		printer.WithLogger(a.log),
	)
	a.orch = printjob.New(a.session, printjob.WithLogger(a.log))

	if a.cfg.Journal.Enabled {
		j, err := journal.Open(a.cfg.Journal.Path, a.log)
		if err != nil {
			a.log.Error().Err(err).Msg("journal unavailable")
		} else {
			a.journal = j
			j.Attach(a.orch)
		}
	}

	a.session.Subscribe(func(e printer.Event) {
		a.setStatus(status.Session(e))
		a.refreshButtons(e.State)
	})
	a.orch.Subscribe(func(o printjob.Outcome) {
		a.setStatus(status.Print(o))
	})
}

func (a *App) buildMenu() *fyne.MainMenu {
	settingsItem := fyne.NewMenuItem("Pengaturan Toko", func() {
		a.showSettingsDialog()
	})
	historyItem := fyne.NewMenuItem("Riwayat Cetak", func() {
		a.showHistoryDialog()
	})
	aboutItem := fyne.NewMenuItem("About", func() {
		a.showAboutDialog()
	})

	fileMenu := fyne.NewMenu("File", settingsItem, historyItem)
	helpMenu := fyne.NewMenu("Help", aboutItem)

	return fyne.NewMainMenu(fileMenu, helpMenu)
}

func (a *App) showAboutDialog() {
	content := container.NewVBox(
		widget.NewLabelWithStyle(AppName, fyne.TextAlignCenter, fyne.TextStyle{Bold: true}),
		widget.NewLabel(fmt.Sprintf("Version %s", AppVersion)),
		widget.NewSeparator(),
		widget.NewLabel("Cetak struk kios ke printer thermal Bluetooth 58mm."),
		widget.NewLabel(""),
		widget.NewLabel("Built with Fyne and Go"),
	)

	dialog.ShowCustom("About", "Close", content, a.window)
}

func (a *App) cleanup() {
	a.session.Disconnect()
	if a.journal != nil {
		a.journal.Close()
	}
}

func (a *App) buildUI() fyne.CanvasObject {
	// Status bar
	a.statusLabel = widget.NewLabel("Printer belum terhubung")

	// === PRINTER SECTION ===
	a.connectBtn = widget.NewButton("Hubungkan Printer", func() {
		a.toggleConnection()
	})

	// === RECEIPT SECTION ===
	kinds := receipt.Kinds()
	titles := make([]string, len(kinds))
	for i, k := range kinds {
		titles[i] = k.Title
	}
	a.kindSelect = widget.NewSelect(titles, func(s string) {
		for _, k := range kinds {
			if k.Title == s {
				a.selectKind(k.Kind)
				break
			}
		}
	})

	newBtn := widget.NewButton("Struk Baru", func() {
		a.selectKind(a.currentKind())
	})

	a.printBtn = widget.NewButton("Cetak Struk", func() {
		a.print()
	})
	a.printBtn.Importance = widget.HighImportance
	a.printBtn.Disable()

	// Preview
	a.previewImg = canvas.NewImageFromImage(nil)
	a.previewImg.SetMinSize(fyne.NewSize(imaging.PaperWidth*3/4, 480))
	a.previewImg.FillMode = canvas.ImageFillContain

	a.formBox = container.NewVBox()
	a.kindSelect.SetSelected(a.kind.Title())

	// Left panel - printer, receipt kind and fields
	leftPanel := container.NewBorder(
		container.NewVBox(
			a.connectBtn,
			widget.NewSeparator(),
			widget.NewLabel("Jenis Struk"),
			a.kindSelect,
			widget.NewSeparator(),
		),
		container.NewVBox(
			widget.NewSeparator(),
			container.NewGridWithColumns(2, newBtn, a.printBtn),
		),
		nil, nil,
		container.NewVScroll(a.formBox),
	)

	// Right panel
	rightPanel := container.NewBorder(
		widget.NewLabelWithStyle("Preview", fyne.TextAlignCenter, fyne.TextStyle{Bold: true}),
		nil, nil, nil,
		container.NewVScroll(container.NewCenter(a.previewImg)),
	)

	content := container.NewHSplit(leftPanel, rightPanel)
	content.SetOffset(0.5)

	return container.NewBorder(
		nil,
		container.NewHBox(a.statusLabel),
		nil, nil,
		content,
	)
}

func (a *App) currentKind() receipt.Kind {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.kind
}

// selectKind starts a fresh record of kind and rebuilds the form for it
func (a *App) selectKind(k receipt.Kind) {
	a.mu.Lock()
	a.kind = k
	a.record = receipt.NewRecord(k, time.Now())
	rec := a.record
	a.mu.Unlock()

	a.formBox.Objects = []fyne.CanvasObject{buildForm(k, rec, &a.mu, a.updatePreview)}
	a.formBox.Refresh()
	a.updatePreview()
}

func (a *App) toggleConnection() {
	switch a.session.State() {
	case printer.Connected:
		go a.session.Disconnect()
		return
	case printer.Connecting:
		// aborts discovery and device selection
		go a.session.Disconnect()
		return
	}

	go func() {
		if err := a.session.Connect(context.Background()); err != nil {
			a.setStatus(status.Connect(err))
		}
	}()
}

func (a *App) refreshButtons(state printer.State) {
	switch state {
	case printer.Connected:
		a.connectBtn.SetText("Putuskan Printer")
		a.connectBtn.Enable()
		a.printBtn.Enable()
	case printer.Connecting:
		a.connectBtn.SetText("Batal")
		a.printBtn.Disable()
	case printer.Disconnecting:
		a.connectBtn.Disable()
		a.printBtn.Disable()
	default:
		a.connectBtn.SetText("Hubungkan Printer")
		a.connectBtn.Enable()
		a.printBtn.Disable()
	}
}

// chooseDevice asks the cashier which discovered printer to use
func (a *App) chooseDevice(ctx context.Context, devices []printer.Device) (printer.Device, error) {
	names := make([]string, len(devices))
	for i, d := range devices {
		names[i] = fmt.Sprintf("%s [%s]", d, d.Transport)
	}

	choice := make(chan int, 1)
	radio := widget.NewRadioGroup(names, nil)
	radio.SetSelected(names[0])

	d := dialog.NewCustomConfirm("Pilih Printer", "Hubungkan", "Batal", radio, func(ok bool) {
		if ok {
			for i, n := range names {
				if n == radio.Selected {
					choice <- i
					return
				}
			}
		}
		choice <- -1
	}, a.window)
	d.Show()

	select {
	case i := <-choice:
		if i < 0 {
			return printer.Device{}, &printer.Error{Kind: printer.UserCancelled, Op: "select"}
		}
		return devices[i], nil
	case <-ctx.Done():
		d.Hide()
		return printer.Device{}, ctx.Err()
	}
}

func (a *App) print() {
	a.mu.Lock()
	kind, rec := a.kind, a.record.Clone()
	a.mu.Unlock()

	a.setStatus(status.Message{Text: "Mencetak struk...", Level: status.Info})
	a.printBtn.Disable()

	go func() {
		out := a.orch.PrintReceipt(context.Background(), kind, rec, a.cfg.Store)
		if a.session.State() == printer.Connected {
			a.printBtn.Enable()
		}
		if out.OK() {
			a.log.Debug().Str("job", out.JobID).Msg("receipt printed")
		}
	}()
}

func (a *App) updatePreview() {
	a.mu.Lock()
	job := receipt.Build(a.kind, a.record, a.cfg.Store)
	a.mu.Unlock()

	img, err := imaging.RenderJob(job, imaging.Options{Margin: 16})
	if err != nil {
		a.log.Error().Err(err).Msg("preview failed")
		return
	}
	a.previewImg.Image = img
	a.previewImg.Refresh()
}

func (a *App) setStatus(m status.Message) {
	if m.Text == "" {
		return
	}
	text := m.Text
	switch m.Level {
	case status.Success:
		text = "✓ " + text
	case status.Failure:
		text = "✗ " + text
	}
	a.statusLabel.SetText(text)
}

func (a *App) showSettingsDialog() {
	name := widget.NewEntry()
	name.SetText(a.cfg.Store.Name)
	address := widget.NewEntry()
	address.SetText(a.cfg.Store.Address)
	phone := widget.NewEntry()
	phone.SetText(a.cfg.Store.Phone)

	items := []*widget.FormItem{
		widget.NewFormItem("Nama Toko", name),
		widget.NewFormItem("Alamat", address),
		widget.NewFormItem("Telepon", phone),
	}
	dialog.ShowForm("Pengaturan Toko", "Simpan", "Batal", items, func(ok bool) {
		if !ok {
			return
		}
		a.mu.Lock()
		a.cfg.Store = receipt.Store{Name: name.Text, Address: address.Text, Phone: phone.Text}
		a.mu.Unlock()

		path := a.cfg.ConfigPath
		if path == "" {
			path = config.SearchPaths()[0]
		}
		if err := a.cfg.Save(path); err != nil {
			dialog.ShowError(err, a.window)
			return
		}
		a.cfg.ConfigPath = path
		a.setStatus(status.Message{Text: "Pengaturan berhasil disimpan!", Level: status.Success})
		a.updatePreview()
	}, a.window)
}

func (a *App) showHistoryDialog() {
	if a.journal == nil {
		dialog.ShowInformation("Riwayat Cetak", "Riwayat cetak tidak aktif", a.window)
		return
	}
	entries, err := a.journal.Recent(context.Background(), 50)
	if err != nil {
		dialog.ShowError(err, a.window)
		return
	}

	lines := make([]string, len(entries))
	for i, e := range entries {
		result := "OK"
		if !e.OK {
			result = string(e.ErrorKind)
		}
		lines[i] = fmt.Sprintf("%s  %s  %s  %s",
			e.Finished.Local().Format("02/01 15:04"), e.ReceiptNo, e.Kind.Title(), result)
	}

	list := widget.NewList(
		func() int { return len(lines) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(id widget.ListItemID, o fyne.CanvasObject) { o.(*widget.Label).SetText(lines[id]) },
	)
	scroll := container.NewVScroll(list)
	scroll.SetMinSize(fyne.NewSize(520, 360))

	dialog.ShowCustom("Riwayat Cetak", "Tutup", scroll, a.window)
}
