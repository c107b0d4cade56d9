package cli

import (
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"struk-print/internal/printer"
	"struk-print/internal/printjob"
)

type deviceJSON struct {
	Address   string `json:"address"`
	Name      string `json:"name"`
	Transport string `json:"transport"`
}

type backendJSON struct {
	Transport string       `json:"transport"`
	Available bool         `json:"available"`
	Devices   []deviceJSON `json:"devices"`
	Error     string       `json:"error,omitempty"`
}

// NewDevicesCommand creates the devices command.
func NewDevicesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List printers reachable over each transport",
		Long: `List the printers each transport can reach: paired devices for the
serial bridge, advertising printers for BLE.

Examples:
  struk devices
  struk devices --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDevices(rootOpts, cmd)
		},
	}
}

func runDevices(opts *RootOptions, cmd *cobra.Command) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	var (
		results []backendJSON
		found   int
		usable  bool
	)
	for _, b := range opts.backends() {
		r := backendJSON{Transport: string(b.Transport()), Available: b.Available(), Devices: []deviceJSON{}}
		if r.Available {
			usable = true
			devs, err := b.Discover(ctx)
			if err != nil {
				r.Error = err.Error()
			}
			for _, d := range devs {
				r.Devices = append(r.Devices, deviceJSON{d.Address, d.Name, string(d.Transport)})
			}
			found += len(devs)
		}
		results = append(results, r)
	}

	if opts.Format == "json" {
		if err := writeJSON(cmd.OutOrStdout(), results); err != nil {
			return err
		}
	} else {
		w := cmd.OutOrStdout()
		for _, r := range results {
			switch {
			case !r.Available:
				fmt.Fprintf(w, "%s %s\n", titleText(r.Transport), warnText("(unavailable)"))
				continue
			case r.Error != "":
				fmt.Fprintf(w, "%s %s\n", titleText(r.Transport), failText(r.Error))
			default:
				fmt.Fprintln(w, titleText(r.Transport))
			}
			for _, d := range r.Devices {
				fmt.Fprintf(w, "  %-20s %s\n", d.Address, d.Name)
			}
		}
	}

	if !usable {
		return WrapExitError(ExitFailure, "no printer transport", printer.ErrNoTransportAvailable)
	}
	if found == 0 {
		return NewExitError(ExitFailure, "no printers found")
	}
	return nil
}

// PrintOptions holds flags for the print command.
type PrintOptions struct {
	*RootOptions
	File   string
	Device string
}

type outcomeJSON struct {
	JobID     string `json:"job_id"`
	Kind      string `json:"kind"`
	ReceiptNo string `json:"receipt_no"`
	Device    string `json:"device,omitempty"`
	Bytes     int    `json:"bytes"`
	OK        bool   `json:"ok"`
	ErrorKind string `json:"error_kind,omitempty"`
	Error     string `json:"error,omitempty"`
}

// NewPrintCommand creates the print command.
func NewPrintCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PrintOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "print <kind>",
		Short: "Print a receipt",
		Long: `Connect to a printer, print one receipt and disconnect.

The transport follows printer.transport in the config: auto tries the
paired serial bridge first and falls back to BLE. --device picks a
printer by address or name, otherwise the first one found is used.

Examples:
  struk print pulsa -f pulsa.yaml
  struk print kios -f sale.yaml --device 66:22:B3:0A:11:02`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPrint(opts, cmd, args[0])
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "record file (YAML or JSON)")
	cmd.Flags().StringVarP(&opts.Device, "device", "d", "", "printer address or name")

	return cmd
}

func runPrint(opts *PrintOptions, cmd *cobra.Command, kindArg string) error {
	kind, err := parseKindArg(kindArg)
	if err != nil {
		return err
	}
	rec, err := opts.loadRecord(kind, opts.File)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read record", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	session := opts.session(opts.Device)
	unsubscribe := session.Subscribe(func(e printer.Event) {
		ev := opts.Log.Debug().Str("state", e.State.String())
		if e.Device.Address != "" {
			ev = ev.Str("device", e.Device.Address)
		}
		ev.Err(e.Err).Msg("session")
	})
	defer unsubscribe()

	orch := printjob.New(session, printjob.WithLogger(opts.Log), printjob.WithClock(opts.now))

	j, err := opts.openJournal()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	if j != nil {
		defer j.Close()
		detach := j.Attach(orch)
		defer detach()
	}

	if err := session.Connect(ctx); err != nil {
		return WrapExitError(ExitFailure, "failed to connect", err)
	}
	defer session.Disconnect()

	out := orch.PrintReceipt(ctx, kind, rec, opts.settings().Store)
	if err := reportOutcome(opts.RootOptions, cmd, out); err != nil {
		return err
	}
	if !out.OK() {
		return WrapExitError(ExitFailure, "print failed", out.Err)
	}
	return nil
}

func reportOutcome(opts *RootOptions, cmd *cobra.Command, out printjob.Outcome) error {
	if opts.Format == "json" {
		o := outcomeJSON{
			JobID:     out.JobID,
			Kind:      string(out.Kind),
			ReceiptNo: out.ReceiptNo,
			Device:    out.Device.Address,
			Bytes:     out.Bytes,
			OK:        out.OK(),
			ErrorKind: string(out.ErrKind()),
		}
		if out.Err != nil {
			o.Error = out.Err.Error()
		}
		return writeJSON(cmd.OutOrStdout(), o)
	}

	w := cmd.OutOrStdout()
	if out.OK() {
		fmt.Fprintf(w, "%s %s %s to %s (%d bytes, %s)\n",
			okText("printed"), out.Kind.Title(), boldText(out.ReceiptNo), out.Device,
			out.Bytes, out.Finished.Sub(out.Started).Round(time.Millisecond))
	} else {
		fmt.Fprintf(w, "%s %s %s\n", failText("failed"), out.Kind.Title(), boldText(out.ReceiptNo))
	}
	fmt.Fprintf(w, "%s %s\n", dimText("job:"), out.JobID)
	return nil
}
