package cli

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"struk-print/internal/escpos"
	"struk-print/internal/imaging"
	"struk-print/internal/receipt"
)

// NewKindsCommand creates the kinds command.
func NewKindsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "kinds",
		Short: "List the receipt kinds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds := receipt.Kinds()
			if rootOpts.Format == "json" {
				type kindJSON struct {
					Kind        string `json:"kind"`
					Title       string `json:"title"`
					Description string `json:"description"`
				}
				out := make([]kindJSON, 0, len(kinds))
				for _, k := range kinds {
					out = append(out, kindJSON{string(k.Kind), k.Title, k.Description})
				}
				return writeJSON(cmd.OutOrStdout(), out)
			}

			w := cmd.OutOrStdout()
			for _, k := range kinds {
				fmt.Fprintf(w, "%s %s\n", boldText(fmt.Sprintf("%-14s", k.Kind)), k.Title)
				fmt.Fprintf(w, "%15s%s\n", "", dimText(k.Description))
			}
			return nil
		},
	}
}

// NewTemplateCommand creates the template command.
func NewTemplateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "template <kind>",
		Short: "Print a record file with the defaults of a receipt kind",
		Long: `Print a YAML record holding every field of a receipt kind with its
default value and a fresh receipt number. Edit it and pass it to
preview or print with -f.

Examples:
  struk template pulsa > pulsa.yaml
  struk template kios --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKindArg(args[0])
			if err != nil {
				return err
			}
			rec := receipt.NewRecord(kind, rootOpts.now())

			if rootOpts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), rec)
			}
			data, err := yaml.Marshal(rec)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

// PreviewOptions holds flags for the preview command.
type PreviewOptions struct {
	*RootOptions
	File string
	PNG  string
	Hex  bool
}

// NewPreviewCommand creates the preview command.
func NewPreviewCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PreviewOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "preview <kind>",
		Short: "Show what a receipt will look like on paper",
		Long: `Build the ESC/POS job for a receipt and show the printed lines,
a hex dump of the job, or a PNG rendering of the paper strip.

Examples:
  struk preview pulsa -f pulsa.yaml
  struk preview kios -f sale.yaml --png sale.png
  struk preview bpjs --hex`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPreview(opts, cmd, args[0])
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "record file (YAML or JSON)")
	cmd.Flags().StringVar(&opts.PNG, "png", "", "write a PNG rendering to this path")
	cmd.Flags().BoolVar(&opts.Hex, "hex", false, "dump the raw job bytes")

	return cmd
}

func runPreview(opts *PreviewOptions, cmd *cobra.Command, kindArg string) error {
	kind, err := parseKindArg(kindArg)
	if err != nil {
		return err
	}
	rec, err := opts.loadRecord(kind, opts.File)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read record", err)
	}
	job := receipt.Build(kind, rec, opts.settings().Store)
	w := cmd.OutOrStdout()

	if opts.PNG != "" {
		img, err := imaging.RenderJob(job, imaging.Options{Margin: 16})
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to render preview", err)
		}
		f, err := os.Create(opts.PNG)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to create image", err)
		}
		defer f.Close()
		if err := imaging.EncodePNG(f, img); err != nil {
			return WrapExitError(ExitCommandError, "failed to write image", err)
		}
		fmt.Fprintf(w, "%s %s (%dx%d)\n", okText("wrote"), opts.PNG, img.Bounds().Dx(), img.Bounds().Dy())
		return nil
	}

	if opts.Hex {
		fmt.Fprint(w, hex.Dump(job))
		return nil
	}

	doc := escpos.Decode(job)
	if opts.Format == "json" {
		return writeJSON(w, doc)
	}
	for _, l := range doc.Lines {
		fmt.Fprintln(w, paperLine(l))
	}
	if doc.Cut {
		fmt.Fprintln(w, dimText(strings.Repeat("- ", escpos.LineWidth/2)))
	}
	fmt.Fprintf(w, "%s %d bytes\n", dimText("job:"), len(job))
	return nil
}

// paperLine lays out one decoded line the way it lands on the paper
func paperLine(l escpos.Line) string {
	width := escpos.LineWidth
	text := l.Text
	if l.Style.Double {
		width /= 2
		text = strings.Join(strings.Split(text, ""), " ")
	}

	pad := 0
	switch l.Style.Align {
	case escpos.Center:
		pad = (width - len(l.Text)) / 2
	case escpos.Right:
		pad = width - len(l.Text)
	}
	if l.Style.Double {
		pad *= 2
	}
	if pad > 0 {
		text = strings.Repeat(" ", pad) + text
	}

	if l.Style.Bold || l.Style.Double {
		text = boldText(text)
	}
	return text
}
