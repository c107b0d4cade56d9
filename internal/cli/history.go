package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Limit int
}

type entryJSON struct {
	JobID     string    `json:"job_id"`
	Kind      string    `json:"kind"`
	ReceiptNo string    `json:"receipt_no"`
	Device    string    `json:"device"`
	Transport string    `json:"transport"`
	Bytes     int       `json:"bytes"`
	OK        bool      `json:"ok"`
	ErrorKind string    `json:"error_kind,omitempty"`
	Error     string    `json:"error,omitempty"`
	Finished  time.Time `json:"finished"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent print attempts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "number of entries")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	j, err := opts.openJournal()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	if j == nil {
		return NewExitError(ExitCommandError, "journal is disabled in the config")
	}
	defer j.Close()

	entries, err := j.Recent(cmd.Context(), opts.Limit)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}

	if opts.Format == "json" {
		out := make([]entryJSON, 0, len(entries))
		for _, e := range entries {
			out = append(out, entryJSON{
				JobID:     e.JobID,
				Kind:      string(e.Kind),
				ReceiptNo: e.ReceiptNo,
				Device:    e.Device,
				Transport: string(e.Transport),
				Bytes:     e.Bytes,
				OK:        e.OK,
				ErrorKind: string(e.ErrorKind),
				Error:     e.Error,
				Finished:  e.Finished,
			})
		}
		return writeJSON(cmd.OutOrStdout(), out)
	}

	w := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(w, "No prints recorded yet")
		return nil
	}
	for _, e := range entries {
		status := okText("OK")
		if !e.OK {
			kind := string(e.ErrorKind)
			if kind == "" {
				kind = "failed"
			}
			status = failText(kind)
		}
		fmt.Fprintf(w, "%s  %-14s %-16s %-20s %6dB  %s\n",
			dimText(e.Finished.Local().Format("2006-01-02 15:04:05")),
			e.Kind, e.ReceiptNo, e.Device, e.Bytes, status)
	}
	return nil
}
