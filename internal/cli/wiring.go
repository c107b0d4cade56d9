package cli

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"struk-print/internal/journal"
	"struk-print/internal/printer"
	"struk-print/internal/receipt"
)

func (o *RootOptions) backends() []printer.Backend {
	if o.Backends != nil {
		return o.Backends
	}
	return o.settings().Printer.Backends(o.Log)
}

// session returns a printer session that picks device when it is set,
// otherwise the configured device, otherwise the first one discovered.
func (o *RootOptions) session(device string) *printer.Session {
	p := o.settings().Printer
	if device == "" {
		device = p.Device
	}
	sopts := []printer.Option{
		printer.WithBackends(o.backends()...),
		printer.WithConnectTimeout(p.ConnectTimeout),
		printer.WithLogger(o.Log),
	}
	if device != "" {
		sopts = append(sopts, printer.WithSelector(printer.ByAddress(device)))
	}
	return printer.NewSession(sopts...)
}

// openJournal opens the configured journal, or returns nil when disabled
func (o *RootOptions) openJournal() (*journal.Journal, error) {
	jc := o.settings().Journal
	if !jc.Enabled {
		return nil, nil
	}
	return journal.Open(jc.Path, o.Log)
}

// loadRecord starts from a fresh record of kind and overlays the values
// found in the YAML or JSON file at path. An empty path yields the fresh
// record unchanged.
func (o *RootOptions) loadRecord(kind receipt.Kind, path string) (receipt.Record, error) {
	rec := receipt.NewRecord(kind, o.now())
	if path == "" {
		return rec, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var values map[string]any
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	for k, v := range values {
		rec[k] = v
	}
	return rec, nil
}

func parseKindArg(arg string) (receipt.Kind, error) {
	k, err := receipt.ParseKind(arg)
	if err != nil {
		return "", WrapExitError(ExitCommandError, "invalid receipt kind", err)
	}
	return k, nil
}
