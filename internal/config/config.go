package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"struk-print/internal/printer"
	"struk-print/internal/printer/ble"
	"struk-print/internal/printer/bridge"
	"struk-print/internal/receipt"
)

// Transport choices
const (
	TransportAuto   = "auto"
	TransportBridge = "bridge"
	TransportBLE    = "ble"
)

// Config represents the application configuration
type Config struct {
	Store   receipt.Store `yaml:"store"`
	Printer PrinterConfig `yaml:"printer"`
	Journal JournalConfig `yaml:"journal"`
	Log     LogConfig     `yaml:"log"`

	// ConfigPath is the path to the config file (not serialized)
	ConfigPath string `yaml:"-"`
}

// PrinterConfig selects and tunes the printer transports
type PrinterConfig struct {
	Transport        string        `yaml:"transport"` // auto, bridge or ble
	RFCOMMChannel    int           `yaml:"rfcomm_channel"`
	BaudRate         int           `yaml:"baud_rate"`
	BridgeChunkSize  int           `yaml:"bridge_chunk_size"` // 0 sends the whole job at once
	BLEChunkSize     int           `yaml:"ble_chunk_size"`
	BLEChunkDelay    time.Duration `yaml:"ble_chunk_delay"`
	ScanTimeout      time.Duration `yaml:"scan_timeout"`
	ConnectTimeout   time.Duration `yaml:"connect_timeout"`
	AcceptAllDevices bool          `yaml:"accept_all_devices"`
	Device           string        `yaml:"device,omitempty"` // preferred address or name
}

// JournalConfig controls the print history database
type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LogConfig controls logging
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Store: receipt.Store{
			Name:    "KIOS DIGITAL",
			Address: "Jl. Contoh No. 123, Kota",
			Phone:   "081234567890",
		},
		Printer: PrinterConfig{
			Transport:        TransportAuto,
			RFCOMMChannel:    1,
			BaudRate:         115200,
			BridgeChunkSize:  0,
			BLEChunkSize:     100,
			BLEChunkDelay:    50 * time.Millisecond,
			ScanTimeout:      8 * time.Second,
			ConnectTimeout:   15 * time.Second,
			AcceptAllDevices: true,
		},
		Journal: JournalConfig{Enabled: true, Path: "struk.db"},
		Log:     LogConfig{Level: "info"},
	}
}

// SearchPaths lists where Load looks when no path is given
func SearchPaths() []string {
	paths := []string{"struk.yaml", filepath.Join("configs", "struk.yaml")}
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".config")
		}
	}
	if dir != "" {
		paths = append(paths, filepath.Join(dir, "struk", "struk.yaml"))
	}
	return paths
}

// Load reads the configuration from path, or from the first file found in
// SearchPaths when path is empty. Finding no file there yields the defaults.
func Load(path string) (*Config, error) {
	candidates := []string{path}
	if path == "" {
		candidates = SearchPaths()
	}

	for _, p := range candidates {
		data, err := os.ReadFile(p)
		if errors.Is(err, fs.ErrNotExist) && path == "" {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}

		cfg := Default()
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", p, err)
		}
		cfg.ConfigPath = p
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		return cfg, nil
	}
	return Default(), nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate rejects settings the transports cannot honor
func (c *Config) Validate() error {
	p := c.Printer
	switch p.Transport {
	case TransportAuto, TransportBridge, TransportBLE:
	default:
		return fmt.Errorf("printer.transport: unknown transport %q", p.Transport)
	}
	if p.RFCOMMChannel < 1 || p.RFCOMMChannel > 30 {
		return fmt.Errorf("printer.rfcomm_channel: %d out of range 1-30", p.RFCOMMChannel)
	}
	if p.BaudRate <= 0 {
		return fmt.Errorf("printer.baud_rate: must be positive")
	}
	if p.BridgeChunkSize < 0 {
		return fmt.Errorf("printer.bridge_chunk_size: must not be negative")
	}
	if p.BLEChunkSize <= 0 || p.BLEChunkSize > 512 {
		return fmt.Errorf("printer.ble_chunk_size: %d out of range 1-512", p.BLEChunkSize)
	}
	for name, d := range map[string]time.Duration{
		"ble_chunk_delay": p.BLEChunkDelay,
		"scan_timeout":    p.ScanTimeout,
		"connect_timeout": p.ConnectTimeout,
	} {
		if d < 0 {
			return fmt.Errorf("printer.%s: must not be negative", name)
		}
	}
	if c.Journal.Enabled && c.Journal.Path == "" {
		return fmt.Errorf("journal.path: required when the journal is enabled")
	}
	return nil
}

// Bridge returns the serial bridge backend settings
func (p PrinterConfig) Bridge() bridge.Config {
	cfg := bridge.DefaultConfig()
	cfg.Channel = p.RFCOMMChannel
	cfg.BaudRate = p.BaudRate
	cfg.ChunkSize = p.BridgeChunkSize
	if p.ConnectTimeout > 0 {
		cfg.BindTimeout = p.ConnectTimeout
	}
	return cfg
}

// BLE returns the GATT backend settings
func (p PrinterConfig) BLE() ble.Config {
	return ble.Config{
		ChunkSize:   p.BLEChunkSize,
		ChunkDelay:  p.BLEChunkDelay,
		ScanTimeout: p.ScanTimeout,
		AcceptAll:   p.AcceptAllDevices,
	}
}

// Backends builds the configured transports in preference order. Auto tries
// the native serial bridge first and falls back to BLE.
func (p PrinterConfig) Backends(log zerolog.Logger) []printer.Backend {
	br := bridge.New(p.Bridge(), bridge.WithLogger(log))
	gatt := ble.New(p.BLE(), ble.WithLogger(log))

	switch p.Transport {
	case TransportBridge:
		return []printer.Backend{br}
	case TransportBLE:
		return []printer.Backend{gatt}
	default:
		return []printer.Backend{br, gatt}
	}
}
