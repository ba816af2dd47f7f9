// =============================================================================
// SAP Delivery Date Robot - Configuration Module
// =============================================================================
//
// This module loads the robot's configuration from a single YAML file. All
// paths and host timings live here and are handed to the batch runner at
// construction, so nothing in the robot reads ambient global state.
//
// SECTIONS:
//   input:   where the order/line/date rows come from
//   output:  CSV log, run history and archival
//   logging: log level and log file
//   sap:     session selection and host timings
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the robot configuration.
type MainConfig struct {
	Input   InputConfig   `yaml:"input"`
	Output  OutputConfig  `yaml:"output"`
	Logging LoggingConfig `yaml:"logging"`
	SAP     SAPConfig     `yaml:"sap"`
}

// InputConfig describes the input workbook.
type InputConfig struct {
	// File is the path to the .xlsx or .csv file with the rows to process.
	// Default: "./input/orders.xlsx"
	File string `yaml:"file"`

	// Sheet is the worksheet to read. Empty means the first sheet.
	Sheet string `yaml:"sheet"`

	// HeaderRow is the 1-based row holding the column headers.
	// Default: 1
	HeaderRow int `yaml:"header_row"`

	// Columns maps the logical fields to header names in the file.
	Columns ColumnNames `yaml:"columns"`

	// CSVDelimiter is used when File is a .csv file.
	// Default: ";"
	CSVDelimiter string `yaml:"csv_delimiter"`
}

// ColumnNames holds the header names of the three input columns.
type ColumnNames struct {
	Order   string `yaml:"order"`
	Line    string `yaml:"line"`
	NewDate string `yaml:"new_date"`
}

// OutputConfig controls where results are recorded.
type OutputConfig struct {
	// LogDir receives one CSV log per run.
	// Default: "./logs"
	LogDir string `yaml:"log_dir"`

	// LogFileFormat names the CSV log.
	// Placeholders: {timestamp}, {date}, {time}, {uuid}, {user}
	// Default: "date_changes_{timestamp}.csv"
	LogFileFormat string `yaml:"log_file_format"`

	// HistoryDB is the SQLite file keeping every run and outcome.
	// Set to "off" to disable the history.
	// Default: "./logs/history.db"
	HistoryDB string `yaml:"history_db"`

	// ArchiveInput copies the input file into ArchiveDir after a run.
	ArchiveInput bool `yaml:"archive_input"`

	// ArchiveDir receives archived input files.
	// Default: "./logs/archive"
	ArchiveDir string `yaml:"archive_dir"`

	// ArchiveSubdirs groups archived files by date (archive/2025/11/03/).
	ArchiveSubdirs bool `yaml:"archive_subdirs"`
}

// LoggingConfig controls the application log.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	// Default: "info"
	Level string `yaml:"level"`

	// File is the JSON log file. Empty disables file logging.
	// Default: "./logs/robot.log"
	File string `yaml:"file"`
}

// SAPConfig selects the host session and tunes the waits around host calls.
type SAPConfig struct {
	// ConnectionIndex selects the SAP GUI connection when several are open.
	// The robot never guesses: it always takes this index (default 0, the
	// first connection listed by the scripting engine).
	ConnectionIndex int `yaml:"connection_index"`

	// SessionIndex selects the session (window) inside the connection.
	SessionIndex int `yaml:"session_index"`

	// Transaction is the order change transaction code.
	// Default: "ME22N"
	Transaction string `yaml:"transaction"`

	// WaitAttempts and WaitInterval bound the polling for elements that are
	// rendered late by the host.
	// Defaults: 10 attempts, 500ms
	WaitAttempts int           `yaml:"wait_attempts"`
	WaitInterval time.Duration `yaml:"wait_interval"`

	// SettleDelay is waited after every screen round trip.
	// Default: 1s
	SettleDelay time.Duration `yaml:"settle_delay"`

	// SaveDelay is waited after pressing save.
	// Default: 1.5s
	SaveDelay time.Duration `yaml:"save_delay"`

	// MaxAttempts is how many times one item is tried when a fault occurs
	// before the save action. Nothing is retried after saving.
	// Default: 1
	MaxAttempts int `yaml:"max_attempts"`

	// RetryDelay is waited between attempts.
	// Default: 2s
	RetryDelay time.Duration `yaml:"retry_delay"`
}

// HistoryDisabled is the HistoryDB value that turns the run history off.
const HistoryDisabled = "off"

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// Default returns a configuration with every default applied.
func Default() *MainConfig {
	var config MainConfig
	applyDefaults(&config)
	return &config
}

// LoadMainConfig loads the configuration from a YAML file.
//
// When allowMissing is true and the file does not exist, the defaults are
// returned. This lets the robot run from a bare directory.
func LoadMainConfig(configPath string, allowMissing bool) (*MainConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if allowMissing && errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes, defaults and validates a YAML document.
func Parse(data []byte) (*MainConfig, error) {
	var config MainConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&config)

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// applyDefaults sets default values for any unset configuration options.
func applyDefaults(config *MainConfig) {
	if config.Input.File == "" {
		config.Input.File = "./input/orders.xlsx"
	}
	if config.Input.HeaderRow == 0 {
		config.Input.HeaderRow = 1
	}
	if config.Input.Columns.Order == "" {
		config.Input.Columns.Order = "Order"
	}
	if config.Input.Columns.Line == "" {
		config.Input.Columns.Line = "Line"
	}
	if config.Input.Columns.NewDate == "" {
		config.Input.Columns.NewDate = "NewDate"
	}
	if config.Input.CSVDelimiter == "" {
		config.Input.CSVDelimiter = ";"
	}

	if config.Output.LogDir == "" {
		config.Output.LogDir = "./logs"
	}
	if config.Output.LogFileFormat == "" {
		config.Output.LogFileFormat = "date_changes_{timestamp}.csv"
	}
	if config.Output.HistoryDB == "" {
		config.Output.HistoryDB = "./logs/history.db"
	}
	if config.Output.ArchiveDir == "" {
		config.Output.ArchiveDir = "./logs/archive"
	}

	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}
	if config.Logging.File == "" {
		config.Logging.File = "./logs/robot.log"
	}

	if config.SAP.Transaction == "" {
		config.SAP.Transaction = "ME22N"
	}
	if config.SAP.WaitAttempts == 0 {
		config.SAP.WaitAttempts = 10
	}
	if config.SAP.WaitInterval == 0 {
		config.SAP.WaitInterval = 500 * time.Millisecond
	}
	if config.SAP.SettleDelay == 0 {
		config.SAP.SettleDelay = time.Second
	}
	if config.SAP.SaveDelay == 0 {
		config.SAP.SaveDelay = 1500 * time.Millisecond
	}
	if config.SAP.MaxAttempts == 0 {
		config.SAP.MaxAttempts = 1
	}
	if config.SAP.RetryDelay == 0 {
		config.SAP.RetryDelay = 2 * time.Second
	}
}

// validate checks values that defaults cannot repair.
func validate(config *MainConfig) error {
	if config.Input.HeaderRow < 1 {
		return fmt.Errorf("input.header_row must be >= 1, got %d", config.Input.HeaderRow)
	}
	if len([]rune(config.Input.CSVDelimiter)) != 1 {
		return fmt.Errorf("input.csv_delimiter must be a single character, got %q", config.Input.CSVDelimiter)
	}

	cols := config.Input.Columns
	seen := map[string]bool{}
	for _, name := range []string{cols.Order, cols.Line, cols.NewDate} {
		key := strings.ToLower(strings.TrimSpace(name))
		if seen[key] {
			return fmt.Errorf("input.columns must be distinct, %q is used twice", name)
		}
		seen[key] = true
	}

	switch strings.ToLower(config.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", config.Logging.Level)
	}

	if config.SAP.ConnectionIndex < 0 || config.SAP.SessionIndex < 0 {
		return fmt.Errorf("sap.connection_index and sap.session_index must be >= 0")
	}
	if config.SAP.WaitAttempts < 1 {
		return fmt.Errorf("sap.wait_attempts must be >= 1, got %d", config.SAP.WaitAttempts)
	}
	if config.SAP.MaxAttempts < 1 {
		return fmt.Errorf("sap.max_attempts must be >= 1, got %d", config.SAP.MaxAttempts)
	}

	return nil
}

// HistoryEnabled reports whether runs are recorded in the SQLite history.
func (c *MainConfig) HistoryEnabled() bool {
	return !strings.EqualFold(strings.TrimSpace(c.Output.HistoryDB), HistoryDisabled)
}
