// Package paths centralizes file and directory names used across the project.
// All data directory file names are defined here as the single source of truth.
package paths

import "path/filepath"

// ///////////////////////////////////////////////
// Constants
// ///////////////////////////////////////////////

// Data directory file names.
const (
	PIDFile        = "negar.pid"
	ConfigFile     = "config.toml"
	LogFile        = "negar.log"
	OffsetFile     = "offset"
	FontsDir       = "fonts"
	BackgroundsDir = "backgrounds"
)

// BinaryName is the installed daemon binary name.
const BinaryName = "negar"

// DataDirRel is the default data directory, relative to $HOME.
const DataDirRel = ".negar"

// ///////////////////////////////////////////////
// DataDir
// ///////////////////////////////////////////////

// DataDir provides path construction methods rooted at a data directory.
type DataDir struct {
	Root string
}

// PID returns the full path to the PID file.
func (d DataDir) PID() string { return filepath.Join(d.Root, PIDFile) }

// Config returns the full path to the config file.
func (d DataDir) Config() string { return filepath.Join(d.Root, ConfigFile) }

// Log returns the full path to the log file.
func (d DataDir) Log() string { return filepath.Join(d.Root, LogFile) }

// Offset returns the full path to the Telegram update offset file.
func (d DataDir) Offset() string { return filepath.Join(d.Root, OffsetFile) }

// Fonts returns the full path to the fonts directory.
func (d DataDir) Fonts() string { return filepath.Join(d.Root, FontsDir) }

// Backgrounds returns the full path to the backgrounds directory.
func (d DataDir) Backgrounds() string { return filepath.Join(d.Root, BackgroundsDir) }
