package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"
)

// Profile represents the assembler's defaults profile. Every field is a
// default only; the corresponding CLI flag always wins when given.
type Profile struct {
	// Section settings
	Sections struct {
		CodeOffset string `toml:"code_offset"`
		DataOffset string `toml:"data_offset"`
	} `toml:"sections"`

	// Field width settings
	Widths struct {
		Opcode uint `toml:"opcode"`
		Param1 uint `toml:"param1"`
		Param2 uint `toml:"param2"`
		Param3 uint `toml:"param3"`
	} `toml:"widths"`

	// Display settings
	Display struct {
		NumberFormat string `toml:"number_format"` // hex, dec, bin
		ColorOutput  bool   `toml:"color_output"`
	} `toml:"display"`

	// Logging settings
	Logging struct {
		OutputFile string `toml:"output_file"`
	} `toml:"logging"`
}

// DefaultProfile returns a profile with default values, matching the
// CLI's own built-in defaults (§3/§6): code offset 0, data offset 0x50,
// field widths 5/14/5/6, hex display.
func DefaultProfile() *Profile {
	p := &Profile{}

	// Section defaults
	p.Sections.CodeOffset = "0"
	p.Sections.DataOffset = "0x50"

	// Width defaults
	p.Widths.Opcode = 5
	p.Widths.Param1 = 14
	p.Widths.Param2 = 5
	p.Widths.Param3 = 6

	// Display defaults
	p.Display.NumberFormat = "hex"
	p.Display.ColorOutput = true

	// Logging defaults
	p.Logging.OutputFile = ""

	return p
}

// GetProfilePath returns the platform-specific profile file path
func GetProfilePath() string {
	var configDir string

	switch runtime.GOOS {
	case "windows":
		// Windows: %APPDATA%\polyasm\polyasm.toml
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		configDir = filepath.Join(configDir, "polyasm")

	case "darwin", "linux":
		// macOS/Linux: ~/.config/polyasm/polyasm.toml
		homeDir, err := os.UserHomeDir()
		if err != nil {
			// Fallback to current directory
			return "polyasm.toml"
		}
		configDir = filepath.Join(homeDir, ".config", "polyasm")

	default:
		// Unknown platform: use current directory
		return "polyasm.toml"
	}

	// Ensure directory exists
	if err := os.MkdirAll(configDir, 0750); err != nil {
		// If we can't create the directory, fall back to current directory
		return "polyasm.toml"
	}

	return filepath.Join(configDir, "polyasm.toml")
}

// GetLogPath returns the platform-specific log directory path, creating
// it if needed. The CLI's -l log is always written to <output>.log and
// does not use this directory.
func GetLogPath() string {
	var logDir string

	switch runtime.GOOS {
	case "windows":
		logDir = os.Getenv("APPDATA")
		if logDir == "" {
			logDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		logDir = filepath.Join(logDir, "polyasm", "logs")

	case "darwin", "linux":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "logs"
		}
		logDir = filepath.Join(homeDir, ".local", "share", "polyasm", "logs")

	default:
		return "logs"
	}

	if err := os.MkdirAll(logDir, 0750); err != nil {
		return "logs"
	}

	return logDir
}

// Load loads the profile from the default profile path
func Load() (*Profile, error) {
	return LoadFrom(GetProfilePath())
}

// LoadFrom loads the profile from the specified file, falling back to
// DefaultProfile if it doesn't exist
func LoadFrom(path string) (*Profile, error) {
	p := DefaultProfile()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return p, nil
	}

	if _, err := toml.DecodeFile(path, p); err != nil {
		return nil, fmt.Errorf("failed to parse profile file: %w", err)
	}

	return p, nil
}

// Save saves the profile to the default profile path
func (p *Profile) Save() error {
	return p.SaveTo(GetProfilePath())
}

// SaveTo saves the profile to the specified file
func (p *Profile) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create profile directory: %w", err)
	}

	f, err := os.Create(path) // #nosec G304 -- user profile file path
	if err != nil {
		return fmt.Errorf("failed to create profile file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close profile file: %w", closeErr)
		}
	}()

	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(p); err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}

	return nil
}
