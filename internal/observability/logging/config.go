package logging

import "fmt"

// Output formats
const (
	FormatText  = "text"
	FormatJSONL = "jsonl"
	FormatOff   = "off"
)

type Config struct {
	Format string
	Level  string
	Output string
	// OpID tags entries logged without a context
	OpID string
}

func DefaultConfig() Config {
	return Config{
		Format: FormatText,
		Level:  LevelWarn,
		Output: "stderr",
	}
}

// Validate rejects unknown formats and levels.
func (c Config) Validate() error {
	switch c.Format {
	case "", FormatText, FormatJSONL, FormatOff:
	default:
		return fmt.Errorf("logging: unknown format %q (use text, jsonl or off)", c.Format)
	}
	switch c.Level {
	case "", LevelDebug, LevelInfo, LevelWarn, LevelError:
	default:
		return fmt.Errorf("logging: unknown level %q", c.Level)
	}
	return nil
}

const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

func levelPriority(level string) int {
	switch level {
	case LevelDebug:
		return 0
	case LevelInfo:
		return 1
	case LevelWarn:
		return 2
	case LevelError:
		return 3
	default:
		return 1 // default to info
	}
}
