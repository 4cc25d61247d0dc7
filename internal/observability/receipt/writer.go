package receipt

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Writer persists receipts.
type Writer interface {
	Write(r Receipt) error
	Close() error
}

// Mode selects how receipts accumulate in the file.
type Mode string

const (
	// ModeOverwrite keeps only the latest receipt, as indented JSON.
	ModeOverwrite Mode = "overwrite"
	// ModeAppend keeps a history, one JSON object per line.
	ModeAppend Mode = "append"
)

// receipts name rule files and plan paths of the host
const receiptFileMode = 0o600

// ParseMode validates a mode flag; empty means overwrite.
func ParseMode(mode string) (Mode, error) {
	switch Mode(mode) {
	case "", ModeOverwrite:
		return ModeOverwrite, nil
	case ModeAppend:
		return ModeAppend, nil
	default:
		return "", fmt.Errorf("unknown receipt mode %q (use overwrite or append)", mode)
	}
}

type fileWriter struct {
	mu   sync.Mutex
	file *os.File
	mode Mode
}

// NewWriter opens path for receipts, creating parent directories.
func NewWriter(path string, mode string) (Writer, error) {
	m, err := ParseMode(mode)
	if err != nil {
		return nil, err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create receipt directory: %w", err)
		}
	}

	flag := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if m == ModeAppend {
		flag = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	f, err := os.OpenFile(path, flag, receiptFileMode)
	if err != nil {
		return nil, fmt.Errorf("failed to open receipt file: %w", err)
	}
	return &fileWriter{file: f, mode: m}, nil
}

func (w *fileWriter) Write(r Receipt) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var (
		data []byte
		err  error
	)
	if w.mode == ModeAppend {
		data, err = json.Marshal(r)
	} else {
		data, err = json.MarshalIndent(r, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal receipt: %w", err)
	}

	if _, err := w.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write receipt: %w", err)
	}
	return nil
}

func (w *fileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}
