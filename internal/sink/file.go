package sink

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/efreitasn/matchbook/internal/domain"
)

// FileMode selects whether a dump replaces or extends the tape file.
type FileMode string

const (
	FileModeTruncate FileMode = "truncate"
	FileModeAppend   FileMode = "append"
)

// ParseFileMode parses a file mode token, case-insensitively.
func ParseFileMode(s string) (FileMode, error) {
	switch m := FileMode(strings.ToLower(strings.TrimSpace(s))); m {
	case FileModeTruncate, FileModeAppend:
		return m, nil
	default:
		return "", fmt.Errorf("unknown file mode %q, must be one of: truncate, append", s)
	}
}

// FileSink writes one "Price: <price>, Quantity: <qty>" line per trade.
type FileSink struct {
	path  string
	mode  FileMode
	scale domain.PriceScale
}

// NewFileSink creates a sink writing to path.
func NewFileSink(path string, mode FileMode, scale domain.PriceScale) *FileSink {
	return &FileSink{path: path, mode: mode, scale: scale}
}

// WriteTrades writes trades in tape order. The file is created if needed.
func (s *FileSink) WriteTrades(_ context.Context, trades []*domain.Trade) (err error) {
	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if s.mode == FileModeAppend {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}

	f, err := os.OpenFile(s.path, flags, 0o644)
	if err != nil {
		return fmt.Errorf("open tape file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close tape file: %w", cerr)
		}
	}()

	w := bufio.NewWriter(f)
	for _, t := range trades {
		if _, err := fmt.Fprintf(w, "Price: %s, Quantity: %d\n", s.scale.Format(t.Price), t.Quantity); err != nil {
			return fmt.Errorf("write tape file: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("write tape file: %w", err)
	}
	return nil
}
