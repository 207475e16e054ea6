// Package output writes and reads JSONL record files: one JSON object per
// line, UTF-8 with accented characters kept literal.
package output

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/sampa-labs/brgen-cli/internal/model"
)

// Writer appends JSON lines to a file through a buffered encoder. Callers
// flush per batch and Close when done.
type Writer struct {
	f   *os.File
	buf *bufio.Writer
	enc *json.Encoder
}

// NewWriter opens path for JSONL writing, creating parent directories as
// needed. With appendMode set, existing lines are kept and new ones land at
// the end; otherwise the file is truncated.
func NewWriter(path string, appendMode bool) (*Writer, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, eris.Wrapf(err, "output: create directory %s", dir)
		}
	}

	flags := os.O_CREATE | os.O_WRONLY
	if appendMode {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, eris.Wrapf(err, "output: open %s", path)
	}

	buf := bufio.NewWriter(f)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	return &Writer{f: f, buf: buf, enc: enc}, nil
}

// Write encodes v as one line.
func (w *Writer) Write(v any) error {
	if err := w.enc.Encode(v); err != nil {
		return eris.Wrap(err, "output: encode record")
	}
	return nil
}

// WriteBatch encodes each record and flushes the buffer, so a completed
// batch is on disk even if a later one fails.
func (w *Writer) WriteBatch(records []model.SampleRecord) error {
	for i := range records {
		if err := w.Write(&records[i]); err != nil {
			return err
		}
	}
	return w.Flush()
}

// Flush pushes buffered lines to the file.
func (w *Writer) Flush() error {
	if err := w.buf.Flush(); err != nil {
		return eris.Wrap(err, "output: flush")
	}
	return nil
}

// Close flushes and closes the file.
func (w *Writer) Close() error {
	if err := w.buf.Flush(); err != nil {
		w.f.Close()
		return eris.Wrap(err, "output: flush on close")
	}
	if err := w.f.Close(); err != nil {
		return eris.Wrap(err, "output: close")
	}
	return nil
}

// ReadRecords decodes every line of a JSONL file written by Writer.
func ReadRecords(path string) ([]model.SampleRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "output: open %s", path)
	}
	defer f.Close()

	var records []model.SampleRecord
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		raw := sc.Bytes()
		if len(raw) == 0 {
			continue
		}
		var rec model.SampleRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, eris.Wrapf(err, "output: decode line %d of %s", line, path)
		}
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrapf(err, "output: scan %s", path)
	}
	return records, nil
}
