package trace

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/pierrec/lz4/v4"

	"github.com/jonahbeckford/memtrace/pkg/safeconv"
)

// Writer emits a trace stream. It is primarily used by tests and by tools
// converting foreign traces into the memtrace format.
type Writer struct {
	out       *bufio.Writer
	lz4Writer *lz4.Writer
	file      *os.File
	scratch   [binary.MaxVarintLen64]byte

	previous []uint64
}

// Create opens path for writing and emits the header. A path ending in .lz4
// produces an LZ4-compressed stream.
func Create(path string, meta Metadata) (*Writer, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create trace: %w", err)
	}

	w := &Writer{file: file}

	var sink io.Writer = file
	if strings.HasSuffix(path, lz4Extension) {
		w.lz4Writer = lz4.NewWriter(file)
		sink = w.lz4Writer
	}

	w.out = bufio.NewWriter(sink)

	writeErr := w.writeHeader(meta)
	if writeErr != nil {
		file.Close()

		return nil, writeErr
	}

	return w, nil
}

func (w *Writer) writeHeader(meta Metadata) error {
	if _, err := w.out.WriteString(magic); err != nil {
		return fmt.Errorf("write magic: %w", err)
	}

	w.writeString(meta.Executable)
	w.writeUvarint(safeconv.MustInt64ToUint64(meta.PID))
	w.writeUvarint(math.Float64bits(meta.SampleRate))
	w.writeUvarint(safeconv.MustIntToUint64(meta.WordSize))

	return w.out.Flush()
}

// WriteAlloc emits a sampled allocation, delta-encoding the backtrace
// against the previous one.
func (w *Writer) WriteAlloc(nsamples int64, backtrace []uint64) {
	common := 0
	for common < len(w.previous) && common < len(backtrace) && w.previous[common] == backtrace[common] {
		common++
	}

	w.out.WriteByte(tagAlloc)
	w.writeUvarint(safeconv.MustInt64ToUint64(nsamples))
	w.writeUvarint(safeconv.MustIntToUint64(common))
	w.writeUvarint(safeconv.MustIntToUint64(len(backtrace) - common))

	for _, code := range backtrace[common:] {
		w.writeUvarint(code)
	}

	w.previous = append(w.previous[:0], backtrace...)
}

// WritePromote emits a promotion event.
func (w *Writer) WritePromote(id uint64) {
	w.out.WriteByte(tagPromote)
	w.writeUvarint(id)
}

// WriteCollect emits a collection event.
func (w *Writer) WriteCollect(id uint64) {
	w.out.WriteByte(tagCollect)
	w.writeUvarint(id)
}

// WriteLocation emits a location definition.
func (w *Writer) WriteLocation(code uint64, frames []Frame) {
	w.out.WriteByte(tagLocation)
	w.writeUvarint(code)
	w.writeUvarint(safeconv.MustIntToUint64(len(frames)))

	for _, f := range frames {
		w.writeString(f.Filename)
		w.writeUvarint(safeconv.MustIntToUint64(f.Line))
		w.writeUvarint(safeconv.MustIntToUint64(f.StartChar))
		w.writeUvarint(safeconv.MustIntToUint64(f.EndChar))
		w.writeString(f.Defname)
	}
}

// Close flushes and closes the stream.
func (w *Writer) Close() error {
	if err := w.out.Flush(); err != nil {
		return fmt.Errorf("flush trace: %w", err)
	}

	if w.lz4Writer != nil {
		if err := w.lz4Writer.Close(); err != nil {
			return fmt.Errorf("close lz4 stream: %w", err)
		}
	}

	if err := w.file.Close(); err != nil {
		return fmt.Errorf("close trace: %w", err)
	}

	return nil
}

func (w *Writer) writeUvarint(v uint64) {
	n := binary.PutUvarint(w.scratch[:], v)
	w.out.Write(w.scratch[:n])
}

func (w *Writer) writeString(s string) {
	w.writeUvarint(uint64(len(s)))
	w.out.WriteString(s)
}
