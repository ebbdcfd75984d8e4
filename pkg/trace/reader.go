package trace

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/pierrec/lz4/v4"

	"github.com/jonahbeckford/memtrace/pkg/safeconv"
)

// maxBacktraceDepth bounds a single backtrace; deeper records indicate a
// corrupt stream rather than a real program.
const maxBacktraceDepth = 1 << 20

// Reader consumes a trace stream event by event.
type Reader struct {
	in   *bufio.Reader
	file *os.File
	meta Metadata

	previous []uint64
}

// Open opens a trace file, transparently decompressing .lz4 files, and reads
// the metadata header.
func Open(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open trace: %w", err)
	}

	var source io.Reader = file
	if strings.HasSuffix(path, lz4Extension) {
		source = lz4.NewReader(file)
	}

	r := &Reader{in: bufio.NewReader(source), file: file}

	headerErr := r.readHeader()
	if headerErr != nil {
		file.Close()

		return nil, headerErr
	}

	return r, nil
}

// Metadata returns the trace header.
func (r *Reader) Metadata() Metadata {
	return r.meta
}

// Next returns the next event, or io.EOF at the end of the stream.
func (r *Reader) Next() (Event, error) {
	tag, err := r.in.ReadByte()
	if errors.Is(err, io.EOF) {
		return nil, io.EOF
	}

	if err != nil {
		return nil, fmt.Errorf("read event tag: %w", err)
	}

	switch tag {
	case tagAlloc:
		return r.readAlloc()
	case tagPromote:
		id, idErr := r.readUvarint()
		if idErr != nil {
			return nil, idErr
		}

		return PromoteEvent{ID: id}, nil
	case tagCollect:
		id, idErr := r.readUvarint()
		if idErr != nil {
			return nil, idErr
		}

		return CollectEvent{ID: id}, nil
	case tagLocation:
		return r.readLocation()
	default:
		return nil, fmt.Errorf("%w: unknown event tag %#x", ErrCorrupt, tag)
	}
}

// Close releases the underlying file.
func (r *Reader) Close() error {
	if err := r.file.Close(); err != nil {
		return fmt.Errorf("close trace: %w", err)
	}

	return nil
}

func (r *Reader) readHeader() error {
	head := make([]byte, len(magic))
	if _, err := io.ReadFull(r.in, head); err != nil {
		return fmt.Errorf("read magic: %w", err)
	}

	if string(head) != magic {
		return ErrBadMagic
	}

	executable, err := r.readString()
	if err != nil {
		return err
	}

	pid, err := r.readUvarint()
	if err != nil {
		return err
	}

	rateBits, err := r.readUvarint()
	if err != nil {
		return err
	}

	wordSize, err := r.readUvarint()
	if err != nil {
		return err
	}

	r.meta = Metadata{
		Executable: executable,
		PID:        safeconv.MustUint64ToInt64(pid),
		SampleRate: math.Float64frombits(rateBits),
		WordSize:   safeconv.MustUint64ToInt(wordSize),
	}

	return nil
}

// readAlloc decodes an allocation and reconstructs the full backtrace from
// the delta encoding, validating the common prefix against the previous
// record.
func (r *Reader) readAlloc() (Event, error) {
	nsamples, err := r.readUvarint()
	if err != nil {
		return nil, err
	}

	common, err := r.readUvarint()
	if err != nil {
		return nil, err
	}

	suffixLen, err := r.readUvarint()
	if err != nil {
		return nil, err
	}

	commonPrefix := safeconv.MustUint64ToInt(common)
	if commonPrefix > len(r.previous) {
		return nil, fmt.Errorf("%w: common prefix %d exceeds previous depth %d",
			ErrCorrupt, commonPrefix, len(r.previous))
	}

	depth := commonPrefix + safeconv.MustUint64ToInt(suffixLen)
	if depth > maxBacktraceDepth {
		return nil, fmt.Errorf("%w: backtrace depth %d", ErrCorrupt, depth)
	}

	backtrace := make([]uint64, depth)
	copy(backtrace, r.previous[:commonPrefix])

	for i := commonPrefix; i < depth; i++ {
		code, codeErr := r.readUvarint()
		if codeErr != nil {
			return nil, codeErr
		}

		backtrace[i] = code
	}

	r.previous = append(r.previous[:0], backtrace...)

	return AllocEvent{
		NSamples:     safeconv.MustUint64ToInt64(nsamples),
		CommonPrefix: commonPrefix,
		Backtrace:    backtrace,
	}, nil
}

func (r *Reader) readLocation() (Event, error) {
	code, err := r.readUvarint()
	if err != nil {
		return nil, err
	}

	nframes, err := r.readUvarint()
	if err != nil {
		return nil, err
	}

	frames := make([]Frame, safeconv.MustUint64ToInt(nframes))
	for i := range frames {
		frame, frameErr := r.readFrame()
		if frameErr != nil {
			return nil, frameErr
		}

		frames[i] = frame
	}

	return LocationEvent{Code: code, Frames: frames}, nil
}

func (r *Reader) readFrame() (Frame, error) {
	filename, err := r.readString()
	if err != nil {
		return Frame{}, err
	}

	line, err := r.readUvarint()
	if err != nil {
		return Frame{}, err
	}

	startChar, err := r.readUvarint()
	if err != nil {
		return Frame{}, err
	}

	endChar, err := r.readUvarint()
	if err != nil {
		return Frame{}, err
	}

	defname, err := r.readString()
	if err != nil {
		return Frame{}, err
	}

	return Frame{
		Filename:  filename,
		Line:      safeconv.MustUint64ToInt(line),
		StartChar: safeconv.MustUint64ToInt(startChar),
		EndChar:   safeconv.MustUint64ToInt(endChar),
		Defname:   defname,
	}, nil
}

func (r *Reader) readUvarint() (uint64, error) {
	v, err := binary.ReadUvarint(r.in)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	return v, nil
}

func (r *Reader) readString() (string, error) {
	length, err := r.readUvarint()
	if err != nil {
		return "", err
	}

	buf := make([]byte, safeconv.MustUint64ToInt(length))
	if _, err := io.ReadFull(r.in, buf); err != nil {
		return "", fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	return string(buf), nil
}
