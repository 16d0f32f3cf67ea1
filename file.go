package bucketfs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// File is a handle on a single object returned by Storage.Open.
// Reads are ranged requests that advance an offset; writes are buffered and uploaded on Close.
// A File is not safe for concurrent use.
//
// The context passed to Open is used for every request the handle makes.
type File struct {
	ctx     context.Context
	name    string
	mode    string
	storage *Storage

	offset int64
	size   int64
	buf    bytes.Buffer
	dirty  bool
	closed bool
}

// Name returns the normalized object name.
func (f *File) Name() string {
	return f.name
}

// Mode returns the mode the handle was opened with.
func (f *File) Mode() string {
	return f.mode
}

// Read reads up to len(p) bytes starting at the current offset with a ranged request.
// Reading at or past the end of the object returns 0, io.EOF.
func (f *File) Read(p []byte) (int, error) {
	if f.closed {
		return 0, fmt.Errorf("read %s: %w", f.name, io.ErrClosedPipe)
	}
	if len(p) == 0 {
		return 0, nil
	}
	if f.size >= 0 && f.offset >= f.size {
		return 0, io.EOF
	}

	rng := ByteRange{Start: f.offset, End: f.offset + int64(len(p)) - 1}
	res, err := f.storage.read(f.ctx, f.name, &rng)
	if err != nil {
		return 0, err
	}

	data := res.Data
	if res.ContentRange != "" {
		if start, _, total, ok := parseContentRange(res.ContentRange); ok {
			f.size = total
			if start != f.offset {
				return 0, fmt.Errorf("read %s: unexpected range start %d: %w", f.name, start, ErrInvalidInput)
			}
		}
	} else if !res.Partial {
		// The server ignored the range and sent the whole object.
		f.size = int64(len(data))
		if f.offset >= int64(len(data)) {
			return 0, io.EOF
		}
		data = data[f.offset:]
	}

	if len(data) == 0 {
		return 0, io.EOF
	}

	n := copy(p, data)
	f.offset += int64(n)
	return n, nil
}

// ReadAll reads the whole object with a single request and resets the offset.
// Unlike Read, compressed objects are returned decoded.
func (f *File) ReadAll() ([]byte, error) {
	if f.closed {
		return nil, fmt.Errorf("read %s: %w", f.name, io.ErrClosedPipe)
	}

	res, err := f.storage.read(f.ctx, f.name, nil)
	if err != nil {
		return nil, err
	}
	f.offset = 0
	return res.Data, nil
}

// Write appends p to the upload buffer. The handle must have been opened with a "w" mode.
func (f *File) Write(p []byte) (int, error) {
	if !strings.Contains(f.mode, "w") {
		return 0, fmt.Errorf("write %s: %w", f.name, ErrReadOnly)
	}
	if f.closed {
		return 0, fmt.Errorf("write %s: %w", f.name, io.ErrClosedPipe)
	}

	f.dirty = true
	return f.buf.Write(p)
}

// Size returns the object size, asking the storage when it is not yet known.
func (f *File) Size() (int64, error) {
	if f.size >= 0 {
		return f.size, nil
	}
	size, err := f.storage.Size(f.ctx, f.name, false)
	if err != nil {
		return 0, err
	}
	f.size = size
	return size, nil
}

// Close uploads buffered writes, if any, and releases the handle.
func (f *File) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true

	if !f.dirty {
		return nil
	}

	body := bytes.NewReader(f.buf.Bytes())
	if _, err := f.storage.put(f.ctx, f.name, body); err != nil {
		return err
	}
	f.size = int64(f.buf.Len())
	f.dirty = false
	return nil
}

// parseContentRange parses "bytes start-end/total".
func parseContentRange(v string) (start, end, total int64, ok bool) {
	rest, found := strings.CutPrefix(v, "bytes ")
	if !found {
		return 0, 0, 0, false
	}
	span, totalRaw, found := strings.Cut(rest, "/")
	if !found {
		return 0, 0, 0, false
	}
	startRaw, endRaw, found := strings.Cut(span, "-")
	if !found {
		return 0, 0, 0, false
	}

	var err error
	if start, err = strconv.ParseInt(startRaw, 10, 64); err != nil {
		return 0, 0, 0, false
	}
	if end, err = strconv.ParseInt(endRaw, 10, 64); err != nil {
		return 0, 0, 0, false
	}
	if total, err = strconv.ParseInt(totalRaw, 10, 64); err != nil {
		return 0, 0, 0, false
	}
	return start, end, total, true
}
