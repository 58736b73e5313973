// Package ndjson decodes newline-delimited JSON streams one record at a time.
package ndjson

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// maxLineSize bounds a single record. Frames larger than this are a protocol error.
const maxLineSize = 8 * 1024 * 1024

// ErrLineTooLong is returned when a record exceeds maxLineSize before its newline.
var ErrLineTooLong = errors.New("ndjson: line exceeds maximum record size")

// SyntaxError reports a line that is not valid JSON.
type SyntaxError struct {
	Line int    // 1-based line number within the stream
	Data []byte // the offending line, without its newline
	Err  error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("ndjson: invalid JSON on line %d: %v", e.Line, e.Err)
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}

// Decoder reads newline-terminated JSON records from an underlying reader.
//
// Successive Next calls form a forward-only, lazy sequence of records: nothing
// is read until Next is called. A record split across several underlying reads
// is held until its terminating newline arrives. Bytes after the last newline when the reader hits EOF are an
// incomplete record and are dropped without being parsed.
type Decoder struct {
	r    *bufio.Reader
	line int
	buf  []byte
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReaderSize(r, 64*1024)}
}

// Line returns the number of lines consumed so far.
func (d *Decoder) Line() int {
	return d.line
}

// NextRaw returns the next non-blank line as raw bytes. The returned slice is
// only valid until the following call. io.EOF signals a clean end of stream.
func (d *Decoder) NextRaw() ([]byte, error) {
	for {
		line, err := d.readLine()
		if err != nil {
			return nil, err
		}
		d.line++
		trimmed := bytes.TrimSpace(line)
		if len(trimmed) == 0 {
			continue
		}
		if !json.Valid(trimmed) {
			var v any
			perr := json.Unmarshal(trimmed, &v)
			if perr == nil {
				perr = errors.New("malformed record")
			}
			return nil, &SyntaxError{Line: d.line, Data: append([]byte(nil), trimmed...), Err: perr}
		}
		return trimmed, nil
	}
}

// Next decodes the next record into v. io.EOF signals a clean end of stream.
func (d *Decoder) Next(v any) error {
	raw, err := d.NextRaw()
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return &SyntaxError{Line: d.line, Data: append([]byte(nil), raw...), Err: err}
	}
	return nil
}

// readLine returns one full line including its newline. A trailing fragment
// without a newline at EOF is discarded and reported as io.EOF.
func (d *Decoder) readLine() ([]byte, error) {
	d.buf = d.buf[:0]
	for {
		chunk, err := d.r.ReadSlice('\n')
		d.buf = append(d.buf, chunk...)
		if len(d.buf) > maxLineSize {
			return nil, ErrLineTooLong
		}
		switch {
		case err == nil:
			return d.buf, nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF):
			d.buf = d.buf[:0]
			return nil, io.EOF
		default:
			return nil, err
		}
	}
}
