package protocol

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrBlankLine is returned by DecodeLine for an empty line, which the codec
// ignores rather than treating as malformed input (spec §4.1).
var ErrBlankLine = errors.New("protocol: blank line")

// LineError wraps a decode failure. If the input line had a syntactically
// recoverable `id` field, ID is non-nil so the caller can echo it on the
// resulting `error` event (spec §4.1).
type LineError struct {
	ID  *string
	Err error
}

func (e *LineError) Error() string { return fmt.Sprintf("protocol: %v", e.Err) }
func (e *LineError) Unwrap() error { return e.Err }

// Decoded is the sum of the concrete input shapes a line may decode to.
type Decoded struct {
	Code   Code
	Query  *QueryInput
	Cancel *CancelInput
	Config json.RawMessage
}

// DecodeLine parses one line of the AFD input stream. Blank lines yield
// ErrBlankLine. A line that is not a JSON object, or whose `code` is
// unrecognized, or that is missing a field required for its code, yields a
// *LineError.
func DecodeLine(line []byte) (*Decoded, error) {
	trimmed := trimSpace(line)
	if len(trimmed) == 0 {
		return nil, ErrBlankLine
	}

	var env envelope
	idGuess := sniffID(trimmed)
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, &LineError{ID: idGuess, Err: fmt.Errorf("invalid JSON object: %w", err)}
	}

	switch env.Code {
	case CodeQuery:
		var q QueryInput
		if err := json.Unmarshal(trimmed, &q); err != nil {
			return nil, &LineError{ID: idGuess, Err: fmt.Errorf("malformed query: %w", err)}
		}
		if q.ID == "" {
			return nil, &LineError{ID: idGuess, Err: errors.New("query requires an id")}
		}
		return &Decoded{Code: CodeQuery, Query: &q}, nil
	case CodeCancel:
		var c CancelInput
		if err := json.Unmarshal(trimmed, &c); err != nil {
			return nil, &LineError{ID: idGuess, Err: fmt.Errorf("malformed cancel: %w", err)}
		}
		if c.ID == "" {
			return nil, &LineError{ID: idGuess, Err: errors.New("cancel requires an id")}
		}
		return &Decoded{Code: CodeCancel, Cancel: &c}, nil
	case CodeConfig:
		return &Decoded{Code: CodeConfig, Config: trimmed}, nil
	case CodePing:
		return &Decoded{Code: CodePing}, nil
	case CodeClose:
		return &Decoded{Code: CodeClose}, nil
	default:
		return nil, &LineError{ID: idGuess, Err: fmt.Errorf("unknown code: %q", env.Code)}
	}
}

// sniffID makes a best-effort attempt to extract an `id` string from a line
// that might otherwise fail to decode, so malformed-but-id-bearing requests
// can still echo their id on the resulting error event.
func sniffID(line []byte) *string {
	var probe struct {
		ID *string `json:"id"`
	}
	if json.Unmarshal(line, &probe) != nil {
		return nil
	}
	return probe.ID
}

func trimSpace(b []byte) []byte {
	start, end := 0, len(b)
	for start < end && isSpace(b[start]) {
		start++
	}
	for end > start && isSpace(b[end-1]) {
		end--
	}
	return b[start:end]
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

// LineReader reads newline-delimited input, one logical line per call. It
// holds no business state, only framing (spec §4.1).
type LineReader struct {
	scanner *bufio.Scanner
}

// NewLineReader wraps r for line-oriented reading with a generous per-line
// buffer, since a `query` payload may carry large inline params.
func NewLineReader(r io.Reader) *LineReader {
	scanner := bufio.NewScanner(r)
	const maxLine = 64 * 1024 * 1024
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, maxLine)
	return &LineReader{scanner: scanner}
}

// ReadLine returns the next line without its trailing newline, or io.EOF
// when the stream is exhausted.
func (lr *LineReader) ReadLine() ([]byte, error) {
	if lr.scanner.Scan() {
		return lr.scanner.Bytes(), nil
	}
	if err := lr.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}
