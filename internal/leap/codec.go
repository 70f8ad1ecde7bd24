package leap

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"sync"
)

// maxFrameSize bounds a single inbound frame to guard against a
// misbehaving bridge sending an unterminated stream.
const maxFrameSize = 4 << 20 // 4 MiB

// frameTerminator is the two-byte sequence that ends every LEAP
// message. No other significant whitespace appears between frames.
var frameTerminator = []byte("\r\n")

// frameReader reads whole JSON frames terminated by CR-LF from a byte
// stream. It understands framing only, not JSON semantics.
type frameReader struct {
	br *bufio.Reader
}

func newFrameReader(r io.Reader) *frameReader {
	return &frameReader{br: bufio.NewReaderSize(r, 64*1024)}
}

// readFrame returns the next frame with its trailing CR-LF stripped.
// It returns io.EOF when the stream ends cleanly between frames.
func (f *frameReader) readFrame() ([]byte, error) {
	line, err := f.br.ReadBytes('\n')
	if len(line) == 0 && err != nil {
		return nil, err
	}
	if err != nil && err != io.EOF {
		return nil, err
	}
	if len(line) > maxFrameSize {
		return nil, fmt.Errorf("leap: frame exceeds %d bytes", maxFrameSize)
	}
	trimmed := bytes.TrimSuffix(line, frameTerminator)
	trimmed = bytes.TrimSuffix(trimmed, []byte("\n"))
	return trimmed, nil
}

// frameWriter serialises whole frames to a byte stream with CR-LF
// termination. Writes are serialised so a frame is never interleaved
// with another writer's partial write.
type frameWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func newFrameWriter(w io.Writer) *frameWriter {
	return &frameWriter{w: w}
}

// writeFrame writes data followed by CR-LF as a single atomic write.
func (f *frameWriter) writeFrame(data []byte) error {
	buf := make([]byte, 0, len(data)+2)
	buf = append(buf, data...)
	buf = append(buf, frameTerminator...)

	f.mu.Lock()
	defer f.mu.Unlock()
	_, err := f.w.Write(buf)
	return err
}
