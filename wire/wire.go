// Package wire implements the 32-bit word stream used to move shared
// records and edges between worker processes.
//
// Every scalar occupies one little-endian word, 64-bit values occupy two
// words (low word first) and sequences are prefixed by their element count.
// Each element of a byte sequence occupies a full word. Streams travel
// between processes as frames: a word count followed by the words.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var (
	ErrShortRead     = errors.New("wire: stream ended before the value was complete")
	ErrFrameTooLarge = errors.New("wire: frame too large")
	ErrTrailingBytes = errors.New("wire: bytes left after the frame")
)

// MaxFrameWords bounds the word count a frame may announce.
const MaxFrameWords = 1 << 24

// Writer appends values to a word stream.
type Writer struct {
	words []uint32
}

func NewWriter() *Writer {
	return &Writer{words: make([]uint32, 0, 16)}
}

func (w *Writer) Uint32(v uint32) { w.words = append(w.words, v) }

func (w *Writer) Bool(v bool) {
	if v {
		w.Uint32(1)
		return
	}
	w.Uint32(0)
}

func (w *Writer) Uint64(v uint64) {
	w.words = append(w.words, uint32(v), uint32(v>>32))
}

func (w *Writer) Int64(v int64) { w.Uint64(uint64(v)) }

// Bytes writes the element count followed by one word per byte.
// A nil slice is written with the count 0xFFFFFFFF so it can be told apart
// from an empty one.
func (w *Writer) Bytes(b []byte) {
	if b == nil {
		w.Uint32(nilLength)
		return
	}
	w.Uint32(uint32(len(b)))
	for _, c := range b {
		w.words = append(w.words, uint32(c))
	}
}

// Words returns the stream written so far.
func (w *Writer) Words() []uint32 { return w.words }

const nilLength = ^uint32(0)

// Reader consumes values from a word stream.
// The first failure is sticky: every later read returns a zero value and Err reports it.
type Reader struct {
	words []uint32
	pos   int
	err   error
}

func NewReader(words []uint32) *Reader {
	return &Reader{words: words}
}

func (r *Reader) Err() error { return r.err }

// Remaining returns the number of unread words.
func (r *Reader) Remaining() int { return len(r.words) - r.pos }

func (r *Reader) fail(want int) {
	if r.err == nil {
		r.err = fmt.Errorf("%w: need %d words at offset %d, have %d", ErrShortRead, want, r.pos, r.Remaining())
	}
}

func (r *Reader) Uint32() uint32 {
	if r.err != nil {
		return 0
	}
	if r.Remaining() < 1 {
		r.fail(1)
		return 0
	}
	v := r.words[r.pos]
	r.pos++
	return v
}

func (r *Reader) Bool() bool { return r.Uint32() != 0 }

func (r *Reader) Uint64() uint64 {
	if r.err != nil {
		return 0
	}
	if r.Remaining() < 2 {
		r.fail(2)
		return 0
	}
	lo, hi := r.words[r.pos], r.words[r.pos+1]
	r.pos += 2
	return uint64(lo) | uint64(hi)<<32
}

func (r *Reader) Int64() int64 { return int64(r.Uint64()) }

func (r *Reader) Bytes() []byte {
	n := r.Uint32()
	if r.err != nil || n == nilLength {
		return nil
	}
	if int(n) > r.Remaining() {
		r.fail(int(n))
		return nil
	}
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(r.words[r.pos+i])
	}
	r.pos += int(n)
	return b
}

func marshal(words []uint32) []byte {
	buf := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(buf[4*i:], w)
	}
	return buf
}

func unmarshal(buf []byte) []uint32 {
	words := make([]uint32, len(buf)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(buf[4*i:])
	}
	return words
}

// WriteFrame writes the word count followed by the words.
func WriteFrame(w io.Writer, words []uint32) error {
	var hdr [4]byte
	binary.LittleEndian.PutUint32(hdr[:], uint32(len(words)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	_, err := w.Write(marshal(words))
	return err
}

// ReadFrame reads one frame written by WriteFrame.
func ReadFrame(r io.Reader) ([]uint32, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint32(hdr[:])
	if n > MaxFrameWords {
		return nil, fmt.Errorf("%w: %d words announced, at most %d allowed", ErrFrameTooLarge, n, MaxFrameWords)
	}
	buf := make([]byte, 4*int(n))
	if _, err := io.ReadFull(r, buf); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: frame of %d words truncated", ErrShortRead, n)
		}
		return nil, err
	}
	return unmarshal(buf), nil
}

// Frame returns words as a single frame.
func Frame(words []uint32) []byte {
	buf := bytes.NewBuffer(make([]byte, 0, 4+4*len(words)))
	// Writes to a bytes.Buffer do not fail
	_ = WriteFrame(buf, words)
	return buf.Bytes()
}

// Unframe reads the frame filling buf.
func Unframe(buf []byte) ([]uint32, error) {
	r := bytes.NewReader(buf)
	words, err := ReadFrame(r)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: no frame header", ErrShortRead)
		}
		return nil, err
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("%w: %d", ErrTrailingBytes, r.Len())
	}
	return words, nil
}
