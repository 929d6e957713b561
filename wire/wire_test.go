package wire

import (
	"bytes"
	"errors"
	"testing"

	"golang.org/x/exp/slices"
)

func TestWriterLayout(t *testing.T) {
	w := NewWriter()
	w.Uint32(7)
	w.Uint64(0x0000000200000001)
	w.Bytes([]byte("ab"))
	w.Bool(true)

	want := []uint32{7, 1, 2, 2, 'a', 'b', 1}
	if !slices.Equal(w.Words(), want) {
		t.Fatalf("Unexpected word layout. Got: %v. Expected: %v", w.Words(), want)
	}
}

func TestReaderRoundTrip(t *testing.T) {
	w := NewWriter()
	w.Uint32(3)
	w.Int64(-1 << 40)
	w.Bytes([]byte("state"))
	w.Bytes(nil)
	w.Bytes([]byte{})

	r := NewReader(w.Words())
	if v := r.Uint32(); v != 3 {
		t.Errorf("Expected 3. Got: %v", v)
	}
	if v := r.Int64(); v != -1<<40 {
		t.Errorf("Expected %v. Got: %v", int64(-1<<40), v)
	}
	if v := string(r.Bytes()); v != "state" {
		t.Errorf("Expected \"state\". Got: %q", v)
	}
	if v := r.Bytes(); v != nil {
		t.Errorf("Expected a nil slice. Got: %v", v)
	}
	if v := r.Bytes(); v == nil || len(v) != 0 {
		t.Errorf("Expected an empty non-nil slice. Got: %v", v)
	}
	if r.Err() != nil {
		t.Errorf("Unexpected error: %v", r.Err())
	}
	if r.Remaining() != 0 {
		t.Errorf("Expected the stream to be consumed. %v words remain", r.Remaining())
	}
}

func TestReaderShortRead(t *testing.T) {
	tests := []struct {
		name  string
		words []uint32
		read  func(r *Reader)
	}{
		{"EmptyUint32", []uint32{}, func(r *Reader) { r.Uint32() }},
		{"HalfUint64", []uint32{1}, func(r *Reader) { r.Uint64() }},
		{"TruncatedBytes", []uint32{4, 'a', 'b'}, func(r *Reader) { r.Bytes() }},
	}
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			r := NewReader(test.words)
			test.read(r)
			if !errors.Is(r.Err(), ErrShortRead) {
				t.Fatalf("Expected ErrShortRead. Got: %v", r.Err())
			}
			// The error is sticky
			if v := r.Uint32(); v != 0 {
				t.Errorf("Expected zero value after a failed read. Got: %v", v)
			}
		})
	}
}

func TestFrame(t *testing.T) {
	buf := new(bytes.Buffer)
	words := []uint32{1, 2, 0xFFFFFFFF}
	if err := WriteFrame(buf, words); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if buf.Len() != 16 {
		t.Fatalf("Expected a 16 byte frame. Got: %v", buf.Len())
	}
	got, err := ReadFrame(buf)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !slices.Equal(got, words) {
		t.Fatalf("Expected %v. Got: %v", words, got)
	}

	// A frame that claims more words than it carries
	truncated := bytes.NewBuffer([]byte{3, 0, 0, 0, 1, 0, 0, 0})
	if _, err := ReadFrame(truncated); !errors.Is(err, ErrShortRead) {
		t.Fatalf("Expected ErrShortRead. Got: %v", err)
	}

	// The header alone must not make the reader allocate
	huge := bytes.NewBuffer([]byte{0xFF, 0xFF, 0xFF, 0xFF})
	if _, err := ReadFrame(huge); !errors.Is(err, ErrFrameTooLarge) {
		t.Fatalf("Expected ErrFrameTooLarge. Got: %v", err)
	}
}

func TestUnframe(t *testing.T) {
	words := []uint32{7, 8}
	got, err := Unframe(Frame(words))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !slices.Equal(got, words) {
		t.Fatalf("Expected %v. Got: %v", words, got)
	}

	tests := []struct {
		name string
		buf  []byte
		want error
	}{
		{"Empty", nil, ErrShortRead},
		{"PartialHeader", []byte{1, 0}, ErrShortRead},
		{"PartialWord", []byte{1, 0, 0, 0, 1, 2, 3}, ErrShortRead},
		{"Trailing", append(Frame(words), 9), ErrTrailingBytes},
		{"TooLarge", []byte{0, 0, 0, 2}, ErrFrameTooLarge},
	}
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			if _, err := Unframe(test.buf); !errors.Is(err, test.want) {
				t.Fatalf("Expected %v. Got: %v", test.want, err)
			}
		})
	}
}
