package model

import (
	"encoding/binary"
	"io"
	"math"

	gberrors "github.com/YuminosukeSato/gboost/pkg/errors"
)

// maxStringLen guards against allocating absurd buffers when a corrupted
// stream yields a huge length prefix.
const maxStringLen = 1 << 20

// StreamWriter writes little-endian primitives and keeps the first error.
// Strings and slices are prefixed with their length as uint64.
//
//	sw := model.NewStreamWriter(w)
//	sw.WriteString("binary:logistic")
//	sw.WriteFloat32s(weights)
//	return sw.Err()
type StreamWriter struct {
	w   io.Writer
	err error
	buf [8]byte
}

// NewStreamWriter wraps w.
func NewStreamWriter(w io.Writer) *StreamWriter {
	return &StreamWriter{w: w}
}

// Err returns the first write error.
func (s *StreamWriter) Err() error { return s.err }

func (s *StreamWriter) write(p []byte) {
	if s.err != nil {
		return
	}
	_, s.err = s.w.Write(p)
}

func (s *StreamWriter) WriteUint32(v uint32) {
	binary.LittleEndian.PutUint32(s.buf[:4], v)
	s.write(s.buf[:4])
}

func (s *StreamWriter) WriteInt32(v int32) { s.WriteUint32(uint32(v)) }

func (s *StreamWriter) WriteUint64(v uint64) {
	binary.LittleEndian.PutUint64(s.buf[:8], v)
	s.write(s.buf[:8])
}

func (s *StreamWriter) WriteInt64(v int64) { s.WriteUint64(uint64(v)) }

func (s *StreamWriter) WriteFloat32(v float32) { s.WriteUint32(math.Float32bits(v)) }

// WriteString writes a uint64 length followed by the raw bytes.
func (s *StreamWriter) WriteString(v string) {
	s.WriteUint64(uint64(len(v)))
	s.write([]byte(v))
}

// WriteFloat32s writes a uint64 count followed by the values.
func (s *StreamWriter) WriteFloat32s(v []float32) {
	s.WriteUint64(uint64(len(v)))
	for _, f := range v {
		s.WriteFloat32(f)
	}
}

// WriteInt32s writes a uint64 count followed by the values.
func (s *StreamWriter) WriteInt32s(v []int32) {
	s.WriteUint64(uint64(len(v)))
	for _, x := range v {
		s.WriteInt32(x)
	}
}

// WriteStruct writes a fixed-size value with encoding/binary.
func (s *StreamWriter) WriteStruct(v interface{}) {
	if s.err != nil {
		return
	}
	s.err = binary.Write(s.w, binary.LittleEndian, v)
}

// StreamReader is the counterpart of StreamWriter. Short reads are reported
// as *errors.FormatError naming the field being read.
type StreamReader struct {
	r   io.Reader
	op  string
	err error
	buf [8]byte
}

// NewStreamReader wraps r. op names the caller in FormatError messages.
func NewStreamReader(r io.Reader, op string) *StreamReader {
	return &StreamReader{r: r, op: op}
}

// Err returns the first read error.
func (s *StreamReader) Err() error { return s.err }

func (s *StreamReader) fail(field string, err error) {
	if s.err != nil {
		return
	}
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	s.err = gberrors.NewFormatError(s.op, field, err)
}

// Fail records a semantic error found while decoding field. Only the first
// error is kept.
func (s *StreamReader) Fail(field string, err error) { s.fail(field, err) }

func (s *StreamReader) read(field string, p []byte) bool {
	if s.err != nil {
		return false
	}
	if _, err := io.ReadFull(s.r, p); err != nil {
		s.fail(field, err)
		return false
	}
	return true
}

func (s *StreamReader) ReadUint32(field string) uint32 {
	if !s.read(field, s.buf[:4]) {
		return 0
	}
	return binary.LittleEndian.Uint32(s.buf[:4])
}

func (s *StreamReader) ReadInt32(field string) int32 { return int32(s.ReadUint32(field)) }

func (s *StreamReader) ReadUint64(field string) uint64 {
	if !s.read(field, s.buf[:8]) {
		return 0
	}
	return binary.LittleEndian.Uint64(s.buf[:8])
}

func (s *StreamReader) ReadInt64(field string) int64 { return int64(s.ReadUint64(field)) }

func (s *StreamReader) ReadFloat32(field string) float32 {
	return math.Float32frombits(s.ReadUint32(field))
}

// ReadString reads a uint64-length-prefixed string.
func (s *StreamReader) ReadString(field string) string {
	n := s.ReadUint64(field)
	if s.err != nil {
		return ""
	}
	if n > maxStringLen {
		s.fail(field, gberrors.Newf("string length %d exceeds limit", n))
		return ""
	}
	p := make([]byte, n)
	if !s.read(field, p) {
		return ""
	}
	return string(p)
}

// ReadFloat32s reads a uint64-count-prefixed float32 slice.
func (s *StreamReader) ReadFloat32s(field string) []float32 {
	n := s.count(field)
	if n == 0 {
		return nil
	}
	out := make([]float32, 0, capHint(n))
	for i := 0; i < n && s.err == nil; i++ {
		out = append(out, s.ReadFloat32(field))
	}
	if s.err != nil {
		return nil
	}
	return out
}

// ReadInt32s reads a uint64-count-prefixed int32 slice.
func (s *StreamReader) ReadInt32s(field string) []int32 {
	n := s.count(field)
	if n == 0 {
		return nil
	}
	out := make([]int32, 0, capHint(n))
	for i := 0; i < n && s.err == nil; i++ {
		out = append(out, s.ReadInt32(field))
	}
	if s.err != nil {
		return nil
	}
	return out
}

// count reads a slice length. Capacity is capped so a corrupted prefix
// fails on the short read instead of on allocation.
func (s *StreamReader) count(field string) int {
	n := s.ReadUint64(field)
	if s.err != nil {
		return 0
	}
	if n > math.MaxInt32 {
		s.fail(field, gberrors.Newf("element count %d exceeds limit", n))
		return 0
	}
	return int(n)
}

// ReadStruct reads a fixed-size value with encoding/binary.
func (s *StreamReader) ReadStruct(field string, v interface{}) {
	if s.err != nil {
		return
	}
	if err := binary.Read(s.r, binary.LittleEndian, v); err != nil {
		s.fail(field, err)
	}
}

func capHint(n int) int {
	const maxHint = 1 << 16
	if n > maxHint {
		return maxHint
	}
	return n
}
