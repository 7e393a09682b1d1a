package data

import (
	"bufio"
	"io"
	"os"

	"github.com/YuminosukeSato/gboost/core/model"
	gberrors "github.com/YuminosukeSato/gboost/pkg/errors"
)

// binaryMagic starts every binary matrix buffer.
const binaryMagic uint32 = 0xffffab01

// SaveBinary writes the matrix in the compact binary buffer format:
// magic, column count, row pointers, entries, then the Info arrays.
func (d *DMatrix) SaveBinary(w io.Writer) error {
	sw := model.NewStreamWriter(w)
	sw.WriteUint32(binaryMagic)
	sw.WriteUint64(uint64(d.numCol))
	sw.WriteUint64(uint64(len(d.rowPtr)))
	for _, p := range d.rowPtr {
		sw.WriteUint64(uint64(p))
	}
	sw.WriteUint64(uint64(len(d.data)))
	for _, e := range d.data {
		sw.WriteUint32(e.Index)
		sw.WriteFloat32(e.Value)
	}
	sw.WriteFloat32s(d.Info.Labels)
	sw.WriteFloat32s(d.Info.Weights)
	writeUint32s(sw, d.Info.GroupPtr)
	writeUint32s(sw, d.Info.RootIndex)
	return sw.Err()
}

// LoadBinary reads a matrix written by SaveBinary.
func LoadBinary(r io.Reader) (*DMatrix, error) {
	const op = "data.LoadBinary"
	sr := model.NewStreamReader(r, op)
	if magic := sr.ReadUint32("magic"); sr.Err() == nil && magic != binaryMagic {
		return nil, gberrors.NewFormatError(op, "magic", gberrors.Newf("unexpected magic %#x", magic))
	}

	d := &DMatrix{}
	d.numCol = int(sr.ReadUint64("num_col"))
	nptr := sr.ReadUint64("row_ptr")
	for i := uint64(0); i < nptr && sr.Err() == nil; i++ {
		d.rowPtr = append(d.rowPtr, int(sr.ReadUint64("row_ptr")))
	}
	nent := sr.ReadUint64("entries")
	for i := uint64(0); i < nent && sr.Err() == nil; i++ {
		idx := sr.ReadUint32("entries")
		val := sr.ReadFloat32("entries")
		d.data = append(d.data, Entry{Index: idx, Value: val})
	}
	d.Info.Labels = sr.ReadFloat32s("labels")
	d.Info.Weights = sr.ReadFloat32s("weights")
	d.Info.GroupPtr = readUint32s(sr, "group_ptr")
	d.Info.RootIndex = readUint32s(sr, "root_index")
	if err := sr.Err(); err != nil {
		return nil, err
	}
	if len(d.rowPtr) == 0 || d.rowPtr[len(d.rowPtr)-1] != len(d.data) {
		return nil, gberrors.NewFormatError(op, "row_ptr", gberrors.New("row pointers do not match entry count"))
	}
	if err := d.Validate(); err != nil {
		return nil, gberrors.NewFormatError(op, "info", err)
	}
	return d, nil
}

// SaveBinaryFile writes the binary buffer format to path.
func (d *DMatrix) SaveBinaryFile(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return gberrors.Wrapf(err, "failed to create %s", path)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = gberrors.Wrap(cerr, "failed to close buffer file")
		}
	}()
	bw := bufio.NewWriter(f)
	if err := d.SaveBinary(bw); err != nil {
		return err
	}
	return bw.Flush()
}

// LoadBinaryFile reads a matrix written by SaveBinaryFile.
func LoadBinaryFile(path string) (*DMatrix, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, gberrors.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()
	return LoadBinary(bufio.NewReader(f))
}

func writeUint32s(sw *model.StreamWriter, v []uint32) {
	sw.WriteUint64(uint64(len(v)))
	for _, x := range v {
		sw.WriteUint32(x)
	}
}

func readUint32s(sr *model.StreamReader, field string) []uint32 {
	ints := sr.ReadInt32s(field)
	if len(ints) == 0 {
		return nil
	}
	out := make([]uint32, len(ints))
	for i, x := range ints {
		out[i] = uint32(x)
	}
	return out
}
