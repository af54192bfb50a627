package dng

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var ErrFormat = errors.New("not a TIFF file")

// maxEntries bounds the entry count of a single directory.
const maxEntries = 4096

// Entry is one decoded directory field.
type Entry struct {
	Tag   Tag
	Type  Type
	Count uint32
	Raw   []byte

	order binary.ByteOrder
}

// Uints returns BYTE, SHORT and LONG values.
func (e Entry) Uints() []uint32 {
	var vs []uint32
	switch e.Type {
	case TypeByte, TypeUndefined:
		for _, b := range e.Raw {
			vs = append(vs, uint32(b))
		}
	case TypeShort:
		for i := 0; i+2 <= len(e.Raw); i += 2 {
			vs = append(vs, uint32(e.order.Uint16(e.Raw[i:])))
		}
	case TypeLong:
		for i := 0; i+4 <= len(e.Raw); i += 4 {
			vs = append(vs, e.order.Uint32(e.Raw[i:]))
		}
	}
	return vs
}

// Floats returns RATIONAL and SRATIONAL values.
func (e Entry) Floats() []float64 {
	var vs []float64
	for i := 0; i+8 <= len(e.Raw); i += 8 {
		n, d := e.order.Uint32(e.Raw[i:]), e.order.Uint32(e.Raw[i+4:])
		switch {
		case d == 0:
			vs = append(vs, 0)
		case e.Type == TypeSRational:
			vs = append(vs, float64(int32(n))/float64(int32(d)))
		default:
			vs = append(vs, float64(n)/float64(d))
		}
	}
	return vs
}

// Text returns an ASCII value without its terminator.
func (e Entry) Text() string {
	return string(bytes.TrimRight(e.Raw, "\x00"))
}

func (e Entry) String() string {
	switch e.Type {
	case TypeASCII:
		return fmt.Sprintf("%q", e.Text())
	case TypeRational, TypeSRational:
		return fmt.Sprint(e.Floats())
	}
	return fmt.Sprint(e.Uints())
}

// Directory is one decoded IFD.
type Directory struct {
	Offset  uint32
	Entries []Entry
	Next    uint32
}

// Entry returns the field with the given tag.
func (d *Directory) Entry(tag Tag) (Entry, bool) {
	for _, e := range d.Entries {
		if e.Tag == tag {
			return e, true
		}
	}
	return Entry{}, false
}

// Uint returns the first integer value of tag.
func (d *Directory) Uint(tag Tag) (uint32, bool) {
	e, ok := d.Entry(tag)
	if !ok {
		return 0, false
	}
	vs := e.Uints()
	if len(vs) == 0 {
		return 0, false
	}
	return vs[0], true
}

// Text returns the ASCII value of tag.
func (d *Directory) Text(tag Tag) (string, bool) {
	e, ok := d.Entry(tag)
	if !ok || e.Type != TypeASCII {
		return "", false
	}
	return e.Text(), true
}

// Pixels reads the directory's strips back to back.
func (d *Directory) Pixels(r io.ReaderAt) ([]byte, error) {
	offsets, ok := d.Entry(TagStripOffsets)
	if !ok {
		return nil, fmt.Errorf("%w: directory at %d has no strips", ErrFormat, d.Offset)
	}
	counts, ok := d.Entry(TagStripByteCounts)
	if !ok {
		return nil, fmt.Errorf("%w: directory at %d has no strip byte counts", ErrFormat, d.Offset)
	}
	offs, lens := offsets.Uints(), counts.Uints()
	if len(offs) != len(lens) {
		return nil, fmt.Errorf("%w: %d strip offsets, %d byte counts", ErrFormat, len(offs), len(lens))
	}
	var pix []byte
	for i := range offs {
		strip := make([]byte, lens[i])
		if _, err := r.ReadAt(strip, int64(offs[i])); err != nil {
			return nil, fmt.Errorf("read strip %d: %w", i, err)
		}
		pix = append(pix, strip...)
	}
	return pix, nil
}

// File is a decoded DNG: IFD0, the directories it points to through
// SubIFDs and its EXIF directory, if any.
type File struct {
	ByteOrder binary.ByteOrder
	IFD0      *Directory
	SubIFDs   []*Directory
	Exif      *Directory
}

// Raw returns the first SubIFD holding a CFA image.
func (f *File) Raw() (*Directory, bool) {
	for _, d := range f.SubIFDs {
		if p, ok := d.Uint(TagPhotometricInterpretation); ok && p == photometricCFA {
			return d, true
		}
	}
	return nil, false
}

// Decode reads the directory structure of a DNG.
func Decode(r io.ReaderAt) (*File, error) {
	header := make([]byte, headerSize)
	if _, err := r.ReadAt(header, 0); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	f := &File{}
	switch string(header[0:2]) {
	case "II":
		f.ByteOrder = binary.LittleEndian
	case "MM":
		f.ByteOrder = binary.BigEndian
	default:
		return nil, ErrFormat
	}
	if f.ByteOrder.Uint16(header[2:4]) != 42 {
		return nil, ErrFormat
	}
	var err error
	if f.IFD0, err = readDirectory(r, f.ByteOrder, f.ByteOrder.Uint32(header[4:8])); err != nil {
		return nil, err
	}
	if e, ok := f.IFD0.Entry(TagSubIFDs); ok {
		for _, off := range e.Uints() {
			d, err := readDirectory(r, f.ByteOrder, off)
			if err != nil {
				return nil, fmt.Errorf("SubIFD: %w", err)
			}
			f.SubIFDs = append(f.SubIFDs, d)
		}
	}
	if off, ok := f.IFD0.Uint(TagExifIFD); ok && off != 0 {
		if f.Exif, err = readDirectory(r, f.ByteOrder, off); err != nil {
			return nil, fmt.Errorf("EXIF IFD: %w", err)
		}
	}
	return f, nil
}

func readDirectory(r io.ReaderAt, order binary.ByteOrder, offset uint32) (*Directory, error) {
	var n [2]byte
	if _, err := r.ReadAt(n[:], int64(offset)); err != nil {
		return nil, fmt.Errorf("read directory at %d: %w", offset, err)
	}
	count := int(order.Uint16(n[:]))
	if count > maxEntries {
		return nil, fmt.Errorf("%w: %d entries at %d", ErrFormat, count, offset)
	}
	table := make([]byte, 12*count+4)
	if _, err := r.ReadAt(table, int64(offset)+2); err != nil {
		return nil, fmt.Errorf("read directory at %d: %w", offset, err)
	}
	d := &Directory{Offset: offset, Next: order.Uint32(table[12*count:])}
	for i := 0; i < count; i++ {
		b := table[12*i : 12*(i+1)]
		e := Entry{
			Tag:   Tag(order.Uint16(b[0:2])),
			Type:  Type(order.Uint16(b[2:4])),
			Count: order.Uint32(b[4:8]),
			order: order,
		}
		size := e.Type.size() * int(e.Count)
		if e.Type.size() == 0 {
			size = 0
		}
		if size <= 4 {
			e.Raw = append([]byte(nil), b[8:8+size]...)
		} else {
			e.Raw = make([]byte, size)
			if _, err := r.ReadAt(e.Raw, int64(order.Uint32(b[8:12]))); err != nil {
				return nil, fmt.Errorf("read %s: %w", e.Tag, err)
			}
		}
		d.Entries = append(d.Entries, e)
	}
	return d, nil
}
