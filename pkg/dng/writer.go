// Package dng writes and reads the raw files produced by a burst: an 8-bit
// CFA plane in a DNG container with a placeholder thumbnail, camera
// calibration and an EXIF directory.
package dng

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"
)

var byteOrder = binary.LittleEndian

var ErrInvalidFrame = errors.New("invalid frame")

// Software is written to the Software tag.
const Software = "Megapixels"

// BGGR is the CFAPattern of the sensors this package is used with.
var BGGR = [4]byte{2, 1, 1, 0}

// Frame is one raw 8-bit mosaic. Rows are Stride bytes apart; a zero Stride
// means tightly packed rows. A zero CFA means BGGR.
type Frame struct {
	Width  int
	Height int
	Stride int
	Pix    []byte
	CFA    [4]byte
}

// Metadata is the per-camera calibration and per-shot information written
// next to the raw plane. Zero values leave the matching optional tags out.
type Metadata struct {
	Make  string
	Model string
	Time  time.Time

	// ColorMatrix1 is used only when its first element is non-zero;
	// otherwise SRGBColorMatrix is written.
	ColorMatrix   [9]float64
	ForwardMatrix [9]float64
	BlackLevel    uint32
	WhiteLevel    uint32

	FocalLength float64
	CropFactor  float64
	FNumber     float64

	// UniqueID is written as RawDataUniqueID. A nil UUID is replaced by a
	// random one.
	UniqueID uuid.UUID
}

// WriteFile encodes f into a new file at path.
func WriteFile(path string, f Frame, m Metadata) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Encode(file, f, m); err != nil {
		file.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return file.Close()
}

// Encode writes f as a DNG. The file holds, in order: IFD0 with an all-zero
// RGB thumbnail a sixteenth of the frame size, the raw SubIFD and its strip,
// then the EXIF IFD. IFD0 is written first with an empty EXIF pointer and
// rewritten in place once the EXIF offset is known, so w must be positioned
// at its start.
func Encode(w io.WriteSeeker, f Frame, m Metadata) error {
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidFrame, f.Width, f.Height)
	}
	stride := f.Stride
	if stride == 0 {
		stride = f.Width
	}
	if stride < f.Width || len(f.Pix) < stride*(f.Height-1)+f.Width {
		return fmt.Errorf("%w: %d bytes for %dx%d stride %d", ErrInvalidFrame, len(f.Pix), f.Width, f.Height, stride)
	}
	if f.CFA == ([4]byte{}) {
		f.CFA = BGGR
	}
	if m.Time.IsZero() {
		m.Time = time.Now()
	}
	if m.UniqueID == uuid.Nil {
		m.UniqueID = uuid.New()
	}

	tw, th := max(f.Width>>4, 1), max(f.Height>>4, 1)
	thumbSize := uint32(tw * th * 3)
	rawSize := uint32(f.Width * f.Height)

	ifd0 := thumbnailDirectory(tw, th, m)
	raw := rawDirectory(f, m)
	exif := exifDirectory(m)

	start := uint32(headerSize)
	thumbOffset := start + ifd0.size()
	rawOffset := align(thumbOffset + thumbSize)
	rawStripOffset := rawOffset + raw.size()
	exifOffset := align(rawStripOffset + rawSize)

	ifd0.setLong(TagStripOffsets, thumbOffset)
	ifd0.setLong(TagSubIFDs, rawOffset)
	ifd0.setLong(TagExifIFD, 0)
	raw.setLong(TagStripOffsets, rawStripOffset)

	ww := &countingWriter{w: w}
	header := make([]byte, headerSize)
	copy(header, "II")
	byteOrder.PutUint16(header[2:4], 42)
	byteOrder.PutUint32(header[4:8], start)
	ww.Write(header)
	ww.Write(ifd0.encode(start, 0))
	ww.Write(make([]byte, thumbSize))
	ww.pad(rawOffset)
	ww.Write(raw.encode(rawOffset, 0))
	for y := 0; y < f.Height; y++ {
		ww.Write(f.Pix[y*stride : y*stride+f.Width])
	}
	ww.pad(exifOffset)
	ww.Write(exif.encode(exifOffset, 0))
	if ww.err != nil {
		return ww.err
	}

	ifd0.setLong(TagExifIFD, exifOffset)
	if _, err := w.Seek(int64(start), io.SeekStart); err != nil {
		return fmt.Errorf("seek to IFD0: %w", err)
	}
	if _, err := w.Write(ifd0.encode(start, 0)); err != nil {
		return fmt.Errorf("rewrite IFD0: %w", err)
	}
	_, err := w.Seek(0, io.SeekEnd)
	return err
}

const headerSize = 8

func thumbnailDirectory(width, height int, m Metadata) *directory {
	d := &directory{}
	d.long(TagNewSubfileType, 1)
	d.long(TagImageWidth, uint32(width))
	d.long(TagImageLength, uint32(height))
	d.short(TagBitsPerSample, 8, 8, 8)
	d.short(TagCompression, 1)
	d.short(TagPhotometricInterpretation, photometricRGB)
	d.ascii(TagMake, m.Make)
	d.ascii(TagModel, m.Model)
	d.long(TagStripOffsets, 0)
	d.short(TagOrientation, 1)
	d.short(TagSamplesPerPixel, 3)
	d.long(TagRowsPerStrip, uint32(height))
	d.long(TagStripByteCounts, uint32(width*height*3))
	d.short(TagPlanarConfiguration, 1)
	d.ascii(TagSoftware, Software)
	d.ascii(TagDateTime, m.Time.Format(dateTimeLayout))
	d.long(TagSubIFDs, 0)
	d.long(TagExifIFD, 0)
	d.bytes(TagDNGVersion, TypeByte, []byte{1, 1, 0, 0})
	d.bytes(TagDNGBackwardVersion, TypeByte, []byte{1, 0, 0, 0})
	d.ascii(TagUniqueCameraModel, m.Make+" "+m.Model)
	if m.ColorMatrix[0] != 0 {
		d.srational(TagColorMatrix1, m.ColorMatrix[:]...)
	} else {
		d.srational(TagColorMatrix1, SRGBColorMatrix[:]...)
	}
	if m.ForwardMatrix[0] != 0 {
		d.srational(TagForwardMatrix1, m.ForwardMatrix[:]...)
	}
	d.rational(TagAsShotNeutral, 1, 1, 1)
	d.short(TagCalibrationIlluminant1, illuminantD65)
	d.bytes(TagRawDataUniqueID, TypeByte, m.UniqueID[:])
	return d
}

func rawDirectory(f Frame, m Metadata) *directory {
	d := &directory{}
	d.long(TagNewSubfileType, 0)
	d.long(TagImageWidth, uint32(f.Width))
	d.long(TagImageLength, uint32(f.Height))
	d.short(TagBitsPerSample, 8)
	d.short(TagCompression, 1)
	d.short(TagPhotometricInterpretation, photometricCFA)
	d.long(TagStripOffsets, 0)
	d.short(TagSamplesPerPixel, 1)
	d.long(TagRowsPerStrip, uint32(f.Height))
	d.long(TagStripByteCounts, uint32(f.Width*f.Height))
	d.short(TagPlanarConfiguration, 1)
	d.short(TagCFARepeatPatternDim, 2, 2)
	d.bytes(TagCFAPattern, TypeByte, f.CFA[:])
	if m.BlackLevel != 0 {
		d.long(TagBlackLevel, m.BlackLevel)
	}
	if m.WhiteLevel != 0 {
		d.long(TagWhiteLevel, m.WhiteLevel)
	}
	return d
}

func exifDirectory(m Metadata) *directory {
	d := &directory{}
	stamp := m.Time.Format(dateTimeLayout)
	d.short(TagExposureProgram, exposureProgramNormal)
	d.ascii(TagDateTimeOriginal, stamp)
	d.ascii(TagDateTimeDigitized, stamp)
	if m.FNumber != 0 {
		d.rational(TagFNumber, m.FNumber)
	}
	if m.FocalLength != 0 {
		d.rational(TagFocalLength, m.FocalLength)
	}
	if m.FocalLength != 0 && m.CropFactor != 0 {
		d.short(TagFocalLengthIn35mmFilm, uint16(math.Round(m.FocalLength*m.CropFactor)))
	}
	return d
}

const dateTimeLayout = "2006:01:02 15:04:05"

func align(off uint32) uint32 { return (off + 1) &^ 1 }

type field struct {
	tag   Tag
	typ   Type
	count uint32
	data  []byte
}

type directory struct {
	fields []field
}

func (d *directory) add(tag Tag, typ Type, count uint32, data []byte) {
	for i := range d.fields {
		if d.fields[i].tag == tag {
			d.fields[i] = field{tag, typ, count, data}
			return
		}
	}
	d.fields = append(d.fields, field{tag, typ, count, data})
}

func (d *directory) setLong(tag Tag, v uint32) { d.long(tag, v) }

func (d *directory) long(tag Tag, vs ...uint32) {
	data := make([]byte, 4*len(vs))
	for i, v := range vs {
		byteOrder.PutUint32(data[4*i:], v)
	}
	d.add(tag, TypeLong, uint32(len(vs)), data)
}

func (d *directory) short(tag Tag, vs ...uint16) {
	data := make([]byte, 2*len(vs))
	for i, v := range vs {
		byteOrder.PutUint16(data[2*i:], v)
	}
	d.add(tag, TypeShort, uint32(len(vs)), data)
}

func (d *directory) ascii(tag Tag, s string) {
	data := append([]byte(s), 0)
	d.add(tag, TypeASCII, uint32(len(data)), data)
}

func (d *directory) bytes(tag Tag, typ Type, b []byte) {
	d.add(tag, typ, uint32(len(b)), append([]byte(nil), b...))
}

func (d *directory) rational(tag Tag, vs ...float64) {
	data := make([]byte, 8*len(vs))
	for i, v := range vs {
		num, den := toRational(v)
		byteOrder.PutUint32(data[8*i:], uint32(num))
		byteOrder.PutUint32(data[8*i+4:], uint32(den))
	}
	d.add(tag, TypeRational, uint32(len(vs)), data)
}

func (d *directory) srational(tag Tag, vs ...float64) {
	data := make([]byte, 8*len(vs))
	for i, v := range vs {
		num, den := toRational(v)
		byteOrder.PutUint32(data[8*i:], uint32(int32(num)))
		byteOrder.PutUint32(data[8*i+4:], uint32(int32(den)))
	}
	d.add(tag, TypeSRational, uint32(len(vs)), data)
}

// toRational expresses v with a denominator of at most one million.
func toRational(v float64) (int64, int64) {
	const den = 1000000
	num := int64(math.Round(v * den))
	g := gcd(abs(num), den)
	if g == 0 {
		return 0, 1
	}
	return num / g, den / g
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// size is the number of bytes encode produces.
func (d *directory) size() uint32 {
	n := uint32(2 + 12*len(d.fields) + 4)
	for _, f := range d.fields {
		if len(f.data) > 4 {
			n += align(uint32(len(f.data)))
		}
	}
	return n
}

// encode lays the directory out at offset with its larger values following
// the entry table, entries sorted by tag as TIFF requires.
func (d *directory) encode(offset, next uint32) []byte {
	sort.Slice(d.fields, func(i, j int) bool { return d.fields[i].tag < d.fields[j].tag })
	buf := make([]byte, d.size())
	byteOrder.PutUint16(buf[0:2], uint16(len(d.fields)))
	values := uint32(2 + 12*len(d.fields) + 4)
	for i, f := range d.fields {
		e := buf[2+12*i : 2+12*(i+1)]
		byteOrder.PutUint16(e[0:2], uint16(f.tag))
		byteOrder.PutUint16(e[2:4], uint16(f.typ))
		byteOrder.PutUint32(e[4:8], f.count)
		if len(f.data) <= 4 {
			copy(e[8:12], f.data)
			continue
		}
		byteOrder.PutUint32(e[8:12], offset+values)
		copy(buf[values:], f.data)
		values += align(uint32(len(f.data)))
	}
	byteOrder.PutUint32(buf[2+12*len(d.fields):], next)
	return buf
}

type countingWriter struct {
	w   io.Writer
	n   uint32
	err error
}

func (c *countingWriter) Write(p []byte) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	n, err := c.w.Write(p)
	c.n += uint32(n)
	c.err = err
	return n, err
}

// pad writes zero bytes up to offset.
func (c *countingWriter) pad(offset uint32) {
	if offset > c.n {
		c.Write(make([]byte, offset-c.n))
	}
}
