// Package nbt writes the Named Binary Tag format used by chunk and level
// files. Only the writing half is implemented; the compiler never reads a
// world back.
package nbt

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// NBT tag type IDs.
const (
	TagEnd       byte = 0
	TagByte      byte = 1
	TagShort     byte = 2
	TagInt       byte = 3
	TagLong      byte = 4
	TagFloat     byte = 5
	TagDouble    byte = 6
	TagByteArray byte = 7
	TagString    byte = 8
	TagList      byte = 9
	TagCompound  byte = 10
	TagIntArray  byte = 11
)

// ErrUnbalanced is reported by Close when compounds were left open or
// closed twice.
var ErrUnbalanced = errors.New("nbt: unbalanced compound")

// Writer writes NBT binary data to an io.Writer in big-endian format.
// Write methods accumulate the first error; check Err or Close afterwards.
type Writer struct {
	w     io.Writer
	err   error
	depth int
	buf   [8]byte
}

// NewWriter creates a new NBT Writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Err returns the first error encountered during writing.
func (w *Writer) Err() error {
	return w.err
}

// Close reports the first write error, or ErrUnbalanced when the compound
// nesting is not closed. It does not close the underlying writer.
func (w *Writer) Close() error {
	if w.err != nil {
		return w.err
	}
	if w.depth != 0 {
		return fmt.Errorf("%w: depth %d", ErrUnbalanced, w.depth)
	}
	return nil
}

func (w *Writer) write(data []byte) {
	if w.err != nil {
		return
	}
	_, w.err = w.w.Write(data)
}

func (w *Writer) putByte(v byte) {
	w.buf[0] = v
	w.write(w.buf[:1])
}

func (w *Writer) putUint16(v uint16) {
	binary.BigEndian.PutUint16(w.buf[:2], v)
	w.write(w.buf[:2])
}

func (w *Writer) putInt32(v int32) {
	binary.BigEndian.PutUint32(w.buf[:4], uint32(v))
	w.write(w.buf[:4])
}

func (w *Writer) putInt64(v int64) {
	binary.BigEndian.PutUint64(w.buf[:8], uint64(v))
	w.write(w.buf[:8])
}

func (w *Writer) putString(s string) {
	if len(s) > math.MaxUint16 {
		if w.err == nil {
			w.err = fmt.Errorf("nbt: string of %d bytes too long", len(s))
		}
		return
	}
	w.putUint16(uint16(len(s)))
	if len(s) > 0 {
		w.write([]byte(s))
	}
}

func (w *Writer) writeTagHeader(tagType byte, name string) {
	w.putByte(tagType)
	w.putString(name)
}

// BeginCompound writes a compound tag header. Use name="" for list elements
// and the root tag.
func (w *Writer) BeginCompound(name string) {
	w.writeTagHeader(TagCompound, name)
	w.depth++
}

// BeginListCompound opens an unnamed compound element inside a
// TagCompound list. Unlike BeginCompound it writes no header.
func (w *Writer) BeginListCompound() {
	w.depth++
}

// EndCompound writes an End tag to close a compound.
func (w *Writer) EndCompound() {
	w.putByte(TagEnd)
	w.depth--
}

// WriteTagByte writes a named byte tag.
func (w *Writer) WriteTagByte(name string, v byte) {
	w.writeTagHeader(TagByte, name)
	w.putByte(v)
}

// WriteBool writes a named byte tag holding 0 or 1.
func (w *Writer) WriteBool(name string, v bool) {
	var b byte
	if v {
		b = 1
	}
	w.WriteTagByte(name, b)
}

// WriteShort writes a named short tag.
func (w *Writer) WriteShort(name string, v int16) {
	w.writeTagHeader(TagShort, name)
	w.putUint16(uint16(v))
}

// WriteInt writes a named int tag.
func (w *Writer) WriteInt(name string, v int32) {
	w.writeTagHeader(TagInt, name)
	w.putInt32(v)
}

// WriteLong writes a named long tag.
func (w *Writer) WriteLong(name string, v int64) {
	w.writeTagHeader(TagLong, name)
	w.putInt64(v)
}

// WriteFloat writes a named float tag.
func (w *Writer) WriteFloat(name string, v float32) {
	w.writeTagHeader(TagFloat, name)
	w.putInt32(int32(math.Float32bits(v)))
}

// WriteDouble writes a named double tag.
func (w *Writer) WriteDouble(name string, v float64) {
	w.writeTagHeader(TagDouble, name)
	w.putInt64(int64(math.Float64bits(v)))
}

// WriteByteArray writes a named byte array tag.
func (w *Writer) WriteByteArray(name string, v []byte) {
	w.writeTagHeader(TagByteArray, name)
	w.putInt32(int32(len(v)))
	w.write(v)
}

// WriteString writes a named string tag.
func (w *Writer) WriteString(name string, v string) {
	w.writeTagHeader(TagString, name)
	w.putString(v)
}

// WriteIntArray writes a named int array tag.
func (w *Writer) WriteIntArray(name string, v []int32) {
	w.writeTagHeader(TagIntArray, name)
	w.putInt32(int32(len(v)))
	for _, val := range v {
		w.putInt32(val)
	}
}

// BeginList writes a named list tag header. The caller writes exactly
// count payloads of elemType afterwards.
func (w *Writer) BeginList(name string, elemType byte, count int32) {
	w.writeTagHeader(TagList, name)
	w.putByte(elemType)
	w.putInt32(count)
}

// WriteDoubleList writes a named list of doubles, e.g. an entity Pos.
func (w *Writer) WriteDoubleList(name string, v []float64) {
	w.BeginList(name, TagDouble, int32(len(v)))
	for _, d := range v {
		w.putInt64(int64(math.Float64bits(d)))
	}
}

// WriteFloatList writes a named list of floats, e.g. an entity Rotation.
func (w *Writer) WriteFloatList(name string, v []float32) {
	w.BeginList(name, TagFloat, int32(len(v)))
	for _, f := range v {
		w.putInt32(int32(math.Float32bits(f)))
	}
}
