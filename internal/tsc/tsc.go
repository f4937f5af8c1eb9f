// Package tsc reads and writes station time-series containers: one file per
// station, holding one named record per storm event.
//
// A container is laid out as a fixed header, a run of compressed record
// blocks, an index trailer, and finally the trailer's start offset:
//
//	magic   uint32, big endian
//	version uint8
//	missing float64, the value that encodes a missing sample
//	<record blocks...>
//	<trailer>
//	trailer start offset, uint64
//
// Each record block is a gzip stream of (timestamp int64, value float64)
// pairs, little endian, timestamps in Unix seconds. The trailer holds the
// record count followed by one entry per record, in append order:
//
//	event length   uint8, then event bytes
//	station length uint8, then station bytes
//	block offset   int64
//	block length   int64
//	point count    uint32
//
// Appending seeks to the trailer start, writes the new block over the old
// trailer, and rewrites the trailer behind it, so the file is valid again
// after every append. Records are never deduplicated: appending the same
// (station, event) twice yields two records.
package tsc

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/klauspost/compress/gzip"
)

// Magic marks a station container file.
const Magic uint32 = 0xadc12c63

const version uint8 = 1

// Missing encodes a missing sample inside record blocks, following the HEC
// missing-value convention.
const Missing = -901.0

const headerSize = 4 + 1 + 8

// Point is one sample: Unix seconds and the value at that instant. Value is
// Missing where the model had no data.
type Point struct {
	Timestamp int64
	Value     float64
}

// Record describes one indexed entry of a container.
type Record struct {
	Event     string
	Station   string
	NumPoints int

	offset int64
	length int64
}

// File is an open container. It is not safe for concurrent use; callers
// serialize access per container.
type File struct {
	f       *os.File
	path    string
	missing float64
	records []Record
	dataEnd int64 // where record blocks end and the trailer begins
}

// Create makes a new container at path, truncating anything already there.
// The file is immediately valid with zero records.
func Create(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}

	c := &File{f: f, path: path, missing: Missing, dataEnd: headerSize}
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.BigEndian, Magic)
	buf.WriteByte(version)
	binary.Write(buf, binary.LittleEndian, c.missing)
	if _, err := f.Write(buf.Bytes()); err != nil {
		f.Close()
		return nil, err
	}
	if err := c.writeTrailer(); err != nil {
		f.Close()
		return nil, err
	}
	return c, nil
}

// Open opens an existing container for reading and appending.
func Open(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	c := &File{f: f, path: path}
	if err := c.readIndex(); err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// OpenOrCreate opens path if it exists and creates it otherwise.
func OpenOrCreate(path string) (*File, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Create(path)
	}
	return Open(path)
}

// Path returns the container's file path.
func (c *File) Path() string { return c.path }

// MissingValue returns the sentinel that encodes missing samples in this
// container's blocks.
func (c *File) MissingValue() float64 { return c.missing }

// Records lists the container's index entries in append order.
func (c *File) Records() []Record {
	out := make([]Record, len(c.records))
	copy(out, c.records)
	return out
}

// Append compresses points into a new record block and rewrites the trailer
// behind it. The file is valid again once Append returns.
func (c *File) Append(station, event string, points []Point) error {
	if len(station) > 255 {
		return fmt.Errorf("station name %q longer than 255 bytes", station)
	}
	if len(event) > 255 {
		return fmt.Errorf("event name %q longer than 255 bytes", event)
	}

	block := new(bytes.Buffer)
	zw := gzip.NewWriter(block)
	if err := binary.Write(zw, binary.LittleEndian, points); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return err
	}

	if _, err := c.f.WriteAt(block.Bytes(), c.dataEnd); err != nil {
		return err
	}
	c.records = append(c.records, Record{
		Event:     event,
		Station:   station,
		NumPoints: len(points),
		offset:    c.dataEnd,
		length:    int64(block.Len()),
	})
	c.dataEnd += int64(block.Len())
	return c.writeTrailer()
}

// ReadPoints decompresses the i'th record's block.
func (c *File) ReadPoints(i int) ([]Point, error) {
	if i < 0 || i >= len(c.records) {
		return nil, fmt.Errorf("%s: record %d out of range [0,%d)", c.path, i, len(c.records))
	}
	rec := c.records[i]
	raw := make([]byte, rec.length)
	if _, err := c.f.ReadAt(raw, rec.offset); err != nil {
		return nil, err
	}
	zr, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	points := make([]Point, rec.NumPoints)
	if err := binary.Read(zr, binary.LittleEndian, points); err != nil {
		return nil, err
	}
	return points, nil
}

// Close closes the underlying file. The trailer is already durable from the
// last append.
func (c *File) Close() error { return c.f.Close() }

func (c *File) writeTrailer() error {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, uint32(len(c.records)))
	for _, rec := range c.records {
		buf.WriteByte(uint8(len(rec.Event)))
		buf.WriteString(rec.Event)
		buf.WriteByte(uint8(len(rec.Station)))
		buf.WriteString(rec.Station)
		binary.Write(buf, binary.LittleEndian, rec.offset)
		binary.Write(buf, binary.LittleEndian, rec.length)
		binary.Write(buf, binary.LittleEndian, uint32(rec.NumPoints))
	}
	binary.Write(buf, binary.LittleEndian, uint64(c.dataEnd))

	if _, err := c.f.WriteAt(buf.Bytes(), c.dataEnd); err != nil {
		return err
	}
	return c.f.Sync()
}

func (c *File) readIndex() error {
	header := make([]byte, headerSize)
	if _, err := c.f.ReadAt(header, 0); err != nil {
		return err
	}
	if magic := binary.BigEndian.Uint32(header[:4]); magic != Magic {
		return fmt.Errorf("bad magic %#x", magic)
	}
	if v := header[4]; v != version {
		return fmt.Errorf("unsupported container version %d", v)
	}
	c.missing = math.Float64frombits(binary.LittleEndian.Uint64(header[5:13]))

	end, err := c.f.Seek(0, io.SeekEnd)
	if err != nil {
		return err
	}
	if end < headerSize+8 {
		return errors.New("truncated container")
	}
	tail := make([]byte, 8)
	if _, err := c.f.ReadAt(tail, end-8); err != nil {
		return err
	}
	trailerStart := int64(binary.LittleEndian.Uint64(tail))
	if trailerStart < headerSize || trailerStart > end-8 {
		return fmt.Errorf("trailer offset %d out of bounds", trailerStart)
	}

	r := bufReader{r: io.NewSectionReader(c.f, trailerStart, end-8-trailerStart)}
	count := r.uint32()
	records := make([]Record, 0, count)
	for i := uint32(0); i < count; i++ {
		var rec Record
		rec.Event = r.string8()
		rec.Station = r.string8()
		rec.offset = r.int64()
		rec.length = r.int64()
		rec.NumPoints = int(r.uint32())
		if r.err != nil {
			return fmt.Errorf("trailer entry %d: %w", i, r.err)
		}
		if rec.offset < headerSize || rec.offset+rec.length > trailerStart {
			return fmt.Errorf("record %d block [%d,%d) outside data region", i, rec.offset, rec.offset+rec.length)
		}
		records = append(records, rec)
	}
	c.records = records
	c.dataEnd = trailerStart
	return nil
}

// bufReader collects the first read error instead of threading it through
// every trailer field.
type bufReader struct {
	r   io.Reader
	err error
}

func (b *bufReader) uint32() uint32 {
	var v uint32
	b.read(&v)
	return v
}

func (b *bufReader) int64() int64 {
	var v int64
	b.read(&v)
	return v
}

func (b *bufReader) string8() string {
	var n uint8
	b.read(&n)
	if b.err != nil {
		return ""
	}
	raw := make([]byte, n)
	if _, err := io.ReadFull(b.r, raw); err != nil {
		b.err = err
		return ""
	}
	return string(raw)
}

func (b *bufReader) read(v any) {
	if b.err != nil {
		return
	}
	b.err = binary.Read(b.r, binary.LittleEndian, v)
}

