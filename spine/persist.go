package spine

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/hupe1980/termid/internal/conv"
)

const (
	magicIntMap  = 0x53504E49 // "SPNI"
	magicLongMap = 0x53504E4C // "SPNL"
	versionSpine = 1

	maxSegmentSize = 1 << 24
)

// ErrCorrupt is returned when a saved spine fails validation.
var ErrCorrupt = errors.New("spine: corrupt data")

type header struct {
	magic       uint32
	segmentSize uint32
	numSegments uint32
}

func writeHeader(w io.Writer, h header) error {
	var buf [16]byte
	binary.LittleEndian.PutUint32(buf[0:4], h.magic)
	binary.LittleEndian.PutUint32(buf[4:8], versionSpine)
	binary.LittleEndian.PutUint32(buf[8:12], h.segmentSize)
	binary.LittleEndian.PutUint32(buf[12:16], h.numSegments)
	_, err := w.Write(buf[:])
	return err
}

func readHeader(r io.Reader, wantMagic uint32) (header, error) {
	var buf [16]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return header{}, err
	}
	h := header{
		magic:       binary.LittleEndian.Uint32(buf[0:4]),
		segmentSize: binary.LittleEndian.Uint32(buf[8:12]),
		numSegments: binary.LittleEndian.Uint32(buf[12:16]),
	}
	if h.magic != wantMagic {
		return h, fmt.Errorf("%w: invalid magic %x", ErrCorrupt, h.magic)
	}
	if ver := binary.LittleEndian.Uint32(buf[4:8]); ver != versionSpine {
		return h, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, ver)
	}
	if h.segmentSize == 0 || h.segmentSize > maxSegmentSize {
		return h, fmt.Errorf("%w: segment size %d", ErrCorrupt, h.segmentSize)
	}
	if uint64(h.numSegments)*uint64(h.segmentSize) > math.MaxInt32+1 {
		return h, fmt.Errorf("%w: %d segments exceed the key space", ErrCorrupt, h.numSegments)
	}
	return h, nil
}

// Save writes the map: a header, then per segment an existence flag
// followed by presence words and int32 values. Concurrent writers may or may
// not be reflected.
func (m *IntMap) Save(w io.Writer) error {
	bw := bufio.NewWriter(w)
	list := m.segs.snapshot()
	size := m.segs.size

	numSegments, err := conv.IntToUint32(len(list))
	if err != nil {
		return fmt.Errorf("spine: %w", err)
	}
	if err := writeHeader(bw, header{magic: magicIntMap, segmentSize: uint32(size), numSegments: numSegments}); err != nil {
		return err
	}

	words := make([]uint64, (size+63)/64)
	vals := make([]byte, 4*size)
	for _, seg := range list {
		if err := bw.WriteByte(boolByte(seg != nil)); err != nil {
			return err
		}
		if seg == nil {
			continue
		}
		clear(words)
		for off := range seg.slots {
			v, ok := unpackInt(seg.slots[off].Load())
			if ok {
				words[off/64] |= 1 << (off % 64)
			}
			binary.LittleEndian.PutUint32(vals[4*off:], uint32(v))
		}
		if err := binary.Write(bw, binary.LittleEndian, words); err != nil {
			return err
		}
		if _, err := bw.Write(vals); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// LoadIntMap reads a map written by IntMap.Save.
func LoadIntMap(r io.Reader) (*IntMap, error) {
	br := bufio.NewReader(r)
	h, err := readHeader(br, magicIntMap)
	if err != nil {
		return nil, err
	}

	m := NewIntMap(WithSegmentSize(int(h.segmentSize)))
	size := int(h.segmentSize)
	list := make([]*intSegment, h.numSegments)
	words := make([]uint64, (size+63)/64)
	vals := make([]byte, 4*size)

	for i := range list {
		exists, err := readExists(br)
		if err != nil {
			return nil, err
		}
		if !exists {
			continue
		}
		if err := binary.Read(br, binary.LittleEndian, words); err != nil {
			return nil, unexpected(err)
		}
		if _, err := io.ReadFull(br, vals); err != nil {
			return nil, unexpected(err)
		}
		seg := newIntSegment(size)
		for off := range seg.slots {
			if words[off/64]&(1<<(off%64)) == 0 {
				continue
			}
			seg.slots[off].Store(packInt(int32(binary.LittleEndian.Uint32(vals[4*off:]))))
			m.count.Add(1)
		}
		list[i] = seg
	}

	m.segs.install(list)
	return m, nil
}

// Save writes the map: a header, then per segment an existence flag
// followed by presence words and int64 values.
func (m *LongMap) Save(w io.Writer) error {
	bw := bufio.NewWriter(w)
	list := m.segs.snapshot()
	size := m.segs.size

	numSegments, err := conv.IntToUint32(len(list))
	if err != nil {
		return fmt.Errorf("spine: %w", err)
	}
	if err := writeHeader(bw, header{magic: magicLongMap, segmentSize: uint32(size), numSegments: numSegments}); err != nil {
		return err
	}

	words := make([]uint64, (size+63)/64)
	vals := make([]byte, 8*size)
	for _, seg := range list {
		if err := bw.WriteByte(boolByte(seg != nil)); err != nil {
			return err
		}
		if seg == nil {
			continue
		}
		for i := range words {
			words[i] = seg.present[i].Load()
		}
		for off := range seg.vals {
			binary.LittleEndian.PutUint64(vals[8*off:], uint64(seg.vals[off].Load()))
		}
		if err := binary.Write(bw, binary.LittleEndian, words); err != nil {
			return err
		}
		if _, err := bw.Write(vals); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// LoadLongMap reads a map written by LongMap.Save.
func LoadLongMap(r io.Reader) (*LongMap, error) {
	br := bufio.NewReader(r)
	h, err := readHeader(br, magicLongMap)
	if err != nil {
		return nil, err
	}

	m := NewLongMap(WithSegmentSize(int(h.segmentSize)))
	size := int(h.segmentSize)
	list := make([]*longSegment, h.numSegments)
	words := make([]uint64, (size+63)/64)
	vals := make([]byte, 8*size)

	for i := range list {
		exists, err := readExists(br)
		if err != nil {
			return nil, err
		}
		if !exists {
			continue
		}
		if err := binary.Read(br, binary.LittleEndian, words); err != nil {
			return nil, unexpected(err)
		}
		if _, err := io.ReadFull(br, vals); err != nil {
			return nil, unexpected(err)
		}
		seg := newLongSegment(size)
		for off := range seg.vals {
			if words[off/64]&(1<<(off%64)) == 0 {
				continue
			}
			seg.vals[off].Store(int64(binary.LittleEndian.Uint64(vals[8*off:])))
			seg.setPresent(off)
			m.count.Add(1)
		}
		list[i] = seg
	}

	m.segs.install(list)
	return m, nil
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func readExists(br *bufio.Reader) (bool, error) {
	b, err := br.ReadByte()
	if err != nil {
		return false, unexpected(err)
	}
	switch b {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("%w: segment flag %d", ErrCorrupt, b)
	}
}

func unexpected(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}
