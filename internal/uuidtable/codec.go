package uuidtable

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/hupe1980/termid/internal/conv"
	"github.com/hupe1980/termid/internal/hash"
)

const (
	magic   = 0x5555494E // "UUIN"
	version = 1

	headerSize = 12 // magic + version + count
	recordSize = 20 // msb + lsb + value
	footerSize = 4  // crc32c
)

// ErrCorrupt is returned when a serialized table fails validation.
var ErrCorrupt = errors.New("uuidtable: corrupt data")

// MarshalBinary encodes the table as
//
//	[magic u32][version u32][count u32] count×[msb u64][lsb u64][value i32] [crc32c u32]
//
// in little-endian byte order. The checksum covers everything before it.
func (t *Table) MarshalBinary() ([]byte, error) {
	count, err := conv.IntToUint32(t.count)
	if err != nil {
		return nil, fmt.Errorf("uuidtable: %w", err)
	}
	buf := make([]byte, headerSize+t.count*recordSize+footerSize)
	binary.LittleEndian.PutUint32(buf[0:4], magic)
	binary.LittleEndian.PutUint32(buf[4:8], version)
	binary.LittleEndian.PutUint32(buf[8:12], count)

	off := headerSize
	for i, s := range t.states {
		if s != slotFull {
			continue
		}
		binary.LittleEndian.PutUint64(buf[off:], t.msb[i])
		binary.LittleEndian.PutUint64(buf[off+8:], t.lsb[i])
		binary.LittleEndian.PutUint32(buf[off+16:], uint32(t.vals[i]))
		off += recordSize
	}
	binary.LittleEndian.PutUint32(buf[off:], hash.CRC32C(buf[:off]))
	return buf, nil
}

// Unmarshal decodes a table produced by MarshalBinary.
func Unmarshal(data []byte) (*Table, error) {
	if len(data) < headerSize+footerSize {
		return nil, fmt.Errorf("%w: short buffer (%d bytes)", ErrCorrupt, len(data))
	}
	if m := binary.LittleEndian.Uint32(data[0:4]); m != magic {
		return nil, fmt.Errorf("%w: bad magic %#x", ErrCorrupt, m)
	}
	if v := binary.LittleEndian.Uint32(data[4:8]); v != version {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, v)
	}
	count, err := conv.Uint32ToInt(binary.LittleEndian.Uint32(data[8:12]))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if want := headerSize + count*recordSize + footerSize; len(data) != want {
		return nil, fmt.Errorf("%w: length %d, want %d for %d records", ErrCorrupt, len(data), want, count)
	}

	body := data[:len(data)-footerSize]
	if got, want := hash.CRC32C(body), binary.LittleEndian.Uint32(data[len(body):]); got != want {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCorrupt)
	}

	t := New(count)
	off := headerSize
	for range count {
		msb := binary.LittleEndian.Uint64(data[off:])
		lsb := binary.LittleEndian.Uint64(data[off+8:])
		v := int32(binary.LittleEndian.Uint32(data[off+16:]))
		if _, dup := t.put(msb, lsb, v); dup {
			return nil, fmt.Errorf("%w: duplicate key", ErrCorrupt)
		}
		off += recordSize
	}
	return t, nil
}
