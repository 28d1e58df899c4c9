package vector

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// Snapshot file layout constants. A .dsvx file holds a fixed header,
// the raw little-endian float32 vectors, and a JSON id table whose
// location is recorded in the header.
const (
	MagicBytes    uint32 = 0x44535658
	FormatVersion uint32 = 1
	HeaderSize    int    = 48
)

type snapshotHeader struct {
	Magic     uint32
	Version   uint32
	Count     uint32
	Dim       uint32
	CreatedAt int64
	IDsOffset int64
	IDsSize   int64
}

// WriteSnapshot atomically serialises a Flat index to path. It writes
// to a .tmp file first and renames on success.
func WriteSnapshot(path string, ix *Flat) error {
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating temp snapshot file: %w", err)
	}
	defer f.Close()

	headerBytes := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(headerBytes[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(headerBytes[4:8], FormatVersion)
	binary.LittleEndian.PutUint32(headerBytes[8:12], uint32(ix.Len()))
	binary.LittleEndian.PutUint32(headerBytes[12:16], uint32(ix.Dim()))
	if _, err := f.Write(headerBytes); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	buf := make([]byte, 4*ix.Dim())
	for _, vec := range ix.vectors {
		for i, v := range vec {
			binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
		}
		if _, err := f.Write(buf); err != nil {
			return fmt.Errorf("writing vectors: %w", err)
		}
	}

	idsOffset, _ := f.Seek(0, 1)
	idsData, err := json.Marshal(ix.ids)
	if err != nil {
		return fmt.Errorf("marshaling id table: %w", err)
	}
	if _, err := f.Write(idsData); err != nil {
		return fmt.Errorf("writing id table: %w", err)
	}

	binary.LittleEndian.PutUint64(headerBytes[24:32], uint64(idsOffset))
	binary.LittleEndian.PutUint64(headerBytes[32:40], uint64(len(idsData)))
	if _, err := f.WriteAt(headerBytes, 0); err != nil {
		return fmt.Errorf("updating header: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing snapshot file: %w", err)
	}
	f.Close()
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming snapshot file: %w", err)
	}
	return nil
}

// OpenSnapshot loads a Flat index from a .dsvx file written by
// WriteSnapshot.
func OpenSnapshot(path string) (*Flat, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot file: %w", err)
	}
	defer f.Close()

	headerBytes := make([]byte, HeaderSize)
	if _, err := f.ReadAt(headerBytes, 0); err != nil {
		return nil, fmt.Errorf("reading snapshot header: %w", err)
	}
	magic := binary.LittleEndian.Uint32(headerBytes[0:4])
	if magic != MagicBytes {
		return nil, fmt.Errorf("invalid snapshot file: bad magic bytes %x", magic)
	}
	header := snapshotHeader{
		Magic:     magic,
		Version:   binary.LittleEndian.Uint32(headerBytes[4:8]),
		Count:     binary.LittleEndian.Uint32(headerBytes[8:12]),
		Dim:       binary.LittleEndian.Uint32(headerBytes[12:16]),
		IDsOffset: int64(binary.LittleEndian.Uint64(headerBytes[24:32])),
		IDsSize:   int64(binary.LittleEndian.Uint64(headerBytes[32:40])),
	}
	if header.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", header.Version)
	}

	dim := int(header.Dim)
	count := int(header.Count)
	ix := NewFlat(dim)
	buf := make([]byte, 4*dim)
	offset := int64(HeaderSize)
	for i := 0; i < count; i++ {
		if _, err := f.ReadAt(buf, offset); err != nil {
			return nil, fmt.Errorf("reading vector %d: %w", i, err)
		}
		vec := make([]float32, dim)
		for j := 0; j < dim; j++ {
			vec[j] = math.Float32frombits(binary.LittleEndian.Uint32(buf[j*4:]))
		}
		ix.vectors = append(ix.vectors, vec)
		offset += int64(4 * dim)
	}

	idsBytes := make([]byte, header.IDsSize)
	if _, err := f.ReadAt(idsBytes, header.IDsOffset); err != nil {
		return nil, fmt.Errorf("reading id table: %w", err)
	}
	if err := json.Unmarshal(idsBytes, &ix.ids); err != nil {
		return nil, fmt.Errorf("parsing id table: %w", err)
	}
	if len(ix.ids) != count {
		return nil, fmt.Errorf("snapshot id table has %d entries, header says %d", len(ix.ids), count)
	}
	return ix, nil
}

// Normalize scales vec to unit length in place. Zero vectors are left
// unchanged.
func Normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}
}
