package dxl

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"lukechampine.com/blake3"
)

// Binary layout (all integers little-endian):
//
//	header (128 bytes):
//	  0:4    magic "DXLW"
//	  4:8    version u32
//	  8:12   package_count u32
//	  12:16  index_offset u32
//	  16:20  entries_offset u32
//	  20:24  conflicts_offset u32 (reserved, 0)
//	  24:28  hoisting_offset u32 (reserved, 0)
//	  28:32  reserved
//	  32:96  vector_clock 8 x u64
//	  96:128 content_hash (BLAKE3 of everything after the header)
//	index:   package_count (name_hash u64, entry_offset u64) pairs, so a
//	         reader can locate one entry without scanning
//	entries: package_count fixed 52-byte records
//	deps:    per-package (name_off u32, range_off u32) pairs
//	strings: NUL-delimited string table; all string offsets are absolute
//	         buffer offsets
const (
	FormatVersion = 1

	HeaderSize      = 128
	indexPairSize   = 16
	entryRecordSize = 52
	depRecordSize   = 8
)

var magic = [4]byte{'D', 'X', 'L', 'W'}

func packVersion(v Version) (uint32, error) {
	if v.Major > 0xFFF {
		return 0, fmt.Errorf("%w: major %d exceeds 12 bits", ErrVersionOverflow, v.Major)
	}
	if v.Minor > 0x3FF || v.Patch > 0x3FF {
		return 0, fmt.Errorf("%w: minor %d / patch %d exceed 10 bits", ErrVersionOverflow, v.Minor, v.Patch)
	}
	return uint32(v.Major)<<20 | uint32(v.Minor)<<10 | uint32(v.Patch), nil
}

func unpackVersion(packed uint32) Version {
	return Version{
		Major: uint16(packed >> 20),
		Minor: uint16(packed >> 10 & 0x3FF),
		Patch: uint16(packed & 0x3FF),
	}
}

// Encode serializes a lockfile to the DXL format.
func Encode(l *Lockfile) ([]byte, error) {
	totalDeps := 0
	for _, p := range l.Packages {
		totalDeps += len(p.Dependencies)
	}

	indexOffset := uint32(HeaderSize)
	entriesOffset := indexOffset + uint32(len(l.Packages)*indexPairSize)
	depsOffset := entriesOffset + uint32(len(l.Packages)*entryRecordSize)
	stringsOffset := depsOffset + uint32(totalDeps*depRecordSize)

	table, offsets := buildStringTable(l, stringsOffset)

	buf := make([]byte, stringsOffset, int(stringsOffset)+len(table))

	copy(buf[0:4], magic[:])
	binary.LittleEndian.PutUint32(buf[4:8], FormatVersion)
	binary.LittleEndian.PutUint32(buf[8:12], uint32(len(l.Packages)))
	binary.LittleEndian.PutUint32(buf[12:16], indexOffset)
	binary.LittleEndian.PutUint32(buf[16:20], entriesOffset)
	for i, v := range l.Clock {
		binary.LittleEndian.PutUint64(buf[32+i*8:], v)
	}

	depCursor := depsOffset
	for i, p := range l.Packages {
		entryOff := entriesOffset + uint32(i*entryRecordSize)

		// Index pair.
		pair := buf[indexOffset+uint32(i*indexPairSize):]
		binary.LittleEndian.PutUint64(pair[0:8], xxhash.Sum64String(p.Name))
		binary.LittleEndian.PutUint64(pair[8:16], uint64(entryOff))

		packed, err := packVersion(p.Version)
		if err != nil {
			return nil, fmt.Errorf("package %q: %w", p.Name, err)
		}

		rec := buf[entryOff:]
		binary.LittleEndian.PutUint32(rec[0:4], offsets[p.Name])
		binary.LittleEndian.PutUint32(rec[4:8], packed)
		copy(rec[8:40], p.Integrity[:])
		binary.LittleEndian.PutUint32(rec[40:44], offsets[p.TarballURL])
		binary.LittleEndian.PutUint32(rec[44:48], depCursor)
		binary.LittleEndian.PutUint16(rec[48:50], uint16(len(p.Dependencies)))

		for _, d := range p.Dependencies {
			dep := buf[depCursor:]
			binary.LittleEndian.PutUint32(dep[0:4], offsets[d.Name])
			binary.LittleEndian.PutUint32(dep[4:8], offsets[d.Range])
			depCursor += depRecordSize
		}
	}

	buf = append(buf, table...)

	sum := blake3.Sum256(buf[HeaderSize:])
	copy(buf[96:128], sum[:])

	return buf, nil
}

// Decode parses and validates a DXL buffer. The magic, version and content
// hash are checked before any offset is trusted, and every offset is bounds
// checked against the buffer length.
func Decode(data []byte) (*Lockfile, error) {
	if len(data) < HeaderSize {
		return nil, corruptedf("buffer too small for header: %d bytes, need %d", len(data), HeaderSize)
	}
	if [4]byte(data[0:4]) != magic {
		return nil, corruptedf("bad magic %q at offset 0", data[0:4])
	}
	version := binary.LittleEndian.Uint32(data[4:8])
	if version != FormatVersion {
		return nil, fmt.Errorf("%w: version %d, want %d", ErrUnsupportedVersion, version, FormatVersion)
	}

	sum := blake3.Sum256(data[HeaderSize:])
	if [32]byte(data[96:128]) != sum {
		return nil, corruptedf("content hash mismatch")
	}

	packageCount := binary.LittleEndian.Uint32(data[8:12])
	indexOffset := binary.LittleEndian.Uint32(data[12:16])
	entriesOffset := binary.LittleEndian.Uint32(data[16:20])

	indexEnd := uint64(indexOffset) + uint64(packageCount)*indexPairSize
	entriesEnd := uint64(entriesOffset) + uint64(packageCount)*entryRecordSize
	if uint64(indexOffset) < HeaderSize || indexEnd > uint64(len(data)) {
		return nil, corruptedf("index section [%d:%d] out of range (buffer %d)", indexOffset, indexEnd, len(data))
	}
	if uint64(entriesOffset) < indexEnd || entriesEnd > uint64(len(data)) {
		return nil, corruptedf("entry section [%d:%d] out of range (buffer %d)", entriesOffset, entriesEnd, len(data))
	}

	l := New()
	for i := 0; i < NodeCount; i++ {
		l.Clock[i] = binary.LittleEndian.Uint64(data[32+i*8:])
	}

	for i := uint32(0); i < packageCount; i++ {
		rec := data[entriesOffset+i*entryRecordSize:]

		name, ok := readString(data, binary.LittleEndian.Uint32(rec[0:4]))
		if !ok {
			return nil, corruptedf("package %d: name offset out of range", i)
		}
		url, ok := readString(data, binary.LittleEndian.Uint32(rec[40:44]))
		if !ok {
			return nil, corruptedf("package %d: tarball url offset out of range", i)
		}

		// Index pairs must agree with the entries they point at.
		pair := data[indexOffset+i*indexPairSize:]
		if binary.LittleEndian.Uint64(pair[0:8]) != xxhash.Sum64String(name) {
			return nil, corruptedf("index entry %d: name hash mismatch for %q", i, name)
		}
		if binary.LittleEndian.Uint64(pair[8:16]) != uint64(entriesOffset+i*entryRecordSize) {
			return nil, corruptedf("index entry %d: offset mismatch", i)
		}

		depsOff := binary.LittleEndian.Uint32(rec[44:48])
		depCount := binary.LittleEndian.Uint16(rec[48:50])
		depsEnd := uint64(depsOff) + uint64(depCount)*depRecordSize
		if depCount > 0 && (uint64(depsOff) < entriesEnd || depsEnd > uint64(len(data))) {
			return nil, corruptedf("package %q: dependency section [%d:%d] out of range", name, depsOff, depsEnd)
		}

		deps := make([]Dependency, 0, depCount)
		for d := uint16(0); d < depCount; d++ {
			depRec := data[depsOff+uint32(d)*depRecordSize:]
			depName, ok := readString(data, binary.LittleEndian.Uint32(depRec[0:4]))
			if !ok {
				return nil, corruptedf("package %q: dependency %d name offset out of range", name, d)
			}
			depRange, ok := readString(data, binary.LittleEndian.Uint32(depRec[4:8]))
			if !ok {
				return nil, corruptedf("package %q: dependency %d range offset out of range", name, d)
			}
			deps = append(deps, Dependency{Name: depName, Range: depRange})
		}

		l.Packages = append(l.Packages, PackageResolution{
			Name:         name,
			Version:      unpackVersion(binary.LittleEndian.Uint32(rec[4:8])),
			Integrity:    [32]byte(rec[8:40]),
			TarballURL:   url,
			Dependencies: deps,
		})
	}

	return l, nil
}

// buildStringTable collects every string once and records its absolute
// buffer offset (base is where the table will start).
func buildStringTable(l *Lockfile, base uint32) ([]byte, map[string]uint32) {
	table := make([]byte, 0, 256)
	offsets := make(map[string]uint32)

	add := func(s string) {
		if _, ok := offsets[s]; ok {
			return
		}
		offsets[s] = base + uint32(len(table))
		table = append(table, s...)
		table = append(table, 0)
	}

	for _, p := range l.Packages {
		add(p.Name)
		add(p.TarballURL)
		for _, d := range p.Dependencies {
			add(d.Name)
			add(d.Range)
		}
	}
	return table, offsets
}

// readString reads a NUL-terminated string at an absolute buffer offset.
func readString(data []byte, off uint32) (string, bool) {
	if uint64(off) >= uint64(len(data)) {
		return "", false
	}
	for i := int(off); i < len(data); i++ {
		if data[i] == 0 {
			return string(data[off:i]), true
		}
	}
	return "", false
}
