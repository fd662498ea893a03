package bag

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"

	"lukechampine.com/blake3"
)

// Binary layout (little-endian), following the BTG header conventions:
//
//	header (64 bytes):
//	  0:4    magic "DXAG"
//	  4:8    version u32
//	  8:12   package_count u32
//	  12:16  file_count u32
//	  16:20  inverse_offset u32
//	  20:24  closure_offset u32
//	  24:28  filemap_offset u32
//	  28:32  reserved
//	  32:64  content_hash (BLAKE3 of everything after the header)
//	inverse: per package, count u32 followed by count u32 dependents
//	closure: same shape as inverse
//	filemap: file_count (path_hash u64, package u32) records
const (
	FormatVersion = 1

	HeaderSize = 64
)

var magic = [4]byte{'D', 'X', 'A', 'G'}

// ErrCorrupted indicates a structurally invalid affected-graph buffer.
var ErrCorrupted = errors.New("corrupted affected graph")

func corruptedf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCorrupted, fmt.Sprintf(format, args...))
}

// Encode serializes the index.
func Encode(g *Graph) []byte {
	buf := make([]byte, HeaderSize)
	copy(buf[0:4], magic[:])
	binary.LittleEndian.PutUint32(buf[4:8], FormatVersion)
	binary.LittleEndian.PutUint32(buf[8:12], g.packageCount)
	binary.LittleEndian.PutUint32(buf[12:16], uint32(len(g.fileMap)))

	writeLists := func(lists [][]uint32) {
		for _, list := range lists {
			buf = binary.LittleEndian.AppendUint32(buf, uint32(len(list)))
			for _, v := range list {
				buf = binary.LittleEndian.AppendUint32(buf, v)
			}
		}
	}

	binary.LittleEndian.PutUint32(buf[16:20], uint32(len(buf)))
	writeLists(g.inverseDeps)
	binary.LittleEndian.PutUint32(buf[20:24], uint32(len(buf)))
	writeLists(g.closure)
	binary.LittleEndian.PutUint32(buf[24:28], uint32(len(buf)))

	// File map records sorted by path hash for a stable buffer.
	hashes := make([]uint64, 0, len(g.fileMap))
	for h := range g.fileMap {
		hashes = append(hashes, h)
	}
	sort.Slice(hashes, func(i, j int) bool { return hashes[i] < hashes[j] })
	for _, h := range hashes {
		buf = binary.LittleEndian.AppendUint64(buf, h)
		buf = binary.LittleEndian.AppendUint32(buf, g.fileMap[h])
	}

	sum := blake3.Sum256(buf[HeaderSize:])
	copy(buf[32:64], sum[:])
	return buf
}

// Decode parses and validates a buffer. Offsets and list lengths are bounds
// checked before use; the content hash is verified first.
func Decode(data []byte) (*Graph, error) {
	if len(data) < HeaderSize {
		return nil, corruptedf("buffer too small for header: %d bytes, need %d", len(data), HeaderSize)
	}
	if [4]byte(data[0:4]) != magic {
		return nil, corruptedf("bad magic %q at offset 0", data[0:4])
	}
	if v := binary.LittleEndian.Uint32(data[4:8]); v != FormatVersion {
		return nil, corruptedf("unsupported version %d", v)
	}
	sum := blake3.Sum256(data[HeaderSize:])
	if [32]byte(data[32:64]) != sum {
		return nil, corruptedf("content hash mismatch")
	}

	packageCount := binary.LittleEndian.Uint32(data[8:12])
	fileCount := binary.LittleEndian.Uint32(data[12:16])
	inverseOff := binary.LittleEndian.Uint32(data[16:20])
	closureOff := binary.LittleEndian.Uint32(data[20:24])
	filemapOff := binary.LittleEndian.Uint32(data[24:28])

	readLists := func(off uint32, section string) ([][]uint32, uint64, error) {
		cursor := uint64(off)
		lists := make([][]uint32, packageCount)
		for i := range lists {
			if cursor+4 > uint64(len(data)) {
				return nil, 0, corruptedf("%s section truncated at offset %d", section, cursor)
			}
			count := binary.LittleEndian.Uint32(data[cursor:])
			cursor += 4
			if uint64(count)*4 > uint64(len(data))-cursor {
				return nil, 0, corruptedf("%s list %d: count %d exceeds remaining buffer", section, i, count)
			}
			list := make([]uint32, count)
			for j := range list {
				v := binary.LittleEndian.Uint32(data[cursor:])
				if v >= packageCount {
					return nil, 0, corruptedf("%s list %d references package %d outside [0, %d)", section, i, v, packageCount)
				}
				list[j] = v
				cursor += 4
			}
			lists[i] = list
		}
		return lists, cursor, nil
	}

	if uint64(inverseOff) != HeaderSize {
		return nil, corruptedf("inverse section offset %d, want %d", inverseOff, HeaderSize)
	}
	inverse, end, err := readLists(inverseOff, "inverse")
	if err != nil {
		return nil, err
	}
	if uint64(closureOff) != end {
		return nil, corruptedf("closure section offset %d, want %d", closureOff, end)
	}
	closure, end, err := readLists(closureOff, "closure")
	if err != nil {
		return nil, err
	}
	if uint64(filemapOff) != end {
		return nil, corruptedf("file map offset %d, want %d", filemapOff, end)
	}
	if uint64(filemapOff)+uint64(fileCount)*12 > uint64(len(data)) {
		return nil, corruptedf("file map with %d records exceeds buffer", fileCount)
	}

	fileMap := make(map[uint64]uint32, fileCount)
	for i := uint32(0); i < fileCount; i++ {
		rec := data[filemapOff+i*12:]
		pkg := binary.LittleEndian.Uint32(rec[8:12])
		if pkg >= packageCount {
			return nil, corruptedf("file map record %d references package %d outside [0, %d)", i, pkg, packageCount)
		}
		fileMap[binary.LittleEndian.Uint64(rec[0:8])] = pkg
	}

	return &Graph{
		packageCount: packageCount,
		inverseDeps:  inverse,
		closure:      closure,
		fileMap:      fileMap,
	}, nil
}
