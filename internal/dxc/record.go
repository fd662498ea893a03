package dxc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"unicode/utf8"
)

// On-disk record layout (little-endian):
//
//	magic "DXC\0" (4) · version u32 · task_hash (32) · file_count u32 ·
//	per file: path_len u32 · path · content_len u64 · content · mode u32
//
// A buffer shorter than the 44-byte prefix, or whose declared lengths exceed
// the remaining buffer, is corrupted. The cache layer treats corrupted
// records as misses; DecodeRecord itself reports the precise failure.
const (
	FormatVersion = 1

	recordPrefixSize = 44
)

var magic = [4]byte{'D', 'X', 'C', 0}

// ErrCorrupted indicates a structurally invalid cache record.
var ErrCorrupted = errors.New("corrupted cache record")

func corruptedf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCorrupted, fmt.Sprintf(format, args...))
}

// EncodeRecord serializes an entry into the DXC record format.
//
// Signatures are not part of the record; they travel with the entry via the
// remote-cache transport, which is out of scope here.
func EncodeRecord(e *Entry) []byte {
	size := recordPrefixSize
	for _, f := range e.Files {
		size += 4 + len(f.Path) + 8 + len(f.Content) + 4
	}

	buf := make([]byte, 0, size)
	buf = append(buf, magic[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, FormatVersion)
	buf = append(buf, e.TaskHash[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(e.Files)))

	for _, f := range e.Files {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(f.Path)))
		buf = append(buf, f.Path...)
		buf = binary.LittleEndian.AppendUint64(buf, uint64(len(f.Content)))
		buf = append(buf, f.Content...)
		buf = binary.LittleEndian.AppendUint32(buf, f.Mode)
	}
	return buf
}

// DecodeRecord parses a DXC record with bounds-checked reads.
func DecodeRecord(data []byte) (*Entry, error) {
	if len(data) < recordPrefixSize {
		return nil, corruptedf("buffer too small: %d bytes, need %d", len(data), recordPrefixSize)
	}
	if [4]byte(data[0:4]) != magic {
		return nil, corruptedf("bad magic %q at offset 0", data[0:4])
	}
	version := binary.LittleEndian.Uint32(data[4:8])
	if version != FormatVersion {
		return nil, corruptedf("unsupported version %d", version)
	}

	entry := NewEntry([32]byte(data[8:40]))
	fileCount := binary.LittleEndian.Uint32(data[40:44])

	offset := uint64(recordPrefixSize)
	remaining := uint64(len(data))
	for i := uint32(0); i < fileCount; i++ {
		if offset+4 > remaining {
			return nil, corruptedf("file %d: path length truncated at offset %d", i, offset)
		}
		pathLen := uint64(binary.LittleEndian.Uint32(data[offset:]))
		offset += 4

		if pathLen > remaining-offset {
			return nil, corruptedf("file %d: path length %d exceeds remaining %d", i, pathLen, remaining-offset)
		}
		path := data[offset : offset+pathLen]
		if !utf8.Valid(path) {
			return nil, corruptedf("file %d: path is not valid UTF-8", i)
		}
		offset += pathLen

		if offset+8 > remaining {
			return nil, corruptedf("file %d: content length truncated at offset %d", i, offset)
		}
		contentLen := binary.LittleEndian.Uint64(data[offset:])
		offset += 8

		if contentLen > remaining-offset {
			return nil, corruptedf("file %d: content length %d exceeds remaining %d", i, contentLen, remaining-offset)
		}
		content := make([]byte, contentLen)
		copy(content, data[offset:offset+contentLen])
		offset += contentLen

		if offset+4 > remaining {
			return nil, corruptedf("file %d: mode truncated at offset %d", i, offset)
		}
		mode := binary.LittleEndian.Uint32(data[offset:])
		offset += 4

		entry.AddFile(string(path), content, mode)
	}

	return entry, nil
}
