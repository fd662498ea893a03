package btg

import (
	"encoding/binary"
	"fmt"
	"sort"

	"lukechampine.com/blake3"
)

// Binary layout (all integers little-endian):
//
//	header (64 bytes):
//	  0:4    magic "DXTG"
//	  4:8    version u32
//	  8:12   task_count u32
//	  12:16  edge_count u32
//	  16:20  tasks_offset u32
//	  20:24  edges_offset u32
//	  24:28  strings_offset u32
//	  28:32  reserved
//	  32:64  content_hash (BLAKE3 of everything after the header)
//	tasks:   task_count fixed 28-byte records
//	edges:   edge_count (from u32, to u32) pairs
//	strings: NUL-delimited string table; task records reference byte offsets
const (
	FormatVersion = 1

	HeaderSize     = 64
	taskRecordSize = 28

	flagCacheable = 1 << 0
)

var magic = [4]byte{'D', 'X', 'T', 'G'}

// Encode serializes tasks and edges into a BTG buffer.
//
// Edges are canonicalized (sorted by from, then to) so the buffer, and
// therefore its content hash, is invariant to edge insertion order. Encode
// does not validate acyclicity; Decode does.
func Encode(tasks []Task, edges []Edge) []byte {
	sorted := make([]Edge, len(edges))
	copy(sorted, edges)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].From != sorted[j].From {
			return sorted[i].From < sorted[j].From
		}
		return sorted[i].To < sorted[j].To
	})

	strings, offsets := buildStringTable(tasks)

	tasksOffset := uint32(HeaderSize)
	edgesOffset := tasksOffset + uint32(len(tasks)*taskRecordSize)
	stringsOffset := edgesOffset + uint32(len(sorted)*8)

	buf := make([]byte, 0, int(stringsOffset)+len(strings))
	buf = append(buf, make([]byte, HeaderSize)...)

	copy(buf[0:4], magic[:])
	binary.LittleEndian.PutUint32(buf[4:8], FormatVersion)
	binary.LittleEndian.PutUint32(buf[8:12], uint32(len(tasks)))
	binary.LittleEndian.PutUint32(buf[12:16], uint32(len(sorted)))
	binary.LittleEndian.PutUint32(buf[16:20], tasksOffset)
	binary.LittleEndian.PutUint32(buf[20:24], edgesOffset)
	binary.LittleEndian.PutUint32(buf[24:28], stringsOffset)

	var rec [taskRecordSize]byte
	for _, t := range tasks {
		binary.LittleEndian.PutUint32(rec[0:4], offsets[t.Name])
		binary.LittleEndian.PutUint32(rec[4:8], t.PackageIdx)
		binary.LittleEndian.PutUint32(rec[8:12], offsets[t.Command])
		copy(rec[12:20], t.DefinitionHash[:])
		binary.LittleEndian.PutUint32(rec[20:24], t.FrameBudgetUS)
		var flags uint32
		if t.Cacheable {
			flags |= flagCacheable
		}
		binary.LittleEndian.PutUint32(rec[24:28], flags)
		buf = append(buf, rec[:]...)
	}

	for _, e := range sorted {
		var pair [8]byte
		binary.LittleEndian.PutUint32(pair[0:4], e.From)
		binary.LittleEndian.PutUint32(pair[4:8], e.To)
		buf = append(buf, pair[:]...)
	}

	buf = append(buf, strings...)

	sum := blake3.Sum256(buf[HeaderSize:])
	copy(buf[32:64], sum[:])

	return buf
}

// Decode parses and validates a BTG buffer.
//
// The header is validated (magic, version, offsets, content hash) before any
// section is read; no offset is trusted beyond the buffer length. A cyclic
// edge set is a decode error carrying a deterministic cycle witness.
func Decode(data []byte) (*Graph, error) {
	if len(data) < HeaderSize {
		return nil, corruptedf("buffer too small for header: %d bytes, need %d", len(data), HeaderSize)
	}
	if [4]byte(data[0:4]) != magic {
		return nil, corruptedf("bad magic %q at offset 0", data[0:4])
	}
	version := binary.LittleEndian.Uint32(data[4:8])
	if version != FormatVersion {
		return nil, &FormatError{Kind: ErrUnsupportedVersion, Msg: fmt.Sprintf("version %d, want %d", version, FormatVersion)}
	}

	taskCount := binary.LittleEndian.Uint32(data[8:12])
	edgeCount := binary.LittleEndian.Uint32(data[12:16])
	tasksOffset := binary.LittleEndian.Uint32(data[16:20])
	edgesOffset := binary.LittleEndian.Uint32(data[20:24])
	stringsOffset := binary.LittleEndian.Uint32(data[24:28])

	sum := blake3.Sum256(data[HeaderSize:])
	if [32]byte(data[32:64]) != sum {
		return nil, corruptedf("content hash mismatch")
	}

	tasksEnd := uint64(tasksOffset) + uint64(taskCount)*taskRecordSize
	edgesEnd := uint64(edgesOffset) + uint64(edgeCount)*8
	if uint64(tasksOffset) < HeaderSize || tasksEnd > uint64(len(data)) {
		return nil, corruptedf("task section [%d:%d] out of range (buffer %d)", tasksOffset, tasksEnd, len(data))
	}
	if uint64(edgesOffset) < tasksEnd || edgesEnd > uint64(len(data)) {
		return nil, corruptedf("edge section [%d:%d] out of range (buffer %d)", edgesOffset, edgesEnd, len(data))
	}
	if uint64(stringsOffset) < edgesEnd || uint64(stringsOffset) > uint64(len(data)) {
		return nil, corruptedf("string table offset %d out of range (buffer %d)", stringsOffset, len(data))
	}
	strings := data[stringsOffset:]

	tasks := make([]Task, taskCount)
	for i := range tasks {
		rec := data[int(tasksOffset)+i*taskRecordSize:]
		nameOff := binary.LittleEndian.Uint32(rec[0:4])
		cmdOff := binary.LittleEndian.Uint32(rec[8:12])
		name, ok := readString(strings, nameOff)
		if !ok {
			return nil, corruptedf("task %d: name offset %d outside string table", i, nameOff)
		}
		cmd, ok := readString(strings, cmdOff)
		if !ok {
			return nil, corruptedf("task %d: command offset %d outside string table", i, cmdOff)
		}
		flags := binary.LittleEndian.Uint32(rec[24:28])
		tasks[i] = Task{
			Name:           name,
			PackageIdx:     binary.LittleEndian.Uint32(rec[4:8]),
			Command:        cmd,
			DefinitionHash: [8]byte(rec[12:20]),
			FrameBudgetUS:  binary.LittleEndian.Uint32(rec[20:24]),
			Cacheable:      flags&flagCacheable != 0,
		}
	}

	edges := make([]Edge, edgeCount)
	for i := range edges {
		pair := data[int(edgesOffset)+i*8:]
		e := Edge{
			From: binary.LittleEndian.Uint32(pair[0:4]),
			To:   binary.LittleEndian.Uint32(pair[4:8]),
		}
		if e.From >= taskCount || e.To >= taskCount {
			return nil, corruptedf("edge %d (%d -> %d) references task outside [0, %d)", i, e.From, e.To, taskCount)
		}
		if e.From == e.To {
			return nil, corruptedf("edge %d is a self-loop on task %d", i, e.From)
		}
		edges[i] = e
	}

	return build(tasks, edges)
}

// build assembles the adjacency indexes and derived orderings and proves the
// graph acyclic.
func build(tasks []Task, edges []Edge) (*Graph, error) {
	outgoing := make([][]uint32, len(tasks))
	incoming := make([][]uint32, len(tasks))
	for _, e := range edges {
		outgoing[e.From] = append(outgoing[e.From], e.To)
		incoming[e.To] = append(incoming[e.To], e.From)
	}
	for i := range outgoing {
		sort.Slice(outgoing[i], func(a, b int) bool { return outgoing[i][a] < outgoing[i][b] })
	}
	for i := range incoming {
		sort.Slice(incoming[i], func(a, b int) bool { return incoming[i][a] < incoming[i][b] })
	}

	g := &Graph{
		tasks:    tasks,
		edges:    edges,
		outgoing: outgoing,
		incoming: incoming,
	}

	order := g.topoOrderIndices()
	if len(order) != len(tasks) {
		return nil, cycleError(g.findCycleDeterministic())
	}
	g.topoOrder = order
	g.parallelGroups = g.computeParallelGroups(order)

	return g, nil
}

// computeParallelGroups stages tasks by topological depth: a task's depth is
// one past the maximum depth of its dependencies.
func (g *Graph) computeParallelGroups(order []uint32) [][]uint32 {
	depth := make([]int, len(g.tasks))
	maxDepth := 0
	for _, u := range order {
		d := 0
		for _, p := range g.incoming[u] {
			if depth[p]+1 > d {
				d = depth[p] + 1
			}
		}
		depth[u] = d
		if d > maxDepth {
			maxDepth = d
		}
	}

	groups := make([][]uint32, maxDepth+1)
	for idx := range g.tasks {
		d := depth[idx]
		groups[d] = append(groups[d], uint32(idx))
	}
	return groups
}

func buildStringTable(tasks []Task) ([]byte, map[string]uint32) {
	table := make([]byte, 0, 64)
	offsets := make(map[string]uint32)
	for _, t := range tasks {
		for _, s := range []string{t.Name, t.Command} {
			if _, ok := offsets[s]; ok {
				continue
			}
			offsets[s] = uint32(len(table))
			table = append(table, s...)
			table = append(table, 0)
		}
	}
	return table, offsets
}

// readString reads a NUL-terminated string at off within the string table.
func readString(table []byte, off uint32) (string, bool) {
	if uint64(off) >= uint64(len(table)) {
		return "", false
	}
	for i := int(off); i < len(table); i++ {
		if table[i] == 0 {
			return string(table[off:i]), true
		}
	}
	return "", false
}
