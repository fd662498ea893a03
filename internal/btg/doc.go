// Package btg defines the Binary Task Graph format.
//
// A BTG buffer is an immutable, versioned description of a monorepo's tasks
// and their dependency edges, produced by an external resolver and consumed
// by the executor. It is intentionally split into:
//   - Immutable graph model (Graph): tasks + dependency structure + derived
//     topological order and parallel groups
//   - An explicit byte-level codec (Encode/Decode) with bounds-checked reads
//
// Decode validates the fixed header (magic, version, section offsets, BLAKE3
// content hash) before trusting any variable-length section, and rejects
// cyclic graphs with a deterministic cycle witness.
package btg
