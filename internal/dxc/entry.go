package dxc

import "lukechampine.com/blake3"

// File is one captured output file inside a cache entry.
type File struct {
	// Path is the file's path relative to the task's working directory.
	Path string

	// Content is the file's bytes.
	Content []byte

	// Mode is the unix-style permission mode.
	Mode uint32
}

// Entry is a content-addressed record of one task's output files.
//
// Created after a task's first successful run and read-only thereafter.
// Signature and PublicKey are optional (nil when unsigned); signing is used
// for remote or shared caches where authenticity matters.
type Entry struct {
	TaskHash [32]byte
	Files    []File

	Signature []byte // ed25519 signature over Digest, 64 bytes when present
	PublicKey []byte // ed25519 public key, 32 bytes when present
}

// NewEntry creates an empty entry for the given task hash.
func NewEntry(taskHash [32]byte) *Entry {
	return &Entry{TaskHash: taskHash}
}

// AddFile appends a file to the entry, preserving insertion order.
func (e *Entry) AddFile(path string, content []byte, mode uint32) {
	e.Files = append(e.Files, File{Path: path, Content: content, Mode: mode})
}

// TotalSize returns the total content byte size across all files.
func (e *Entry) TotalSize() int {
	total := 0
	for _, f := range e.Files {
		total += len(f.Content)
	}
	return total
}

// Digest computes the BLAKE3 content digest that signatures cover:
// task_hash, then for each file in order its path bytes and content bytes.
func (e *Entry) Digest() [32]byte {
	h := blake3.New(32, nil)
	h.Write(e.TaskHash[:])
	for _, f := range e.Files {
		h.Write([]byte(f.Path))
		h.Write(f.Content)
	}
	var sum [32]byte
	copy(sum[:], h.Sum(nil))
	return sum
}
