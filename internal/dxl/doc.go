// Package dxl implements the DXL workspace lockfile: a binary, O(1)-lookup
// record of resolved package versions carrying an 8-counter vector clock, so
// two machines' lockfiles can be reconciled with CRDT semantics and no
// central lock server.
//
// The package-version resolution algorithm that produces a lockfile's
// contents lives elsewhere; only the storage and merge format is here.
package dxl
