// Package dxc defines the DXC cache record format: the on-disk encoding of a
// task's captured output files, plus sparse XOR patches for reconstructing a
// near-identical entry from a base without re-transmitting unchanged bytes.
package dxc
