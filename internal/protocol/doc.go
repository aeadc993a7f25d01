// Package protocol owns the DGT wire contract and message interpretation.
//
// Ownership boundary:
// - command and message type codes
// - frame -> typed message mapping (Interpret)
// - reply tags used for request correlation
//
// Byte layouts follow the DGT board and clock serial protocol; board
// dumps are 64 piece codes in a8..h1 order, lengths are 14-bit header counts.
package protocol
