// Package tmcl implements the fixed 9-byte binary command/reply
// protocol spoken by TMCL motion controller firmware.
//
// A request frame is laid out as
//
//	address, command, type, motor, value (i32 big-endian), checksum
//
// and a reply frame as
//
//	reply address, module address, status, command echo,
//	value (i32 big-endian), checksum
//
// where the checksum is the arithmetic sum of the preceding 8 bytes
// modulo 256. The codec is stateless; all I/O lives in pkg/axis.
package tmcl
