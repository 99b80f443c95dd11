// Package frag implements the fragment framing of the fragudp protocol.
//
// A logical message is split into fragments that each fit in one datagram of
// at most MTU bytes. Every fragment starts with a fixed 32-byte header:
//
//	 0                   1                   2                   3
//	+-------------------------------+-------------------------------+
//	|                  Message ID (16 bytes, UUID)                  |
//	+---------------------------------------------------------------+
//	|              Fragment Index (8 bytes, big-endian)             |
//	+---------------------------------------------------------------+
//	|              Fragment Count (8 bytes, big-endian)             |
//	+---------------------------------------------------------------+
//	|                 Payload (0..MTU-32 bytes)                     |
//	+---------------------------------------------------------------+
//
// All integers are in network byte order. With the default MTU of 576 bytes
// a fragment carries at most 544 payload bytes.
//
// Every fragment except the last one is exactly MTU bytes long. The codec
// performs no authentication or integrity checking; it only rejects headers
// that cannot describe a valid fragment.
package frag
