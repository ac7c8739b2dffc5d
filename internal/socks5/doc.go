// Package socks5 implements the SOCKS5 wire protocol (RFC 1928) with
// username/password authentication (RFC 1929), directly on the connection
// with exact-size reads and no buffering, so the relay can take over at the
// first payload byte.
//
// Both halves of a handshake live here: ServerNegotiate/ReadRequest/
// WriteReply drive the listener side in internal/proxy, and ClientNegotiate/
// ClientConnect drive the upstream side in internal/dialer. Only the CONNECT
// command is implemented.
package socks5
