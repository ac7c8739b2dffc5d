package socks5

import (
	"errors"
)

// Version is the SOCKS protocol version implemented by this package.
const Version = 0x05

// Authentication methods (RFC 1928, section 3).
const (
	MethodNoAuth       = 0x00
	MethodUserPass     = 0x02
	MethodNoAcceptable = 0xFF
)

// Username/password subnegotiation (RFC 1929).
const (
	UserPassVersion = 0x01
	UserPassSuccess = 0x00
	UserPassFailure = 0x01
)

// Commands (RFC 1928, section 4).
const (
	CmdConnect      = 0x01
	CmdBind         = 0x02
	CmdUDPAssociate = 0x03
)

// Address types (RFC 1928, section 5).
const (
	AddrIPv4   = 0x01
	AddrDomain = 0x03
	AddrIPv6   = 0x04
)

// Reply codes (RFC 1928, section 6).
const (
	RepSuccess             = 0x00
	RepServerFailure       = 0x01
	RepNotAllowed          = 0x02
	RepNetworkUnreachable  = 0x03
	RepHostUnreachable     = 0x04
	RepConnectionRefused   = 0x05
	RepTTLExpired          = 0x06
	RepCommandNotSupported = 0x07
	RepAddrNotSupported    = 0x08
)

var (
	ErrUnsupportedVersion = errors.New("unsupported protocol version")
	ErrNoAcceptableMethod = errors.New("no acceptable authentication method")
	ErrAuthRejected       = errors.New("authentication rejected")
	ErrAddrNotSupported   = errors.New("address type not supported")
)

// Auth holds optional username/password credentials for one side of a
// SOCKS5 session.
type Auth struct {
	Username string
	Password string
}

// Enabled reports whether credentials are present.
func (a Auth) Enabled() bool {
	return a.Username != "" || a.Password != ""
}
