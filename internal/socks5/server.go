package socks5

import (
	"bytes"
	"crypto/subtle"
	"fmt"
	"io"
	"net"
	"strconv"
)

// ServerNegotiate performs the server side of the method negotiation. When
// auth carries credentials, username/password is the only method offered and
// the RFC 1929 subnegotiation is enforced; otherwise only "no authentication
// required" is acceptable.
//
// A client that does not offer the required method is answered with the "no
// acceptable methods" selection before ErrNoAcceptableMethod is returned.
// The caller is expected to close the connection on any error.
func ServerNegotiate(conn io.ReadWriter, auth Auth) error {
	var hdr [2]byte // version, method count
	if _, err := io.ReadFull(conn, hdr[:]); err != nil {
		return fmt.Errorf("read greeting: %w", err)
	}
	if hdr[0] != Version {
		return fmt.Errorf("%w: 0x%02x", ErrUnsupportedVersion, hdr[0])
	}

	methods := make([]byte, int(hdr[1]))
	if _, err := io.ReadFull(conn, methods); err != nil {
		return fmt.Errorf("read methods: %w", err)
	}

	want := byte(MethodNoAuth)
	if auth.Enabled() {
		want = MethodUserPass
	}
	if bytes.IndexByte(methods, want) < 0 {
		_, _ = conn.Write([]byte{Version, MethodNoAcceptable})
		return ErrNoAcceptableMethod
	}

	if _, err := conn.Write([]byte{Version, want}); err != nil {
		return fmt.Errorf("write method choice: %w", err)
	}

	if want == MethodUserPass {
		return serverAuthUserPass(conn, auth)
	}
	return nil
}

// ServerNegotiateNoAuth accepts any client that offers the no-auth method.
func ServerNegotiateNoAuth(conn io.ReadWriter) error {
	return ServerNegotiate(conn, Auth{})
}

func serverAuthUserPass(conn io.ReadWriter, auth Auth) error {
	var hdr [2]byte // version, username length
	if _, err := io.ReadFull(conn, hdr[:]); err != nil {
		return fmt.Errorf("read auth request: %w", err)
	}
	if hdr[0] != UserPassVersion {
		return fmt.Errorf("%w: username/password version 0x%02x", ErrUnsupportedVersion, hdr[0])
	}

	username := make([]byte, int(hdr[1]))
	if _, err := io.ReadFull(conn, username); err != nil {
		return fmt.Errorf("read username: %w", err)
	}

	var plen [1]byte
	if _, err := io.ReadFull(conn, plen[:]); err != nil {
		return fmt.Errorf("read password length: %w", err)
	}
	password := make([]byte, int(plen[0]))
	if _, err := io.ReadFull(conn, password); err != nil {
		return fmt.Errorf("read password: %w", err)
	}

	// Compare both fields in constant time regardless of which mismatched.
	userOK := subtle.ConstantTimeCompare(username, []byte(auth.Username))
	passOK := subtle.ConstantTimeCompare(password, []byte(auth.Password))
	if userOK&passOK != 1 {
		_, _ = conn.Write([]byte{UserPassVersion, UserPassFailure})
		return ErrAuthRejected
	}

	if _, err := conn.Write([]byte{UserPassVersion, UserPassSuccess}); err != nil {
		return fmt.Errorf("write auth status: %w", err)
	}
	return nil
}

// Request is a parsed client request frame.
type Request struct {
	Cmd  byte
	Host string
	Port uint16
}

// Addr returns the destination in host:port form, suitable for a dialer.
func (r *Request) Addr() string {
	return net.JoinHostPort(r.Host, strconv.Itoa(int(r.Port)))
}

// ReadRequest parses a client request. The command byte is returned as-is so
// the caller can answer unsupported commands with the proper reply code. An
// unknown address type is reported as ErrAddrNotSupported with the header
// already consumed, leaving the connection writable for a reply.
func ReadRequest(r io.Reader) (*Request, error) {
	var hdr [4]byte // version, command, reserved, address type
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, fmt.Errorf("read request: %w", err)
	}
	if hdr[0] != Version {
		return nil, fmt.Errorf("%w: 0x%02x", ErrUnsupportedVersion, hdr[0])
	}

	host, err := readAddr(r, hdr[3])
	if err != nil {
		return nil, err
	}
	port, err := readPort(r)
	if err != nil {
		return nil, fmt.Errorf("read port: %w", err)
	}

	return &Request{Cmd: hdr[1], Host: host, Port: port}, nil
}
