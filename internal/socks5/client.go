package socks5

import (
	"fmt"
	"io"
)

// ClientDial performs the full client-side handshake on an established
// connection to a SOCKS5 server: method negotiation, authentication when the
// server asks for it, and a CONNECT for address.
func ClientDial(conn io.ReadWriter, auth Auth, address string) error {
	if err := ClientNegotiate(conn, auth); err != nil {
		return err
	}
	return ClientConnect(conn, address)
}

// ClientNegotiate sends the greeting and completes the method the server
// selects. The no-auth method is always offered; username/password is
// offered only when auth carries credentials.
func ClientNegotiate(conn io.ReadWriter, auth Auth) error {
	methods := []byte{MethodNoAuth}
	if auth.Enabled() {
		methods = append(methods, MethodUserPass)
	}

	greeting := append([]byte{Version, byte(len(methods))}, methods...)
	if _, err := conn.Write(greeting); err != nil {
		return fmt.Errorf("write greeting: %w", err)
	}

	var choice [2]byte // version, selected method
	if _, err := io.ReadFull(conn, choice[:]); err != nil {
		return fmt.Errorf("read method choice: %w", err)
	}
	if choice[0] != Version {
		return fmt.Errorf("%w: 0x%02x", ErrUnsupportedVersion, choice[0])
	}

	switch choice[1] {
	case MethodNoAuth:
		return nil
	case MethodUserPass:
		if !auth.Enabled() {
			return fmt.Errorf("server requires username/password")
		}
		return clientAuthUserPass(conn, auth)
	case MethodNoAcceptable:
		return ErrNoAcceptableMethod
	default:
		return fmt.Errorf("server selected unsupported method 0x%02x", choice[1])
	}
}

func clientAuthUserPass(conn io.ReadWriter, auth Auth) error {
	if len(auth.Username) > 255 || len(auth.Password) > 255 {
		return fmt.Errorf("credentials longer than 255 bytes")
	}

	b := []byte{UserPassVersion, byte(len(auth.Username))}
	b = append(b, auth.Username...)
	b = append(b, byte(len(auth.Password)))
	b = append(b, auth.Password...)
	if _, err := conn.Write(b); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}

	var status [2]byte // version, status
	if _, err := io.ReadFull(conn, status[:]); err != nil {
		return fmt.Errorf("read auth status: %w", err)
	}
	if status[0] != UserPassVersion {
		return fmt.Errorf("%w: username/password version 0x%02x", ErrUnsupportedVersion, status[0])
	}
	if status[1] != UserPassSuccess {
		return ErrAuthRejected
	}
	return nil
}

// ClientConnect issues a CONNECT for address and parses the reply. The
// address keeps its original form on the wire: domain names are forwarded as
// domains, never resolved locally. A non-success reply is returned as a
// *ReplyError carrying the server's code.
func ClientConnect(conn io.ReadWriter, address string) error {
	b := []byte{Version, CmdConnect, 0x00}
	b, err := appendAddr(b, address)
	if err != nil {
		return err
	}
	if _, err := conn.Write(b); err != nil {
		return fmt.Errorf("write connect: %w", err)
	}

	var hdr [4]byte // version, reply, reserved, address type
	if _, err := io.ReadFull(conn, hdr[:]); err != nil {
		return fmt.Errorf("read reply: %w", err)
	}
	if hdr[0] != Version {
		return fmt.Errorf("%w: 0x%02x", ErrUnsupportedVersion, hdr[0])
	}
	if hdr[1] != RepSuccess {
		return &ReplyError{Rep: hdr[1]}
	}

	// Consume the bound address so the relay starts at the first payload byte.
	if _, err := readAddr(conn, hdr[3]); err != nil {
		return fmt.Errorf("read bound address: %w", err)
	}
	if _, err := readPort(conn); err != nil {
		return fmt.Errorf("read bound port: %w", err)
	}
	return nil
}
