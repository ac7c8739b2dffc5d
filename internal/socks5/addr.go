package socks5

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
)

// appendAddr appends the wire encoding (ATYP, address, port) of a host:port
// string to b. IP literals encode as IPv4 or IPv6; anything else is sent as
// a domain name, unresolved.
func appendAddr(b []byte, address string) ([]byte, error) {
	host, portStr, err := net.SplitHostPort(address)
	if err != nil {
		return nil, fmt.Errorf("address %q: %w", address, err)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return nil, fmt.Errorf("address %q: invalid port %q", address, portStr)
	}

	if ip := net.ParseIP(host); ip != nil {
		if ip4 := ip.To4(); ip4 != nil {
			b = append(b, AddrIPv4)
			b = append(b, ip4...)
		} else {
			b = append(b, AddrIPv6)
			b = append(b, ip.To16()...)
		}
	} else {
		if len(host) < 1 || len(host) > 255 {
			return nil, fmt.Errorf("domain %q: length %d out of range", host, len(host))
		}
		b = append(b, AddrDomain, byte(len(host)))
		b = append(b, host...)
	}

	return binary.BigEndian.AppendUint16(b, uint16(port)), nil
}

// readAddr reads the address field for the given ATYP and returns its
// string form. The port is not part of the address field and is read by the
// caller.
func readAddr(r io.Reader, atyp byte) (string, error) {
	switch atyp {
	case AddrIPv4:
		var b [4]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return "", err
		}
		return net.IP(b[:]).String(), nil
	case AddrDomain:
		var n [1]byte
		if _, err := io.ReadFull(r, n[:]); err != nil {
			return "", err
		}
		if n[0] == 0 {
			return "", errors.New("zero-length domain")
		}
		b := make([]byte, int(n[0]))
		if _, err := io.ReadFull(r, b); err != nil {
			return "", err
		}
		return string(b), nil
	case AddrIPv6:
		var b [16]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return "", err
		}
		return net.IP(b[:]).String(), nil
	default:
		return "", fmt.Errorf("%w: 0x%02x", ErrAddrNotSupported, atyp)
	}
}

func readPort(r io.Reader) (uint16, error) {
	var b [2]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b[:]), nil
}
