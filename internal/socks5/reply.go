package socks5

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
)

// WriteReply sends a server reply with the given code and bound address.
// A nil or non-TCP bnd encodes as IPv4 zeros, which is what failure replies
// carry.
func WriteReply(w io.Writer, rep byte, bnd net.Addr) error {
	ip := net.IPv4zero
	port := 0
	if ta, ok := bnd.(*net.TCPAddr); ok && ta != nil {
		if ta.IP != nil {
			ip = ta.IP
		}
		port = ta.Port
	}

	b := []byte{Version, rep, 0x00}
	if ip4 := ip.To4(); ip4 != nil {
		b = append(b, AddrIPv4)
		b = append(b, ip4...)
	} else if ip16 := ip.To16(); ip16 != nil {
		b = append(b, AddrIPv6)
		b = append(b, ip16...)
	} else {
		b = append(b, AddrIPv4)
		b = append(b, net.IPv4zero.To4()...)
	}
	b = binary.BigEndian.AppendUint16(b, uint16(port))

	if _, err := w.Write(b); err != nil {
		return fmt.Errorf("write reply: %w", err)
	}
	return nil
}

// ReplyError is a non-success reply code received from a SOCKS5 server.
type ReplyError struct {
	Rep byte
}

func (e *ReplyError) Error() string {
	return "reply: " + ReplyString(e.Rep)
}

// ReplyString returns the RFC 1928 text for a reply code.
func ReplyString(rep byte) string {
	switch rep {
	case RepSuccess:
		return "succeeded"
	case RepServerFailure:
		return "general SOCKS server failure"
	case RepNotAllowed:
		return "connection not allowed by ruleset"
	case RepNetworkUnreachable:
		return "network unreachable"
	case RepHostUnreachable:
		return "host unreachable"
	case RepConnectionRefused:
		return "connection refused"
	case RepTTLExpired:
		return "TTL expired"
	case RepCommandNotSupported:
		return "command not supported"
	case RepAddrNotSupported:
		return "address type not supported"
	default:
		return fmt.Sprintf("unassigned reply 0x%02x", rep)
	}
}
