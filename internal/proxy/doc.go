// Package proxy implements the listener side of the server.
//
// It contains the SOCKS5 server itself (config validation, accept loop, and
// per-connection sessions) and shared connection plumbing such as keepalive
// listeners and the bidirectional relay.
package proxy
