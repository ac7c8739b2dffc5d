// Package dialer provides the outbound connection strategies.
//
// Dialers implement a small interface (DialContext) and are chosen once at
// startup: either straight to the destination, or chained through one
// authenticated upstream SOCKS5 proxy.
package dialer
