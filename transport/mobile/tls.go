package mobile

import (
	"context"
	"crypto/tls"
	"net"
	"strconv"
	"sync"
	"time"
)

// Host and Port are the fixed mobile endpoint (spec.md section 6).
const (
	Host = "api.oneme.ru"
	Port = 443
)

var provider struct {
	once sync.Once
}

// InstallDefaultCryptoProvider installs the process-wide default TLS
// crypto provider. It is idempotent across repeated calls and across many
// sessions in the same process (spec.md section 9, "Global TLS provider
// init"). Go's crypto/tls has no pluggable-provider concept analogous to
// the original's rustls::crypto::ring::default_provider().install_default()
// — stdlib TLS always uses the Go runtime's own crypto primitives — so
// this is a one-time no-op hook kept for call-site parity with the
// original's connect() sequence, and as the place a caller-supplied
// crypto/tls.Config default (e.g. min version, cipher suite pinning)
// would be installed once if this module ever needed one.
func InstallDefaultCryptoProvider() {
	provider.once.Do(func() {})
}

// dialTLS opens a TLS connection to host:port using the host's native
// root store, no client certificate, matching the teacher's own dial
// shape (timeout dialer, TLS 1.2 minimum) adapted from a WebSocket dial
// to a raw TLS dial.
func dialTLS(ctx context.Context, host string, port int) (net.Conn, error) {
	InstallDefaultCryptoProvider()

	d := &net.Dialer{Timeout: 10 * time.Second}
	tlsConfig := &tls.Config{
		ServerName: host,
		MinVersion: tls.VersionTLS12,
	}
	tlsDialer := &tls.Dialer{NetDialer: d, Config: tlsConfig}
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	return tlsDialer.DialContext(ctx, "tcp", addr)
}
