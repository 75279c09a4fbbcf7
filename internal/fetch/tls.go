package fetch

import (
	"context"
	"fmt"
	"net"

	utls "github.com/refraction-networking/utls"
)

type dialTLSFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// chromeDialer returns a TLS dialer presenting a Chrome ClientHello. ALPN is
// pinned to http/1.1 because net/http only speaks HTTP/2 over *tls.Conn.
func chromeDialer(dialer *net.Dialer, insecure bool) dialTLSFunc {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		rawConn, err := dialer.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}

		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			host = addr
		}

		spec, err := utls.UTLSIdToSpec(utls.HelloChrome_Auto)
		if err != nil {
			rawConn.Close()
			return nil, fmt.Errorf("chrome hello spec: %w", err)
		}
		for _, ext := range spec.Extensions {
			if alpn, ok := ext.(*utls.ALPNExtension); ok {
				alpn.AlpnProtocols = []string{"http/1.1"}
			}
		}

		tlsConn := utls.UClient(rawConn, &utls.Config{
			ServerName:         host,
			InsecureSkipVerify: insecure,
		}, utls.HelloCustom)
		if err := tlsConn.ApplyPreset(&spec); err != nil {
			rawConn.Close()
			return nil, fmt.Errorf("apply chrome hello: %w", err)
		}

		if err := tlsConn.HandshakeContext(ctx); err != nil {
			rawConn.Close()
			return nil, err
		}
		return tlsConn, nil
	}
}
