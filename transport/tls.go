package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"os"
)

// TLSConfig names the certificate material spec.md §4.3 requires for the
// secure transport variant: a trusted CA bundle, an optional client
// certificate chain, and its private key (with passphrase handling left to
// the caller - an encrypted PEM key should be decrypted before TLSConfig is
// built, the stdlib no longer supports PEM passphrases directly).
type TLSConfig struct {
	CACertPath     string
	ClientCertPath string
	ClientKeyPath  string
	ServerName     string
	InsecureSkipVerify bool
}

func (c TLSConfig) build() (*tls.Config, error) {
	cfg := &tls.Config{ServerName: c.ServerName, InsecureSkipVerify: c.InsecureSkipVerify}
	if c.CACertPath != "" {
		pem, err := os.ReadFile(c.CACertPath)
		if err != nil {
			return nil, fmt.Errorf("transport: read CA cert: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("transport: no certificates found in %s", c.CACertPath)
		}
		cfg.RootCAs = pool
	}
	if c.ClientCertPath != "" {
		cert, err := tls.LoadX509KeyPair(c.ClientCertPath, c.ClientKeyPath)
		if err != nil {
			return nil, fmt.Errorf("transport: load client keypair: %w", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}
	return cfg, nil
}

// TLS is the encrypted byte-stream transport variant.
type TLS struct {
	closeNotifier
	Config TLSConfig
	conn   *tls.Conn
}

func (t *TLS) Connect(ctx context.Context, addr string) error {
	cfg, err := t.Config.build()
	if err != nil {
		return err
	}
	if cfg.ServerName == "" {
		host, _, err := net.SplitHostPort(addr)
		if err == nil {
			cfg.ServerName = host
		}
	}
	d := tls.Dialer{Config: cfg}
	c, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	t.conn = c.(*tls.Conn)
	return nil
}

func (t *TLS) Read(p []byte) (int, error) {
	n, err := t.conn.Read(p)
	if err != nil {
		t.notifyClosed()
	}
	return n, err
}

func (t *TLS) Write(p []byte) (int, error) {
	n, err := t.conn.Write(p)
	if err != nil {
		t.notifyClosed()
	}
	return n, err
}

func (t *TLS) Close() error {
	t.notifyClosed()
	if t.conn == nil {
		return nil
	}
	return t.conn.Close()
}

func (t *TLS) OnClose(fn func()) { t.onClose(fn) }
