// Package client implements a client of the proof server: it sends
// one JSON-RPC request per connection and decodes the typed result.
package client

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"sync/atomic"
	"time"

	"github.com/smtprovider/smt-provider/application"
	"github.com/smtprovider/smt-provider/protocol"
)

// dialTimeout bounds connecting to the server and the whole exchange.
const dialTimeout = 10 * time.Second

// A Client sends requests to the addresses of a Config.
type Client struct {
	conf      *Config
	tlsConfig *tls.Config
	nextID    atomic.Int64
}

// New creates a client for conf. If conf names a CA certificate, the
// server's TLS certificate is verified against it, otherwise against
// the system roots.
func New(conf *Config) (*Client, error) {
	tlsConfig := &tls.Config{}
	if conf.CACertPath != "" {
		pem, err := os.ReadFile(conf.CACertPath)
		if err != nil {
			return nil, err
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("No certificate found in %s", conf.CACertPath)
		}
		tlsConfig.RootCAs = pool
	}
	return &Client{conf: conf, tlsConfig: tlsConfig}, nil
}

// addressFor returns the address serving method.
func (c *Client) addressFor(method string) string {
	for _, m := range protocol.UpdateMethods {
		if m == method && c.conf.UpdateAddress != "" {
			return c.conf.UpdateAddress
		}
	}
	return c.conf.Address
}

// Call sends a request for method with params and returns the decoded
// result, whose type is the one protocol.NewResult gives for method.
// A request the server refused is reported as a *protocol.ErrorObject.
func (c *Client) Call(method string, params interface{}) (interface{}, error) {
	msg, err := application.MarshalRequest(method, c.nextID.Add(1), params)
	if err != nil {
		return nil, err
	}
	res, err := c.send(c.addressFor(method), msg)
	if err != nil {
		return nil, err
	}
	return application.UnmarshalResponse(method, res)
}

func (c *Client) send(address string, msg []byte) ([]byte, error) {
	u, err := url.Parse(address)
	if err != nil {
		return nil, err
	}
	var conn net.Conn
	switch u.Scheme {
	case "tcp":
		dialer := &net.Dialer{Timeout: dialTimeout}
		tconn, err := tls.DialWithDialer(dialer, "tcp", u.Host, c.tlsConfig)
		if err != nil {
			return nil, err
		}
		defer tconn.Close()
		conn = tconn
	case "unix":
		uconn, err := net.DialUnix("unix", nil, &net.UnixAddr{Name: u.Path, Net: "unix"})
		if err != nil {
			return nil, err
		}
		defer uconn.Close()
		conn = uconn
	default:
		return nil, fmt.Errorf("Unknown network type %q in %s", u.Scheme, address)
	}
	conn.SetDeadline(time.Now().Add(dialTimeout))

	if _, err := conn.Write(msg); err != nil {
		return nil, err
	}
	// the server reads until EOF
	if cw, ok := conn.(interface{ CloseWrite() error }); ok {
		if err := cw.CloseWrite(); err != nil {
			return nil, err
		}
	}
	return io.ReadAll(conn)
}
