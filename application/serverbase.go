package application

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/smtprovider/smt-provider/protocol"
)

// DefaultMaxRequestBytes is the request size limit used when none is
// configured.
const DefaultMaxRequestBytes = 1 << 20

// connTimeout bounds the time a client may hold a connection.
const connTimeout = 10 * time.Second

// A ServerAddress describes a server's connection.
// It supports two types of connections: a TCP connection ("tcp")
// and a Unix socket connection ("unix").
//
// Additionally, TCP connections must use TLS for added security,
// and each is required to specify a TLS certificate and corresponding
// private key.
type ServerAddress struct {
	// Address is formatted as a url: scheme://address.
	Address string `toml:"address"`
	// TLSCertPath is a path to the server's TLS Certificate,
	// which has to be set if the connection is TCP.
	TLSCertPath string `toml:"cert,omitempty"`
	// TLSKeyPath is a path to the server's TLS private key,
	// which has to be set if the connection is TCP.
	TLSKeyPath string `toml:"key,omitempty"`
}

// A Handler executes the decoded params of a request for method and
// returns the result to send back.
type Handler func(ctx context.Context, method string, params interface{}) (interface{}, error)

// A ServerBase represents the base features needed to implement
// a JSON-RPC server over raw connections.
// It wraps a Handler with a network layer which
// handles requests/responses and their encoding/decoding.
// A ServerBase also supports concurrent handling of requests.
type ServerBase struct {
	Verb           string
	acceptableReqs map[*ServerAddress]map[string]bool
	maxRequest     int64

	logger  *Logger
	metrics *Metrics
	sync.RWMutex

	stop          chan struct{}
	waitStop      sync.WaitGroup
	waitCloseConn sync.WaitGroup

	configFilePath string
	configEncoding string
	reloadChan     chan os.Signal
}

// NewServerBase creates a new generic server base. perms lists, per
// address, the methods the address accepts. Requests larger than
// maxRequestBytes are rejected; a non-positive value selects
// DefaultMaxRequestBytes.
func NewServerBase(conf *CommonConfig, listenVerb string,
	perms map[*ServerAddress]map[string]bool, maxRequestBytes int64) (*ServerBase, error) {
	if maxRequestBytes <= 0 {
		maxRequestBytes = DefaultMaxRequestBytes
	}
	logger, err := NewLogger(conf.Logger)
	if err != nil {
		return nil, err
	}
	// create server instance
	sb := new(ServerBase)
	sb.Verb = listenVerb
	sb.acceptableReqs = perms
	sb.maxRequest = maxRequestBytes
	sb.logger = logger
	sb.metrics = NewMetrics()
	sb.stop = make(chan struct{})
	sb.configFilePath = conf.Path
	sb.configEncoding = conf.Encoding
	sb.reloadChan = make(chan os.Signal, 1)
	signal.Notify(sb.reloadChan, syscall.SIGUSR2)
	return sb, nil
}

// ListenAndHandle listens at the given server address and serves the
// requests the address permits with handler until Shutdown is called.
func (sb *ServerBase) ListenAndHandle(addr *ServerAddress, handler Handler) error {
	ln, tlsConfig, err := addr.resolveAndListen()
	if err != nil {
		return err
	}
	sb.logger.Info(sb.Verb, "address", addr.Address)
	sb.waitStop.Add(1)
	go func() {
		sb.acceptRequests(addr, ln, tlsConfig, handler)
		sb.waitStop.Done()
	}()
	return nil
}

func (addr *ServerAddress) resolveAndListen() (ln net.Listener,
	tlsConfig *tls.Config, err error) {
	u, err := url.Parse(addr.Address)
	if err != nil {
		return nil, nil, err
	}
	switch u.Scheme {
	case "tcp":
		// force to use TLS
		cer, err := tls.LoadX509KeyPair(addr.TLSCertPath, addr.TLSKeyPath)
		if err != nil {
			return nil, nil, err
		}
		tlsConfig = &tls.Config{Certificates: []tls.Certificate{cer}}
		tcpaddr, err := net.ResolveTCPAddr(u.Scheme, u.Host)
		if err != nil {
			return nil, nil, err
		}
		ln, err = net.ListenTCP(u.Scheme, tcpaddr)
		if err != nil {
			return nil, nil, err
		}
		return ln, tlsConfig, nil
	case "unix":
		unixaddr, err := net.ResolveUnixAddr(u.Scheme, u.Path)
		if err != nil {
			return nil, nil, err
		}
		ln, err = net.ListenUnix(u.Scheme, unixaddr)
		if err != nil {
			return nil, nil, err
		}
		return ln, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown network type %q in %s", u.Scheme, addr.Address)
	}
}

func (sb *ServerBase) acceptRequests(addr *ServerAddress, ln net.Listener,
	tlsConfig *tls.Config, handler Handler) {
	defer ln.Close()
	go func() {
		<-sb.stop
		if l, ok := ln.(interface {
			SetDeadline(time.Time) error
		}); ok {
			l.SetDeadline(time.Now())
		}
	}()

	for {
		select {
		case <-sb.stop:
			sb.waitCloseConn.Wait()
			return
		default:
		}
		conn, err := ln.Accept()
		if err != nil {
			var opErr *net.OpError
			if errors.As(err, &opErr) && opErr.Timeout() {
				continue
			}
			sb.logger.Error(err.Error())
			continue
		}
		if _, ok := ln.(*net.TCPListener); ok {
			conn = tls.Server(conn, tlsConfig)
		}
		sb.waitCloseConn.Add(1)
		go func() {
			sb.acceptClient(addr, conn, handler)
			sb.waitCloseConn.Done()
		}()
	}
}

// checkRequestType verifies that the server is allowed to handle
// the given method at the given address.
// If the method is not acceptable, checkRequestType() returns a
// protocol.ErrMethodNotAllowed, otherwise it returns nil.
func (sb *ServerBase) checkRequestType(addr *ServerAddress,
	method string) error {
	if !sb.acceptableReqs[addr][method] {
		return fmt.Errorf("%w: %s", protocol.ErrMethodNotAllowed, method)
	}
	return nil
}

func (sb *ServerBase) acceptClient(addr *ServerAddress, conn net.Conn, handler Handler) {
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(connTimeout))
	start := time.Now()
	logger := sb.logger.With("address", conn.RemoteAddr().String())

	var buf bytes.Buffer
	if _, err := io.CopyN(&buf, conn, sb.maxRequest+1); err != nil && err != io.EOF {
		logger.Error(err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), connTimeout)
	defer cancel()
	method, response, err := sb.handle(ctx, addr, buf.Bytes(), handler)
	code := 0
	if err != nil {
		code = int(response.Error.Code)
		if response.Error.Code == protocol.ErrorInternal {
			logger.Error(err.Error(), "method", method)
		} else {
			logger.Warn(err.Error(), "method", method)
		}
	}
	sb.metrics.ObserveRequest(method, code, time.Since(start))

	// marshalling
	res, err := MarshalResponse(response)
	if err != nil {
		logger.Error(err.Error(), "method", method)
		res, _ = MarshalResponse(protocol.NewErrorResponse(response.ID, err))
	}
	if _, err := conn.Write(res); err != nil {
		logger.Error(err.Error())
		return
	}
	logger.Debug("Handled request", "method", method, "code", code,
		"duration", time.Since(start))
}

// handle decodes msg, checks it against the permissions of addr and
// runs it. It returns the method for reporting, which is empty unless
// the method is known.
func (sb *ServerBase) handle(ctx context.Context, addr *ServerAddress, msg []byte,
	handler Handler) (string, *protocol.Response, error) {
	if int64(len(msg)) > sb.maxRequest {
		err := fmt.Errorf("%w: request exceeds %d bytes", protocol.ErrMalformedMessage, sb.maxRequest)
		return "", protocol.NewErrorResponse(nil, err), err
	}
	req, params, err := UnmarshalRequest(msg)
	if err != nil {
		var id json.RawMessage
		if req != nil {
			id = req.ID
		}
		return "", protocol.NewErrorResponse(id, err), err
	}
	if err := sb.checkRequestType(addr, req.Method); err != nil {
		return req.Method, protocol.NewErrorResponse(req.ID, err), err
	}

	sb.RLock()
	result, err := handler(ctx, req.Method, params)
	sb.RUnlock()
	if err != nil {
		return req.Method, protocol.NewErrorResponse(req.ID, err), err
	}
	return req.Method, protocol.NewResponse(req.ID, result), nil
}

// RunInBackground creates a new goroutine that calls function `f`.
// It automatically increments the counter `sync.WaitGroup` of the
// `ServerBase` and calls `Done` when the function execution is finished.
func (sb *ServerBase) RunInBackground(f func()) {
	sb.waitStop.Add(1)
	go func() {
		f()
		sb.waitStop.Done()
	}()
}

// HotReload implements hot-reloading by listening for SIGUSR2 signal.
func (sb *ServerBase) HotReload(f func()) {
	for {
		select {
		case <-sb.stop:
			return
		case <-sb.reloadChan:
			sb.Lock()
			f()
			sb.Unlock()
		}
	}
}

// Logger returns the server base's logger instance.
func (sb *ServerBase) Logger() *Logger {
	return sb.logger
}

// Metrics returns the server base's prometheus collectors.
func (sb *ServerBase) Metrics() *Metrics {
	return sb.metrics
}

// ConfigInfo returns the server base's config file path and encoding.
func (sb *ServerBase) ConfigInfo() (string, string) {
	return sb.configFilePath, sb.configEncoding
}

// Shutdown closes all of the server's connections and shuts down the server.
func (sb *ServerBase) Shutdown() error {
	close(sb.stop)
	sb.waitStop.Wait()
	signal.Stop(sb.reloadChan)
	return nil
}
