package network

import (
	"fmt"
	"net"
)

// Conn is a single duplex connection to one peer: a byte stream Transport
// frames messages onto. net.Conn already satisfies this; the in-memory
// Transport used in tests implements it over a pair of pipes.
type Conn interface {
	Read(b []byte) (int, error)
	Write(b []byte) (int, error)
	Close() error
}

// Transport opens and accepts the byte-stream connections peers exchange
// frames over. Peer 0 typically listens; every other peer dials.
type Transport interface {
	Listen(bindAddress string) error
	Accept() (Conn, error)
	Dial(address string) (Conn, error)
	Close() error
}

// TCPTransport is the production Transport, a thin wrapper over net.Listen
// / net.Dial.
type TCPTransport struct {
	listener net.Listener
}

// NewTCPTransport returns a Transport backed by real TCP sockets.
func NewTCPTransport() *TCPTransport { return &TCPTransport{} }

func (t *TCPTransport) Listen(bindAddress string) error {
	ln, err := net.Listen("tcp", bindAddress)
	if err != nil {
		return fmt.Errorf("network: listen on %s: %w", bindAddress, err)
	}
	t.listener = ln
	return nil
}

func (t *TCPTransport) Accept() (Conn, error) {
	if t.listener == nil {
		return nil, fmt.Errorf("network: Accept called before Listen")
	}
	return t.listener.Accept()
}

func (t *TCPTransport) Dial(address string) (Conn, error) {
	conn, err := net.Dial("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("network: dial %s: %w", address, err)
	}
	return conn, nil
}

func (t *TCPTransport) Close() error {
	if t.listener == nil {
		return nil
	}
	return t.listener.Close()
}
