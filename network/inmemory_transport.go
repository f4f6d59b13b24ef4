package network

import (
	"fmt"
	"net"
	"sync"
	"time"
)

// inMemoryRegistry lets InMemoryTransport.Dial find the InMemoryTransport
// bound to a given address without going through a real socket, so tests
// can exercise the full handshake/peer/Step machinery in-process.
var inMemoryRegistry = struct {
	mu sync.Mutex
	m  map[string]*InMemoryTransport
}{m: make(map[string]*InMemoryTransport)}

// InMemoryTransport is a Transport backed by net.Pipe, used by tests in
// place of TCPTransport so a multi-peer scenario can run within a single
// test process without binding real sockets.
type InMemoryTransport struct {
	addr     string
	accepted chan net.Conn
}

// NewInMemoryTransport returns an unbound InMemoryTransport.
func NewInMemoryTransport() *InMemoryTransport {
	return &InMemoryTransport{accepted: make(chan net.Conn, 8)}
}

func (t *InMemoryTransport) Listen(bindAddress string) error {
	t.addr = bindAddress
	inMemoryRegistry.mu.Lock()
	defer inMemoryRegistry.mu.Unlock()
	if _, exists := inMemoryRegistry.m[bindAddress]; exists {
		return fmt.Errorf("network: address %s already bound", bindAddress)
	}
	inMemoryRegistry.m[bindAddress] = t
	return nil
}

func (t *InMemoryTransport) Accept() (Conn, error) {
	conn := <-t.accepted
	if conn == nil {
		return nil, fmt.Errorf("network: in-memory transport closed")
	}
	return conn, nil
}

// Dial connects to the transport bound at address. Peers handshake
// concurrently, so the listener may not have bound yet when a dial
// arrives; Dial polls for it briefly rather than failing outright, the
// in-memory stand-in for TCP's connect retry.
func (t *InMemoryTransport) Dial(address string) (Conn, error) {
	deadline := time.Now().Add(2 * time.Second)
	for {
		inMemoryRegistry.mu.Lock()
		target, ok := inMemoryRegistry.m[address]
		inMemoryRegistry.mu.Unlock()
		if ok {
			here, there := net.Pipe()
			target.accepted <- there
			return here, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("network: no in-memory listener bound at %s", address)
		}
		time.Sleep(time.Millisecond)
	}
}

func (t *InMemoryTransport) Close() error {
	if t.addr == "" {
		return nil
	}
	inMemoryRegistry.mu.Lock()
	delete(inMemoryRegistry.m, t.addr)
	inMemoryRegistry.mu.Unlock()
	close(t.accepted)
	return nil
}
