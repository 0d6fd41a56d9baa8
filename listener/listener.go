// Package listener provides a net.Listener wrapper that tracks live client
// connections so that the gateway can claim them on activation.
package listener

import (
	"fmt"
	"net"
	"sync"
)

// trackedConn wraps a net.Conn and deregisters itself from the listener when
// closed.
type trackedConn struct {
	net.Conn
	release func()
	once    sync.Once
}

// Close closes the underlying connection and deregisters it exactly once.
func (tc *trackedConn) Close() error {
	tc.once.Do(tc.release)
	return tc.Conn.Close()
}

// TrackingListener wraps net.Listener and keeps the set of live connections.
// Claiming the clients enumerates every connection that is still open, which
// tells an activation how many clients came under the new generation without
// waiting for them to reconnect.
type TrackingListener struct {
	net.Listener

	mu    sync.Mutex
	conns map[net.Conn]struct{}
}

func NewTrackingListener(listener net.Listener) *TrackingListener {
	return &TrackingListener{
		Listener: listener,
		conns:    make(map[net.Conn]struct{}),
	}
}

func (l *TrackingListener) Accept() (net.Conn, error) {
	rawConnection, err := l.Listener.Accept()
	if err != nil {
		return nil, fmt.Errorf("accepting connection: %w", err)
	}

	tracked := &trackedConn{Conn: rawConnection}
	tracked.release = func() {
		l.mu.Lock()
		delete(l.conns, tracked)
		l.mu.Unlock()
	}

	l.mu.Lock()
	l.conns[tracked] = struct{}{}
	l.mu.Unlock()

	return tracked, nil
}

// ActiveClients returns the number of connections currently open.
func (l *TrackingListener) ActiveClients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.conns)
}

// Claim reports the number of live clients taken over by the caller. Existing
// connections are not interrupted; subsequent requests on them resolve under
// the caller's rules.
func (l *TrackingListener) Claim() int {
	return l.ActiveClients()
}
