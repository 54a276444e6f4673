package transport

import (
	"bufio"
	"crypto/tls"
	"fmt"
	"net"
	"strings"
	"time"
)

// Conn is a byte-oriented duplex connection to the collector. It exposes just
// enough surface for the hand-built wire protocol: raw writes, line-oriented
// reads, and a liveness flag.
type Conn interface {
	Write(p []byte) (int, error)

	// ReadLine reads up to the next '\n' and returns the line with the
	// trailing CR/LF stripped. A deadline set via SetDeadline bounds the wait.
	ReadLine() (string, error)

	// IsConnected reports whether the connection is still usable: not closed
	// and no read/write error observed so far.
	IsConnected() bool

	// SetDeadline bounds all future reads and writes.
	SetDeadline(t time.Time) error

	Close() error
}

// Dialer opens connections to a remote host.
type Dialer interface {
	Connect(host string, port int, secure bool) (Conn, error)
}

// LinkChecker reports whether the device has network connectivity at all,
// independent of any particular connection.
type LinkChecker interface {
	IsNetworkAvailable() bool
}

const dialTimeout = 10 * time.Second

// NetDialer implements Dialer over TCP, optionally wrapped in TLS.
type NetDialer struct {
	// SkipVerify disables certificate verification for TLS connections, for
	// collectors running with self-signed certificates.
	SkipVerify bool
}

// Connect opens a plain or TLS connection to host:port.
func (d *NetDialer) Connect(host string, port int, secure bool) (Conn, error) {
	addr := fmt.Sprintf("%s:%d", host, port)
	raw, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}

	if secure {
		tlsConn := tls.Client(raw, &tls.Config{
			ServerName:         host,
			InsecureSkipVerify: d.SkipVerify,
		})
		if err := tlsConn.Handshake(); err != nil {
			raw.Close()
			return nil, fmt.Errorf("tls handshake with %s failed: %w", addr, err)
		}
		return newNetConn(tlsConn), nil
	}

	return newNetConn(raw), nil
}

// netConn wraps a net.Conn with a buffered line reader and sticky error
// tracking so IsConnected mirrors the state the chunk loop needs.
type netConn struct {
	conn   net.Conn
	reader *bufio.Reader
	closed bool
	broken bool
}

func newNetConn(conn net.Conn) *netConn {
	return &netConn{
		conn:   conn,
		reader: bufio.NewReader(conn),
	}
}

func (c *netConn) Write(p []byte) (int, error) {
	n, err := c.conn.Write(p)
	if err != nil {
		c.broken = true
	}
	return n, err
}

func (c *netConn) ReadLine() (string, error) {
	line, err := c.reader.ReadString('\n')
	if err != nil {
		c.broken = true
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (c *netConn) IsConnected() bool {
	return !c.closed && !c.broken
}

func (c *netConn) SetDeadline(t time.Time) error {
	return c.conn.SetDeadline(t)
}

func (c *netConn) Close() error {
	c.closed = true
	return c.conn.Close()
}

// InterfaceLinkChecker reports link status from the state of the host's
// network interfaces, the closest equivalent to the device's WiFi status
// register.
type InterfaceLinkChecker struct{}

// IsNetworkAvailable returns true if any non-loopback interface is up with at
// least one address assigned.
func (InterfaceLinkChecker) IsNetworkAvailable() bool {
	ifaces, err := net.Interfaces()
	if err != nil {
		return false
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err == nil && len(addrs) > 0 {
			return true
		}
	}
	return false
}
