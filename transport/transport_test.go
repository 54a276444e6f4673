package transport

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pipeConn(t *testing.T) (*netConn, net.Conn) {
	t.Helper()
	client, server := net.Pipe()
	t.Cleanup(func() {
		client.Close()
		server.Close()
	})
	return newNetConn(client), server
}

func TestNetConnReadLineStripsCRLF(t *testing.T) {
	conn, server := pipeConn(t)

	go func() {
		server.Write([]byte("HTTP/1.1 200 OK\r\nplain\n"))
	}()

	line, err := conn.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "HTTP/1.1 200 OK", line)

	line, err = conn.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "plain", line)

	assert.True(t, conn.IsConnected())
}

func TestNetConnReadErrorMarksBroken(t *testing.T) {
	conn, server := pipeConn(t)

	go server.Close()

	_, err := conn.ReadLine()
	require.Error(t, err)
	assert.False(t, conn.IsConnected(), "a read error makes the connection unusable")
}

func TestNetConnWriteRoundTrip(t *testing.T) {
	conn, server := pipeConn(t)

	received := make(chan []byte, 1)
	go func() {
		buf := make([]byte, 16)
		n, _ := server.Read(buf)
		received <- buf[:n]
	}()

	n, err := conn.Write([]byte("chunk"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, []byte("chunk"), <-received)
}

func TestNetConnCloseDisconnects(t *testing.T) {
	conn, _ := pipeConn(t)

	require.True(t, conn.IsConnected())
	require.NoError(t, conn.Close())
	assert.False(t, conn.IsConnected())
}

func TestNetConnDeadlineExpires(t *testing.T) {
	conn, _ := pipeConn(t)

	require.NoError(t, conn.SetDeadline(time.Now().Add(20*time.Millisecond)))

	_, err := conn.ReadLine()
	assert.Error(t, err, "read past the deadline fails")
	assert.False(t, conn.IsConnected())
}
