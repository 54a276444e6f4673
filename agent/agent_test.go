package agent

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freesoil/sky-monitor-edge/recording"
	"github.com/freesoil/sky-monitor-edge/storage"
	"github.com/freesoil/sky-monitor-edge/transport"
	"github.com/freesoil/sky-monitor-edge/uploading"
)

// scriptedConn replays canned response lines and records everything written.
type scriptedConn struct {
	written bytes.Buffer
	lines   []string
	closed  bool
}

func (c *scriptedConn) Write(p []byte) (int, error) { return c.written.Write(p) }

func (c *scriptedConn) ReadLine() (string, error) {
	if len(c.lines) == 0 {
		return "", fmt.Errorf("connection closed")
	}
	line := c.lines[0]
	c.lines = c.lines[1:]
	return line, nil
}

func (c *scriptedConn) IsConnected() bool           { return !c.closed }
func (c *scriptedConn) SetDeadline(time.Time) error { return nil }
func (c *scriptedConn) Close() error                { c.closed = true; return nil }

type scriptedDialer struct {
	conns []*scriptedConn
	dials int
}

func (d *scriptedDialer) Connect(host string, port int, secure bool) (transport.Conn, error) {
	d.dials++
	if len(d.conns) == 0 {
		return nil, fmt.Errorf("no connection available")
	}
	conn := d.conns[0]
	d.conns = d.conns[1:]
	return conn, nil
}

type upLink struct{}

func (upLink) IsNetworkAvailable() bool { return true }

// quietMonitor reports a capture schedule with the next capture far away.
type quietMonitor struct{}

func (quietMonitor) Schedule() recording.Schedule {
	return recording.Schedule{
		LastCaptureStart: time.Now().Add(-time.Minute),
		CaptureDuration:  10 * time.Second,
		CaptureInterval:  time.Hour,
	}
}

func writeClip(t *testing.T, dir, name string, size int, age time.Duration) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0644))
	mod := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(path, mod, mod))
	return path
}

func TestRunCycleUploadsAndDeletes(t *testing.T) {
	dir := t.TempDir()
	clip := writeClip(t, dir, "clip.avi", 64, time.Hour)

	store := storage.NewLocalStore(dir, ".avi", 1<<30)
	evictor := storage.NewEvictionManager(nil, store, storage.Policy{
		MaxReservedBytes: 1 << 29,
		MinFreeBytes:     1,
		Enabled:          true,
	})

	conn := &scriptedConn{lines: []string{"HTTP/1.1 201 Created", ""}}
	dialer := &scriptedDialer{conns: []*scriptedConn{conn}}
	pipeline := uploading.NewPipeline(nil, store, dialer, upLink{}, uploading.Config{
		EndpointURL:     "http://collector.local/upload",
		DeleteOnSuccess: true,
	})
	require.NoError(t, pipeline.RescanStore())

	a := New(nil, evictor, pipeline, quietMonitor{}, time.Second)
	a.RunCycle()

	assert.Equal(t, 1, dialer.dials)
	assert.Zero(t, pipeline.QueueLen())
	_, err := os.Stat(clip)
	assert.True(t, os.IsNotExist(err), "uploaded segment is deleted locally")
	assert.Contains(t, conn.written.String(), `filename="clip.avi"`)
}

func TestRunCycleEvictsBeforeUploading(t *testing.T) {
	dir := t.TempDir()
	old := writeClip(t, dir, "old.avi", 1024, 2*time.Hour)
	writeClip(t, dir, "new.avi", 1024, time.Hour)

	store := storage.NewLocalStore(dir, ".avi", 1<<30)
	evictor := storage.NewEvictionManager(nil, store, storage.Policy{
		MaxReservedBytes: 1536, // room for one clip, not two
		MinFreeBytes:     1,
		Enabled:          true,
	})

	conn := &scriptedConn{lines: []string{"HTTP/1.1 200 OK", ""}}
	dialer := &scriptedDialer{conns: []*scriptedConn{conn}}
	pipeline := uploading.NewPipeline(nil, store, dialer, upLink{}, uploading.Config{
		EndpointURL: "http://collector.local/upload",
	})
	require.NoError(t, pipeline.RescanStore())
	require.Equal(t, 2, pipeline.QueueLen())

	a := New(nil, evictor, pipeline, quietMonitor{}, time.Second)
	a.RunCycle()

	// The evicted clip left the queue without ever being dialed for; the
	// survivor was uploaded.
	_, err := os.Stat(old)
	assert.True(t, os.IsNotExist(err))
	assert.Equal(t, 1, dialer.dials)
	assert.Contains(t, conn.written.String(), `filename="new.avi"`)
	assert.Zero(t, pipeline.QueueLen())
}
