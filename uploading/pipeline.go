package uploading

import (
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/freesoil/sky-monitor-edge/logging"
	"github.com/freesoil/sky-monitor-edge/storage"
	"github.com/freesoil/sky-monitor-edge/transport"
)

// Design constants carried over from the device firmware.
const (
	// minUploadInterval throttles attempts so retry storms cannot starve the
	// recorder.
	minUploadInterval = 5 * time.Second

	// pauseGuardWindow is how close to the next scheduled capture uploads are
	// advised to pause.
	pauseGuardWindow = 5 * time.Second

	// backoffBase scales the delay between retry attempts: base * attempt.
	backoffBase = 2 * time.Second

	// watchdogInterval limits how often the stuck-state check runs.
	watchdogInterval = 30 * time.Second

	// stuckCeiling is how long a session may stay active with no completed
	// attempt before the watchdog clears it.
	stuckCeiling = 5 * time.Minute

	defaultChunkBufferBytes = 1024
	defaultResponseTimeout  = 30 * time.Second
	defaultMaxRetries       = 3
)

// Config governs the upload pipeline. Setter changes take effect on the next
// transfer attempt.
type Config struct {
	EndpointURL      string
	AuthToken        string
	ChunkBufferBytes int
	ResponseTimeout  time.Duration
	MaxRetries       int
	UseTLS           bool
	DeleteOnSuccess  bool
}

// Status is a snapshot of the upload session state for callers to inspect and
// log.
type Status struct {
	QueueLength int
	Active      bool
	Paused      bool
	CurrentPath string
	BytesSent   int64
	TotalBytes  int64
}

// Pipeline drives one-at-a-time segment transfers to the collector. All
// methods must be called from the single driver goroutine; there is no
// locking because there are no concurrent writers.
type Pipeline struct {
	logger logging.Logger
	store  storage.SegmentStore
	dialer transport.Dialer
	link   transport.LinkChecker
	cfg    Config

	queue Queue

	// Session state: currentPath is set iff active; paused only while active.
	active      bool
	paused      bool
	currentPath string
	bytesSent   int64
	totalBytes  int64
	lastAttempt time.Time

	// Watchdog state, per instance rather than process-global so independent
	// pipelines and tests stay deterministic.
	lastWatchdogCheck time.Time

	now   func() time.Time
	sleep func(time.Duration)
}

// NewPipeline creates an upload pipeline. Zero-value config fields fall back
// to the firmware defaults.
func NewPipeline(logger logging.Logger, store storage.SegmentStore, dialer transport.Dialer, link transport.LinkChecker, cfg Config) *Pipeline {
	if logger == nil {
		logger = logging.NopLogger
	}
	if cfg.ChunkBufferBytes <= 0 {
		cfg.ChunkBufferBytes = defaultChunkBufferBytes
	}
	if cfg.ResponseTimeout <= 0 {
		cfg.ResponseTimeout = defaultResponseTimeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	return &Pipeline{
		logger: logger,
		store:  store,
		dialer: dialer,
		link:   link,
		cfg:    cfg,
		now:    time.Now,
		sleep:  time.Sleep,
	}
}

// Configuration setters; each takes effect on the next transfer attempt.

func (p *Pipeline) SetEndpointURL(url string)            { p.cfg.EndpointURL = url }
func (p *Pipeline) SetAuthToken(token string)            { p.cfg.AuthToken = token }
func (p *Pipeline) SetChunkBufferBytes(n int)            { p.cfg.ChunkBufferBytes = n }
func (p *Pipeline) SetResponseTimeout(d time.Duration)   { p.cfg.ResponseTimeout = d }
func (p *Pipeline) SetMaxRetries(n int)                  { p.cfg.MaxRetries = n }
func (p *Pipeline) SetUseTLS(enable bool)                { p.cfg.UseTLS = enable }
func (p *Pipeline) SetDeleteOnSuccess(enable bool)       { p.cfg.DeleteOnSuccess = enable }

// Enqueue adds a segment path to the upload queue. Re-adding an already
// queued path is a no-op.
func (p *Pipeline) Enqueue(path string) bool {
	if p.queue.Add(path) {
		p.logger.Info("queued segment for upload", "path", path, "queue_size", p.queue.Len())
		return true
	}
	return false
}

// RescanStore lists all recognized segments and enqueues each, recovering the
// queue after a restart. Already-queued paths are left alone.
func (p *Pipeline) RescanStore() error {
	if err := p.store.Refresh(); err != nil {
		return err
	}
	segments, err := p.store.List()
	if err != nil {
		return err
	}
	added := 0
	for _, seg := range segments {
		if p.queue.Add(seg.Path) {
			added++
		}
	}
	if added > 0 {
		p.logger.Info("rescan found segments to upload", "added", added, "queue_size", p.queue.Len())
	}
	return nil
}

// Remove deletes a path from the queue. Called by the eviction manager when
// it deletes the underlying segment.
func (p *Pipeline) Remove(path string) bool {
	return p.queue.Remove(path)
}

// QueueLen returns the number of segments awaiting transfer.
func (p *Pipeline) QueueLen() int {
	return p.queue.Len()
}

// Status returns a snapshot of the session state.
func (p *Pipeline) Status() Status {
	return Status{
		QueueLength: p.queue.Len(),
		Active:      p.active,
		Paused:      p.paused,
		CurrentPath: p.currentPath,
		BytesSent:   p.bytesSent,
		TotalBytes:  p.totalBytes,
	}
}

// ProcessQueue performs one queue-processing step: at most one segment's
// transfer, including its retry loop. After the attempt loop the head entry
// is removed whether it succeeded or was abandoned; a segment is never
// retried across separate calls.
func (p *Pipeline) ProcessQueue() {
	if !p.link.IsNetworkAvailable() || p.queue.Len() == 0 || p.active {
		return
	}

	if p.paused {
		p.ResumeUpload()
		if p.paused {
			return
		}
	}

	now := p.now()
	if now.Sub(p.lastAttempt) < minUploadInterval {
		return
	}

	path, _ := p.queue.Peek()

	p.active = true
	p.currentPath = path
	p.bytesSent = 0
	p.totalBytes = 0
	p.lastAttempt = now

	success := false
	attempt := 0
	for !success && attempt < p.cfg.MaxRetries && !p.paused {
		if attempt > 0 {
			p.logger.Info("retrying upload", "path", path, "attempt", attempt+1)
			p.sleep(backoffBase * time.Duration(attempt))
		}

		success = p.transferSegment(path)

		if !success {
			attempt++
			if !p.link.IsNetworkAvailable() {
				p.logger.Warn("link down, abandoning retries", "path", path)
				break
			}
		}
	}

	p.queue.Pop()

	if success {
		p.logger.Info("upload completed", "path", path)
	} else {
		p.logger.Warn("upload abandoned", "path", path, "attempts", attempt)
	}

	p.currentPath = ""
	p.active = false
}

// transferSegment runs one streaming transfer attempt over a fresh
// connection. Any failure, from open to status parse, fails the whole attempt;
// partial transfers are never resumed.
func (p *Pipeline) transferSegment(path string) bool {
	file, size, err := p.store.Open(path)
	if err != nil {
		p.logger.Error("failed to open segment for upload", "path", path, "error", err)
		return false
	}
	defer file.Close()
	p.totalBytes = size

	ep, err := parseEndpoint(p.cfg.EndpointURL)
	if err != nil {
		p.logger.Error("invalid upload endpoint", "url", p.cfg.EndpointURL, "error", err)
		return false
	}

	conn, err := p.dialer.Connect(ep.Host, ep.Port, ep.Secure || p.cfg.UseTLS)
	if err != nil {
		p.logger.Warn("connection failed", "host", ep.Host, "port", ep.Port, "error", err)
		return false
	}
	defer conn.Close()

	boundary := "SkyMonitorBoundary" + uuid.NewString()
	prolog := multipartProlog(boundary, filepath.Base(path))
	epilog := multipartEpilog(boundary)
	contentLength := int64(len(prolog)) + size + int64(len(epilog))

	head := requestHead(ep, boundary, contentLength, p.cfg.AuthToken)
	if _, err := conn.Write([]byte(head)); err != nil {
		p.logger.Warn("failed to send request headers", "error", err)
		return false
	}
	if _, err := conn.Write([]byte(prolog)); err != nil {
		p.logger.Warn("failed to send multipart prologue", "error", err)
		return false
	}

	if !p.streamFile(file, size, conn) {
		return false
	}

	if _, err := conn.Write([]byte(epilog)); err != nil {
		p.logger.Warn("failed to send multipart epilogue", "error", err)
		return false
	}

	status, err := p.readResponseStatus(conn)
	if err != nil {
		p.logger.Warn("failed to read upload response", "error", err)
		return false
	}

	if status != 200 && status != 201 {
		p.logger.Warn("collector rejected upload", "path", path, "status", status)
		return false
	}

	p.logger.Info("segment uploaded", "path", path, "bytes", size, "status", status)

	if p.cfg.DeleteOnSuccess {
		if err := p.store.Delete(path); err != nil {
			// The collector already has the data; a local delete failure does
			// not downgrade the outcome.
			p.logger.Error("failed to delete uploaded segment", "path", path, "error", err)
		} else {
			p.logger.Info("deleted uploaded segment", "path", path)
		}
	}

	return true
}

// streamFile sends the segment body in fixed-size chunks, checking between
// chunks whether a pause was requested or the connection dropped. An
// in-progress chunk write is never interrupted.
func (p *Pipeline) streamFile(file io.Reader, size int64, conn transport.Conn) bool {
	buf := make([]byte, p.cfg.ChunkBufferBytes)
	var sent int64

	for sent < size {
		if p.paused {
			p.logger.Info("upload paused mid-transfer, aborting attempt", "sent", sent, "total", size)
			return false
		}
		if !conn.IsConnected() {
			p.logger.Warn("connection dropped mid-transfer", "sent", sent, "total", size)
			return false
		}

		n, err := file.Read(buf)
		if n > 0 {
			written, werr := conn.Write(buf[:n])
			if werr != nil || written != n {
				p.logger.Warn("write failed mid-transfer", "sent", sent, "error", werr)
				return false
			}
			sent += int64(n)
			p.bytesSent = sent
		}
		if err != nil {
			if err == io.EOF && sent == size {
				break
			}
			p.logger.Warn("read failed mid-transfer", "sent", sent, "error", err)
			return false
		}
	}

	return true
}

// readResponseStatus consumes the response within the configured timeout and
// returns the HTTP status code. Header lines are read until the blank
// separator, then the body is drained until the server closes.
func (p *Pipeline) readResponseStatus(conn transport.Conn) (int, error) {
	conn.SetDeadline(p.now().Add(p.cfg.ResponseTimeout))

	var parser responseParser
	for {
		line, err := conn.ReadLine()
		if err != nil {
			// Connection close ends the body; anything before a parseable
			// status line is a failed response.
			break
		}
		parser.feedLine(line)
	}

	status, ok := parser.statusCode()
	if !ok {
		return 0, errNoStatusLine
	}
	return status, nil
}

// PauseUpload requests a pause. Pausing an idle pipeline is meaningless and
// is ignored.
func (p *Pipeline) PauseUpload() {
	if p.active && !p.paused {
		p.paused = true
		p.logger.Info("upload paused for recording priority")
	}
}

// ResumeUpload clears a pause.
func (p *Pipeline) ResumeUpload() {
	if p.paused {
		p.paused = false
		p.logger.Info("upload resumed")
	}
}

// ShouldPauseUpload advises whether uploads should pause because the next
// scheduled capture is close. Advisory only; the driver decides.
func (p *Pipeline) ShouldPauseUpload(lastCaptureTime time.Time, captureInterval time.Duration) bool {
	untilNext := captureInterval - p.now().Sub(lastCaptureTime)
	return untilNext <= pauseGuardWindow
}

// ForceResumeUploads clears a pause once the recorder is no longer inside an
// active capture window.
func (p *Pipeline) ForceResumeUploads(lastCaptureTime time.Time, captureDuration, captureInterval time.Duration) {
	sinceCapture := p.now().Sub(lastCaptureTime)
	recording := sinceCapture < captureDuration && sinceCapture < captureInterval
	if p.paused && !recording {
		p.ResumeUpload()
		p.logger.Info("automatically resumed uploads after capture window")
	}
}

// ResetStuckUploadState clears session state that has been active far beyond
// any plausible transfer duration. Safety net against a wedged transport, not
// a normal code path; runs at most once per watchdog interval.
func (p *Pipeline) ResetStuckUploadState() {
	now := p.now()
	if now.Sub(p.lastWatchdogCheck) < watchdogInterval {
		return
	}
	p.lastWatchdogCheck = now

	if p.active && now.Sub(p.lastAttempt) > stuckCeiling {
		p.logger.Error("upload session stuck, resetting state", "path", p.currentPath)
		p.active = false
		p.paused = false
		p.currentPath = ""
	}
}
