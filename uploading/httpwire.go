package uploading

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// endpoint is the parsed form of the configured upload URL.
type endpoint struct {
	Host   string
	Port   int
	Path   string
	Secure bool
}

// hostPort renders the Host header value, keeping an explicit port visible.
func (e endpoint) hostPort() string {
	return fmt.Sprintf("%s:%d", e.Host, e.Port)
}

var (
	errEmptyEndpoint = errors.New("endpoint URL is empty")
	errNoStatusLine  = errors.New("response contained no parseable status line")
)

// parseEndpoint splits an upload URL into host, port and path. A missing
// scheme means plain HTTP; a missing path means "/upload"; an explicit port
// in the host portion overrides the scheme default.
func parseEndpoint(raw string) (endpoint, error) {
	if raw == "" {
		return endpoint{}, errEmptyEndpoint
	}

	ep := endpoint{Port: 80, Path: "/upload"}

	rest := raw
	switch {
	case strings.HasPrefix(raw, "https://"):
		ep.Secure = true
		ep.Port = 443
		rest = raw[len("https://"):]
	case strings.HasPrefix(raw, "http://"):
		rest = raw[len("http://"):]
	}

	if slash := strings.IndexByte(rest, '/'); slash >= 0 {
		ep.Host = rest[:slash]
		ep.Path = rest[slash:]
	} else {
		ep.Host = rest
	}

	if colon := strings.IndexByte(ep.Host, ':'); colon >= 0 {
		port, err := strconv.Atoi(ep.Host[colon+1:])
		if err != nil || port <= 0 || port > 65535 {
			return endpoint{}, fmt.Errorf("invalid port in endpoint URL %q", raw)
		}
		ep.Port = port
		ep.Host = ep.Host[:colon]
	}

	if ep.Host == "" {
		return endpoint{}, fmt.Errorf("missing host in endpoint URL %q", raw)
	}

	return ep, nil
}

// multipartProlog builds the opening of the single-part form body: boundary
// marker, disposition for the part named "file", and the octet-stream type.
func multipartProlog(boundary, filename string) string {
	var b strings.Builder
	b.WriteString("--" + boundary + "\r\n")
	b.WriteString(`Content-Disposition: form-data; name="file"; filename="` + filename + `"` + "\r\n")
	b.WriteString("Content-Type: application/octet-stream\r\n\r\n")
	return b.String()
}

// multipartEpilog closes the form body.
func multipartEpilog(boundary string) string {
	return "\r\n--" + boundary + "--\r\n"
}

// requestHead renders the POST request line and headers. contentLength must
// be the exact body size; the protocol does not use chunked encoding.
func requestHead(ep endpoint, boundary string, contentLength int64, authToken string) string {
	var b strings.Builder
	b.WriteString("POST " + ep.Path + " HTTP/1.1\r\n")
	b.WriteString("Host: " + ep.hostPort() + "\r\n")
	b.WriteString("Content-Type: multipart/form-data; boundary=" + boundary + "\r\n")
	b.WriteString("Content-Length: " + strconv.FormatInt(contentLength, 10) + "\r\n")
	if authToken != "" {
		b.WriteString("Authorization: Bearer " + authToken + "\r\n")
	}
	b.WriteString("Connection: close\r\n\r\n")
	return b.String()
}

// responseParser consumes a response line by line: status line, then headers
// until the blank separator, then body. Only the numeric status code is kept.
type responseParser struct {
	state     responseState
	status    int
	hasStatus bool
}

type responseState int

const (
	stateStatusLine responseState = iota
	stateHeaders
	stateBody
)

// feedLine advances the parser with one received line (CR/LF already
// stripped).
func (p *responseParser) feedLine(line string) {
	switch p.state {
	case stateStatusLine:
		p.parseStatusLine(line)
		p.state = stateHeaders
	case stateHeaders:
		if line == "" {
			p.state = stateBody
		}
	case stateBody:
		// Body content carries no protocol meaning for the pipeline.
	}
}

// parseStatusLine extracts the numeric code from "HTTP/1.x NNN reason".
func (p *responseParser) parseStatusLine(line string) {
	if !strings.HasPrefix(line, "HTTP/1.1 ") && !strings.HasPrefix(line, "HTTP/1.0 ") {
		return
	}
	rest := line[len("HTTP/1.1 "):]
	if len(rest) < 3 {
		return
	}
	code, err := strconv.Atoi(rest[:3])
	if err != nil {
		return
	}
	p.status = code
	p.hasStatus = true
}

// statusCode returns the parsed status, or false if no parseable status line
// was seen.
func (p *responseParser) statusCode() (int, bool) {
	return p.status, p.hasStatus
}

// bodyReached reports whether the header section has been fully consumed.
func (p *responseParser) bodyReached() bool {
	return p.state == stateBody
}
