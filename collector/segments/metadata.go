package segments

import (
	"fmt"
	"strings"

	"github.com/xfrr/goffmpeg/transcoder"

	"github.com/freesoil/sky-monitor-edge/logging"
)

// VideoMetadata is what the probe extracts from a received segment.
type VideoMetadata struct {
	Width    int
	Height   int
	MimeType string
}

// MetadataProbe extracts video metadata from a segment file on disk.
type MetadataProbe interface {
	Probe(path string) (*VideoMetadata, error)
}

// FFmpegProbe implements MetadataProbe using ffmpeg. Devices upload raw
// recorder output, so the container and codec are only known after probing.
type FFmpegProbe struct {
	logger logging.Logger
}

// NewFFmpegProbe creates an ffmpeg-based metadata probe.
func NewFFmpegProbe(logger logging.Logger) *FFmpegProbe {
	if logger == nil {
		logger = logging.NopLogger
	}
	return &FFmpegProbe{logger: logger}
}

// Probe reads stream metadata from the file at path.
func (p *FFmpegProbe) Probe(path string) (*VideoMetadata, error) {
	trans := new(transcoder.Transcoder)
	if err := trans.Initialize(path, ""); err != nil {
		return nil, fmt.Errorf("failed to probe segment: %w", err)
	}

	metadata := trans.MediaFile().Metadata()

	for _, stream := range metadata.Streams {
		if stream.CodecType != "video" {
			continue
		}
		if stream.Width == 0 || stream.Height == 0 {
			return nil, fmt.Errorf("segment has no usable video dimensions")
		}
		return &VideoMetadata{
			Width:    stream.Width,
			Height:   stream.Height,
			MimeType: mimeTypeFor(stream.CodecName, metadata.Format.FormatName),
		}, nil
	}

	return nil, fmt.Errorf("segment contains no video stream")
}

// mimeTypeFor maps codec and container names onto a MIME type, defaulting to
// mp4 when nothing better is known.
func mimeTypeFor(codec, format string) string {
	switch codec {
	case "h264", "h265", "hevc":
		return "video/mp4"
	case "vp8", "vp9", "av1":
		return "video/webm"
	case "mjpeg", "msmpeg4v3", "mpeg4":
		return "video/avi"
	}
	switch {
	case strings.Contains(format, "avi"):
		return "video/avi"
	case strings.Contains(format, "webm"):
		return "video/webm"
	default:
		return "video/mp4"
	}
}
