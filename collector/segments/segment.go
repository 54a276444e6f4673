package segments

import "time"

// Record is the metadata stored for one received segment. The segment bytes
// themselves live as plain files in the upload directory.
type Record struct {
	ID         string
	Filename   string
	Size       int64
	MimeType   string
	Width      int
	Height     int
	ReceivedAt time.Time
}
