package domain

import "time"

const (
	MIMEPNG     = "image/png"
	MIMEJPEG    = "image/jpeg"
	MIMEWebP    = "image/webp"
	MIMEUnknown = "application/octet-stream"
)

// EditResult is the outcome of one successful upstream edit.
type EditResult struct {
	Data     []byte
	MIME     string
	Provider string
}

// ImageRecord is the persisted "latest image" slot.
type ImageRecord struct {
	Data        []byte
	MIME        string
	Provider    string
	Version     string
	CommittedAt time.Time
}
