package smpp

import "github.com/google/uuid"

// NewLogID returns a fresh, process-wide-unique identifier (a UUIDv4
// string) that a caller can use as OutboundJob.LogID. The client does
// not fill in a missing log_id: OutboundJob.Validate rejects a job
// without one. ClientConfig's default ClientID is derived from it.
func NewLogID() string {
	return uuid.NewString()
}

// NewSessionID returns an identifier for a single bind-to-unbind
// session lifetime, suitable for log fields that distinguish one
// connection attempt from the next. The client itself does not call it.
func NewSessionID() string {
	return uuid.NewString()
}
