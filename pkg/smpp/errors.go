package smpp

import "errors"

// Framing errors (spec.md §7, error taxonomy class 2). A short read on
// either the length prefix or the body is fatal to the session: once
// the byte stream has slipped out of frame sync there is no way to
// recover position without risking garbage being parsed as a PDU.
var (
	ErrTruncatedHeader = errors.New("smpp: truncated header: fewer than 4 octets read for command_length")
	ErrTruncatedBody   = errors.New("smpp: truncated body: fewer than command_length-4 octets read")
	ErrMalformedPDU    = errors.New("smpp: malformed pdu body")
	ErrInvalidCmdLen   = errors.New("smpp: command_length smaller than header size")
)

// Protocol / admission errors (spec.md §7, classes 3-4).
var (
	ErrBindRejected     = errors.New("smpp: bind_transceiver_resp returned a non-zero command_status")
	ErrNotBound         = errors.New("smpp: session is not in BOUND_TRX state")
	ErrRateLimitTimeout = errors.New("smpp: rate limiter did not admit the send within its configured wait")
)

// Codec errors (spec.md §7, class 5).
var (
	ErrUnencodableText  = errors.New("smpp: short_message cannot be represented in the requested encoding")
	ErrUnknownEncoding  = errors.New("smpp: unrecognized encoding name")
	ErrInvalidJobSchema = errors.New("smpp: outbound job failed schema validation")
)
