package smpp

import (
	"context"
	"fmt"
)

// OutboundJobKind identifies which variant of OutboundJob a broker
// record carries (spec.md §9: "tagged variant OutboundJob = SubmitSm |
// Unbind | EnquireLink").
type OutboundJobKind string

const (
	JobSubmitSM    OutboundJobKind = "submit_sm"
	JobUnbind      OutboundJobKind = "unbind"
	JobEnquireLink OutboundJobKind = "enquire_link"
)

// outboundJobProtocolVersion is the only value OutboundJob.Version may
// carry (spec.md §3: `protocol_version: "1"`).
const outboundJobProtocolVersion = "1"

// OutboundJob is a broker-dequeued record describing one thing the
// dispatcher loop should send (spec.md §3, §9). Only Version,
// SMPPCommand, and LogID are universally required; a submit_sm job
// additionally requires ShortMessage, SourceAddr, DestinationAddr
// (spec.md §6).
type OutboundJob struct {
	Version     string          `json:"version"`
	SMPPCommand OutboundJobKind `json:"smpp_command"`
	LogID       string          `json:"log_id"`

	ShortMessage    string       `json:"short_message,omitempty"`
	SourceAddr      string       `json:"source_addr,omitempty"`
	DestinationAddr string       `json:"destination_addr,omitempty"`
	HookMetadata    HookMetadata `json:"hook_metadata,omitempty"`

	// Per-job overrides of the session's submit_sm defaults (spec.md §3
	// "plus optional submit_sm fields overriding session defaults").
	Encoding         string `json:"encoding,omitempty"`
	CodecErrorPolicy string `json:"codec_error_policy,omitempty"`
	ServiceType      string `json:"service_type,omitempty"`
	SourceAddrTON    *uint8 `json:"source_addr_ton,omitempty"`
	SourceAddrNPI    *uint8 `json:"source_addr_npi,omitempty"`
	DestAddrTON      *uint8 `json:"dest_addr_ton,omitempty"`
	DestAddrNPI      *uint8 `json:"dest_addr_npi,omitempty"`
	RegisteredDelivery *uint8 `json:"registered_delivery,omitempty"`
}

// Validate rejects an OutboundJob that fails schema validation before
// the client ever builds a typed PDU from it (spec.md §6, §9).
func (j OutboundJob) Validate() error {
	if j.Version != outboundJobProtocolVersion {
		return fmt.Errorf("%w: version %q (want %q)", ErrInvalidJobSchema, j.Version, outboundJobProtocolVersion)
	}
	if j.LogID == "" {
		return fmt.Errorf("%w: log_id is required", ErrInvalidJobSchema)
	}
	switch j.SMPPCommand {
	case JobSubmitSM:
		if j.ShortMessage == "" || j.SourceAddr == "" || j.DestinationAddr == "" {
			return fmt.Errorf("%w: submit_sm requires short_message, source_addr, destination_addr", ErrInvalidJobSchema)
		}
	case JobUnbind, JobEnquireLink:
		// No further fields required.
	default:
		return fmt.Errorf("%w: unrecognized smpp_command %q", ErrInvalidJobSchema, j.SMPPCommand)
	}
	return nil
}

// Broker is the two-method contract a send queue must satisfy
// (spec.md §4.7, C7). Enqueue is used by the application to submit new
// work; Dequeue is used by the dispatcher loop to pull the next job,
// blocking (subject to ctx) until one is available.
type Broker interface {
	Enqueue(ctx context.Context, job OutboundJob) error
	Dequeue(ctx context.Context) (OutboundJob, error)
}

// SimpleBroker is an in-process, buffered-channel broker -- the
// trivial default spec.md §1 Non-goals calls for ("a queue
// implementation beyond a trivial in-process default" is explicitly
// out of scope for anything fancier).
type SimpleBroker struct {
	jobs chan OutboundJob
}

// DefaultBrokerCapacity matches the pack's in-process queue default.
const DefaultBrokerCapacity = 1000

// NewSimpleBroker returns a SimpleBroker buffering up to capacity
// jobs. A non-positive capacity falls back to DefaultBrokerCapacity.
func NewSimpleBroker(capacity int) *SimpleBroker {
	if capacity <= 0 {
		capacity = DefaultBrokerCapacity
	}
	return &SimpleBroker{jobs: make(chan OutboundJob, capacity)}
}

// Enqueue blocks until there is room in the buffer or ctx is done.
// This gives the application natural backpressure rather than a
// silently dropped send (spec.md §5 "the client never drops messages
// silently").
func (b *SimpleBroker) Enqueue(ctx context.Context, job OutboundJob) error {
	select {
	case b.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dequeue blocks until a job is available or ctx is done.
func (b *SimpleBroker) Dequeue(ctx context.Context) (OutboundJob, error) {
	select {
	case job := <-b.jobs:
		return job, nil
	case <-ctx.Done():
		return OutboundJob{}, ctx.Err()
	}
}

// Len reports the number of jobs currently buffered.
func (b *SimpleBroker) Len() int { return len(b.jobs) }
