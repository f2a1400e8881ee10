package smpp

import (
	"encoding/binary"
	"fmt"
	"io"
)

// PDUEncoder serializes PDUs to the SMPP wire format (spec.md §4.1).
type PDUEncoder struct{}

// NewPDUEncoder returns a PDUEncoder. It is stateless and safe for
// concurrent use.
func NewPDUEncoder() *PDUEncoder { return &PDUEncoder{} }

// Encode writes the four header fields followed by the marshaled
// body. CommandLength is always recomputed from the body, never taken
// from pdu.Header.CommandLength, so callers cannot construct a PDU
// whose length lies about its own size (invariant (i), spec.md §3).
func (e *PDUEncoder) Encode(pdu *PDU) ([]byte, error) {
	body, err := pdu.Body.Marshal()
	if err != nil {
		return nil, fmt.Errorf("encode: marshal body: %w", err)
	}

	out := make([]byte, pduHeaderLength+len(body))
	binary.BigEndian.PutUint32(out[0:4], uint32(pduHeaderLength+len(body)))
	binary.BigEndian.PutUint32(out[4:8], pdu.Body.CommandID())
	binary.BigEndian.PutUint32(out[8:12], pdu.Header.CommandStatus)
	binary.BigEndian.PutUint32(out[12:16], pdu.Header.SequenceNum)
	copy(out[16:], body)
	return out, nil
}

// PDUDecoder parses PDUs from the SMPP wire format.
type PDUDecoder struct{}

// NewPDUDecoder returns a PDUDecoder. It is stateless and safe for
// concurrent use.
func NewPDUDecoder() *PDUDecoder { return &PDUDecoder{} }

// DecodeFromReader performs the exact two-read discipline spec.md
// §4.1 mandates: read exactly 4 octets for command_length, then read
// exactly command_length-4 further octets. Any short read is fatal
// (ErrTruncatedHeader / ErrTruncatedBody) -- on a byte stream there is
// no way to resynchronize mid-frame.
func (d *PDUDecoder) DecodeFromReader(r io.Reader) (*PDU, error) {
	lenBuf := make([]byte, 4)
	if _, err := io.ReadFull(r, lenBuf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTruncatedHeader, err)
	}
	commandLength := binary.BigEndian.Uint32(lenBuf)
	if commandLength < pduHeaderLength {
		return nil, fmt.Errorf("%w: command_length=%d", ErrInvalidCmdLen, commandLength)
	}

	rest := make([]byte, commandLength-4)
	if _, err := io.ReadFull(r, rest); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTruncatedBody, err)
	}

	full := make([]byte, 0, commandLength)
	full = append(full, lenBuf...)
	full = append(full, rest...)
	return d.Decode(full)
}

// Decode parses a complete PDU (header + body) already read off the
// wire. An unrecognized command_id yields a RawPDU rather than an
// error, so the session can still emit generic_nack (spec.md §4.1).
func (d *PDUDecoder) Decode(data []byte) (*PDU, error) {
	if len(data) < pduHeaderLength {
		return nil, fmt.Errorf("%w: have %d octets", ErrTruncatedHeader, len(data))
	}

	header := PDUHeader{
		CommandLength: binary.BigEndian.Uint32(data[0:4]),
		CommandID:     binary.BigEndian.Uint32(data[4:8]),
		CommandStatus: binary.BigEndian.Uint32(data[8:12]),
		SequenceNum:   binary.BigEndian.Uint32(data[12:16]),
	}
	if header.CommandLength < pduHeaderLength {
		return nil, fmt.Errorf("%w: command_length=%d", ErrInvalidCmdLen, header.CommandLength)
	}
	if uint32(len(data)) < header.CommandLength {
		return nil, fmt.Errorf("%w: have %d, want %d", ErrTruncatedBody, len(data), header.CommandLength)
	}

	bodyData := data[pduHeaderLength:header.CommandLength]
	body := newBodyFor(header.CommandID)
	if err := body.Unmarshal(bodyData); err != nil {
		return nil, &DecodeError{Header: header, Err: fmt.Errorf("%w: %v", ErrMalformedPDU, err)}
	}

	return &PDU{Header: header, Body: body}, nil
}

// DecodeError wraps a body-unmarshal failure together with the header
// that was successfully parsed before it. The header's SequenceNum is
// what readLoop needs to reply with generic_nack to the PDU that
// failed to decode, rather than tearing down silently (spec.md §7,
// §4.8: a parseable header but malformed body still gets a reply).
type DecodeError struct {
	Header PDUHeader
	Err    error
}

func (e *DecodeError) Error() string { return e.Err.Error() }
func (e *DecodeError) Unwrap() error { return e.Err }

// newBodyFor returns an empty body value appropriate for commandID,
// or a RawPDU for anything this client does not implement.
func newBodyFor(commandID uint32) PDUBody {
	switch commandID {
	case CommandBindTransceiver:
		return &BindTransceiver{}
	case CommandBindTransceiverResp:
		return &BindTransceiverResp{}
	case CommandUnbind:
		return newUnbind()
	case CommandUnbindResp:
		return newUnbindResp()
	case CommandEnquireLink:
		return newEnquireLink()
	case CommandEnquireLinkResp:
		return newEnquireLinkResp()
	case CommandSubmitSM:
		return &SubmitSM{}
	case CommandSubmitSMResp:
		return &SubmitSMResp{}
	case CommandDeliverSM:
		return &DeliverSM{}
	case CommandDeliverSMResp:
		return &DeliverSMResp{}
	case CommandGenericNack:
		return &GenericNack{}
	default:
		return &RawPDU{id: commandID}
	}
}

// applyShortMessage fills in ShortMessage/SMLength/OptionalParams on a
// submit_sm or deliver_sm so that text longer than 254 encoded octets
// is carried via the message_payload TLV with sm_length forced to 0
// (spec.md §4.1, §8 boundary behavior (c)).
func applyShortMessage(encoded []byte, tlvs []OptionalParameter) (smLength uint8, shortMessage []byte, outTLVs []OptionalParameter) {
	if len(encoded) <= MaxShortMessageLength {
		return uint8(len(encoded)), encoded, tlvs
	}
	payload := OptionalParameter{Tag: TagMessagePayload, Length: uint16(len(encoded)), Value: encoded}
	return 0, nil, append(append([]OptionalParameter{}, tlvs...), payload)
}
