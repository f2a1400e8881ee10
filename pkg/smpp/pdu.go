package smpp

import (
	"bytes"
	"fmt"
)

// PDU is one SMPP Protocol Data Unit: a four-field header plus a body
// whose shape depends on Header.CommandID (spec.md §3).
type PDU struct {
	Header PDUHeader
	Body   PDUBody
}

// PDUHeader is the fixed 16-octet SMPP header. All four fields are
// big-endian uint32s on the wire.
type PDUHeader struct {
	CommandLength uint32
	CommandID     uint32
	CommandStatus uint32
	SequenceNum   uint32
}

const pduHeaderLength = 16

// PDUBody is implemented by every concrete body type. Marshal/Unmarshal
// operate on the body octets only -- the header is handled separately
// by PDUEncoder/PDUDecoder so that CommandLength can be computed from
// the marshaled body size.
type PDUBody interface {
	Marshal() ([]byte, error)
	Unmarshal(data []byte) error
	CommandID() uint32
}

// writeCString appends a NUL-terminated ASCII string, matching
// spec.md's "C-octet string": raw bytes, one terminating NUL, no
// fixed-width padding.
func writeCString(buf *bytes.Buffer, s string) {
	buf.WriteString(s)
	buf.WriteByte(0)
}

// readCString consumes bytes from data starting at offset up to and
// including the first NUL. It returns the decoded string (without the
// NUL) and the offset just past it. A missing NUL is ErrMalformedPDU.
func readCString(data []byte, offset int) (string, int, error) {
	idx := bytes.IndexByte(data[offset:], 0)
	if idx < 0 {
		return "", offset, fmt.Errorf("%w: c-octet string missing NUL terminator", ErrMalformedPDU)
	}
	return string(data[offset : offset+idx]), offset + idx + 1, nil
}

// OptionalParameter is an SMPP TLV: tag (u16), length (u16), value
// (length octets). Unknown tags on receipt and caller-supplied tags on
// submit_sm must both round-trip untouched (spec.md §3).
type OptionalParameter struct {
	Tag    uint16
	Length uint16
	Value  []byte
}

func marshalTLVs(buf *bytes.Buffer, tlvs []OptionalParameter) {
	for _, t := range tlvs {
		buf.WriteByte(byte(t.Tag >> 8))
		buf.WriteByte(byte(t.Tag))
		length := uint16(len(t.Value))
		buf.WriteByte(byte(length >> 8))
		buf.WriteByte(byte(length))
		buf.Write(t.Value)
	}
}

func unmarshalTLVs(data []byte, offset int) ([]OptionalParameter, error) {
	var tlvs []OptionalParameter
	for offset < len(data) {
		if len(data)-offset < 4 {
			return nil, fmt.Errorf("%w: truncated TLV header", ErrMalformedPDU)
		}
		tag := uint16(data[offset])<<8 | uint16(data[offset+1])
		length := uint16(data[offset+2])<<8 | uint16(data[offset+3])
		offset += 4
		if len(data)-offset < int(length) {
			return nil, fmt.Errorf("%w: truncated TLV value", ErrMalformedPDU)
		}
		value := make([]byte, length)
		copy(value, data[offset:offset+int(length)])
		offset += int(length)
		tlvs = append(tlvs, OptionalParameter{Tag: tag, Length: length, Value: value})
	}
	return tlvs, nil
}

func findTLV(tlvs []OptionalParameter, tag uint16) ([]byte, bool) {
	for _, t := range tlvs {
		if t.Tag == tag {
			return t.Value, true
		}
	}
	return nil, false
}

// RawPDU is returned by the decoder when command_id is not one this
// client recognizes. The header is still valid; the body is kept as
// opaque bytes so the session can respond with generic_nack (spec.md
// §4.1).
type RawPDU struct {
	RawBody []byte
	id      uint32
}

func (r *RawPDU) Marshal() ([]byte, error) { return append([]byte(nil), r.RawBody...), nil }
func (r *RawPDU) Unmarshal(data []byte) error {
	r.RawBody = append([]byte(nil), data...)
	return nil
}
func (r *RawPDU) CommandID() uint32 { return r.id }

// GenericNack is the empty body sent when a header cannot be parsed at
// all, or in reply to an unrecognized command_id.
type GenericNack struct{}

func (g *GenericNack) Marshal() ([]byte, error)    { return nil, nil }
func (g *GenericNack) Unmarshal(data []byte) error { return nil }
func (g *GenericNack) CommandID() uint32           { return CommandGenericNack }

// emptyBody backs unbind, unbind_resp, enquire_link and
// enquire_link_resp, all of which carry no body octets.
type emptyBody struct{ id uint32 }

func (e *emptyBody) Marshal() ([]byte, error)    { return nil, nil }
func (e *emptyBody) Unmarshal(data []byte) error { return nil }
func (e *emptyBody) CommandID() uint32           { return e.id }

func newUnbind() PDUBody          { return &emptyBody{id: CommandUnbind} }
func newUnbindResp() PDUBody      { return &emptyBody{id: CommandUnbindResp} }
func newEnquireLink() PDUBody     { return &emptyBody{id: CommandEnquireLink} }
func newEnquireLinkResp() PDUBody { return &emptyBody{id: CommandEnquireLinkResp} }

// BindTransceiver is the single bind operation this client issues
// (spec.md: receiver-only/transmitter-only bind modes are a Non-goal).
type BindTransceiver struct {
	SystemID         string
	Password         string
	SystemType       string
	InterfaceVersion uint8
	AddrTON          uint8
	AddrNPI          uint8
	AddressRange     string
}

func (b *BindTransceiver) Marshal() ([]byte, error) {
	buf := new(bytes.Buffer)
	writeCString(buf, b.SystemID)
	writeCString(buf, b.Password)
	writeCString(buf, b.SystemType)
	buf.WriteByte(b.InterfaceVersion)
	buf.WriteByte(b.AddrTON)
	buf.WriteByte(b.AddrNPI)
	writeCString(buf, b.AddressRange)
	return buf.Bytes(), nil
}

func (b *BindTransceiver) Unmarshal(data []byte) error {
	var err error
	offset := 0
	if b.SystemID, offset, err = readCString(data, offset); err != nil {
		return err
	}
	if b.Password, offset, err = readCString(data, offset); err != nil {
		return err
	}
	if b.SystemType, offset, err = readCString(data, offset); err != nil {
		return err
	}
	if len(data)-offset < 3 {
		return fmt.Errorf("%w: bind_transceiver missing fixed fields", ErrMalformedPDU)
	}
	b.InterfaceVersion = data[offset]
	b.AddrTON = data[offset+1]
	b.AddrNPI = data[offset+2]
	offset += 3
	if b.AddressRange, _, err = readCString(data, offset); err != nil {
		return err
	}
	return nil
}

func (b *BindTransceiver) CommandID() uint32 { return CommandBindTransceiver }

// BindTransceiverResp carries only the SMSC's system_id back to the
// ESME.
type BindTransceiverResp struct {
	SystemID string
}

func (b *BindTransceiverResp) Marshal() ([]byte, error) {
	buf := new(bytes.Buffer)
	writeCString(buf, b.SystemID)
	return buf.Bytes(), nil
}

func (b *BindTransceiverResp) Unmarshal(data []byte) error {
	systemID, _, err := readCString(data, 0)
	if err != nil {
		return err
	}
	b.SystemID = systemID
	return nil
}

func (b *BindTransceiverResp) CommandID() uint32 { return CommandBindTransceiverResp }

// SubmitSM and DeliverSM share an identical body shape on the wire
// (spec.md §3); they stay distinct Go types because the
// direction-specific handling in the session engine differs.
type SubmitSM struct {
	ServiceType          string
	SourceAddrTON        uint8
	SourceAddrNPI        uint8
	SourceAddr           string
	DestAddrTON          uint8
	DestAddrNPI          uint8
	DestinationAddr      string
	EsmClass             uint8
	ProtocolID           uint8
	PriorityFlag         uint8
	ScheduleDeliveryTime string
	ValidityPeriod       string
	RegisteredDelivery   uint8
	ReplaceIfPresentFlag uint8
	DataCoding           uint8
	SMDefaultMsgID       uint8
	SMLength             uint8
	ShortMessage         []byte
	OptionalParams       []OptionalParameter
}

func marshalSMBody(
	serviceType string, srcTON, srcNPI uint8, srcAddr string,
	dstTON, dstNPI uint8, dstAddr string,
	esmClass, protocolID, priorityFlag uint8,
	scheduleDeliveryTime, validityPeriod string,
	registeredDelivery, replaceIfPresentFlag, dataCoding, smDefaultMsgID, smLength uint8,
	shortMessage []byte, tlvs []OptionalParameter,
) ([]byte, error) {
	buf := new(bytes.Buffer)
	writeCString(buf, serviceType)
	buf.WriteByte(srcTON)
	buf.WriteByte(srcNPI)
	writeCString(buf, srcAddr)
	buf.WriteByte(dstTON)
	buf.WriteByte(dstNPI)
	writeCString(buf, dstAddr)
	buf.WriteByte(esmClass)
	buf.WriteByte(protocolID)
	buf.WriteByte(priorityFlag)
	writeCString(buf, scheduleDeliveryTime)
	writeCString(buf, validityPeriod)
	buf.WriteByte(registeredDelivery)
	buf.WriteByte(replaceIfPresentFlag)
	buf.WriteByte(dataCoding)
	buf.WriteByte(smDefaultMsgID)
	buf.WriteByte(smLength)
	buf.Write(shortMessage)
	marshalTLVs(buf, tlvs)
	return buf.Bytes(), nil
}

func unmarshalSMBody(data []byte) (serviceType string, srcTON, srcNPI uint8, srcAddr string,
	dstTON, dstNPI uint8, dstAddr string,
	esmClass, protocolID, priorityFlag uint8,
	scheduleDeliveryTime, validityPeriod string,
	registeredDelivery, replaceIfPresentFlag, dataCoding, smDefaultMsgID, smLength uint8,
	shortMessage []byte, tlvs []OptionalParameter, err error) {
	offset := 0
	if serviceType, offset, err = readCString(data, offset); err != nil {
		return
	}
	if len(data)-offset < 2 {
		err = fmt.Errorf("%w: missing source address fields", ErrMalformedPDU)
		return
	}
	srcTON, srcNPI = data[offset], data[offset+1]
	offset += 2
	if srcAddr, offset, err = readCString(data, offset); err != nil {
		return
	}
	if len(data)-offset < 2 {
		err = fmt.Errorf("%w: missing destination address fields", ErrMalformedPDU)
		return
	}
	dstTON, dstNPI = data[offset], data[offset+1]
	offset += 2
	if dstAddr, offset, err = readCString(data, offset); err != nil {
		return
	}
	if len(data)-offset < 3 {
		err = fmt.Errorf("%w: missing esm_class/protocol_id/priority_flag", ErrMalformedPDU)
		return
	}
	esmClass, protocolID, priorityFlag = data[offset], data[offset+1], data[offset+2]
	offset += 3
	if scheduleDeliveryTime, offset, err = readCString(data, offset); err != nil {
		return
	}
	if validityPeriod, offset, err = readCString(data, offset); err != nil {
		return
	}
	if len(data)-offset < 5 {
		err = fmt.Errorf("%w: missing registered_delivery..sm_length", ErrMalformedPDU)
		return
	}
	registeredDelivery = data[offset]
	replaceIfPresentFlag = data[offset+1]
	dataCoding = data[offset+2]
	smDefaultMsgID = data[offset+3]
	smLength = data[offset+4]
	offset += 5
	if len(data)-offset < int(smLength) {
		err = fmt.Errorf("%w: short_message shorter than sm_length", ErrMalformedPDU)
		return
	}
	shortMessage = make([]byte, smLength)
	copy(shortMessage, data[offset:offset+int(smLength)])
	offset += int(smLength)
	tlvs, err = unmarshalTLVs(data, offset)
	return
}

func (s *SubmitSM) Marshal() ([]byte, error) {
	return marshalSMBody(
		s.ServiceType, s.SourceAddrTON, s.SourceAddrNPI, s.SourceAddr,
		s.DestAddrTON, s.DestAddrNPI, s.DestinationAddr,
		s.EsmClass, s.ProtocolID, s.PriorityFlag,
		s.ScheduleDeliveryTime, s.ValidityPeriod,
		s.RegisteredDelivery, s.ReplaceIfPresentFlag, s.DataCoding, s.SMDefaultMsgID, s.SMLength,
		s.ShortMessage, s.OptionalParams,
	)
}

func (s *SubmitSM) Unmarshal(data []byte) error {
	var err error
	s.ServiceType, s.SourceAddrTON, s.SourceAddrNPI, s.SourceAddr,
		s.DestAddrTON, s.DestAddrNPI, s.DestinationAddr,
		s.EsmClass, s.ProtocolID, s.PriorityFlag,
		s.ScheduleDeliveryTime, s.ValidityPeriod,
		s.RegisteredDelivery, s.ReplaceIfPresentFlag, s.DataCoding, s.SMDefaultMsgID, s.SMLength,
		s.ShortMessage, s.OptionalParams, err = unmarshalSMBody(data)
	return err
}

func (s *SubmitSM) CommandID() uint32 { return CommandSubmitSM }

// SubmitSMResp carries the SMSC-assigned message_id (spec.md §3, §4.3
// correlation by message_id depends on this).
type SubmitSMResp struct {
	MessageID string
}

func (s *SubmitSMResp) Marshal() ([]byte, error) {
	buf := new(bytes.Buffer)
	writeCString(buf, s.MessageID)
	return buf.Bytes(), nil
}

func (s *SubmitSMResp) Unmarshal(data []byte) error {
	id, _, err := readCString(data, 0)
	if err != nil {
		return err
	}
	s.MessageID = id
	return nil
}

func (s *SubmitSMResp) CommandID() uint32 { return CommandSubmitSMResp }

// DeliverSM is sent by the SMSC, either as a mobile-originated message
// or as a delivery receipt (distinguished by EsmClass and the
// receipted_message_id TLV, spec.md §4.8).
type DeliverSM struct {
	ServiceType          string
	SourceAddrTON        uint8
	SourceAddrNPI        uint8
	SourceAddr           string
	DestAddrTON          uint8
	DestAddrNPI          uint8
	DestinationAddr      string
	EsmClass             uint8
	ProtocolID           uint8
	PriorityFlag         uint8
	ScheduleDeliveryTime string
	ValidityPeriod       string
	RegisteredDelivery   uint8
	ReplaceIfPresentFlag uint8
	DataCoding           uint8
	SMDefaultMsgID       uint8
	SMLength             uint8
	ShortMessage         []byte
	OptionalParams       []OptionalParameter
}

func (d *DeliverSM) Marshal() ([]byte, error) {
	return marshalSMBody(
		d.ServiceType, d.SourceAddrTON, d.SourceAddrNPI, d.SourceAddr,
		d.DestAddrTON, d.DestAddrNPI, d.DestinationAddr,
		d.EsmClass, d.ProtocolID, d.PriorityFlag,
		d.ScheduleDeliveryTime, d.ValidityPeriod,
		d.RegisteredDelivery, d.ReplaceIfPresentFlag, d.DataCoding, d.SMDefaultMsgID, d.SMLength,
		d.ShortMessage, d.OptionalParams,
	)
}

func (d *DeliverSM) Unmarshal(data []byte) error {
	var err error
	d.ServiceType, d.SourceAddrTON, d.SourceAddrNPI, d.SourceAddr,
		d.DestAddrTON, d.DestAddrNPI, d.DestinationAddr,
		d.EsmClass, d.ProtocolID, d.PriorityFlag,
		d.ScheduleDeliveryTime, d.ValidityPeriod,
		d.RegisteredDelivery, d.ReplaceIfPresentFlag, d.DataCoding, d.SMDefaultMsgID, d.SMLength,
		d.ShortMessage, d.OptionalParams, err = unmarshalSMBody(data)
	return err
}

func (d *DeliverSM) CommandID() uint32 { return CommandDeliverSM }

// ReceiptedMessageID returns the receipted_message_id TLV (tag
// 0x001E) if present, for correlating a delivery receipt back to its
// originating submit_sm (spec.md §4.3).
func (d *DeliverSM) ReceiptedMessageID() (string, bool) {
	v, ok := findTLV(d.OptionalParams, TagReceiptedMessageID)
	if !ok {
		return "", false
	}
	return string(bytes.TrimRight(v, "\x00")), true
}

// DeliverSMResp is the empty-body reply to deliver_sm.
type DeliverSMResp struct{}

func (d *DeliverSMResp) Marshal() ([]byte, error)    { return nil, nil }
func (d *DeliverSMResp) Unmarshal(data []byte) error { return nil }
func (d *DeliverSMResp) CommandID() uint32           { return CommandDeliverSMResp }
