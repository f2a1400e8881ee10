package smpp

// SMPPVersion is the only interface_version this client speaks.
const SMPPVersion = 0x34

// Command IDs for the operations this client supports (spec.md §3).
// SMPP defines a far wider command set (bind_receiver, query_sm,
// submit_multi, ...); this client only ever binds as a transceiver,
// so those never appear on the wire here.
const (
	CommandBindTransceiver     uint32 = 0x00000009
	CommandBindTransceiverResp uint32 = 0x80000009
	CommandUnbind              uint32 = 0x00000006
	CommandUnbindResp          uint32 = 0x80000006
	CommandEnquireLink         uint32 = 0x00000015
	CommandEnquireLinkResp     uint32 = 0x80000015
	CommandSubmitSM            uint32 = 0x00000004
	CommandSubmitSMResp        uint32 = 0x80000004
	CommandDeliverSM           uint32 = 0x00000005
	CommandDeliverSMResp       uint32 = 0x80000005
	CommandGenericNack         uint32 = 0x80000000
)

// Command statuses this client branches on directly. Any other status
// value still round-trips through the codec as an opaque uint32.
const (
	StatusOK         uint32 = 0x00000000
	StatusInvBnd     uint32 = 0x00000004
	StatusAlreadyBnd uint32 = 0x00000005
	StatusInvPaswd   uint32 = 0x0000000E
	StatusInvSysID   uint32 = 0x0000000F
	StatusMsgQFul    uint32 = 0x00000014 // ESME_RMSGQFUL
	StatusThrottled  uint32 = 0x00000058 // ESME_RTHROTTLED
)

// TON (Type of Number).
const (
	TONUnknown          uint8 = 0x00
	TONInternational    uint8 = 0x01
	TONNational         uint8 = 0x02
	TONNetworkSpecific  uint8 = 0x03
	TONSubscriberNumber uint8 = 0x04
	TONAlphanumeric     uint8 = 0x05
	TONAbbreviated      uint8 = 0x06
)

// NPI (Numbering Plan Indicator).
const (
	NPIUnknown    uint8 = 0x00
	NPIISDN       uint8 = 0x01
	NPIData       uint8 = 0x03
	NPITelex      uint8 = 0x04
	NPILandMobile uint8 = 0x06
	NPINational   uint8 = 0x08
	NPIPrivate    uint8 = 0x09
)

// ESM class bits (spec.md default esm_class is 8: store-and-forward
// with delivery receipt).
const (
	EsmClassDefault      uint8 = 0x00
	EsmClassDatagramMode uint8 = 0x01
	EsmClassForwardMode  uint8 = 0x02
	EsmClassStoreForward uint8 = 0x03
	EsmClassUDHI         uint8 = 0x40
)

// Data coding scheme values, keyed to the encodings pkg/smpp/encoding.go
// supports.
const (
	DataCodingDefault uint8 = 0x00 // gsm0338
	DataCodingIA5     uint8 = 0x01 // ascii
	DataCodingLatin1  uint8 = 0x03 // latin1
	DataCodingUCS2    uint8 = 0x08 // ucs2
)

// Registered delivery.
const (
	RegisteredDeliveryNone           uint8 = 0x00
	RegisteredDeliverySuccessFailure uint8 = 0x01
	RegisteredDeliveryFailure        uint8 = 0x02
)

// Optional parameter tags this client reads or writes.
const (
	TagReceiptedMessageID uint16 = 0x001E
	TagMessagePayload     uint16 = 0x0424
)

// Field length limits (spec.md §3).
const (
	MaxSystemIDLength     = 16
	MaxPasswordLength     = 9
	MaxSystemTypeLength   = 13
	MaxServiceTypeLength  = 6
	MaxAddressLength      = 21
	MaxAddressRangeLength = 41
	MaxShortMessageLength = 254
)
