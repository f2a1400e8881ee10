package smpp

import (
	"fmt"
	"strings"
	"time"
)

// ClientConfig holds every recognized client configuration option
// (spec.md §6). Broker, Logger, and the various pluggable interfaces
// are injected separately via ClientDependencies; this struct carries
// only the value-typed settings that travel naturally as JSON.
type ClientConfig struct {
	SMSCHost string `json:"smsc_host"`
	SMSCPort int    `json:"smsc_port"`
	SystemID string `json:"system_id"`
	Password string `json:"password"`

	SystemType       string `json:"system_type"`
	AddrTON          uint8  `json:"addr_ton"`
	AddrNPI          uint8  `json:"addr_npi"`
	AddressRange     string `json:"address_range"`
	InterfaceVersion uint8  `json:"interface_version"`

	ServiceType          string `json:"service_type"`
	SourceAddrTON        uint8  `json:"source_addr_ton"`
	SourceAddrNPI        uint8  `json:"source_addr_npi"`
	DestAddrTON          uint8  `json:"dest_addr_ton"`
	DestAddrNPI          uint8  `json:"dest_addr_npi"`
	EsmClass             uint8  `json:"esm_class"`
	ProtocolID           uint8  `json:"protocol_id"`
	PriorityFlag         uint8  `json:"priority_flag"`
	ScheduleDeliveryTime string `json:"schedule_delivery_time"`
	ValidityPeriod       string `json:"validity_period"`
	RegisteredDelivery   uint8  `json:"registered_delivery"`
	ReplaceIfPresentFlag uint8  `json:"replace_if_present_flag"`
	SMDefaultMsgID       uint8  `json:"sm_default_msg_id"`

	Encoding         string `json:"encoding"`
	CodecErrorPolicy string `json:"codec_error_policy"`

	EnquireLinkInterval time.Duration `json:"enquire_link_interval"`
	SocketTimeout       time.Duration `json:"socket_timeout"`
	DrainDuration       time.Duration `json:"drain_duration"`
	CorrelationTTL      time.Duration `json:"correlation_ttl"`
	HookTimeout         time.Duration `json:"hook_timeout"`

	AutoReconnect bool `json:"auto_reconnect"`

	LogMetadata map[string]string `json:"log_metadata"`
	ClientID    string            `json:"client_id"`
}

// applyDefaults fills in every option spec.md §6 documents a default
// for, leaving caller-set values untouched.
func (c *ClientConfig) applyDefaults() {
	if c.SystemType == "" {
		c.SystemType = ""
	}
	if c.InterfaceVersion == 0 {
		c.InterfaceVersion = 0x34
	}
	if c.ServiceType == "" {
		c.ServiceType = "CMT"
	}
	if c.SourceAddrTON == 0 {
		c.SourceAddrTON = 1
	}
	if c.SourceAddrNPI == 0 {
		c.SourceAddrNPI = 1
	}
	if c.DestAddrTON == 0 {
		c.DestAddrTON = 1
	}
	if c.DestAddrNPI == 0 {
		c.DestAddrNPI = 1
	}
	if c.EsmClass == 0 {
		c.EsmClass = 8
	}
	if c.RegisteredDelivery == 0 {
		c.RegisteredDelivery = 5
	}
	if c.Encoding == "" {
		c.Encoding = "gsm0338"
	}
	if c.CodecErrorPolicy == "" {
		c.CodecErrorPolicy = string(PolicyStrict)
	}
	if c.EnquireLinkInterval == 0 {
		c.EnquireLinkInterval = 55 * time.Second
	}
	if c.SocketTimeout == 0 {
		c.SocketTimeout = 30 * time.Second
	}
	if c.DrainDuration == 0 {
		c.DrainDuration = 8 * time.Second
	}
	if c.CorrelationTTL == 0 {
		c.CorrelationTTL = DefaultCorrelationTTL
	}
	if c.HookTimeout == 0 {
		c.HookTimeout = DefaultHookTimeout
	}
	if c.ClientID == "" {
		c.ClientID = strings.ReplaceAll(NewLogID(), "-", "")[:17]
	}
}

// Validate fails fast on a config missing any mandatory field
// (spec.md §6: smsc_host, smsc_port, system_id, password are
// mandatory; broker is mandatory but is supplied via
// ClientDependencies, not this struct).
func (c *ClientConfig) Validate() error {
	if c.SMSCHost == "" {
		return fmt.Errorf("%w: smsc_host is required", ErrInvalidJobSchema)
	}
	if c.SMSCPort <= 0 {
		return fmt.Errorf("%w: smsc_port is required", ErrInvalidJobSchema)
	}
	if c.SystemID == "" {
		return fmt.Errorf("%w: system_id is required", ErrInvalidJobSchema)
	}
	if c.Password == "" {
		return fmt.Errorf("%w: password is required", ErrInvalidJobSchema)
	}
	if _, err := LookupTextCodec(c.Encoding); err != nil {
		return err
	}
	switch CodecErrorPolicy(c.CodecErrorPolicy) {
	case PolicyStrict, PolicyIgnore, PolicyReplace:
	default:
		return fmt.Errorf("%w: unrecognized codec_error_policy %q", ErrInvalidJobSchema, c.CodecErrorPolicy)
	}
	return nil
}

// NewClientConfig returns a copy of cfg with defaults applied,
// validated and ready for use by NewClient.
func NewClientConfig(cfg ClientConfig) (ClientConfig, error) {
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return ClientConfig{}, err
	}
	return cfg, nil
}
