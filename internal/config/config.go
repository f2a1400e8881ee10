// Package config loads the client's JSON configuration file (spec.md
// §6 "Client configuration (recognized options)").
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/relaysms/smppclient/pkg/smpp"
)

// clientConfigJSON mirrors smpp.ClientConfig but with duration fields
// as strings, since time.Duration does not round-trip through JSON on
// its own (grounded on the pack's duration-parsing config loader).
type clientConfigJSON struct {
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

	EnquireLinkInterval string `json:"enquire_link_interval"`
	SocketTimeout       string `json:"socket_timeout"`
	DrainDuration       string `json:"drain_duration"`
	CorrelationTTL      string `json:"correlation_ttl"`

	AutoReconnect bool              `json:"auto_reconnect"`
	LogMetadata   map[string]string `json:"log_metadata"`
	ClientID      string            `json:"client_id"`
	LogLevel      string            `json:"log_level"`

	BrokerCapacity int `json:"broker_capacity"`
	MetricsPort    int `json:"metrics_port"`
}

// Loaded is everything config.Load extracts from a client config file:
// the validated, defaulted ClientConfig plus the ambient settings
// (log level, metrics port, broker capacity) that sit beside it but
// outside smpp.ClientConfig's scope.
type Loaded struct {
	Client         smpp.ClientConfig
	LogLevel       string
	MetricsPort    int
	BrokerCapacity int
}

// Load reads and validates the JSON file at path (spec.md §6 "--client
// <path>"), applying smpp.ClientConfig's documented defaults to any
// field the file omits.
func Load(path string) (Loaded, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Loaded{}, fmt.Errorf("read config file: %w", err)
	}

	var raw clientConfigJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return Loaded{}, fmt.Errorf("parse config file: %w", err)
	}

	cfg := smpp.ClientConfig{
		SMSCHost: raw.SMSCHost, SMSCPort: raw.SMSCPort,
		SystemID: raw.SystemID, Password: raw.Password,
		SystemType: raw.SystemType, AddrTON: raw.AddrTON, AddrNPI: raw.AddrNPI,
		AddressRange: raw.AddressRange, InterfaceVersion: raw.InterfaceVersion,
		ServiceType: raw.ServiceType,
		SourceAddrTON: raw.SourceAddrTON, SourceAddrNPI: raw.SourceAddrNPI,
		DestAddrTON: raw.DestAddrTON, DestAddrNPI: raw.DestAddrNPI,
		EsmClass: raw.EsmClass, ProtocolID: raw.ProtocolID, PriorityFlag: raw.PriorityFlag,
		ScheduleDeliveryTime: raw.ScheduleDeliveryTime, ValidityPeriod: raw.ValidityPeriod,
		RegisteredDelivery: raw.RegisteredDelivery, ReplaceIfPresentFlag: raw.ReplaceIfPresentFlag,
		SMDefaultMsgID: raw.SMDefaultMsgID,
		Encoding:       raw.Encoding, CodecErrorPolicy: raw.CodecErrorPolicy,
		AutoReconnect: raw.AutoReconnect, LogMetadata: raw.LogMetadata, ClientID: raw.ClientID,
	}

	var parseErr error
	cfg.EnquireLinkInterval, parseErr = parseOptionalDuration(raw.EnquireLinkInterval, parseErr)
	cfg.SocketTimeout, parseErr = parseOptionalDuration(raw.SocketTimeout, parseErr)
	cfg.DrainDuration, parseErr = parseOptionalDuration(raw.DrainDuration, parseErr)
	cfg.CorrelationTTL, parseErr = parseOptionalDuration(raw.CorrelationTTL, parseErr)
	if parseErr != nil {
		return Loaded{}, fmt.Errorf("parse config file: %w", parseErr)
	}

	validated, err := smpp.NewClientConfig(cfg)
	if err != nil {
		return Loaded{}, err
	}

	logLevel := raw.LogLevel
	if logLevel == "" {
		logLevel = "info"
	}

	return Loaded{
		Client:         validated,
		LogLevel:       logLevel,
		MetricsPort:    raw.MetricsPort,
		BrokerCapacity: raw.BrokerCapacity,
	}, nil
}

// parseOptionalDuration leaves zero on an empty string -- letting
// smpp.ClientConfig.applyDefaults fill in the documented default --
// and preserves the first error seen across a chain of calls.
func parseOptionalDuration(s string, firstErr error) (time.Duration, error) {
	if firstErr != nil {
		return 0, firstErr
	}
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%q: %w", s, err)
	}
	return d, nil
}
