package smpp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewClientConfigAppliesDocumentedDefaults(t *testing.T) {
	cfg, err := NewClientConfig(ClientConfig{
		SMSCHost: "127.0.0.1", SMSCPort: 2775, SystemID: "sys", Password: "pw",
	})
	require.NoError(t, err)
	require.EqualValues(t, 0x34, cfg.InterfaceVersion)
	require.Equal(t, "CMT", cfg.ServiceType)
	require.EqualValues(t, 1, cfg.SourceAddrTON)
	require.EqualValues(t, 1, cfg.SourceAddrNPI)
	require.EqualValues(t, 8, cfg.EsmClass)
	require.EqualValues(t, 5, cfg.RegisteredDelivery)
	require.Equal(t, "gsm0338", cfg.Encoding)
	require.Equal(t, string(PolicyStrict), cfg.CodecErrorPolicy)
	require.Equal(t, 55*time.Second, cfg.EnquireLinkInterval)
	require.Equal(t, 30*time.Second, cfg.SocketTimeout)
	require.Equal(t, 8*time.Second, cfg.DrainDuration)
	require.Equal(t, DefaultCorrelationTTL, cfg.CorrelationTTL)
	require.Equal(t, DefaultHookTimeout, cfg.HookTimeout)
	require.NotEmpty(t, cfg.ClientID)
}

func TestNewClientConfigRejectsMissingMandatoryFields(t *testing.T) {
	_, err := NewClientConfig(ClientConfig{})
	require.Error(t, err)
}

func TestNewClientConfigRejectsUnknownEncoding(t *testing.T) {
	_, err := NewClientConfig(ClientConfig{
		SMSCHost: "h", SMSCPort: 1, SystemID: "s", Password: "p", Encoding: "shift-jis",
	})
	require.ErrorIs(t, err, ErrUnknownEncoding)
}

func TestNewClientConfigRejectsUnknownCodecErrorPolicy(t *testing.T) {
	_, err := NewClientConfig(ClientConfig{
		SMSCHost: "h", SMSCPort: 1, SystemID: "s", Password: "p", CodecErrorPolicy: "panic",
	})
	require.Error(t, err)
}

func TestNewClientConfigPreservesCallerValues(t *testing.T) {
	cfg, err := NewClientConfig(ClientConfig{
		SMSCHost: "h", SMSCPort: 1, SystemID: "s", Password: "p",
		ServiceType: "XYZ", EnquireLinkInterval: 10 * time.Second,
	})
	require.NoError(t, err)
	require.Equal(t, "XYZ", cfg.ServiceType)
	require.Equal(t, 10*time.Second, cfg.EnquireLinkInterval)
}
