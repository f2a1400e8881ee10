package smpp

import (
	"context"
	"time"
)

// DefaultHookTimeout is the soft timeout applied to a Hook invocation
// when ClientConfig.HookTimeout is unset (spec.md §4.6, §5).
const DefaultHookTimeout = 5 * time.Second

// Hook is the user callback surface (spec.md §4.6, C6). ToSMSC is
// invoked just before a PDU is written to the socket; FromSMSC is
// invoked just after a complete PDU has been decoded. Implementations
// must not mutate pduBytes. The client bounds each call with a soft
// timeout (ClientConfig.HookTimeout): on overrun it logs and keeps
// waiting, it never cancels the hook mid-action (spec.md §5). Any
// error a hook returns is logged, never propagated to the session.
type Hook interface {
	ToSMSC(ctx context.Context, smppCommand string, logID string, metadata HookMetadata, pduBytes []byte) error
	FromSMSC(ctx context.Context, smppCommand string, logID string, metadata HookMetadata, commandStatus uint32, pduBytes []byte) error
}

// NopHook is the default Hook: both callbacks are no-ops.
type NopHook struct{}

func (NopHook) ToSMSC(ctx context.Context, smppCommand string, logID string, metadata HookMetadata, pduBytes []byte) error {
	return nil
}

func (NopHook) FromSMSC(ctx context.Context, smppCommand string, logID string, metadata HookMetadata, commandStatus uint32, pduBytes []byte) error {
	return nil
}
