package smpp

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestOutboundJobValidateRequiresVersion(t *testing.T) {
	j := OutboundJob{SMPPCommand: JobEnquireLink, LogID: "l1"}
	require.ErrorIs(t, j.Validate(), ErrInvalidJobSchema)
}

func TestOutboundJobValidateRequiresLogID(t *testing.T) {
	j := OutboundJob{Version: "1", SMPPCommand: JobEnquireLink}
	require.ErrorIs(t, j.Validate(), ErrInvalidJobSchema)
}

func TestOutboundJobValidateSubmitSMRequiresFields(t *testing.T) {
	j := OutboundJob{Version: "1", SMPPCommand: JobSubmitSM, LogID: "l1"}
	require.ErrorIs(t, j.Validate(), ErrInvalidJobSchema)
}

func TestOutboundJobValidateSubmitSMRequiresEachFieldIndividually(t *testing.T) {
	base := OutboundJob{
		Version: "1", SMPPCommand: JobSubmitSM, LogID: "l1",
		ShortMessage: "hi", SourceAddr: "111", DestinationAddr: "222",
	}

	missingShortMessage := base
	missingShortMessage.ShortMessage = ""
	require.ErrorIs(t, missingShortMessage.Validate(), ErrInvalidJobSchema)

	missingSourceAddr := base
	missingSourceAddr.SourceAddr = ""
	require.ErrorIs(t, missingSourceAddr.Validate(), ErrInvalidJobSchema)

	missingDestinationAddr := base
	missingDestinationAddr.DestinationAddr = ""
	require.ErrorIs(t, missingDestinationAddr.Validate(), ErrInvalidJobSchema)
}

func TestOutboundJobValidateSubmitSMAccepted(t *testing.T) {
	j := OutboundJob{
		Version: "1", SMPPCommand: JobSubmitSM, LogID: "l1",
		ShortMessage: "hi", SourceAddr: "111", DestinationAddr: "222",
	}
	require.NoError(t, j.Validate())
}

func TestOutboundJobValidateUnbindNeedsNoExtraFields(t *testing.T) {
	j := OutboundJob{Version: "1", SMPPCommand: JobUnbind, LogID: "l1"}
	require.NoError(t, j.Validate())
}

func TestOutboundJobValidateUnrecognizedCommand(t *testing.T) {
	j := OutboundJob{Version: "1", SMPPCommand: "query_sm", LogID: "l1"}
	require.ErrorIs(t, j.Validate(), ErrInvalidJobSchema)
}

func TestSimpleBrokerEnqueueDequeueFIFO(t *testing.T) {
	b := NewSimpleBroker(2)
	ctx := context.Background()

	require.NoError(t, b.Enqueue(ctx, OutboundJob{LogID: "a"}))
	require.NoError(t, b.Enqueue(ctx, OutboundJob{LogID: "b"}))

	first, err := b.Dequeue(ctx)
	require.NoError(t, err)
	require.Equal(t, "a", first.LogID)

	second, err := b.Dequeue(ctx)
	require.NoError(t, err)
	require.Equal(t, "b", second.LogID)
}

func TestSimpleBrokerEnqueueBlocksWhenFull(t *testing.T) {
	b := NewSimpleBroker(1)
	ctx := context.Background()
	require.NoError(t, b.Enqueue(ctx, OutboundJob{LogID: "a"}))

	timeoutCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	err := b.Enqueue(timeoutCtx, OutboundJob{LogID: "b"})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSimpleBrokerDequeueBlocksUntilCanceled(t *testing.T) {
	b := NewSimpleBroker(1)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := b.Dequeue(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
