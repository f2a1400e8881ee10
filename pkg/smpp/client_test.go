package smpp

import (
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// sweepCountingCorrelater wraps DefaultCorrelater to let tests observe
// how many times the link-prober loop calls Sweep on its own.
type sweepCountingCorrelater struct {
	*DefaultCorrelater
	sweeps atomic.Int64
}

func (c *sweepCountingCorrelater) Sweep(now time.Time) {
	c.sweeps.Add(1)
	c.DefaultCorrelater.Sweep(now)
}

// fakeSMSC is a minimal SMSC peer built on one half of a net.Pipe, used
// to drive the client's session engine end to end without a real
// socket (spec.md §8's literal bind/submit/deliver/enquire scenarios).
type fakeSMSC struct {
	conn net.Conn
	enc  *PDUEncoder
	dec  *PDUDecoder
}

func newFakeSMSC(conn net.Conn) *fakeSMSC {
	return &fakeSMSC{conn: conn, enc: NewPDUEncoder(), dec: NewPDUDecoder()}
}

func (s *fakeSMSC) recv(t *testing.T) *PDU {
	t.Helper()
	pdu, err := s.dec.DecodeFromReader(s.conn)
	require.NoError(t, err)
	return pdu
}

func (s *fakeSMSC) send(t *testing.T, pdu *PDU) {
	t.Helper()
	raw, err := s.enc.Encode(pdu)
	require.NoError(t, err)
	_, err = s.conn.Write(raw)
	require.NoError(t, err)
}

func pipeDialer(serverConn net.Conn) func(ctx context.Context, addr string) (net.Conn, error) {
	return func(ctx context.Context, addr string) (net.Conn, error) {
		return serverConn, nil
	}
}

func testClientConfig(t *testing.T) ClientConfig {
	cfg, err := NewClientConfig(ClientConfig{
		SMSCHost:            "smsc.test",
		SMSCPort:            2775,
		SystemID:            "smppclient1",
		Password:            "password",
		EnquireLinkInterval: 50 * time.Millisecond,
		SocketTimeout:       200 * time.Millisecond,
		DrainDuration:       time.Millisecond,
	})
	require.NoError(t, err)
	return cfg
}

func TestClientBindHandshakeSucceeds(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	smsc := newFakeSMSC(serverConn)
	broker := NewSimpleBroker(1)

	client, err := NewClient(testClientConfig(t), ClientDependencies{
		Broker: broker,
		Dial:   pipeDialer(clientConn),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- client.Run(ctx) }()

	bindReq := smsc.recv(t)
	require.Equal(t, CommandBindTransceiver, bindReq.Header.CommandID)
	require.Equal(t, uint32(1), bindReq.Header.SequenceNum)
	bind, ok := bindReq.Body.(*BindTransceiver)
	require.True(t, ok)
	require.Equal(t, "smppclient1", bind.SystemID)

	smsc.send(t, &PDU{
		Header: PDUHeader{SequenceNum: bindReq.Header.SequenceNum, CommandStatus: StatusOK},
		Body:   &BindTransceiverResp{SystemID: "smsc"},
	})

	require.Eventually(t, func() bool { return client.State() == StateBoundTRX }, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestClientBindRejectionIsFatalWithNoRetry(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	smsc := newFakeSMSC(serverConn)
	broker := NewSimpleBroker(1)

	cfg := testClientConfig(t)
	cfg.AutoReconnect = true
	client, err := NewClient(cfg, ClientDependencies{
		Broker: broker,
		Dial:   pipeDialer(clientConn),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- client.Run(ctx) }()

	bindReq := smsc.recv(t)
	smsc.send(t, &PDU{
		Header: PDUHeader{SequenceNum: bindReq.Header.SequenceNum, CommandStatus: StatusInvPaswd},
		Body:   &BindTransceiverResp{},
	})

	select {
	case err := <-done:
		require.ErrorIs(t, err, ErrBindRejected)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after a rejected bind")
	}
	require.Equal(t, StateClosed, client.State())
}

func bindFakeSMSC(t *testing.T, smsc *fakeSMSC) uint32 {
	t.Helper()
	bindReq := smsc.recv(t)
	smsc.send(t, &PDU{
		Header: PDUHeader{SequenceNum: bindReq.Header.SequenceNum, CommandStatus: StatusOK},
		Body:   &BindTransceiverResp{SystemID: "smsc"},
	})
	return bindReq.Header.SequenceNum
}

func TestClientDispatchesSubmitSMAndCorrelatesResponse(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	smsc := newFakeSMSC(serverConn)
	broker := NewSimpleBroker(1)
	correlater := NewDefaultCorrelater(time.Minute)

	client, err := NewClient(testClientConfig(t), ClientDependencies{
		Broker:     broker,
		Dial:       pipeDialer(clientConn),
		Correlater: correlater,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- client.Run(ctx) }()

	bindFakeSMSC(t, smsc)
	require.Eventually(t, func() bool { return client.State() == StateBoundTRX }, time.Second, 5*time.Millisecond)

	require.NoError(t, broker.Enqueue(ctx, OutboundJob{
		Version: "1", SMPPCommand: JobSubmitSM, LogID: "log-1",
		ShortMessage: "hello", SourceAddr: "111", DestinationAddr: "222",
	}))

	submit := smsc.recv(t)
	require.Equal(t, CommandSubmitSM, submit.Header.CommandID)
	body := submit.Body.(*SubmitSM)
	require.Equal(t, []byte("hello"), body.ShortMessage)

	smsc.send(t, &PDU{
		Header: PDUHeader{SequenceNum: submit.Header.SequenceNum, CommandStatus: StatusOK},
		Body:   &SubmitSMResp{MessageID: "msg-1"},
	})

	require.Eventually(t, func() bool {
		entry, ok := correlater.GetByMessageID("msg-1")
		return ok && entry.LogID == "log-1"
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}

func TestClientAutoRepliesToDeliverSM(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	smsc := newFakeSMSC(serverConn)
	broker := NewSimpleBroker(1)

	client, err := NewClient(testClientConfig(t), ClientDependencies{
		Broker: broker,
		Dial:   pipeDialer(clientConn),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- client.Run(ctx) }()

	bindFakeSMSC(t, smsc)
	require.Eventually(t, func() bool { return client.State() == StateBoundTRX }, time.Second, 5*time.Millisecond)

	smsc.send(t, &PDU{
		Header: PDUHeader{SequenceNum: 99},
		Body:   &DeliverSM{ShortMessage: []byte("incoming"), SMLength: uint8(len("incoming"))},
	})

	resp := smsc.recv(t)
	require.Equal(t, CommandDeliverSMResp, resp.Header.CommandID)
	require.Equal(t, uint32(99), resp.Header.SequenceNum)

	cancel()
	<-done
}

// recordingHook captures every ToSMSC call so a test can assert the
// callback actually ran, with a non-nil context.
type recordingHook struct {
	toSMSC chan string
}

func (h *recordingHook) ToSMSC(ctx context.Context, smppCommand, logID string, metadata HookMetadata, pduBytes []byte) error {
	if ctx == nil {
		h.toSMSC <- "<nil ctx>"
		return nil
	}
	h.toSMSC <- smppCommand
	return nil
}

func (h *recordingHook) FromSMSC(ctx context.Context, smppCommand, logID string, metadata HookMetadata, commandStatus uint32, pduBytes []byte) error {
	return nil
}

func TestClientInvokesToSMSCHookBeforeWritingSubmitSM(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	smsc := newFakeSMSC(serverConn)
	broker := NewSimpleBroker(1)
	hook := &recordingHook{toSMSC: make(chan string, 1)}

	client, err := NewClient(testClientConfig(t), ClientDependencies{
		Broker: broker,
		Dial:   pipeDialer(clientConn),
		Hook:   hook,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- client.Run(ctx) }()

	bindFakeSMSC(t, smsc)
	require.Eventually(t, func() bool { return client.State() == StateBoundTRX }, time.Second, 5*time.Millisecond)

	require.NoError(t, broker.Enqueue(ctx, OutboundJob{
		Version: "1", SMPPCommand: JobSubmitSM, LogID: "log-1",
		ShortMessage: "hello", SourceAddr: "111", DestinationAddr: "222",
	}))

	select {
	case cmd := <-hook.toSMSC:
		require.Equal(t, "submit_sm", cmd)
	case <-time.After(time.Second):
		t.Fatal("ToSMSC hook was never invoked")
	}

	smsc.recv(t)
	cancel()
	<-done
}

func TestClientRespondsToEnquireLinkFromSMSC(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	smsc := newFakeSMSC(serverConn)
	broker := NewSimpleBroker(1)

	client, err := NewClient(testClientConfig(t), ClientDependencies{
		Broker: broker,
		Dial:   pipeDialer(clientConn),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- client.Run(ctx) }()

	bindFakeSMSC(t, smsc)
	require.Eventually(t, func() bool { return client.State() == StateBoundTRX }, time.Second, 5*time.Millisecond)

	smsc.send(t, &PDU{Header: PDUHeader{SequenceNum: 55}, Body: newEnquireLink()})

	resp := smsc.recv(t)
	require.Equal(t, CommandEnquireLinkResp, resp.Header.CommandID)
	require.Equal(t, uint32(55), resp.Header.SequenceNum)

	cancel()
	<-done
}

// recordingLogger captures Warn calls so tests can assert on overrun
// and error logging without parsing stdout.
type recordingLogger struct {
	NopLogger
	warns chan string
}

func (l *recordingLogger) Warn(msg string, fields ...interface{}) {
	select {
	case l.warns <- msg:
	default:
	}
}

func (l *recordingLogger) WithFields(fields map[string]interface{}) Logger { return l }

func TestInvokeHookLogsOnSoftTimeoutOverrunButWaitsForCompletion(t *testing.T) {
	logger := &recordingLogger{warns: make(chan string, 4)}
	client, err := NewClient(ClientConfig{
		SMSCHost: "h", SMSCPort: 1, SystemID: "s", Password: "p",
		HookTimeout: 20 * time.Millisecond,
	}, ClientDependencies{
		Broker: NewSimpleBroker(1),
		Logger: logger,
	})
	require.NoError(t, err)

	finished := make(chan struct{})
	client.invokeHook(context.Background(), "test-hook", func(ctx context.Context) error {
		time.Sleep(60 * time.Millisecond)
		close(finished)
		return nil
	})

	select {
	case <-finished:
	default:
		t.Fatal("invokeHook returned before the overrunning hook finished")
	}

	select {
	case msg := <-logger.warns:
		require.Contains(t, msg, "soft timeout")
	default:
		t.Fatal("expected a soft-timeout warning to be logged")
	}
}

func TestClientSweepsCorrelaterOnEveryLinkProberTick(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	smsc := newFakeSMSC(serverConn)
	broker := NewSimpleBroker(1)
	correlater := &sweepCountingCorrelater{DefaultCorrelater: NewDefaultCorrelater(time.Minute)}

	client, err := NewClient(testClientConfig(t), ClientDependencies{
		Broker:     broker,
		Dial:       pipeDialer(clientConn),
		Correlater: correlater,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- client.Run(ctx) }()

	bindFakeSMSC(t, smsc)
	probe := smsc.recv(t)
	require.Equal(t, CommandEnquireLink, probe.Header.CommandID)
	smsc.send(t, &PDU{Header: PDUHeader{SequenceNum: probe.Header.SequenceNum}, Body: newEnquireLinkResp()})

	require.Eventually(t, func() bool { return correlater.sweeps.Load() >= 1 }, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}

func TestClientSendsPeriodicEnquireLink(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	smsc := newFakeSMSC(serverConn)
	broker := NewSimpleBroker(1)

	client, err := NewClient(testClientConfig(t), ClientDependencies{
		Broker: broker,
		Dial:   pipeDialer(clientConn),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- client.Run(ctx) }()

	bindFakeSMSC(t, smsc)

	probe := smsc.recv(t)
	require.Equal(t, CommandEnquireLink, probe.Header.CommandID)
	smsc.send(t, &PDU{Header: PDUHeader{SequenceNum: probe.Header.SequenceNum}, Body: newEnquireLinkResp()})

	cancel()
	<-done
}
