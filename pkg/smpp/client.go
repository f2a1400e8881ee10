package smpp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/relaysms/smppclient/internal/backoff"
)

// SessionState is one of the five states the client's state machine
// moves through (spec.md §3, §4.8).
type SessionState int32

const (
	StateClosed SessionState = iota
	StateConnecting
	StateOpenUnbound
	StateBoundTRX
	StateUnbinding
)

func (s SessionState) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateConnecting:
		return "CONNECTING"
	case StateOpenUnbound:
		return "OPEN_UNBOUND"
	case StateBoundTRX:
		return "BOUND_TRX"
	case StateUnbinding:
		return "UNBINDING"
	default:
		return "UNKNOWN"
	}
}

// ClientDependencies are the pluggable collaborators C8 owns
// references to (spec.md §4.8). Every field is optional; a nil value
// is replaced by the package default during NewClient, except Broker,
// which is mandatory (spec.md §6).
type ClientDependencies struct {
	Broker            Broker
	Logger            Logger
	Metrics           MetricsCollector
	Hook              Hook
	RateLimiter       RateLimiter
	ThrottleHandler   ThrottleHandler
	Correlater        Correlater
	SequenceGenerator SequenceGenerator

	// Dial overrides how the TCP connection is established. Tests use
	// this to hand the client one half of a net.Pipe().
	Dial func(ctx context.Context, addr string) (net.Conn, error)
}

// Client owns the socket, the session state machine, and the three
// cooperating I/O loops (spec.md §4.8, C8).
type Client struct {
	config ClientConfig
	deps   ClientDependencies

	encoder   *PDUEncoder
	decoder   *PDUDecoder
	textCodec TextCodec

	stateMu sync.RWMutex
	state   SessionState

	connMu sync.RWMutex
	conn   net.Conn

	writeMu sync.Mutex

	livenessMu sync.Mutex
	lastAck    time.Time

	unbindAckMu sync.Mutex
	unbindAckCh chan struct{}
}

// NewClient builds a Client from a validated config and its
// dependencies. Unset dependencies fall back to the package defaults
// (spec.md §6: "sequence_generator, rate_limiter, throttle_handler,
// hook, logger, correlater (all optional with documented defaults)").
func NewClient(cfg ClientConfig, deps ClientDependencies) (*Client, error) {
	if deps.Broker == nil {
		return nil, fmt.Errorf("%w: broker is required", ErrInvalidJobSchema)
	}
	if deps.Logger == nil {
		deps.Logger = NopLogger{}
	}
	if deps.Metrics == nil {
		deps.Metrics = NopMetrics{}
	}
	if deps.Hook == nil {
		deps.Hook = NopHook{}
	}
	if deps.RateLimiter == nil {
		deps.RateLimiter = NewTokenBucketRateLimiter(DefaultSendRate, 0, DefaultDelayForTokens, deps.Logger)
	}
	if deps.ThrottleHandler == nil {
		deps.ThrottleHandler = NewSlidingWindowThrottleHandler(0, 0, 0)
	}
	if deps.Correlater == nil {
		deps.Correlater = NewDefaultCorrelater(cfg.CorrelationTTL)
	}
	if deps.SequenceGenerator == nil {
		deps.SequenceGenerator = NewDefaultSequenceGenerator()
	}
	if deps.Dial == nil {
		deps.Dial = func(ctx context.Context, addr string) (net.Conn, error) {
			d := net.Dialer{Timeout: cfg.SocketTimeout}
			return d.DialContext(ctx, "tcp", addr)
		}
	}

	textCodec, err := LookupTextCodec(cfg.Encoding)
	if err != nil {
		return nil, err
	}

	return &Client{
		config:    cfg,
		deps:      deps,
		encoder:   NewPDUEncoder(),
		decoder:   NewPDUDecoder(),
		textCodec: textCodec,
		state:     StateClosed,
	}, nil
}

// State reports the client's current session state.
func (c *Client) State() SessionState {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state
}

func (c *Client) setState(s SessionState) {
	c.stateMu.Lock()
	c.state = s
	c.stateMu.Unlock()
	c.deps.Metrics.SetGauge(MetricSessionState, float64(s), nil)
}

// Run drives the full CLOSED -> CONNECTING -> ... state machine until
// ctx is canceled or a non-retryable error occurs (spec.md §4.8). A
// canceled ctx is a graceful shutdown and returns nil; a rejected bind
// is fatal with no auto-retry regardless of AutoReconnect (spec.md
// §4.8 "OPEN_UNBOUND, bind_transceiver_resp status≠0 -> CLOSED").
func (c *Client) Run(ctx context.Context) error {
	retry := backoff.NewExponential()

	for {
		if ctx.Err() != nil {
			c.setState(StateClosed)
			return nil
		}

		c.setState(StateConnecting)
		if err := c.connectAndBind(ctx); err != nil {
			c.setState(StateClosed)
			if errors.Is(err, ErrBindRejected) {
				c.deps.Logger.Error("bind rejected, not retrying", "error", err)
				return err
			}
			c.deps.Logger.Warn("connect failed", "error", err)
			if !c.config.AutoReconnect {
				return err
			}
			if waitOrDone(ctx, retry.Next()) {
				return nil
			}
			continue
		}
		retry.Reset()

		c.runBoundSession(ctx)

		if ctx.Err() != nil {
			c.setState(StateClosed)
			return nil
		}
		if !c.config.AutoReconnect {
			c.setState(StateClosed)
			return nil
		}
		if waitOrDone(ctx, retry.Next()) {
			return nil
		}
	}
}

func waitOrDone(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return false
	case <-ctx.Done():
		return true
	}
}

// connectAndBind opens the TCP connection and performs the
// bind_transceiver handshake synchronously (spec.md §4.8 CONNECTING,
// OPEN_UNBOUND rows).
func (c *Client) connectAndBind(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", c.config.SMSCHost, c.config.SMSCPort)
	dialCtx, cancel := context.WithTimeout(ctx, c.config.SocketTimeout)
	defer cancel()

	conn, err := c.deps.Dial(dialCtx, addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}

	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()
	c.setState(StateOpenUnbound)

	seq := c.deps.SequenceGenerator.Next()
	bind := &BindTransceiver{
		SystemID:         c.config.SystemID,
		Password:         c.config.Password,
		SystemType:       c.config.SystemType,
		InterfaceVersion: c.config.InterfaceVersion,
		AddrTON:          c.config.AddrTON,
		AddrNPI:          c.config.AddrNPI,
		AddressRange:     c.config.AddressRange,
	}
	pdu := &PDU{Header: PDUHeader{SequenceNum: seq}, Body: bind}
	encoded, err := c.encoder.Encode(pdu)
	if err != nil {
		conn.Close()
		return fmt.Errorf("encode bind_transceiver: %w", err)
	}

	conn.SetWriteDeadline(time.Now().Add(c.config.SocketTimeout))
	if _, err := conn.Write(encoded); err != nil {
		conn.Close()
		return fmt.Errorf("write bind_transceiver: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(c.config.SocketTimeout))
	resp, err := c.decoder.DecodeFromReader(conn)
	if err != nil {
		conn.Close()
		return fmt.Errorf("read bind_transceiver_resp: %w", err)
	}
	conn.SetReadDeadline(time.Time{})

	if resp.Header.CommandID != CommandBindTransceiverResp {
		conn.Close()
		return fmt.Errorf("%w: unexpected command_id 0x%08x", ErrBindRejected, resp.Header.CommandID)
	}
	if resp.Header.CommandStatus != StatusOK {
		conn.Close()
		return fmt.Errorf("%w: command_status=0x%08x", ErrBindRejected, resp.Header.CommandStatus)
	}

	c.livenessMu.Lock()
	c.lastAck = time.Now()
	c.livenessMu.Unlock()
	c.deps.Logger.Info("bound", "system_id", c.config.SystemID)
	return nil
}

// runBoundSession starts the three I/O loops and blocks until the
// session tears down, either from an error inside a loop or from Stop.
// The reader loop has no way to observe context cancellation while
// parked in a blocking conn.Read, so teardown of any kind (a loop
// failure, the parent ctx, or Stop) is funneled through fail, which
// closes the socket exactly once and unblocks every loop still parked
// on it.
func (c *Client) runBoundSession(ctx context.Context) {
	sessionCtx, cancel := context.WithCancel(ctx)

	c.unbindAckMu.Lock()
	c.unbindAckCh = make(chan struct{})
	c.unbindAckMu.Unlock()

	c.setState(StateBoundTRX)

	var failOnce sync.Once
	fail := func() {
		failOnce.Do(func() {
			cancel()
			c.connMu.RLock()
			conn := c.conn
			c.connMu.RUnlock()
			if conn != nil {
				conn.Close()
			}
		})
	}
	go func() {
		<-ctx.Done()
		fail()
	}()

	var wg sync.WaitGroup
	wg.Add(3)
	go func() { defer wg.Done(); c.dispatchLoop(sessionCtx, fail) }()
	go func() { defer wg.Done(); c.readLoop(sessionCtx, fail) }()
	go func() { defer wg.Done(); c.linkProberLoop(sessionCtx, fail) }()
	wg.Wait()

	c.setState(StateUnbinding)
}

// Stop transitions BOUND_TRX to UNBINDING, gives the dispatcher
// drain_duration to flush, sends unbind, and waits for unbind_resp (or
// a timeout) before closing the socket (spec.md §4.8, §5).
func (c *Client) Stop(ctx context.Context) error {
	if c.State() != StateBoundTRX {
		return nil
	}
	c.setState(StateUnbinding)

	drainCtx, drainCancel := context.WithTimeout(ctx, c.config.DrainDuration)
	<-drainCtx.Done()
	drainCancel()

	seq := c.deps.SequenceGenerator.Next()
	pdu := &PDU{Header: PDUHeader{SequenceNum: seq}, Body: newUnbind()}
	encoded, err := c.encoder.Encode(pdu)
	if err != nil {
		return err
	}
	if err := c.writePDU(encoded); err != nil {
		return err
	}

	c.unbindAckMu.Lock()
	ackCh := c.unbindAckCh
	c.unbindAckMu.Unlock()

	select {
	case <-ackCh:
	case <-time.After(c.config.SocketTimeout):
	case <-ctx.Done():
	}

	c.connMu.RLock()
	conn := c.conn
	c.connMu.RUnlock()
	if conn != nil {
		conn.Close()
	}
	c.setState(StateClosed)
	return nil
}

// writePDU is the single mandatory lock (spec.md §5): exactly one
// writer touches the socket at a time, held for one complete PDU.
func (c *Client) writePDU(encoded []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.connMu.RLock()
	conn := c.conn
	c.connMu.RUnlock()
	if conn == nil {
		return fmt.Errorf("%w: no active connection", ErrNotBound)
	}
	conn.SetWriteDeadline(time.Now().Add(c.config.SocketTimeout))
	_, err := conn.Write(encoded)
	return err
}

// dispatchLoop is the outbound loop (spec.md §4.8 "Dispatcher loop").
func (c *Client) dispatchLoop(ctx context.Context, fail context.CancelFunc) {
	for {
		job, err := c.deps.Broker.Dequeue(ctx)
		if err != nil {
			return
		}
		if err := job.Validate(); err != nil {
			c.deps.Logger.Error("dropping invalid job", "error", err, "log_id", job.LogID)
			continue
		}

		// A rate limiter timeout keeps the job and waits again; only a
		// non-timeout error from a custom RateLimiter drops it.
		acquired := false
		for !acquired {
			err := c.deps.RateLimiter.Acquire(ctx)
			if err == nil {
				acquired = true
				break
			}
			if ctx.Err() != nil {
				return
			}
			if !errors.Is(err, ErrRateLimitTimeout) {
				c.deps.Logger.Error("dropping job after rate limiter error", "error", err, "log_id", job.LogID)
				break
			}
			c.deps.Metrics.IncCounter(MetricRateLimitWaitTotal, nil)
			c.deps.Logger.Warn("rate limiter wait timed out, retrying", "error", err, "log_id", job.LogID)
		}
		if !acquired {
			continue
		}

		for !c.deps.ThrottleHandler.AllowRequest() {
			if waitOrDone(ctx, c.deps.ThrottleHandler.ThrottleDelay()) {
				return
			}
		}

		seq := c.deps.SequenceGenerator.Next()
		c.deps.Correlater.Put(seq, CorrelationEntry{
			LogID:        job.LogID,
			HookMetadata: job.HookMetadata,
			SMPPCommand:  string(job.SMPPCommand),
		})

		body, err := c.buildJobBody(job)
		if err != nil {
			c.deps.Logger.Error("dropping job: encode failed", "error", err, "log_id", job.LogID)
			continue
		}

		pdu := &PDU{Header: PDUHeader{SequenceNum: seq}, Body: body}
		encoded, err := c.encoder.Encode(pdu)
		if err != nil {
			c.deps.Logger.Error("dropping job: marshal failed", "error", err, "log_id", job.LogID)
			continue
		}

		c.invokeHook(ctx, "to_smsc:"+string(job.SMPPCommand), func(hookCtx context.Context) error {
			return c.deps.Hook.ToSMSC(hookCtx, string(job.SMPPCommand), job.LogID, job.HookMetadata, encoded)
		})

		if err := c.writePDU(encoded); err != nil {
			c.deps.Logger.Error("socket write failed, tearing down session", "error", err)
			fail()
			return
		}
		if job.SMPPCommand == JobSubmitSM {
			c.deps.Metrics.IncCounter(MetricSMSSubmittedTotal, nil)
		}
	}
}

// buildJobBody turns an OutboundJob into the PDUBody the dispatcher
// will encode and send.
func (c *Client) buildJobBody(job OutboundJob) (PDUBody, error) {
	switch job.SMPPCommand {
	case JobSubmitSM:
		return c.buildSubmitSM(job)
	case JobUnbind:
		return newUnbind(), nil
	case JobEnquireLink:
		return newEnquireLink(), nil
	default:
		return nil, fmt.Errorf("%w: unhandled smpp_command %q", ErrInvalidJobSchema, job.SMPPCommand)
	}
}

// buildSubmitSM applies the job's (or the session default's) text
// encoding and codec error policy, then spills to message_payload when
// the encoded text exceeds 254 octets (spec.md §4.1, §8 boundary (c)).
func (c *Client) buildSubmitSM(job OutboundJob) (*SubmitSM, error) {
	codec := c.textCodec
	if job.Encoding != "" {
		var err error
		codec, err = LookupTextCodec(job.Encoding)
		if err != nil {
			return nil, err
		}
	}
	policy := CodecErrorPolicy(c.config.CodecErrorPolicy)
	if job.CodecErrorPolicy != "" {
		policy = CodecErrorPolicy(job.CodecErrorPolicy)
	}

	encoded, err := codec.Encode(job.ShortMessage, policy)
	if err != nil {
		return nil, err
	}
	smLength, shortMessage, tlvs := applyShortMessage(encoded, nil)

	serviceType := c.config.ServiceType
	if job.ServiceType != "" {
		serviceType = job.ServiceType
	}
	srcTON, srcNPI := c.config.SourceAddrTON, c.config.SourceAddrNPI
	if job.SourceAddrTON != nil {
		srcTON = *job.SourceAddrTON
	}
	if job.SourceAddrNPI != nil {
		srcNPI = *job.SourceAddrNPI
	}
	dstTON, dstNPI := c.config.DestAddrTON, c.config.DestAddrNPI
	if job.DestAddrTON != nil {
		dstTON = *job.DestAddrTON
	}
	if job.DestAddrNPI != nil {
		dstNPI = *job.DestAddrNPI
	}
	registeredDelivery := c.config.RegisteredDelivery
	if job.RegisteredDelivery != nil {
		registeredDelivery = *job.RegisteredDelivery
	}

	return &SubmitSM{
		ServiceType:          serviceType,
		SourceAddrTON:        srcTON,
		SourceAddrNPI:        srcNPI,
		SourceAddr:           job.SourceAddr,
		DestAddrTON:          dstTON,
		DestAddrNPI:          dstNPI,
		DestinationAddr:      job.DestinationAddr,
		EsmClass:             c.config.EsmClass,
		ProtocolID:           c.config.ProtocolID,
		PriorityFlag:         c.config.PriorityFlag,
		ScheduleDeliveryTime: c.config.ScheduleDeliveryTime,
		ValidityPeriod:       c.config.ValidityPeriod,
		RegisteredDelivery:   registeredDelivery,
		ReplaceIfPresentFlag: c.config.ReplaceIfPresentFlag,
		DataCoding:           codec.DataCoding(),
		SMDefaultMsgID:       c.config.SMDefaultMsgID,
		SMLength:             smLength,
		ShortMessage:         shortMessage,
		OptionalParams:       tlvs,
	}, nil
}

// readLoop is the inbound loop (spec.md §4.8 "Reader loop"). It owns
// the read side of the socket exclusively.
func (c *Client) readLoop(ctx context.Context, fail context.CancelFunc) {
	c.connMu.RLock()
	conn := c.conn
	c.connMu.RUnlock()

	for {
		if ctx.Err() != nil {
			return
		}
		pdu, err := c.decoder.DecodeFromReader(conn)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			var decodeErr *DecodeError
			if errors.As(err, &decodeErr) {
				c.deps.Logger.Error("malformed pdu body, replying generic_nack before teardown",
					"sequence", decodeErr.Header.SequenceNum, "error", err)
				c.replyWith(decodeErr.Header.SequenceNum, &GenericNack{})
			} else {
				c.deps.Logger.Error("read failed, tearing down session", "error", err)
			}
			fail()
			return
		}
		c.handlePDU(ctx, pdu)
	}
}

// handlePDU dispatches a decoded inbound PDU by command_id (the
// per-command_id bullets of spec.md §4.8 "Reader loop").
func (c *Client) handlePDU(ctx context.Context, pdu *PDU) {
	// Dispatch on command_id rather than Go body type: enquire_link,
	// enquire_link_resp, unbind and unbind_resp all decode to the same
	// emptyBody type, so a type switch alone cannot tell them apart.
	switch pdu.Header.CommandID {
	case CommandSubmitSMResp:
		c.handleSubmitSMResp(ctx, pdu)
	case CommandDeliverSM:
		c.handleDeliverSM(ctx, pdu)
	case CommandEnquireLink:
		c.replyWith(pdu.Header.SequenceNum, newEnquireLinkResp())
	case CommandEnquireLinkResp:
		c.livenessMu.Lock()
		c.lastAck = time.Now()
		c.livenessMu.Unlock()
	case CommandUnbind:
		c.replyWith(pdu.Header.SequenceNum, newUnbindResp())
	case CommandUnbindResp:
		c.signalUnbindAck()
	case CommandGenericNack:
		c.deps.Logger.Warn("received generic_nack", "sequence", pdu.Header.SequenceNum)
	default:
		c.replyWith(pdu.Header.SequenceNum, &GenericNack{})
	}
}

func (c *Client) handleSubmitSMResp(ctx context.Context, pdu *PDU) {
	body := pdu.Body.(*SubmitSMResp)
	encoded, _ := c.encoder.Encode(pdu)

	entry, ok := c.deps.Correlater.Get(pdu.Header.SequenceNum)
	if pdu.Header.CommandStatus == StatusThrottled || pdu.Header.CommandStatus == StatusMsgQFul {
		c.deps.ThrottleHandler.Throttled()
		c.deps.Metrics.IncCounter(MetricThrottledTotal, nil)
	} else {
		c.deps.ThrottleHandler.NotThrottled()
	}
	if ok {
		c.deps.Correlater.PutByMessageID(body.MessageID, entry)
		c.invokeHook(ctx, "from_smsc:submit_sm_resp", func(hookCtx context.Context) error {
			return c.deps.Hook.FromSMSC(hookCtx, "submit_sm_resp", entry.LogID, entry.HookMetadata, pdu.Header.CommandStatus, encoded)
		})
	}
}

func (c *Client) handleDeliverSM(ctx context.Context, pdu *PDU) {
	body := pdu.Body.(*DeliverSM)
	encoded, _ := c.encoder.Encode(pdu)

	var entry CorrelationEntry
	if mid, ok := body.ReceiptedMessageID(); ok {
		entry, _ = c.deps.Correlater.GetByMessageID(mid)
	}
	c.invokeHook(ctx, "from_smsc:deliver_sm", func(hookCtx context.Context) error {
		return c.deps.Hook.FromSMSC(hookCtx, "deliver_sm", entry.LogID, entry.HookMetadata, pdu.Header.CommandStatus, encoded)
	})
	c.deps.Metrics.IncCounter(MetricSMSDeliveredTotal, nil)

	c.replyWith(pdu.Header.SequenceNum, &DeliverSMResp{})
}

// invokeHook runs a single Hook callback with the soft timeout
// ClientConfig.HookTimeout bounds (spec.md §4.6, §5): on overrun it
// logs and keeps waiting for the hook to finish rather than abandoning
// or canceling it. Any error the hook returns is logged, never
// propagated to the caller.
func (c *Client) invokeHook(ctx context.Context, name string, fn func(context.Context) error) {
	done := make(chan error, 1)
	go func() { done <- fn(ctx) }()

	timer := time.NewTimer(c.config.HookTimeout)
	defer timer.Stop()

	select {
	case err := <-done:
		if err != nil {
			c.deps.Logger.Warn("hook returned error", "hook", name, "error", err)
		}
		return
	case <-timer.C:
		c.deps.Logger.Warn("hook exceeded soft timeout, still waiting", "hook", name, "timeout", c.config.HookTimeout)
	}

	if err := <-done; err != nil {
		c.deps.Logger.Warn("hook returned error after overrun", "hook", name, "error", err)
	}
}

func (c *Client) replyWith(sequenceNum uint32, body PDUBody) {
	resp := &PDU{Header: PDUHeader{SequenceNum: sequenceNum}, Body: body}
	if out, err := c.encoder.Encode(resp); err == nil {
		c.writePDU(out)
	}
}

func (c *Client) signalUnbindAck() {
	c.unbindAckMu.Lock()
	defer c.unbindAckMu.Unlock()
	if c.unbindAckCh != nil {
		select {
		case <-c.unbindAckCh:
		default:
			close(c.unbindAckCh)
		}
	}
}

// linkProberLoop sends periodic enquire_link probes (spec.md §4.8
// "Link-prober loop"). On each tick it tears the session down if the
// last enquire_link_resp (or the bind) is older than
// enquire_link_interval + socket_timeout; there is no separate timer per
// probe, so an unanswered probe is noticed on a later tick.
func (c *Client) linkProberLoop(ctx context.Context, fail context.CancelFunc) {
	ticker := time.NewTicker(c.config.EnquireLinkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.deps.Correlater.Sweep(time.Now())

			seq := c.deps.SequenceGenerator.Next()
			pdu := &PDU{Header: PDUHeader{SequenceNum: seq}, Body: newEnquireLink()}
			if encoded, err := c.encoder.Encode(pdu); err == nil {
				c.writePDU(encoded)
			}

			c.livenessMu.Lock()
			stale := time.Since(c.lastAck) > c.config.EnquireLinkInterval+c.config.SocketTimeout
			c.livenessMu.Unlock()
			if stale {
				c.deps.Logger.Error("no liveness response within socket_timeout, tearing down session")
				fail()
				return
			}
		}
	}
}
