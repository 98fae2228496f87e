package stream

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jarvis-chat/bugstream/pkg/bugstream"
)

var (
	// ErrAtCapacity is returned when the global connection cap is reached.
	ErrAtCapacity = errors.New("connection limit reached")
	// ErrServiceClosed is returned when accepting on a closed service.
	ErrServiceClosed = errors.New("streaming service is closed")
)

// Telemetry event names reported to the external sink.
const (
	telemetryConnectionOpened    = "stream.connection_opened"
	telemetryConnectionClosed    = "stream.connection_closed"
	telemetryConnectionRejected  = "stream.connection_rejected"
	telemetrySubscriptionCreated = "stream.subscription_created"
	telemetrySubscriptionRemoved = "stream.subscription_removed"
)

// Close reasons recorded on teardown.
const (
	reasonShutdown       = "server_shutdown"
	reasonStale          = "connection_timeout"
	reasonClientClosed   = "client_closed"
	reasonTransportError = "transport_error"
)

// Service is the real-time bug-event streaming core: it owns the connection
// and subscription registries, the two ingestion queues, the delivery
// scheduler, and the liveness monitor.
//
// The registries and queues are the only shared mutable state; all of it is
// guarded by mu because producers, transport readers, and the two periodic
// loops run on separate goroutines.
type Service struct {
	mu  sync.RWMutex
	cfg Config

	log       *zap.Logger
	validator bugstream.TokenValidator
	telemetry bugstream.TelemetrySink

	connections       map[string]*Connection
	subscriptionCount int

	bugQueue       *eventQueue[*bugstream.BugUpdateEvent]
	analyticsQueue *eventQueue[*bugstream.AnalyticsUpdateEvent]

	started bool
	closed  bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	// Observability counters.
	eventsDelivered uint64
	sendFailures    uint64
	closedConns     uint64
	totalConnLife   time.Duration

	// now is the service clock; tests substitute it to drive liveness.
	now func() time.Time
}

// nopSink discards telemetry; used when no sink is wired.
type nopSink struct{}

func (nopSink) Record(string, map[string]any) {}

// NewService creates a streaming service with the given configuration and
// collaborators. The validator may be nil, in which case every
// authentication attempt fails; the telemetry sink and logger may be nil.
func NewService(cfg Config, logger *zap.Logger, validator bugstream.TokenValidator, telemetry bugstream.TelemetrySink) (*Service, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if telemetry == nil {
		telemetry = nopSink{}
	}

	return &Service{
		cfg:            cfg,
		log:            logger,
		validator:      validator,
		telemetry:      telemetry,
		connections:    make(map[string]*Connection),
		bugQueue:       newEventQueue[*bugstream.BugUpdateEvent](cfg.QueueDepthLimit, cfg.QueueOverflowPolicy),
		analyticsQueue: newEventQueue[*bugstream.AnalyticsUpdateEvent](cfg.QueueDepthLimit, cfg.QueueOverflowPolicy),
		now:            time.Now,
	}, nil
}

// Start launches the delivery scheduler and the liveness monitor. It is
// idempotent; starting a closed service is an error.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrServiceClosed
	}
	if s.started {
		return nil
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(2)
	go s.deliveryLoop(loopCtx)
	go s.livenessLoop(loopCtx)

	s.started = true
	s.log.Info("streaming service started",
		zap.Int("maxConnections", s.cfg.MaxConnections),
		zap.Duration("deliveryInterval", s.cfg.DeliveryInterval),
		zap.Duration("heartbeatInterval", s.cfg.HeartbeatInterval))
	return nil
}

// Close shuts the service down: every open connection is closed with a
// shutdown reason and both periodic loops are stopped. Idempotent.
func (s *Service) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true

	if s.cancel != nil {
		s.cancel()
	}
	for id := range s.connections {
		s.removeLocked(id, bugstream.CloseShutdown, reasonShutdown)
	}
	s.mu.Unlock()

	s.wg.Wait()
	s.log.Info("streaming service stopped")
	return nil
}

// Accept registers a new client transport. At capacity the transport is
// rejected with an overload close code and existing connections are
// unaffected. A supplied auth token is validated inline; validation failure
// is non-fatal and leaves the connection unauthenticated. The client receives
// a handshake message carrying its connection id and auth state.
func (s *Service) Accept(transport bugstream.Transport, meta Metadata, authToken string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		_ = transport.Close(bugstream.CloseShutdown, reasonShutdown)
		return "", ErrServiceClosed
	}
	if len(s.connections) >= s.cfg.MaxConnections {
		_ = transport.Close(bugstream.CloseOverloaded, "connection limit reached")
		s.telemetry.Record(telemetryConnectionRejected, map[string]any{
			"reason": "at_capacity",
			"limit":  s.cfg.MaxConnections,
		})
		return "", ErrAtCapacity
	}

	now := s.now()
	conn := &Connection{
		id:            uuid.NewString(),
		transport:     transport,
		meta:          meta,
		subscriptions: make(map[string]*Subscription),
		connectedAt:   now,
		lastActivity:  now,
	}
	s.connections[conn.id] = conn

	if authToken != "" {
		s.authenticateLocked(conn, authToken)
	}

	handshake := bugstream.NewStreamMessage(bugstream.MessageConnectionEstablished, handshakeData{
		ConnectionID:  conn.id,
		Authenticated: conn.authenticated,
		UserID:        conn.userID,
	})
	if err := s.writeLocked(conn, handshake); err != nil {
		s.log.Warn("handshake send failed", zap.String("connectionId", conn.id), zap.Error(err))
	}

	s.telemetry.Record(telemetryConnectionOpened, map[string]any{
		"connectionId":  conn.id,
		"remoteAddr":    meta.RemoteAddr,
		"authenticated": conn.authenticated,
	})
	s.log.Info("connection accepted",
		zap.String("connectionId", conn.id),
		zap.String("remoteAddr", meta.RemoteAddr),
		zap.Bool("authenticated", conn.authenticated))
	return conn.id, nil
}

// Disconnect tears a connection down: transport closed, subscriptions
// cascade-deleted, duration recorded. Unknown ids miss cleanly.
func (s *Service) Disconnect(connectionID, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(connectionID, bugstream.CloseShutdown, reason)
}

// removeLocked is the single cascade-delete path every terminal connection
// state converges on. Caller holds mu.
func (s *Service) removeLocked(connectionID string, code int, reason string) {
	conn, ok := s.connections[connectionID]
	if !ok {
		return
	}
	_ = conn.transport.Close(code, reason)

	s.subscriptionCount -= len(conn.subscriptions)
	delete(s.connections, connectionID)

	duration := s.now().Sub(conn.connectedAt)
	s.closedConns++
	s.totalConnLife += duration

	s.telemetry.Record(telemetryConnectionClosed, map[string]any{
		"connectionId": connectionID,
		"reason":       reason,
		"durationMs":   duration.Milliseconds(),
	})
	s.log.Info("connection closed",
		zap.String("connectionId", connectionID),
		zap.String("reason", reason),
		zap.Duration("duration", duration))
}

// HandleMessage routes one inbound control message from a connection.
// Malformed payloads and unknown actions yield an error message to the
// client; the connection stays open.
func (s *Service) HandleMessage(connectionID string, raw []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conn, ok := s.connections[connectionID]
	if !ok {
		return
	}
	conn.touch(s.now())

	var cmd clientCommand
	if err := json.Unmarshal(raw, &cmd); err != nil {
		s.writeIgnoreErr(conn, bugstream.NewErrorMessage("invalid message", err.Error()))
		return
	}

	switch cmd.Action {
	case actionAuthenticate:
		s.handleAuthenticate(conn, cmd)
	case actionSubscribe:
		s.handleSubscribe(conn, cmd)
	case actionUnsubscribe:
		s.handleUnsubscribe(conn, cmd)
	case actionHeartbeat:
		s.handleHeartbeat(conn)
	default:
		s.writeIgnoreErr(conn, bugstream.NewErrorMessage("unknown action", cmd.Action))
	}
}

// authenticateLocked delegates to the external validator. Failure logs a
// warning and leaves the connection state unchanged; it never propagates.
func (s *Service) authenticateLocked(conn *Connection, token string) bool {
	if s.validator == nil {
		s.log.Warn("authentication attempted without a validator",
			zap.String("connectionId", conn.id))
		return false
	}
	identity, err := s.validator.Authenticate(token)
	if err != nil {
		s.log.Warn("authentication failed",
			zap.String("connectionId", conn.id),
			zap.Error(err))
		return false
	}
	conn.authenticated = true
	conn.userID = identity.UserID
	conn.tokenRef = token
	return true
}

func (s *Service) handleAuthenticate(conn *Connection, cmd clientCommand) {
	if !s.authenticateLocked(conn, cmd.AuthToken) {
		s.writeIgnoreErr(conn, bugstream.NewErrorMessage("authentication failed", ""))
		return
	}
	s.writeIgnoreErr(conn, bugstream.NewStreamMessage(bugstream.MessageConnectionEstablished, authResult{
		Authenticated: true,
		UserID:        conn.userID,
	}))
}

func (s *Service) handleSubscribe(conn *Connection, cmd clientCommand) {
	if !cmd.Type.Valid() {
		s.subscriptionError(conn, subscriptionFailure{Error: "unknown stream type", StreamType: cmd.Type})
		return
	}
	if cmd.Type.Sensitive() && !conn.authenticated {
		s.subscriptionError(conn, subscriptionFailure{Error: "authentication required", StreamType: cmd.Type})
		return
	}
	if len(conn.subscriptions) >= s.cfg.MaxSubscriptionsPerConnection {
		s.subscriptionError(conn, subscriptionFailure{Error: "subscription limit reached", StreamType: cmd.Type})
		return
	}
	format := cmd.Format
	if format == "" {
		format = bugstream.FormatJSON
	}
	if !format.Valid() {
		s.subscriptionError(conn, subscriptionFailure{Error: "unknown format", StreamType: cmd.Type})
		return
	}

	now := s.now()
	sub := &Subscription{
		ID:           uuid.NewString(),
		ConnectionID: conn.id,
		StreamType:   cmd.Type,
		Filters:      cmd.Filters,
		Format:       format,
		CreatedAt:    now,
		LastActivity: now,
	}
	conn.subscriptions[sub.ID] = sub
	s.subscriptionCount++

	ack := bugstream.NewStreamMessage(bugstream.MessageSubscriptionSuccess, subscriptionAck{
		SubscriptionID: sub.ID,
		StreamType:     sub.StreamType,
		Filters:        sub.Filters,
		Format:         sub.Format,
	})
	ack.SubscriptionID = sub.ID
	s.writeIgnoreErr(conn, ack)

	fields := map[string]any{
		"connectionId":   conn.id,
		"subscriptionId": sub.ID,
		"streamType":     string(sub.StreamType),
	}
	if conn.authenticated {
		fields["userId"] = conn.userID
	}
	s.telemetry.Record(telemetrySubscriptionCreated, fields)
}

func (s *Service) handleUnsubscribe(conn *Connection, cmd clientCommand) {
	sub, ok := conn.subscriptions[cmd.SubscriptionID]
	if !ok {
		s.subscriptionError(conn, subscriptionFailure{
			Error:          "subscription not found",
			SubscriptionID: cmd.SubscriptionID,
		})
		return
	}
	delete(conn.subscriptions, cmd.SubscriptionID)
	s.subscriptionCount--

	ack := bugstream.NewStreamMessage(bugstream.MessageSubscriptionSuccess, map[string]string{
		"unsubscribed": sub.ID,
	})
	ack.SubscriptionID = sub.ID
	s.writeIgnoreErr(conn, ack)

	fields := map[string]any{
		"connectionId":   conn.id,
		"subscriptionId": sub.ID,
		"streamType":     string(sub.StreamType),
	}
	if conn.authenticated {
		fields["userId"] = conn.userID
	}
	s.telemetry.Record(telemetrySubscriptionRemoved, fields)
}

func (s *Service) handleHeartbeat(conn *Connection) {
	s.writeIgnoreErr(conn, bugstream.NewStreamMessage(bugstream.MessageHeartbeat, heartbeatData{
		ServerTime: s.now().UTC().Format(time.RFC3339Nano),
	}))
}

func (s *Service) subscriptionError(conn *Connection, failure subscriptionFailure) {
	s.writeIgnoreErr(conn, bugstream.NewStreamMessage(bugstream.MessageSubscriptionError, failure))
}

// BroadcastBugUpdate enqueues a bug event for fan-out on the next scheduler
// tick. It never blocks and never fails from the producer's point of view;
// overflow losses show up in stats and telemetry instead.
func (s *Service) BroadcastBugUpdate(event *bugstream.BugUpdateEvent) {
	if event == nil {
		return
	}
	if !s.bugQueue.Enqueue(event) {
		s.log.Warn("bug event rejected by full queue", zap.String("eventId", event.EventID))
	}
}

// BroadcastAnalyticsUpdate enqueues an analytics event for fan-out.
func (s *Service) BroadcastAnalyticsUpdate(event *bugstream.AnalyticsUpdateEvent) {
	if event == nil {
		return
	}
	if !s.analyticsQueue.Enqueue(event) {
		s.log.Warn("analytics event rejected by full queue", zap.String("eventId", event.EventID))
	}
}

func (s *Service) deliveryLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.DeliveryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.deliverPending()
		}
	}
}

// deliverPending is one delivery scheduler tick: drain bounded batches from
// both queues, then match/format/send each event against every subscription.
// Events are delivered per subscription in queue order; the two queues are
// independent and carry no cross-queue ordering guarantee.
func (s *Service) deliverPending() {
	bugs := s.bugQueue.DrainUpTo(s.cfg.BugBatchSize)
	analytics := s.analyticsQueue.DrainUpTo(s.cfg.AnalyticsBatchSize)
	if len(bugs) == 0 && len(analytics) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, event := range bugs {
		for _, conn := range s.connections {
			for _, sub := range conn.subscriptions {
				if sub.MatchesBug(event) {
					s.deliverLocked(conn, sub, projectBugEvent(event, sub.Format), event.CorrelationID)
				}
			}
		}
	}
	for _, event := range analytics {
		for _, conn := range s.connections {
			for _, sub := range conn.subscriptions {
				if sub.MatchesAnalytics(event) {
					s.deliverLocked(conn, sub, projectAnalyticsEvent(event, sub.Format), event.CorrelationID)
				}
			}
		}
	}
}

// deliverLocked writes one matched event to one subscription. A closed
// transport is skipped silently (its own close handler does the cleanup);
// a write failure is logged and does not abort the rest of the batch.
func (s *Service) deliverLocked(conn *Connection, sub *Subscription, payload any, correlationID string) {
	if !conn.transport.Open() {
		return
	}
	msg := bugstream.NewStreamMessage(bugstream.MessageEvent, payload)
	msg.SubscriptionID = sub.ID
	msg.CorrelationID = correlationID

	if err := s.writeLocked(conn, msg); err != nil {
		s.sendFailures++
		s.log.Warn("event delivery failed",
			zap.String("connectionId", conn.id),
			zap.String("subscriptionId", sub.ID),
			zap.Error(err))
		return
	}
	s.eventsDelivered++
	sub.LastActivity = conn.lastActivity
}

func (s *Service) livenessLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepConnections()
		}
	}
}

// sweepConnections is one liveness tick: connections inactive beyond twice
// the heartbeat interval are evicted (no heartbeat for them); everyone else
// with an open transport gets a heartbeat carrying server time. Eviction
// takes precedence over heartbeating within the same pass.
func (s *Service) sweepConnections() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	window := 2 * s.cfg.HeartbeatInterval

	var stale []string
	for id, conn := range s.connections {
		if conn.stale(now, window) {
			stale = append(stale, id)
		}
	}
	for _, id := range stale {
		s.removeLocked(id, bugstream.CloseStale, reasonStale)
	}

	heartbeat := bugstream.NewStreamMessage(bugstream.MessageHeartbeat, heartbeatData{
		ServerTime: now.UTC().Format(time.RFC3339Nano),
	})
	for _, conn := range s.connections {
		if !conn.transport.Open() {
			continue
		}
		if err := s.writeLocked(conn, heartbeat); err != nil {
			s.log.Warn("heartbeat send failed",
				zap.String("connectionId", conn.id),
				zap.Error(err))
		}
	}
}

// writeLocked serializes and writes one message, updating the connection's
// activity clock on success. Caller holds mu.
func (s *Service) writeLocked(conn *Connection, msg bugstream.StreamMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if err := conn.transport.Write(data); err != nil {
		return err
	}
	conn.touch(s.now())
	return nil
}

func (s *Service) writeIgnoreErr(conn *Connection, msg bugstream.StreamMessage) {
	if err := s.writeLocked(conn, msg); err != nil {
		s.log.Warn("control response send failed",
			zap.String("connectionId", conn.id),
			zap.Error(err))
	}
}

// Stats is the operational snapshot backing dashboards and queue-depth
// alarms.
type Stats struct {
	TotalConnections         int           `json:"totalConnections"`
	AuthenticatedConnections int           `json:"authenticatedConnections"`
	TotalSubscriptions       int           `json:"totalSubscriptions"`
	BugQueueDepth            int           `json:"bugQueueDepth"`
	AnalyticsQueueDepth      int           `json:"analyticsQueueDepth"`
	EventsDelivered          uint64        `json:"eventsDelivered"`
	EventsDropped            uint64        `json:"eventsDropped"`
	SendFailures             uint64        `json:"sendFailures"`
	AvgConnectionDuration    time.Duration `json:"avgConnectionDurationNs"`
}

// Stats returns a point-in-time snapshot of the service.
func (s *Service) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	authenticated := 0
	for _, conn := range s.connections {
		if conn.authenticated {
			authenticated++
		}
	}

	var avg time.Duration
	if s.closedConns > 0 {
		avg = s.totalConnLife / time.Duration(s.closedConns)
	}

	return Stats{
		TotalConnections:         len(s.connections),
		AuthenticatedConnections: authenticated,
		TotalSubscriptions:       s.subscriptionCount,
		BugQueueDepth:            s.bugQueue.Len(),
		AnalyticsQueueDepth:      s.analyticsQueue.Len(),
		EventsDelivered:          s.eventsDelivered,
		EventsDropped:            s.bugQueue.Dropped() + s.analyticsQueue.Dropped(),
		SendFailures:             s.sendFailures,
		AvgConnectionDuration:    avg,
	}
}
