// Package fixgw sits between the quickfix session layer and the exchange: it
// decodes inbound application messages into typed event streams and exposes a
// fire-and-forget send primitive for outbound messages.
package fixgw

import (
	"sync/atomic"

	"github.com/quickfixgo/enum"
	"github.com/quickfixgo/quickfix"
	"github.com/quickfixgo/tag"
	"go.uber.org/zap"
)

// SessionMessage is one inbound application message together with the session
// it arrived on
type SessionMessage struct {
	Msg     *quickfix.Message
	Session quickfix.SessionID
}

// Gateway implements quickfix.Application. Inbound application messages are
// dispatched by MsgType to exactly one typed stream; administrative traffic
// is observed for diagnostics only. OnSessionChange, when set before the
// acceptor or initiator starts, is invoked on logon and logout.
type Gateway struct {
	logger *zap.Logger

	newOrders       *Stream[SessionMessage]
	cancelRequests  *Stream[SessionMessage]
	replaceRequests *Stream[SessionMessage]
	execReports     *Stream[SessionMessage]
	businessRejects *Stream[SessionMessage]

	sessionRejects atomic.Int64

	OnSessionChange func(sessionID quickfix.SessionID, loggedOn bool)
}

// NewGateway creates a gateway with empty event streams
func NewGateway(logger *zap.Logger) *Gateway {
	return &Gateway{
		logger:          logger,
		newOrders:       NewStream[SessionMessage](),
		cancelRequests:  NewStream[SessionMessage](),
		replaceRequests: NewStream[SessionMessage](),
		execReports:     NewStream[SessionMessage](),
		businessRejects: NewStream[SessionMessage](),
	}
}

// NewOrderSingle is the stream of inbound order-entry messages
func (g *Gateway) NewOrderSingle() *Stream[SessionMessage] { return g.newOrders }

// OrderCancelRequest is the stream of inbound cancel requests
func (g *Gateway) OrderCancelRequest() *Stream[SessionMessage] { return g.cancelRequests }

// OrderCancelReplaceRequest is the stream of inbound cancel/replace requests
func (g *Gateway) OrderCancelReplaceRequest() *Stream[SessionMessage] { return g.replaceRequests }

// ExecutionReport is the stream of inbound execution reports (initiator role)
func (g *Gateway) ExecutionReport() *Stream[SessionMessage] { return g.execReports }

// BusinessMessageReject is the stream of inbound business rejects
func (g *Gateway) BusinessMessageReject() *Stream[SessionMessage] { return g.businessRejects }

// SessionRejects returns the number of session-level Rejects (MsgType 3)
// received on any session. Rejects arrive as admin traffic and never reach
// the event streams; the counter is the diagnostic surface for them.
func (g *Gateway) SessionRejects() int64 { return g.sessionRejects.Load() }

// Send delivers an outbound message on the given session. Failures are logged
// locally and never propagate back into the matching path.
func (g *Gateway) Send(m quickfix.Messagable, sessionID quickfix.SessionID) {
	if err := quickfix.SendToTarget(m, sessionID); err != nil {
		g.logger.Error("failed to send message",
			zap.String("session_id", sessionID.String()),
			zap.Error(err),
		)
	}
}

// OnCreate implements quickfix.Application
func (g *Gateway) OnCreate(sessionID quickfix.SessionID) {
	g.logger.Debug("session created", zap.String("session_id", sessionID.String()))
}

// OnLogon implements quickfix.Application
func (g *Gateway) OnLogon(sessionID quickfix.SessionID) {
	g.logger.Info("session logged on", zap.String("session_id", sessionID.String()))
	if g.OnSessionChange != nil {
		g.OnSessionChange(sessionID, true)
	}
}

// OnLogout implements quickfix.Application
func (g *Gateway) OnLogout(sessionID quickfix.SessionID) {
	g.logger.Info("session logged out", zap.String("session_id", sessionID.String()))
	if g.OnSessionChange != nil {
		g.OnSessionChange(sessionID, false)
	}
}

// ToAdmin implements quickfix.Application
func (g *Gateway) ToAdmin(msg *quickfix.Message, sessionID quickfix.SessionID) {
	g.logger.Debug("admin message out", zap.String("session_id", sessionID.String()))
}

// ToApp implements quickfix.Application
func (g *Gateway) ToApp(msg *quickfix.Message, sessionID quickfix.SessionID) error {
	g.logger.Debug("app message out", zap.String("session_id", sessionID.String()))
	return nil
}

// FromAdmin implements quickfix.Application. Admin messages are observed for
// diagnostics and never reach the event streams; session-level Rejects are
// counted and logged so a counterparty rejecting our traffic is visible.
func (g *Gateway) FromAdmin(msg *quickfix.Message, sessionID quickfix.SessionID) quickfix.MessageRejectError {
	msgType, err := msg.Header.GetString(tag.MsgType)
	if err != nil {
		return err
	}
	switch enum.MsgType(msgType) {
	case enum.MsgType_HEARTBEAT:
		g.logger.Debug("heartbeat", zap.String("session_id", sessionID.String()))
	case enum.MsgType_REJECT:
		g.sessionRejects.Add(1)
		refSeqNum, _ := msg.Body.GetInt(tag.RefSeqNum)
		text, _ := msg.Body.GetString(tag.Text)
		g.logger.Warn("session-level reject received",
			zap.Int("ref_seq_num", refSeqNum),
			zap.String("text", text),
			zap.String("session_id", sessionID.String()),
		)
	}
	return nil
}

// FromApp implements quickfix.Application, dispatching by MsgType to exactly
// one stream. Unrecognized types are logged and dropped.
func (g *Gateway) FromApp(msg *quickfix.Message, sessionID quickfix.SessionID) quickfix.MessageRejectError {
	msgType, err := msg.Header.GetString(tag.MsgType)
	if err != nil {
		return err
	}

	// quickfix reuses message buffers after FromApp returns; subscribers get
	// their own copy.
	clone := quickfix.NewMessage()
	msg.CopyInto(clone)
	event := SessionMessage{Msg: clone, Session: sessionID}

	switch enum.MsgType(msgType) {
	case enum.MsgType_ORDER_SINGLE:
		g.newOrders.Publish(event)
	case enum.MsgType_ORDER_CANCEL_REPLACE_REQUEST:
		g.replaceRequests.Publish(event)
	case enum.MsgType_ORDER_CANCEL_REQUEST:
		g.cancelRequests.Publish(event)
	case enum.MsgType_EXECUTION_REPORT:
		g.execReports.Publish(event)
	case enum.MsgType_BUSINESS_MESSAGE_REJECT:
		g.businessRejects.Publish(event)
	default:
		g.logger.Debug("dropping unrecognized message type",
			zap.String("msg_type", msgType),
			zap.String("session_id", sessionID.String()),
		)
	}

	return nil
}
