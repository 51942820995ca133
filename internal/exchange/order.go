package exchange

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/quickfixgo/enum"
	"github.com/quickfixgo/field"
	"github.com/quickfixgo/quickfix"
	"github.com/quickfixgo/tag"
	"github.com/shopspring/decimal"
)

// Side is the direction of an order
type Side int8

const (
	SideBuy Side = iota + 1
	SideSell
)

// String returns the side name
func (s Side) String() string {
	switch s {
	case SideBuy:
		return "BUY"
	case SideSell:
		return "SELL"
	}
	return "UNKNOWN"
}

// FIX returns the FIX 4.4 representation of the side
func (s Side) FIX() enum.Side {
	if s == SideSell {
		return enum.Side_SELL
	}
	return enum.Side_BUY
}

func sideFromFIX(v enum.Side) (Side, bool) {
	switch v {
	case enum.Side_BUY:
		return SideBuy, true
	case enum.Side_SELL:
		return SideSell, true
	}
	return 0, false
}

// OrderType is the pricing mode of an order
type OrderType int8

const (
	TypeLimit OrderType = iota + 1
	TypeMarket
)

// String returns the order type name
func (t OrderType) String() string {
	if t == TypeMarket {
		return "MARKET"
	}
	return "LIMIT"
}

// FIX returns the FIX 4.4 representation of the order type
func (t OrderType) FIX() enum.OrdType {
	if t == TypeMarket {
		return enum.OrdType_MARKET
	}
	return enum.OrdType_LIMIT
}

func typeFromFIX(v enum.OrdType) (OrderType, bool) {
	switch v {
	case enum.OrdType_LIMIT:
		return TypeLimit, true
	case enum.OrdType_MARKET:
		return TypeMarket, true
	}
	return 0, false
}

// Status is the lifecycle state of an order
type Status int8

const (
	StatusNew Status = iota + 1
	StatusPartiallyFilled
	StatusFilled
	StatusRejected
)

// String returns the status name
func (s Status) String() string {
	switch s {
	case StatusNew:
		return "NEW"
	case StatusPartiallyFilled:
		return "PARTIALLY_FILLED"
	case StatusFilled:
		return "FILLED"
	case StatusRejected:
		return "REJECTED"
	}
	return "UNKNOWN"
}

// OrdStatus returns the FIX 4.4 representation of the status
func (s Status) OrdStatus() enum.OrdStatus {
	switch s {
	case StatusPartiallyFilled:
		return enum.OrdStatus_PARTIALLY_FILLED
	case StatusFilled:
		return enum.OrdStatus_FILLED
	case StatusRejected:
		return enum.OrdStatus_REJECTED
	}
	return enum.OrdStatus_NEW
}

// Order is a validated order-entry message, decoupled from its wire encoding.
// Identity fields are immutable after parsing; fill accounting fields are
// mutated only by the matching loop of the owning book.
type Order struct {
	OrderID string
	ClOrdID string
	Session quickfix.SessionID

	Symbol      string
	Side        Side
	Type        OrderType
	Price       decimal.Decimal // zero for market orders
	TimeInForce enum.TimeInForce

	OrderQty decimal.Decimal
	CumQty   decimal.Decimal
	AvgPx    decimal.Decimal
	LastQty  decimal.Decimal
	LastPx   decimal.Decimal

	Status       Status
	SeqNum       int
	TransactTime time.Time
}

// LeavesQty returns the remaining open quantity
func (o *Order) LeavesQty() decimal.Decimal {
	return o.OrderQty.Sub(o.CumQty)
}

// IsClosed reports whether the order has no open quantity left
func (o *Order) IsClosed() bool {
	return o.LeavesQty().Sign() == 0
}

// fill applies one matched quantity at one price to the order's accounting
func (o *Order) fill(price, qty decimal.Decimal) {
	notional := o.AvgPx.Mul(o.CumQty).Add(price.Mul(qty))
	o.CumQty = o.CumQty.Add(qty)
	o.AvgPx = notional.Div(o.CumQty)
	o.LastQty = qty
	o.LastPx = price
	if o.IsClosed() {
		o.Status = StatusFilled
	} else {
		o.Status = StatusPartiallyFilled
	}
}

// ValidationError describes why an inbound order message was rejected.
// SeqNum is the inbound MsgSeqNum the Reject must reference; it is zero when
// the header itself was unusable.
type ValidationError struct {
	SeqNum int
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// NewID generates a server-assigned order or execution id
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// ParseOrder decodes and validates a raw NewOrderSingle message. requirePrice
// extends the Price check to market orders, matching the venue this simulator
// mimics. On any missing or malformed required field the returned error is a
// *ValidationError and no Order is produced.
func ParseOrder(msg *quickfix.Message, sessionID quickfix.SessionID, requirePrice bool) (*Order, error) {
	seqNum, merr := msg.Header.GetInt(tag.MsgSeqNum)
	if merr != nil || seqNum <= 0 {
		return nil, &ValidationError{Reason: "missing or non-positive MsgSeqNum (34)"}
	}

	fail := func(reason string) (*Order, error) {
		return nil, &ValidationError{SeqNum: seqNum, Reason: reason}
	}

	msgType, merr := msg.Header.GetString(tag.MsgType)
	if merr != nil || msgType == "" {
		return fail("missing MsgType (35)")
	}

	o := &Order{
		Session: sessionID,
		SeqNum:  seqNum,
		Status:  StatusNew,
	}

	clOrdID, merr := msg.Body.GetString(tag.ClOrdID)
	if merr != nil {
		return fail("missing ClOrdID (11)")
	}
	o.ClOrdID = clOrdID

	var sideField field.SideField
	if merr := msg.Body.Get(&sideField); merr != nil {
		return fail("missing Side (54)")
	}
	side, ok := sideFromFIX(sideField.Value())
	if !ok {
		return fail(fmt.Sprintf("unsupported Side (54) value %q", string(sideField.Value())))
	}
	o.Side = side

	var transactTime field.TransactTimeField
	if merr := msg.Body.Get(&transactTime); merr != nil {
		return fail("missing TransactTime (60)")
	}
	o.TransactTime = transactTime.Value()

	var ordType field.OrdTypeField
	if merr := msg.Body.Get(&ordType); merr != nil {
		return fail("missing OrdType (40)")
	}
	typ, ok := typeFromFIX(ordType.Value())
	if !ok {
		return fail(fmt.Sprintf("unsupported OrdType (40) value %q", string(ordType.Value())))
	}
	o.Type = typ

	symbol, merr := msg.Body.GetString(tag.Symbol)
	if merr != nil {
		return fail("missing Symbol (55)")
	}
	o.Symbol = symbol

	var orderQty field.OrderQtyField
	if merr := msg.Body.Get(&orderQty); merr != nil {
		return fail("missing OrderQty (38)")
	}
	if orderQty.Value().Sign() <= 0 {
		return fail("OrderQty (38) must be positive")
	}
	o.OrderQty = orderQty.Value()

	if o.Type == TypeLimit || requirePrice {
		var price field.PriceField
		if merr := msg.Body.Get(&price); merr != nil {
			return fail("missing Price (44)")
		}
		if o.Type == TypeLimit {
			if price.Value().Sign() <= 0 {
				return fail("Price (44) must be positive")
			}
			o.Price = price.Value()
		}
	}

	var tif field.TimeInForceField
	if merr := msg.Body.Get(&tif); merr != nil {
		return fail("missing TimeInForce (59)")
	}
	o.TimeInForce = tif.Value()

	if msg.Body.Has(tag.OrderID) {
		o.OrderID, _ = msg.Body.GetString(tag.OrderID)
	} else {
		o.OrderID = NewID()
	}

	return o, nil
}
