package exchange

import (
	"time"

	"github.com/quickfixgo/enum"
	"github.com/quickfixgo/field"
	fix44er "github.com/quickfixgo/fix44/executionreport"
	"github.com/quickfixgo/quickfix"
	"github.com/quickfixgo/tag"
)

// decimalScale is the wire precision for price and quantity fields
const decimalScale = 2

// AcceptReport builds the ExecutionReport acknowledging receipt of a freshly
// validated order (ExecType/OrdStatus New)
func AcceptReport(o *Order) fix44er.ExecutionReport {
	msg := fix44er.New(
		field.NewOrderID(o.OrderID),
		field.NewExecID(NewID()),
		field.NewExecType(enum.ExecType_NEW),
		field.NewOrdStatus(enum.OrdStatus_NEW),
		field.NewSide(o.Side.FIX()),
		field.NewLeavesQty(o.LeavesQty(), decimalScale),
		field.NewCumQty(o.CumQty, decimalScale),
		field.NewAvgPx(o.AvgPx, decimalScale),
	)
	setOrderAttributes(&msg, o)
	return msg
}

// ExecutionReport builds the outbound report for one fill lifecycle event
func ExecutionReport(exec Execution) fix44er.ExecutionReport {
	o := &exec.Order

	execType := enum.ExecType_PARTIAL_FILL
	if exec.Type == ExecFill {
		execType = enum.ExecType_FILL
	}

	msg := fix44er.New(
		field.NewOrderID(o.OrderID),
		field.NewExecID(NewID()),
		field.NewExecType(execType),
		field.NewOrdStatus(o.Status.OrdStatus()),
		field.NewSide(o.Side.FIX()),
		field.NewLeavesQty(o.LeavesQty(), decimalScale),
		field.NewCumQty(o.CumQty, decimalScale),
		field.NewAvgPx(o.AvgPx, decimalScale),
	)
	msg.SetLastQty(o.LastQty, decimalScale)
	msg.SetLastPx(o.LastPx, decimalScale)
	setOrderAttributes(&msg, o)
	return msg
}

// setOrderAttributes copies the original order attributes onto a report
func setOrderAttributes(msg *fix44er.ExecutionReport, o *Order) {
	msg.SetClOrdID(o.ClOrdID)
	msg.SetSymbol(o.Symbol)
	msg.SetOrdType(o.Type.FIX())
	msg.SetOrderQty(o.OrderQty, decimalScale)
	if o.Type == TypeLimit {
		msg.SetPrice(o.Price, decimalScale)
	}
	msg.SetTimeInForce(o.TimeInForce)
	msg.SetTransactTime(time.Now().UTC())
}

// RejectMessage builds a session-level Reject carrying the rejected message's
// sequence number and a human-readable reason
func RejectMessage(refSeqNum int, reason string) *quickfix.Message {
	msg := quickfix.NewMessage()
	msg.Header.SetField(tag.BeginString, quickfix.FIXString(quickfix.BeginStringFIX44))
	msg.Header.SetField(tag.MsgType, quickfix.FIXString(enum.MsgType_REJECT))
	msg.Body.SetField(tag.RefSeqNum, quickfix.FIXInt(refSeqNum))
	msg.Body.SetField(tag.Text, quickfix.FIXString(reason))
	return msg
}
