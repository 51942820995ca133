package exchange

import (
	"testing"

	"github.com/quickfixgo/enum"
	"github.com/quickfixgo/quickfix"
	"github.com/quickfixgo/tag"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcceptReport_Fields(t *testing.T) {
	o := newTestOrder(SideBuy, TypeLimit, "10.00", "100")
	msg := AcceptReport(o).ToMessage()

	get := func(tg quickfix.Tag) string {
		v, err := msg.Body.GetString(tg)
		require.NoError(t, err)
		return v
	}

	assert.Equal(t, o.OrderID, get(tag.OrderID))
	assert.Equal(t, o.ClOrdID, get(tag.ClOrdID))
	assert.Equal(t, string(enum.ExecType_NEW), get(tag.ExecType))
	assert.Equal(t, string(enum.OrdStatus_NEW), get(tag.OrdStatus))
	assert.Equal(t, string(enum.Side_BUY), get(tag.Side))
	assert.Equal(t, "PETR4", get(tag.Symbol))
	assert.Equal(t, "100.00", get(tag.LeavesQty))
	assert.Equal(t, "0.00", get(tag.CumQty))
	assert.Equal(t, "10.00", get(tag.Price))
	assert.NotEmpty(t, get(tag.ExecID))
}

func TestExecutionReport_MarketOrderOmitsPrice(t *testing.T) {
	o := newTestOrder(SideSell, TypeMarket, "", "100")
	o.fill(decimal.RequireFromString("10.00"), decimal.NewFromInt(100))

	msg := ExecutionReport(Execution{Order: *o, Type: ExecFill}).ToMessage()
	assert.False(t, msg.Body.Has(tag.Price), "market orders carry no price on their reports")

	lastPx, err := msg.Body.GetString(tag.LastPx)
	require.NoError(t, err)
	assert.Equal(t, "10.00", lastPx)

	ordStatus, err := msg.Body.GetString(tag.OrdStatus)
	require.NoError(t, err)
	assert.Equal(t, string(enum.OrdStatus_FILLED), ordStatus)
}

func TestExecutionReport_PartialFill(t *testing.T) {
	o := newTestOrder(SideBuy, TypeLimit, "10.00", "300")
	o.fill(decimal.RequireFromString("10.00"), decimal.NewFromInt(100))

	msg := ExecutionReport(Execution{Order: *o, Type: ExecPartialFill}).ToMessage()

	get := func(tg quickfix.Tag) string {
		v, err := msg.Body.GetString(tg)
		require.NoError(t, err)
		return v
	}

	assert.Equal(t, string(enum.ExecType_PARTIAL_FILL), get(tag.ExecType))
	assert.Equal(t, string(enum.OrdStatus_PARTIALLY_FILLED), get(tag.OrdStatus))
	assert.Equal(t, "200.00", get(tag.LeavesQty))
	assert.Equal(t, "100.00", get(tag.CumQty))
	assert.Equal(t, "100.00", get(tag.LastQty))
	assert.Equal(t, "10.00", get(tag.AvgPx))
}

func TestRejectMessage_Fields(t *testing.T) {
	msg := RejectMessage(7, "missing Symbol (55)")

	msgType, err := msg.Header.GetString(tag.MsgType)
	require.NoError(t, err)
	assert.Equal(t, string(enum.MsgType_REJECT), msgType)

	refSeqNum, err := msg.Body.GetInt(tag.RefSeqNum)
	require.NoError(t, err)
	assert.Equal(t, 7, refSeqNum)

	text, err := msg.Body.GetString(tag.Text)
	require.NoError(t, err)
	assert.Equal(t, "missing Symbol (55)", text)
}
