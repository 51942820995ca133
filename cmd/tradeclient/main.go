package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/quickfixgo/enum"
	"github.com/quickfixgo/field"
	fix44nos "github.com/quickfixgo/fix44/newordersingle"
	"github.com/quickfixgo/quickfix"
	qfxfile "github.com/quickfixgo/quickfix/store/file"
	"github.com/quickfixgo/tag"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/fixsim/exchange/internal/config"
	"github.com/fixsim/exchange/internal/fixgw"
	"github.com/fixsim/exchange/internal/loadgen"
	"github.com/fixsim/exchange/internal/logging"
)

// tradeclient connects to the exchange acceptor and sends randomized
// crossing order pairs, then reports what came back.
func main() {
	cfg := config.LoadConfig("tradeclient")
	genCfg := loadgen.LoadConfig()

	logger, err := logging.NewLogger(cfg.ServiceName, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	gen, err := loadgen.NewGenerator(genCfg, logger)
	if err != nil {
		logger.Fatal("failed to create load generator", zap.Error(err))
	}

	gw := fixgw.NewGateway(logger)

	// Session readiness: the first logon unblocks order sending.
	loggedOn := make(chan quickfix.SessionID, 1)
	gw.OnSessionChange = func(sessionID quickfix.SessionID, on bool) {
		if on {
			select {
			case loggedOn <- sessionID:
			default:
			}
		}
	}

	// Count what the exchange sends back. Validation failures arrive as
	// session-level Rejects, which the gateway counts as admin traffic.
	var newAcks, fills, partials, rejects atomic.Int64

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		execs := gw.ExecutionReport().Subscribe(1024)
		busRejects := gw.BusinessMessageReject().Subscribe(64)
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-execs:
				execType, err := ev.Msg.Body.GetString(tag.ExecType)
				if err != nil {
					logger.Warn("execution report without ExecType", zap.Error(err))
					continue
				}
				switch enum.ExecType(execType) {
				case enum.ExecType_NEW:
					newAcks.Add(1)
				case enum.ExecType_PARTIAL_FILL:
					partials.Add(1)
				case enum.ExecType_FILL:
					fills.Add(1)
				}
			case <-busRejects:
				rejects.Add(1)
			}
		}
	}()

	settingsFile, err := os.Open(cfg.FIXSettingsPath)
	if err != nil {
		logger.Fatal("failed to open FIX settings", zap.Error(err))
	}
	settings, err := quickfix.ParseSettings(settingsFile)
	settingsFile.Close()
	if err != nil {
		logger.Fatal("failed to parse FIX settings", zap.Error(err))
	}

	logFactory, err := quickfix.NewFileLogFactory(settings)
	if err != nil {
		logger.Fatal("failed to create FIX log factory", zap.Error(err))
	}

	initiator, err := quickfix.NewInitiator(gw, qfxfile.NewStoreFactory(settings), settings, logFactory)
	if err != nil {
		logger.Fatal("failed to create FIX initiator", zap.Error(err))
	}
	if err := initiator.Start(); err != nil {
		logger.Fatal("failed to start FIX initiator", zap.Error(err))
	}
	defer initiator.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var sessionID quickfix.SessionID
	select {
	case sessionID = <-loggedOn:
		logger.Info("session established", zap.String("session", sessionID.String()))
	case <-sigCh:
		logger.Info("interrupted before logon")
		return
	case <-time.After(30 * time.Second):
		logger.Fatal("timed out waiting for logon")
	}

	sent := 0
loop:
	for i := 0; i < genCfg.Count; i++ {
		select {
		case <-sigCh:
			logger.Info("interrupted", zap.Int("orders_sent", sent))
			break loop
		default:
		}

		symbol := gen.Symbol()
		qty := gen.Quantity()
		price := gen.Price()

		// A buy and a sell at the same level so the pair crosses
		for _, side := range []enum.Side{enum.Side_BUY, enum.Side_SELL} {
			if err := sendOrder(sessionID, side, symbol, qty, price); err != nil {
				logger.Error("failed to send order",
					zap.String("symbol", symbol),
					zap.Error(err))
				continue
			}
			sent++
		}

		if err := gen.Pace(ctx); err != nil {
			break
		}
	}

	logger.Info("all orders sent, waiting for remaining reports", zap.Int("orders_sent", sent))
	time.Sleep(2 * time.Second)
	cancel()

	fmt.Printf("orders sent:      %d\n", sent)
	fmt.Printf("accepted (NEW):   %d\n", newAcks.Load())
	fmt.Printf("partial fills:    %d\n", partials.Load())
	fmt.Printf("full fills:       %d\n", fills.Load())
	fmt.Printf("session rejects:  %d\n", gw.SessionRejects())
	fmt.Printf("business rejects: %d\n", rejects.Load())
	if d := gw.ExecutionReport().Dropped(); d > 0 {
		fmt.Printf("dropped events:   %d\n", d)
	}
}

func sendOrder(sessionID quickfix.SessionID, side enum.Side, symbol string, qty, price decimal.Decimal) error {
	order := fix44nos.New(
		field.NewClOrdID(strings.ReplaceAll(uuid.New().String(), "-", "")),
		field.NewSide(side),
		field.NewTransactTime(time.Now().UTC()),
		field.NewOrdType(enum.OrdType_LIMIT),
	)
	order.Set(field.NewSymbol(symbol))
	order.Set(field.NewOrderQty(qty, 0))
	order.Set(field.NewPrice(price, 2))
	order.Set(field.NewTimeInForce(enum.TimeInForce_DAY))

	return quickfix.SendToTarget(order, sessionID)
}
