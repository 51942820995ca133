package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"
)

// Producer publishes the exchange's downstream feeds to Kafka
type Producer struct {
	client *kgo.Client
	logger *zap.Logger

	produced atomic.Int64
	errors   atomic.Int64

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewProducer creates a new Kafka producer
func NewProducer(brokers []string, logger *zap.Logger) (*Producer, error) {
	opts := []kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.DisableIdempotentWrite(),
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka client: %w", err)
	}

	p := &Producer{
		client: client,
		logger: logger,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}

	logger.Info("feed producer initialized",
		zap.Strings("brokers", brokers),
	)

	go p.logStats()

	return p, nil
}

// ProduceTrade publishes one fill to the trades topic, keyed by symbol so a
// symbol's trades stay ordered within their partition
func (p *Producer) ProduceTrade(ctx context.Context, t TradeMsg) error {
	return p.produce(ctx, TopicTrades, t.Symbol, t)
}

// ProduceBookStat publishes the top-of-book state after a trade
func (p *Producer) ProduceBookStat(ctx context.Context, b BookStatMsg) error {
	return p.produce(ctx, TopicBooks, b.Symbol, b)
}

func (p *Producer) produce(ctx context.Context, topic string, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		p.errors.Add(1)
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	record := &kgo.Record{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
	}

	produceCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	result := p.client.ProduceSync(produceCtx, record)
	if result.FirstErr() != nil {
		p.errors.Add(1)
		return fmt.Errorf("failed to produce message: %w", result.FirstErr())
	}

	p.produced.Add(1)
	return nil
}

// Close stops the stats loop and closes the client
func (p *Producer) Close() {
	p.closeOnce.Do(func() {
		close(p.stop)
		<-p.done
		p.client.Close()
	})
}

// logStats logs producer statistics periodically until Close
func (p *Producer) logStats() {
	defer close(p.done)

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			p.logger.Info("feed producer stats",
				zap.Int64("produced", p.produced.Load()),
				zap.Int64("errors", p.errors.Load()),
			)
		}
	}
}
