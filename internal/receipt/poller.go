package receipt

import (
	"context"
	"log"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/fjod/go_commerce/internal/repository"
)

const Topic = "order-receipts"

// Source is the slice of order storage the poller reads from.
type Source interface {
	UnpublishedReceipts(ctx context.Context, limit int) ([]*repository.Receipt, error)
	MarkReceiptPublished(ctx context.Context, id int64) error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Poller drains the receipt outbox: every tick it reads unpublished
// receipt rows, publishes them to kafka and marks them published. A row
// that fails to publish is retried on the next tick, so consumers must
// tolerate duplicates.
type Poller struct {
	tick   time.Duration
	limit  int
	source Source
	writer messageWriter
}

func NewPoller(source Source, brokers ...string) *Poller {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  Topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &Poller{tick: time.Second, limit: 100, source: source, writer: w}
}

func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.processUnpublished(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *Poller) processUnpublished(ctx context.Context) {
	receipts, err := p.source.UnpublishedReceipts(ctx, p.limit)
	if err != nil {
		log.Printf("failed to fetch receipts: %v", err)
		return
	}

	for _, receipt := range receipts {
		msg := kafka.Message{
			Key:   []byte(receipt.OrderID.String()), // order_id for ordering
			Value: receipt.Payload,
			Headers: []kafka.Header{
				{Key: "event_type", Value: []byte("order.receipt")},
			},
		}
		if err := p.writer.WriteMessages(ctx, msg); err != nil {
			log.Printf("failed to publish receipt id = %v with error %v", receipt.ID, err)
			continue
		}

		if err := p.source.MarkReceiptPublished(ctx, receipt.ID); err != nil {
			log.Printf("failed to mark receipt as published id = %v with error %v", receipt.ID, err)
		}
	}
}
