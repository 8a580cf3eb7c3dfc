package notify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"food-delivery/queue"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

type fakeBot struct {
	mu    sync.Mutex
	sent  []tgbotapi.MessageConfig
	failC int64
}

func (b *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m := c.(tgbotapi.MessageConfig)
	if m.ChatID == b.failC {
		return tgbotapi.Message{}, errors.New("chat not found")
	}
	b.sent = append(b.sent, m)
	return tgbotapi.Message{}, nil
}

func TestTelegramSenderTally(t *testing.T) {
	bot := &fakeBot{failC: 3}
	s := &TelegramSender{bot: bot, logger: zap.NewNop().Sugar()}

	res, err := s.Send(context.Background(), Message{
		Tokens: []string{"1", "not-a-chat", "3", "4"},
		Title:  "Order Accepted",
		Body:   "Your order has been accepted by the restaurant.",
		Data:   map[string]string{"orderId": "o-1"},
		Hint:   DefaultHint,
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if res.SuccessCount != 2 || res.FailureCount != 2 {
		t.Errorf("Result = %+v, want 2 success, 2 failure", res)
	}
	if len(bot.sent) != 2 {
		t.Fatalf("sent %d messages, want 2", len(bot.sent))
	}
	if txt := bot.sent[0].Text; !strings.Contains(txt, "Order Accepted") || !strings.Contains(txt, "o-1") {
		t.Errorf("text = %q, want title and order id", txt)
	}
}

type recordingSender struct {
	mu   sync.Mutex
	msgs []Message
	done chan struct{}
}

func (r *recordingSender) Send(ctx context.Context, msg Message) (Result, error) {
	r.mu.Lock()
	r.msgs = append(r.msgs, msg)
	r.mu.Unlock()
	r.done <- struct{}{}
	return Result{SuccessCount: len(msg.Tokens)}, nil
}

func TestQueueSenderWorker(t *testing.T) {
	broker := queue.NewMemoryBroker()
	defer broker.Close()
	rec := &recordingSender{done: make(chan struct{}, 1)}
	w := NewWorker(broker, rec, zap.NewNop().Sugar())
	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	qs := NewQueueSender(broker)
	res, err := qs.Send(context.Background(), Message{Tokens: []string{"a", "b"}, Title: "New Order Received", Hint: NewOrderHint})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if res.SuccessCount != 2 {
		t.Errorf("queued = %d, want 2", res.SuccessCount)
	}

	select {
	case <-rec.done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not deliver message")
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if got := rec.msgs[0]; got.Title != "New Order Received" || got.Hint.ChannelID != "order" {
		t.Errorf("delivered = %+v", got)
	}
}

func TestWorkerFailsWhenNothingDelivered(t *testing.T) {
	w := NewWorker(queue.NewMemoryBroker(), senderFunc(func(ctx context.Context, msg Message) (Result, error) {
		return Result{FailureCount: len(msg.Tokens)}, nil
	}), zap.NewNop().Sugar())
	if err := w.handleMessage(context.Background(), []byte(`{"tokens":["x"],"title":"t"}`)); err == nil {
		t.Error("expected error when every token failed")
	}
	if err := w.handleMessage(context.Background(), []byte(`not json`)); err == nil {
		t.Error("expected error for malformed message")
	}
}

type senderFunc func(ctx context.Context, msg Message) (Result, error)

func (f senderFunc) Send(ctx context.Context, msg Message) (Result, error) { return f(ctx, msg) }
