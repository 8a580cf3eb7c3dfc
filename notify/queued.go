package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"food-delivery/queue"

	"go.uber.org/zap"
)

// QueueSender hands messages to the broker. Its Result counts queued tokens,
// not delivered ones.
type QueueSender struct {
	broker queue.Broker
}

func NewQueueSender(broker queue.Broker) *QueueSender {
	return &QueueSender{broker: broker}
}

func (s *QueueSender) Send(ctx context.Context, msg Message) (Result, error) {
	b, err := json.Marshal(msg)
	if err != nil {
		return Result{}, fmt.Errorf("marshal notification: %w", err)
	}
	if err := s.broker.Publish(ctx, queue.QueueNotifications, b); err != nil {
		return Result{FailureCount: len(msg.Tokens)}, err
	}
	return Result{SuccessCount: len(msg.Tokens)}, nil
}

// Worker drains the notification queue into a delivering Sender.
type Worker struct {
	broker   queue.Broker
	delivery Sender
	logger   *zap.SugaredLogger
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewWorker(broker queue.Broker, delivery Sender, logger *zap.SugaredLogger) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{broker: broker, delivery: delivery, logger: logger, ctx: ctx, cancel: cancel}
}

func (w *Worker) Start() error {
	w.logger.Info("starting notification worker")
	return w.broker.Subscribe(w.ctx, queue.QueueNotifications, w.handleMessage)
}

func (w *Worker) Stop() {
	w.logger.Info("stopping notification worker")
	w.cancel()
}

// handleMessage fails only when no token was reached, so partial deliveries are not repeated.
func (w *Worker) handleMessage(ctx context.Context, message []byte) error {
	var msg Message
	if err := json.Unmarshal(message, &msg); err != nil {
		w.logger.Errorw("failed to unmarshal notification", "error", err)
		return fmt.Errorf("failed to unmarshal notification: %w", err)
	}
	res, err := w.delivery.Send(ctx, msg)
	if err != nil {
		return err
	}
	if res.SuccessCount == 0 && res.FailureCount > 0 {
		return fmt.Errorf("notification %q reached none of %d tokens", msg.Title, res.FailureCount)
	}
	w.logger.Infow("notification delivered", "title", msg.Title, "success", res.SuccessCount, "failure", res.FailureCount)
	return nil
}
