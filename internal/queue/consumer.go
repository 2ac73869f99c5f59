package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/workspace-reservation/internal/model"
)

// ConsumerConfig names the broker objects and audit file of the consumer.
type ConsumerConfig struct {
	URL      string
	Exchange string
	Queue    string
	LogPath  string
}

// StartEventConsumer binds a durable queue to every routing key of the
// exchange and appends each event as one line to cfg.LogPath.  It keeps
// reconnecting with backoff and returns only when ctx is done.
func StartEventConsumer(ctx context.Context, cfg ConsumerConfig, log logrus.FieldLogger) error {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Queue == "" {
		cfg.Queue = cfg.Exchange + ".audit"
	}

	backoff := time.Second
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		conn, err := amqp.Dial(cfg.URL)
		if err != nil {
			log.WithError(err).Warnf("event-consumer: failed to dial broker; retrying in %s", backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		err = consumeLoop(ctx, conn, cfg, log)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.WithError(err).Warn("event-consumer: consume loop ended; reconnecting")
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, cfg ConsumerConfig, log logrus.FieldLogger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.WithError(err).Warn("event-consumer: set QoS failed")
	}
	if err := declareExchange(ch, cfg.Exchange); err != nil {
		return err
	}
	if _, err := ch.QueueDeclare(cfg.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	if err := ch.QueueBind(cfg.Queue, "#", cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("queue bind: %w", err)
	}
	msgs, err := ch.ConsumeWithContext(ctx, cfg.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := handleMessage(cfg.LogPath, d.Body); err != nil {
			log.WithError(err).Warn("event-consumer: handle message failed")
			_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

func handleMessage(path string, body []byte) error {
	var ev model.Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Type == "" {
		return errors.New("event without type")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(formatLine(ev)); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// formatLine renders ev as one human-friendly audit line.
func formatLine(ev model.Event) string {
	parts := []string{
		fmt.Sprintf("[%s] %s", ev.OccurredAt.UTC().Format(time.RFC3339), ev.Type),
		fmt.Sprintf("resource_id=%d", ev.ResourceID),
	}
	add := func(name string, v uint64) {
		if v != 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", name, v))
		}
	}
	add("user_id", ev.UserID)
	add("booking_id", ev.BookingID)
	add("entry_id", ev.EntryID)
	add("assignment_id", ev.AssignID)
	if ev.StartUTC != nil && ev.EndUTC != nil {
		parts = append(parts, fmt.Sprintf("window=%s/%s", ev.StartUTC.UTC().Format(time.RFC3339), ev.EndUTC.UTC().Format(time.RFC3339)))
	}
	if ev.ExpiresAt != nil {
		parts = append(parts, "expires="+ev.ExpiresAt.UTC().Format(time.RFC3339))
	}
	if ev.Detail != "" {
		parts = append(parts, fmt.Sprintf("detail=%q", ev.Detail))
	}
	return strings.Join(parts, " | ") + "\n"
}
