package notify

import (
	"context"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQSink は永続キューに通知を送る
type RabbitMQSink struct {
	url   string
	queue string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewRabbitMQSink は接続してキューを宣言する
func NewRabbitMQSink(url, queue string) (*RabbitMQSink, error) {
	s := &RabbitMQSink{url: url, queue: queue}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.connect(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *RabbitMQSink) Name() string { return "rabbitmq" }

// connect は接続とチャネルを開き直す。呼び出し側で mu を保持すること
func (s *RabbitMQSink) connect() error {
	if s.conn != nil && !s.conn.IsClosed() && s.ch != nil && !s.ch.IsClosed() {
		return nil
	}
	s.closeLocked()

	conn, err := amqp.Dial(s.url)
	if err != nil {
		return fmt.Errorf("RabbitMQへの接続に失敗: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("RabbitMQチャネルの作成に失敗: %w", err)
	}
	// ブローカー再起動後もメッセージが残るよう durable にする
	if _, err := ch.QueueDeclare(s.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("キュー %s の宣言に失敗: %w", s.queue, err)
	}
	s.conn, s.ch = conn, ch
	return nil
}

func (s *RabbitMQSink) Notify(ctx context.Context, e Event) error {
	body, err := e.Encode()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.connect(); err != nil {
		return err
	}
	err = s.ch.PublishWithContext(ctx, "", s.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Type:         string(e.Type),
		Timestamp:    e.OccurredAt.UTC(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("RabbitMQへの送信に失敗: %w", err)
	}
	return nil
}

// Close は接続を閉じる
func (s *RabbitMQSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeLocked()
}

func (s *RabbitMQSink) closeLocked() error {
	var err error
	if s.ch != nil {
		_ = s.ch.Close()
		s.ch = nil
	}
	if s.conn != nil {
		if !s.conn.IsClosed() {
			err = s.conn.Close()
		}
		s.conn = nil
	}
	return err
}
