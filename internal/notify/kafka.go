package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaConfig はKafka通知先の設定
type KafkaConfig struct {
	Brokers  []string
	Topic    string
	ClientID string

	// DeliveryTimeout は1レコードの送信を諦めるまでの時間。0 の場合は defaultKafkaDeliveryTimeout
	DeliveryTimeout time.Duration
}

const defaultKafkaDeliveryTimeout = 5 * time.Second

// KafkaSink はホールIDをキーにしてトピックへ通知を送る。同じホールのイベントは同じパーティションに入る
type KafkaSink struct {
	client *kgo.Client
	topic  string
}

// NewKafkaSink はクライアントを作成する。ブローカーへの接続は最初の送信時に行われる
func NewKafkaSink(cfg KafkaConfig) (*KafkaSink, error) {
	timeout := cfg.DeliveryTimeout
	if timeout <= 0 {
		timeout = defaultKafkaDeliveryTimeout
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ClientID(cfg.ClientID),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.AllowAutoTopicCreation(),
		// ブローカーに届かない場合も送信が終わるようにする
		kgo.RecordDeliveryTimeout(timeout),
		kgo.ProduceRequestTimeout(timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("Kafkaクライアントの作成に失敗: %w", err)
	}
	return &KafkaSink{client: client, topic: cfg.Topic}, nil
}

func (s *KafkaSink) Name() string { return "kafka" }

func (s *KafkaSink) Notify(ctx context.Context, e Event) error {
	body, err := e.Encode()
	if err != nil {
		return err
	}
	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(e.Reservation.HallID),
		Value: body,
		Headers: []kgo.RecordHeader{
			{Key: "event-type", Value: []byte(e.Type)},
		},
	}
	if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("Kafkaへの送信に失敗: %w", err)
	}
	return nil
}

// Close は未送信のレコードを送りきってから閉じる
func (s *KafkaSink) Close() {
	s.client.Close()
}
