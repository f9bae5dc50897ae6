package events

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"

	kafka "github.com/segmentio/kafka-go"
)

const (
	TypeVersionCommitted  = "version_committed"
	TypeDocumentPublished = "document_published"
	TypeDocumentDeleted   = "document_deleted"
)

// Event 发布到 Kafka 的生命周期事件,下游消费者按 document_id 分区消费
type Event struct {
	Type          string    `json:"type"`
	DocumentID    string    `json:"document_id"`
	VersionID     string    `json:"version_id,omitempty"`
	VersionNumber int       `json:"version_number,omitempty"`
	Checksum      string    `json:"checksum,omitempty"`
	Deduplicated  bool      `json:"deduplicated,omitempty"`
	ActorID       string    `json:"actor_id,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

type Publisher struct {
	writer *kafka.Writer
}

// NewPublisher brokers 为空时返回 nil,Publish 对 nil 接收者是空操作
func NewPublisher(brokers, topic string) *Publisher {
	if brokers == "" || topic == "" {
		log.Printf("event publisher disabled (missing kafka config)")
		return nil
	}
	return &Publisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(splitBrokers(brokers)...),
			Topic:    topic,
			Balancer: &kafka.Hash{},
		},
	}
}

// Publish 尽力而为:事件丢失只记日志,不影响请求路径
func (p *Publisher) Publish(ctx context.Context, evt Event) {
	if p == nil || p.writer == nil {
		return
	}
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now()
	}
	value, err := json.Marshal(evt)
	if err != nil {
		log.Printf("marshal event: %v", err)
		return
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(evt.DocumentID),
		Value: value,
	}); err != nil {
		log.Printf("publish event %s: %v", evt.Type, err)
	}
}

func (p *Publisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

func splitBrokers(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
