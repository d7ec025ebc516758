package manifest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/segmentio/kafka-go"
)

// FileName is the manifest's name next to the calendar documents.
const FileName = "manifest.json"

// Entry describes one generated calendar document.
type Entry struct {
	Country     string `json:"country"`
	Path        string `json:"path"`
	Years       string `json:"years"`
	Attribution string `json:"attribution"`
}

// YearSpan formats the covered generation years.
func YearSpan(start, end int) string {
	return fmt.Sprintf("%d-%d", start, end)
}

// Encode renders entries as an indented JSON array. A nil slice encodes as [].
func Encode(entries []Entry) ([]byte, error) {
	if entries == nil {
		entries = []Entry{}
	}
	out, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	return append(out, '\n'), nil
}

// Decode parses a manifest produced by Encode.
func Decode(data []byte) ([]Entry, error) {
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("unmarshal manifest: %w", err)
	}
	return entries, nil
}

// Announcer publishes the latest manifest somewhere other consumers watch.
type Announcer interface {
	Announce(ctx context.Context, manifest []byte) error
}

// KafkaAnnouncer publishes the manifest as a compacted Kafka record.
type KafkaAnnouncer struct {
	writer kafkaMessageWriter
	key    []byte
}

// kafkaMessageWriter abstracts kafka.Writer for testability.
type kafkaMessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewKafkaAnnouncer creates a Kafka announcer.
// bootstrap can be comma-separated brokers.
func NewKafkaAnnouncer(bootstrap, topic, key string) *KafkaAnnouncer {
	var brokers []string
	for _, a := range strings.Split(bootstrap, ",") {
		a = strings.TrimSpace(a)
		if a != "" {
			brokers = append(brokers, a)
		}
	}
	return &KafkaAnnouncer{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
	}, key: []byte(key)}
}

func (k *KafkaAnnouncer) Announce(ctx context.Context, manifest []byte) error {
	if err := k.writer.WriteMessages(ctx, kafka.Message{Key: k.key, Value: manifest}); err != nil {
		return fmt.Errorf("announce manifest: %w", err)
	}
	return nil
}

func (k *KafkaAnnouncer) Close() error { return k.writer.Close() }
