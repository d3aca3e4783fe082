package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	dErrors "clubdomains/pkg/domain-errors"
)

// EnsureTopics creates the request and result topics when missing. Topics are
// single-partition so offsets are a total order over requests.
func EnsureTopics(ctx context.Context, client *kgo.Client, topics ...string) error {
	adm := kadm.NewClient(client)
	resp, err := adm.CreateTopics(ctx, 1, 1, nil, topics...)
	if err != nil {
		return fmt.Errorf("create topics: %w", err)
	}
	for topic, r := range resp {
		if r.Err != nil && !errors.Is(r.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", topic, r.Err)
		}
	}
	return nil
}

// KafkaPublisher writes requests to a topic keyed by club name.
// Sequence is the record offset plus one, matching Log positions.
type KafkaPublisher struct {
	client *kgo.Client
	topic  string
}

func NewKafkaPublisher(client *kgo.Client, topic string) (*KafkaPublisher, error) {
	if client == nil {
		return nil, fmt.Errorf("kafka client is required")
	}
	if topic == "" {
		return nil, fmt.Errorf("request topic is required")
	}
	return &KafkaPublisher{client: client, topic: topic}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, req VerificationRequest) (VerificationRequest, error) {
	value, err := json.Marshal(req)
	if err != nil {
		return VerificationRequest{}, dErrors.Wrap(err, dErrors.CodeInternal, "encode verification request")
	}
	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(req.Name),
		Value: value,
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return VerificationRequest{}, dErrors.Wrap(err, dErrors.CodeDependency, "publish verification request")
	}
	req.Sequence = uint64(record.Offset) + 1
	return req, nil
}
