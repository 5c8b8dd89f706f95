package eventbroker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/jupiterclapton/cenackle/livefeed/internal/core/ports"
)

const (
	StreamName     = "POSTS"
	SubjectPattern = "posts.>"

	// posts.changed.created / updated / deleted
	changeSubjectPrefix = "posts.changed."
	changeSubjectAll    = changeSubjectPrefix + "*"
)

// NatsNotifier publie via JetStream (persisté, ack serveur) et écoute en core NATS :
// un abonné n'a besoin que des changements survenus après son snapshot initial.
type NatsNotifier struct {
	nc *nats.Conn
	js jetstream.JetStream
}

// NewNatsNotifier s'assure que le Stream existe (idempotent).
func NewNatsNotifier(ctx context.Context, nc *nats.Conn) (*NatsNotifier, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("jetstream init: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     StreamName,
		Subjects: []string{SubjectPattern},
		Storage:  jetstream.FileStorage,
		MaxAge:   24 * time.Hour,
		Replicas: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("create stream: %w", err)
	}

	return &NatsNotifier{nc: nc, js: js}, nil
}

var _ ports.ChangeNotifier = (*NatsNotifier)(nil)

func (n *NatsNotifier) PublishChange(ctx context.Context, evt ports.ChangeEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := &nats.Msg{
		Subject: changeSubjectPrefix + evt.Type,
		Data:    data,
		Header:  nats.Header{},
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(msg.Header))

	ack, err := n.js.PublishMsg(ctx, msg)
	if err != nil {
		return fmt.Errorf("nats publish: %w", err)
	}

	slog.Debug("📢 Change published", "subject", msg.Subject, "post_id", evt.PostID, "seq", ack.Sequence)
	return nil
}

func (n *NatsNotifier) Subscribe(ctx context.Context, onChange func(context.Context, ports.ChangeEvent)) (func(), error) {
	tracer := otel.Tracer("livefeed")

	sub, err := n.nc.Subscribe(changeSubjectAll, func(msg *nats.Msg) {
		msgCtx := otel.GetTextMapPropagator().Extract(context.Background(), propagation.HeaderCarrier(msg.Header))
		msgCtx, span := tracer.Start(msgCtx, "process_post_changed", trace.WithSpanKind(trace.SpanKindConsumer))
		defer span.End()

		var evt ports.ChangeEvent
		if err := json.Unmarshal(msg.Data, &evt); err != nil {
			span.RecordError(err)
			slog.Error("❌ Invalid change event", "subject", msg.Subject, "error", err)
			return
		}
		span.SetAttributes(attribute.String("post.id", evt.PostID), attribute.String("change.type", evt.Type))

		onChange(msgCtx, evt)
	})
	if err != nil {
		return nil, fmt.Errorf("nats subscribe: %w", err)
	}

	return func() {
		if err := sub.Unsubscribe(); err != nil && err != nats.ErrConnectionClosed {
			slog.Warn("⚠️ NATS unsubscribe failed", "error", err)
		}
	}, nil
}
