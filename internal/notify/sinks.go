package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nyaruka/phonenumbers"
	"github.com/segmentio/kafka-go"
	"github.com/twilio/twilio-go"
	api "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"

	"santua/pkg/metrics"
)

// Broadcaster is satisfied by *sync.Hub.
type Broadcaster interface {
	BroadcastJSON(v any)
}

type HubSink struct {
	Hub Broadcaster
}

func (HubSink) Name() string { return "hub" }

func (s HubSink) Notify(_ context.Context, ev Event) error {
	s.Hub.BroadcastJSON(ev)
	return nil
}

// NormalizePhone returns num in E.164 form. Contacts are free text, so
// anything that is not a "+"-prefixed valid number is rejected.
func NormalizePhone(num string) (string, error) {
	num = strings.TrimSpace(num)
	if num == "" {
		return "", errors.New("missing number")
	}
	if num[0] != '+' {
		return "", errors.New("phone number must be in E.164 format with +")
	}
	parsed, err := phonenumbers.Parse(num, "")
	if err != nil || !phonenumbers.IsValidNumber(parsed) {
		return "", errors.New("invalid phone number")
	}
	return phonenumbers.Format(parsed, phonenumbers.E164), nil
}

type SMSSender interface {
	Send(ctx context.Context, to, body string) error
}

type TwilioSender struct {
	From   string
	Client *twilio.RestClient

	// create defaults to Client.Api.CreateMessage.
	create func(*api.CreateMessageParams) (*api.ApiV2010Message, error)
}

func NewTwilioSender(accountSID, authToken, from string) *TwilioSender {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &TwilioSender{From: from, Client: client, create: client.Api.CreateMessage}
}

type twilioResult struct {
	msg *api.ApiV2010Message
	err error
}

// Send returns when ctx ends even if Twilio has not answered. The Twilio
// client takes no context, so the call itself runs on until its own HTTP
// timeout and its result is dropped.
func (t *TwilioSender) Send(ctx context.Context, to, body string) error {
	create := t.create
	if create == nil {
		create = t.Client.Api.CreateMessage
	}
	params := &api.CreateMessageParams{}
	params.SetBody(body)
	params.SetFrom(t.From)
	params.SetTo(to)

	start := time.Now()
	done := make(chan twilioResult, 1)
	go func() {
		msg, err := create(params)
		done <- twilioResult{msg: msg, err: err}
	}()

	var res twilioResult
	select {
	case <-ctx.Done():
		metrics.ExternalAPIDuration.WithLabelValues("twilio", "sms").Observe(time.Since(start).Seconds())
		return fmt.Errorf("twilio create message: %w", ctx.Err())
	case res = <-done:
	}
	metrics.ExternalAPIDuration.WithLabelValues("twilio", "sms").Observe(time.Since(start).Seconds())
	if res.err != nil {
		return fmt.Errorf("twilio create message: %w", res.err)
	}
	if res.msg == nil || res.msg.Sid == nil {
		return errors.New("twilio: no SID returned")
	}
	return nil
}

// SMSSink texts the owner of a lost item when it is matched, provided the
// contact they left is a phone number.
type SMSSink struct {
	Sender SMSSender
	Log    *zap.Logger
}

func (SMSSink) Name() string { return "sms" }

func (s SMSSink) Notify(ctx context.Context, ev Event) error {
	if ev.Type != EventMatch || ev.Lost == nil {
		return nil
	}
	to, err := NormalizePhone(ev.Lost.Contact)
	if err != nil {
		if s.Log != nil {
			s.Log.Debug("lost contact is not a phone, skipping sms",
				zap.String("key", ev.Key),
				zap.Error(err),
			)
		}
		return nil
	}
	return s.Sender.Send(ctx, to, matchText(ev))
}

func matchText(ev Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Santua: encontraron tu %s %s.", ev.Category, ev.Key)
	if ev.Found != nil && strings.TrimSpace(ev.Found.Contact) != "" {
		fmt.Fprintf(&b, " Contacto de quien lo encontró: %s", strings.TrimSpace(ev.Found.Contact))
	}
	return b.String()
}

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}
}

// KafkaSink appends every event to a topic, keyed by identifier so events
// for one key stay ordered within a partition.
type KafkaSink struct {
	Writer MessageWriter
}

func (KafkaSink) Name() string { return "kafka" }

func (s KafkaSink) Notify(ctx context.Context, ev Event) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(ev.Key),
		Value: value,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(ev.Type)},
		},
	}
	if err := s.Writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write kafka: %w", err)
	}
	return nil
}
