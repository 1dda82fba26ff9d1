package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
	"liyu1981.xyz/plant-care-service/pkg/common"
	"liyu1981.xyz/plant-care-service/pkg/models"
)

type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	ClientID string
	// MaxRetries bounds the connect attempts.
	MaxRetries int
}

// Connect dials the broker with exponential backoff and disconnects when ctx ends.
func Connect(ctx context.Context, cfg Config) (paho.Client, error) {
	logger := common.GetCategoryLogger(common.LoggerNameDispatcher, common.LoggerCategoryEgress)

	connAddr := fmt.Sprintf("tcp://%s:%d", cfg.Host, cfg.Port)

	opts := paho.NewClientOptions()
	opts.AddBroker(connAddr)
	opts.SetUsername(cfg.User)
	opts.SetPassword(cfg.Password)
	opts.SetClientID(cfg.ClientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 10 * time.Second
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 5
	}

	var client paho.Client
	err := backoff.Retry(func() error {
		client = paho.NewClient(opts)
		if token := client.Connect(); token.Wait() && token.Error() != nil {
			logger.Warn("Failed to connect to MQTT broker", zap.String("broker", connAddr), zap.Error(token.Error()))
			return token.Error()
		}
		return nil
	}, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(maxRetries-1)), ctx))
	if err != nil {
		return nil, fmt.Errorf("could not establish MQTT connection after retries: %w", err)
	}

	logger.Info("Connected to MQTT broker", zap.String("broker", connAddr))

	go func() {
		<-ctx.Done()
		client.Disconnect(250)
		logger.Info("MQTT connection is closed")
	}()

	return client, nil
}

// Client is the part of paho.Client the publisher needs.
type Client interface {
	IsConnected() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

// Publisher sends actuation commands and notifications at QoS 0. A command
// lost on the way is never redelivered.
type Publisher struct {
	client  Client
	prefix  string
	timeout time.Duration
}

func NewPublisher(client Client, topicPrefix string) *Publisher {
	if topicPrefix == "" {
		topicPrefix = "plantcare"
	}
	return &Publisher{client: client, prefix: topicPrefix, timeout: 2 * time.Second}
}

func (p *Publisher) Name() string { return "mqtt" }

type actuateCommand struct {
	ID              string `json:"id"`
	ZoneID          string `json:"zone_id"`
	Reason          string `json:"reason"`
	DurationSeconds int64  `json:"duration_seconds"`
	Timestamp       string `json:"timestamp"`
}

func (p *Publisher) ActuationTopic(zoneID string) string {
	return fmt.Sprintf("%s/zones/%s/actuate", p.prefix, zoneID)
}

// Topic maps an event to its notification topic.
func (p *Publisher) Topic(ev models.Event) string {
	switch e := ev.(type) {
	case models.StateChanged:
		return fmt.Sprintf("%s/entities/%s/state/%s", p.prefix, e.EntityID, e.Check)
	case models.DLIFinalized:
		return fmt.Sprintf("%s/entities/%s/dli", p.prefix, e.EntityID)
	default:
		return fmt.Sprintf("%s/events/%s", p.prefix, ev.EventType())
	}
}

func (p *Publisher) publish(topic string, payload any) error {
	if !p.client.IsConnected() {
		return fmt.Errorf("mqtt publish %s: not connected", topic)
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	token := p.client.Publish(topic, 0, false, b)
	if !token.WaitTimeout(p.timeout) {
		return fmt.Errorf("mqtt publish %s: timeout", topic)
	}
	return token.Error()
}

// Actuate sends one watering command for the zone.
func (p *Publisher) Actuate(_ context.Context, ev models.IrrigationEvent) error {
	return p.publish(p.ActuationTopic(ev.ZoneID), actuateCommand{
		ID:              ev.ID,
		ZoneID:          ev.ZoneID,
		Reason:          string(ev.Reason),
		DurationSeconds: int64(ev.Duration / time.Second),
		Timestamp:       ev.Timestamp.UTC().Format(time.RFC3339),
	})
}

// Deliver publishes a notification. It never actuates, irrigation events
// are only announced.
func (p *Publisher) Deliver(_ context.Context, ev models.Event) error {
	return p.publish(p.Topic(ev), ev)
}
