package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"estate_office/models"
)

// PublisherConfig describes where notifications are pushed
type PublisherConfig struct {
	URL          string
	ExchangeName string
	ExchangeType string // fanout, topic, direct
}

// Publisher pushes notifications onto a RabbitMQ exchange
type Publisher struct {
	config     PublisherConfig
	connection *amqp.Connection
	channel    *amqp.Channel
}

// notificationMessage is the wire body consumers of the exchange read
type notificationMessage struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	ListingID *string   `json:"listing_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func NewPublisher(cfg PublisherConfig) (*Publisher, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("broker: RabbitMQ URL is required")
	}
	if cfg.ExchangeName == "" {
		return nil, fmt.Errorf("broker: exchange name is required")
	}
	if cfg.ExchangeType == "" {
		cfg.ExchangeType = amqp.ExchangeTopic
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("broker: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("broker: open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		cfg.ExchangeName,
		cfg.ExchangeType,
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("broker: declare exchange %q: %w", cfg.ExchangeName, err)
	}

	log.Printf("Broker: publishing to exchange %s (%s)", cfg.ExchangeName, cfg.ExchangeType)
	return &Publisher{config: cfg, connection: conn, channel: ch}, nil
}

// RoutingKey is "<type>.<user id>" so consumers can bind per user or per type
func RoutingKey(n models.Notification) string {
	return fmt.Sprintf("%s.%s", n.Type, n.UserID)
}

func encode(n models.Notification) ([]byte, error) {
	msg := notificationMessage{
		ID:        n.ID.String(),
		UserID:    n.UserID.String(),
		Type:      string(n.Type),
		Title:     n.Title,
		Message:   n.Message,
		CreatedAt: n.CreatedAt,
	}
	if n.ListingID != nil {
		s := n.ListingID.String()
		msg.ListingID = &s
	}
	return json.Marshal(msg)
}

// PublishNotification sends one notification as a persistent JSON message
func (p *Publisher) PublishNotification(ctx context.Context, n models.Notification) error {
	if p.channel == nil || p.connection == nil || p.connection.IsClosed() {
		return fmt.Errorf("broker: not connected")
	}
	body, err := encode(n)
	if err != nil {
		return fmt.Errorf("broker: encode: %w", err)
	}

	err = p.channel.PublishWithContext(ctx,
		p.config.ExchangeName,
		RoutingKey(n),
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    n.ID.String(),
			Timestamp:    n.CreatedAt,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("broker: publish: %w", err)
	}
	return nil
}

func (p *Publisher) Close() error {
	var firstErr error
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			firstErr = err
		}
		p.channel = nil
	}
	if p.connection != nil {
		if err := p.connection.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		p.connection = nil
	}
	log.Println("Broker: closed")
	return firstErr
}
