package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/MrEthical07/goCred/otp"
	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
)

// DefaultExchange is the topic exchange notifications are published to.
const DefaultExchange = "gocred.notifications"

// Publisher is the subset of *amqp091.Channel used by [AMQPDispatcher].
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
}

// Notification is the JSON body published for each dispatch.
type Notification struct {
	ID          string    `json:"id"`
	Channel     string    `json:"channel"`
	Destination string    `json:"destination"`
	Message     string    `json:"message"`
	CreatedAt   time.Time `json:"created_at"`
}

// AMQPDispatcher publishes notifications to a RabbitMQ topic exchange with
// routing key notification.otp.<channel>.
type AMQPDispatcher struct {
	publisher Publisher
	exchange  string
	conn      *amqp091.Connection
	channel   *amqp091.Channel
	now       func() time.Time
}

// NewAMQPDispatcher wraps an existing publisher. The exchange must already
// be declared.
func NewAMQPDispatcher(publisher Publisher, exchange string) *AMQPDispatcher {
	if exchange == "" {
		exchange = DefaultExchange
	}
	return &AMQPDispatcher{
		publisher: publisher,
		exchange:  exchange,
		now:       time.Now,
	}
}

func sanitizeAMQPURL(raw string) (string, error) {
	clean := strings.TrimSpace(raw)
	clean = strings.Trim(clean, "\"'")
	if !strings.HasSuffix(clean, "/") {
		clean += "/"
	}
	u, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("AMQP scheme must be either 'amqp://' or 'amqps://'")
	}
	return clean, nil
}

// DialAMQP connects to RabbitMQ, declares a durable topic exchange and
// returns a dispatcher owning the connection. Call Close on shutdown.
func DialAMQP(amqpURL, exchange string) (*AMQPDispatcher, error) {
	cleanURL, err := sanitizeAMQPURL(amqpURL)
	if err != nil {
		return nil, err
	}

	conn, err := amqp091.Dial(cleanURL)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	if exchange == "" {
		exchange = DefaultExchange
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	d := NewAMQPDispatcher(ch, exchange)
	d.conn = conn
	d.channel = ch
	return d, nil
}

// RoutingKey returns the routing key used for channel.
func RoutingKey(channel otp.Channel) string {
	return "notification.otp." + string(channel)
}

// Send implements otp.Dispatcher.
func (d *AMQPDispatcher) Send(ctx context.Context, channel otp.Channel, destination, message string) error {
	n := Notification{
		ID:          uuid.NewString(),
		Channel:     string(channel),
		Destination: destination,
		Message:     message,
		CreatedAt:   d.now().UTC(),
	}
	body, err := json.Marshal(n)
	if err != nil {
		return err
	}

	err = d.publisher.PublishWithContext(ctx,
		d.exchange,
		RoutingKey(channel),
		false,
		false,
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    n.ID,
			Timestamp:    n.CreatedAt,
			Body:         body,
		})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", d.exchange, err)
	}
	return nil
}

// Close releases the channel and connection opened by DialAMQP.
func (d *AMQPDispatcher) Close() error {
	var errs []error
	if d.channel != nil {
		errs = append(errs, d.channel.Close())
	}
	if d.conn != nil {
		errs = append(errs, d.conn.Close())
	}
	return errors.Join(errs...)
}
