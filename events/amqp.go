package events

import (
	"context"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

const publishTimeout = 5 * time.Second

// channel amqp091.Channel 中用到的部分
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

// AMQPPublisher 向 direct 交换机发布 JSON 事件，路由键为 <entity>.<action>
type AMQPPublisher struct {
	conn     *amqp091.Connection
	ch       channel
	exchange string
	log      logrus.FieldLogger
}

// NewAMQPPublisher 连接 RabbitMQ 并声明交换机
func NewAMQPPublisher(url, exchange string, log logrus.FieldLogger) (*AMQPPublisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	p, err := newAMQPPublisher(ch, exchange, log)
	if err != nil {
		conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

func newAMQPPublisher(ch channel, exchange string, log logrus.FieldLogger) (*AMQPPublisher, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	err := ch.ExchangeDeclare(
		exchange, // name
		"direct", // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &AMQPPublisher{ch: ch, exchange: exchange, log: log.WithField("exchange", exchange)}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, event RecordEvent) {
	body, err := event.ToJSON()
	if err != nil {
		p.log.WithError(err).Warn("事件序列化失败")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = p.ch.PublishWithContext(
		ctx,
		p.exchange,
		event.RoutingKey(),
		false, // mandatory
		false, // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    event.At,
			Body:         body,
		},
	)
	if err != nil {
		p.log.WithError(err).WithField("routing_key", event.RoutingKey()).Warn("事件发布失败")
		return
	}
	p.log.WithFields(logrus.Fields{
		"routing_key": event.RoutingKey(),
		"id":          event.ID,
	}).Debug("事件已发布")
}

func (p *AMQPPublisher) Close() error {
	if p.ch != nil {
		p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
