package mqtt

import (
	"errors"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"
)

// Config holds broker connection settings.
type Config struct {
	Broker   string
	ClientID string
	Username string
	Password string
}

// Client is a thin wrapper around the paho client that keeps reconnecting
// in the background and remembers subscriptions are handled by paho itself.
type Client struct {
	client paho.Client
	closed chan struct{}
}

var ErrNotConnected = errors.New("mqtt client not connected")

func New(cfg Config) *Client {
	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		if cfg.Password != "" {
			opts.SetPassword(cfg.Password)
		}
	}

	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Warn().Err(err).Msg("mqtt disconnected")
	}
	opts.OnConnect = func(paho.Client) {
		log.Info().Str("broker", cfg.Broker).Msg("mqtt connected")
	}

	client := paho.NewClient(opts)
	client.Connect()

	return &Client{client: client, closed: make(chan struct{})}
}

func (c *Client) Publish(topic string, qos byte, retained bool, payload string) error {
	if !c.client.IsConnectionOpen() {
		return ErrNotConnected
	}
	token := c.client.Publish(topic, qos, retained, payload)
	token.Wait()
	return token.Error()
}

func (c *Client) Subscribe(topic string, callback func(message string)) error {
	token := c.client.Subscribe(topic, 0, func(_ paho.Client, msg paho.Message) {
		callback(string(msg.Payload()))
	})
	token.Wait()
	return token.Error()
}

func (c *Client) Close() {
	select {
	case <-c.closed:
		return
	default:
		close(c.closed)
	}
	c.client.Disconnect(250)
}
