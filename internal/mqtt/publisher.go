package mqtt

import (
	"fmt"

	"cmms-data/internal/config"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Publisher MQTT 发布端封装（通知公告广播用）
type Publisher struct {
	client mqtt.Client
	config *config.MQTTConfig
}

// NewPublisher 连接 Broker 并返回发布端
func NewPublisher(cfg *config.MQTTConfig) (*Publisher, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)

	client := mqtt.NewClient(opts)

	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	return &Publisher{
		client: client,
		config: cfg,
	}, nil
}

// Publish 发布消息到指定主题
func (p *Publisher) Publish(topic string, qos byte, retained bool, payload []byte) error {
	token := p.client.Publish(topic, qos, retained, payload)
	token.Wait()

	if token.Error() != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", topic, token.Error())
	}

	return nil
}

// Disconnect 断开连接
func (p *Publisher) Disconnect() {
	p.client.Disconnect(250)
}

// IsConnected 检查连接状态
func (p *Publisher) IsConnected() bool {
	return p.client.IsConnected()
}
