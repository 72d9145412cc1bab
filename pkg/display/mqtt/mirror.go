package mqtt

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"example.com/stream_viewer/pkg/display"
)

const publishTimeout = 5 * time.Second

// MirrorConfig holds the broker connection settings
type MirrorConfig struct {
	BrokerURL   string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
}

// Mirror publishes every display update as a retained MQTT message
type Mirror struct {
	cfg    MirrorConfig
	logger *slog.Logger

	mu     sync.RWMutex
	client paho.Client
}

// NewMirror creates a mirror. Start must be called before publishing.
func NewMirror(cfg MirrorConfig, logger *slog.Logger) *Mirror {
	return &Mirror{cfg: cfg, logger: logger}
}

// TopicElement returns the topic an element is published on
func TopicElement(prefix, id string) string {
	return fmt.Sprintf("%s/display/%s", prefix, id)
}

// Start connects to the broker and disconnects when ctx is done
func (m *Mirror) Start(ctx context.Context) error {
	opts := paho.NewClientOptions().
		AddBroker(m.cfg.BrokerURL).
		SetClientID(m.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true)

	if m.cfg.Username != "" {
		opts.SetUsername(m.cfg.Username)
		opts.SetPassword(m.cfg.Password)
	}

	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		m.logger.Error("mqtt connection lost", "error", err)
	})

	client := paho.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}

	m.mu.Lock()
	m.client = client
	m.mu.Unlock()
	m.logger.Info("mqtt mirror connected", "broker", m.cfg.BrokerURL, "prefix", m.cfg.TopicPrefix)

	go func() {
		<-ctx.Done()
		client.Disconnect(100)
	}()

	return nil
}

// SetText publishes the element text as a retained message
func (m *Mirror) SetText(id, text string) error {
	if !display.IsElement(id) {
		return fmt.Errorf("%w: %s", display.ErrMissingElement, id)
	}

	m.mu.RLock()
	client := m.client
	m.mu.RUnlock()
	if client == nil {
		return fmt.Errorf("mqtt mirror not started")
	}

	token := client.Publish(TopicElement(m.cfg.TopicPrefix, id), 1, true, text)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("mqtt publish %s: timeout", id)
	}
	return token.Error()
}
