/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package eventbus bridges the in-process event bus to NATS so multiple
// instances see each other's schedule changes.
package eventbus

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/friendsincode/courseboard/internal/events"
)

// subjectPrefix namespaces courseboard events on a shared NATS server.
const subjectPrefix = "courseboard.events."

// relayedKey marks payloads that arrived over NATS so the outbound side
// does not bounce them back.
const relayedKey = "_relayed"

// NATSConfig contains NATS connection configuration.
type NATSConfig struct {
	URL           string
	MaxReconnects int
	ReconnectWait time.Duration
	Timeout       time.Duration
}

// DefaultNATSConfig returns default NATS configuration.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		MaxReconnects: -1, // Unlimited
		ReconnectWait: 2 * time.Second,
		Timeout:       5 * time.Second,
	}
}

// message is the wire envelope. NodeID lets an instance drop its own
// messages when they come back around.
type message struct {
	EventType events.EventType `json:"event_type"`
	Payload   events.Payload   `json:"payload"`
	Timestamp time.Time        `json:"timestamp"`
	NodeID    string           `json:"node_id"`
	MessageID string           `json:"message_id"`
}

// Bridge relays events between the local in-process bus and NATS. Local
// publishes go out on "courseboard.events.<type>"; messages from other
// nodes are re-published on the local bus.
type Bridge struct {
	conn   *nats.Conn
	bus    *events.Bus
	logger zerolog.Logger
	nodeID string
	subs   []*nats.Subscription
	stops  []func()
}

// NewBridge connects to NATS and starts relaying the given event types.
func NewBridge(cfg NATSConfig, bus *events.Bus, relayed []events.EventType, logger zerolog.Logger) (*Bridge, error) {
	conn, err := nats.Connect(cfg.URL,
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.Timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS at %s: %w", cfg.URL, err)
	}

	b := &Bridge{
		conn:   conn,
		bus:    bus,
		logger: logger.With().Str("component", "eventbus").Logger(),
		nodeID: nodeID(),
	}

	for _, eventType := range relayed {
		if err := b.relay(eventType); err != nil {
			b.Close()
			return nil, err
		}
	}

	b.logger.Info().Str("url", cfg.URL).Str("node_id", b.nodeID).Msg("NATS event bridge started")
	return b, nil
}

// relay wires one event type in both directions.
func (b *Bridge) relay(eventType events.EventType) error {
	subject := subjectPrefix + string(eventType)

	// Inbound: NATS -> local bus.
	sub, err := b.conn.Subscribe(subject, func(msg *nats.Msg) {
		var m message
		if err := json.Unmarshal(msg.Data, &m); err != nil {
			b.logger.Debug().Err(err).Str("subject", msg.Subject).Msg("dropping malformed event message")
			return
		}
		if m.NodeID == b.nodeID {
			return
		}
		payload := m.Payload
		if payload == nil {
			payload = events.Payload{}
		}
		payload[relayedKey] = true
		b.bus.Publish(m.EventType, payload)
	})
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", subject, err)
	}
	b.subs = append(b.subs, sub)

	// Outbound: local bus -> NATS.
	localSub := b.bus.Subscribe(eventType)
	done := make(chan struct{})
	b.stops = append(b.stops, func() {
		b.bus.Unsubscribe(eventType, localSub)
		close(done)
	})

	go func() {
		for {
			select {
			case payload, ok := <-localSub:
				if !ok {
					return
				}
				if relayed, _ := payload[relayedKey].(bool); relayed {
					continue
				}
				b.publish(subject, eventType, payload)
			case <-done:
				return
			}
		}
	}()

	return nil
}

func (b *Bridge) publish(subject string, eventType events.EventType, payload events.Payload) {
	data, err := json.Marshal(message{
		EventType: eventType,
		Payload:   payload,
		Timestamp: time.Now(),
		NodeID:    b.nodeID,
		MessageID: uuid.New().String(),
	})
	if err != nil {
		b.logger.Error().Err(err).Str("subject", subject).Msg("failed to marshal event message")
		return
	}
	if err := b.conn.Publish(subject, data); err != nil {
		b.logger.Warn().Err(err).Str("subject", subject).Msg("failed to publish event to NATS")
	}
}

// Close stops the relays and drains the connection.
func (b *Bridge) Close() error {
	for _, stop := range b.stops {
		stop()
	}
	for _, sub := range b.subs {
		_ = sub.Unsubscribe()
	}
	if b.conn != nil {
		if err := b.conn.Drain(); err != nil {
			b.conn.Close()
			return err
		}
	}
	return nil
}

func nodeID() string {
	host, err := os.Hostname()
	if err != nil {
		host = "node"
	}
	return host + "-" + uuid.New().String()[:8]
}
