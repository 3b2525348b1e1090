/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package natsutil publishes sitecheck snapshot events to NATS JetStream.
package natsutil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/carverauto/sitecheck/pkg/logger"
	"github.com/carverauto/sitecheck/pkg/models"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	eventSource = "sitecheck"

	// EventTypeSnapshotCompleted is sent when a device report finished cleanly.
	EventTypeSnapshotCompleted = "com.carverauto.sitecheck.snapshot.completed"
	// EventTypeSnapshotFailed is sent when a device report ended with an error.
	EventTypeSnapshotFailed = "com.carverauto.sitecheck.snapshot.failed"
)

// Publisher is the JetStream publish call used by EventPublisher.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// EventPublisher provides methods for publishing CloudEvents to NATS JetStream.
type EventPublisher struct {
	js      Publisher
	stream  string
	subject string
	logger  logger.Logger
}

// NewEventPublisher creates a publisher that sends to <subject>.<device>.
func NewEventPublisher(js Publisher, streamName, subject string, log logger.Logger) *EventPublisher {
	if log == nil {
		log = logger.NewTestLogger()
	}

	return &EventPublisher{
		js:      js,
		stream:  streamName,
		subject: subject,
		logger:  log,
	}
}

// PublishSnapshotEvent publishes a completed or failed snapshot event for one device.
func (p *EventPublisher) PublishSnapshotEvent(ctx context.Context, data models.SnapshotEventData) error {
	eventType := EventTypeSnapshotCompleted
	if data.Error != "" {
		eventType = EventTypeSnapshotFailed
	}

	now := time.Now().UTC()

	event := models.CloudEvent{
		SpecVersion:     "1.0",
		ID:              uuid.New().String(),
		Source:          eventSource,
		Type:            eventType,
		DataContentType: "application/json",
		Subject:         p.subject + "." + subjectToken(data.Device),
		Time:            &now,
		Data:            data,
	}

	eventBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot event: %w", err)
	}

	ack, err := p.js.Publish(ctx, event.Subject, eventBytes)
	if err != nil {
		return fmt.Errorf("failed to publish snapshot event: %w", err)
	}

	p.logger.Debug().
		Str("event_id", event.ID).
		Str("subject", event.Subject).
		Uint64("seq", ack.Sequence).
		Msg("Published snapshot event")

	return nil
}

// subjectToken makes a device name safe for use as one subject token.
func subjectToken(device string) string {
	token := strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t':
			return '_'
		default:
			return r
		}
	}, device)

	if token == "" {
		return "_"
	}

	return token
}

// ConnectWithSecurity creates a NATS connection, using mTLS when security is set.
func ConnectWithSecurity(natsURL string, security *models.SecurityConfig, log logger.Logger, extraOpts ...nats.Option) (*nats.Conn, error) {
	if log == nil {
		log = logger.NewTestLogger()
	}

	opts := []nats.Option{nats.Name("sitecheck")}

	if security != nil && security.Mode == models.SecurityModeMTLS {
		tlsConf, err := TLSConfig(security)
		if err != nil {
			return nil, fmt.Errorf("failed to build NATS TLS config: %w", err)
		}

		opts = append(opts, nats.Secure(tlsConf))
	}

	opts = append(opts,
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	)

	opts = append(opts, extraOpts...)

	nc, err := nats.Connect(natsURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	log.Info().Str("url", nc.ConnectedUrl()).Msg("Connected to NATS")

	return nc, nil
}

// CreateEventPublisher creates an EventPublisher on nc, creating the stream or
// extending its subjects as needed.
func CreateEventPublisher(ctx context.Context, nc *nats.Conn, cfg *models.NATSConfig, log logger.Logger) (*EventPublisher, error) {
	var (
		js  jetstream.JetStream
		err error
	)

	if cfg.Domain != "" {
		js, err = jetstream.NewWithDomain(nc, cfg.Domain)
		if err != nil {
			return nil, fmt.Errorf("failed to create JetStream context with domain %s: %w", cfg.Domain, err)
		}
	} else {
		js, err = jetstream.New(nc)
		if err != nil {
			return nil, fmt.Errorf("failed to create JetStream context: %w", err)
		}
	}

	if err := ensureStream(ctx, &jetStreamStore{js: js}, cfg.Stream, cfg.Subject+".>"); err != nil {
		return nil, err
	}

	return NewEventPublisher(js, cfg.Stream, cfg.Subject, log), nil
}

type streamStore interface {
	config(ctx context.Context, name string) (*jetstream.StreamConfig, error)
	upsert(ctx context.Context, cfg jetstream.StreamConfig) error
}

type jetStreamStore struct {
	js jetstream.JetStream
}

func (s *jetStreamStore) config(ctx context.Context, name string) (*jetstream.StreamConfig, error) {
	stream, err := s.js.Stream(ctx, name)
	if err != nil {
		return nil, err
	}

	cfg := stream.CachedInfo().Config

	return &cfg, nil
}

func (s *jetStreamStore) upsert(ctx context.Context, cfg jetstream.StreamConfig) error {
	_, err := s.js.CreateOrUpdateStream(ctx, cfg)

	return err
}

func ensureStream(ctx context.Context, store streamStore, name, subject string) error {
	cfg, err := store.config(ctx, name)

	switch {
	case errors.Is(err, jetstream.ErrStreamNotFound):
		cfg = &jetstream.StreamConfig{Name: name}
	case err != nil:
		return fmt.Errorf("failed to look up stream %s: %w", name, err)
	}

	subjects := ensureSubjectList(cfg.Subjects, subject)
	if len(subjects) == len(cfg.Subjects) {
		return nil
	}

	cfg.Subjects = subjects

	if err := store.upsert(ctx, *cfg); err != nil {
		return fmt.Errorf("failed to create or update stream %s: %w", name, err)
	}

	return nil
}

// ensureSubjectList appends subject unless an existing pattern covers it.
func ensureSubjectList(subjects []string, subject string) []string {
	for _, pattern := range subjects {
		if matchesSubject(pattern, subject) {
			return subjects
		}
	}

	return append(subjects, subject)
}

func matchesSubject(pattern, subject string) bool {
	pt := strings.Split(pattern, ".")
	st := strings.Split(subject, ".")

	for i, tok := range pt {
		if tok == ">" {
			return i < len(st)
		}

		if i >= len(st) {
			return false
		}

		if tok != "*" && tok != st[i] {
			return false
		}
	}

	return len(pt) == len(st)
}
