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

package archive

import (
	"context"
	"fmt"

	"github.com/carverauto/sitecheck/pkg/logger"
	"github.com/carverauto/sitecheck/pkg/models"
	"github.com/carverauto/sitecheck/pkg/natsutil"
	"github.com/carverauto/sitecheck/pkg/snapshot"
	"github.com/nats-io/nats.go"
)

type snapshotPublisher interface {
	PublishSnapshotEvent(ctx context.Context, data models.SnapshotEventData) error
}

// NATSArchiver publishes a CloudEvent per snapshot.
type NATSArchiver struct {
	publisher snapshotPublisher
	conn      *nats.Conn
}

// NewNATSArchiver connects to NATS and prepares the snapshot stream.
func NewNATSArchiver(ctx context.Context, cfg *models.NATSConfig, log logger.Logger) (*NATSArchiver, error) {
	nc, err := natsutil.ConnectWithSecurity(cfg.URL, cfg.Security, log)
	if err != nil {
		return nil, err
	}

	pub, err := natsutil.CreateEventPublisher(ctx, nc, cfg, log)
	if err != nil {
		nc.Close()

		return nil, fmt.Errorf("failed to prepare snapshot stream: %w", err)
	}

	return &NATSArchiver{publisher: pub, conn: nc}, nil
}

// Archive implements Archiver.
func (a *NATSArchiver) Archive(ctx context.Context, snap *snapshot.Snapshot) error {
	return a.publisher.PublishSnapshotEvent(ctx, eventData(snap))
}

// Close drains the NATS connection.
func (a *NATSArchiver) Close(_ context.Context) error {
	if a.conn == nil {
		return nil
	}

	return a.conn.Drain()
}

func eventData(snap *snapshot.Snapshot) models.SnapshotEventData {
	return models.SnapshotEventData{
		Device:     snap.Device,
		ReportPath: snap.ReportPath,
		TakenAt:    snap.TakenAt,
		Sections:   len(snap.Sections),
		Error:      snap.Error,
	}
}
