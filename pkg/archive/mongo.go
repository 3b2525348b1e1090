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
	"time"

	"github.com/carverauto/sitecheck/pkg/logger"
	"github.com/carverauto/sitecheck/pkg/models"
	"github.com/carverauto/sitecheck/pkg/snapshot"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const defaultMongoTimeout = 10 * time.Second

// Document is the stored form of one snapshot.
type Document struct {
	Device     string            `bson:"device"`
	TakenAt    time.Time         `bson:"taken_at"`
	ReportPath string            `bson:"report_path"`
	Error      string            `bson:"error,omitempty"`
	Sections   []SectionDocument `bson:"sections"`
}

// SectionDocument is one report section.
type SectionDocument struct {
	Label string   `bson:"label"`
	Lines []string `bson:"lines"`
}

// NewDocument converts a snapshot to its stored form.
func NewDocument(snap *snapshot.Snapshot) Document {
	sections := make([]SectionDocument, 0, len(snap.Sections))
	for _, s := range snap.Sections {
		sections = append(sections, SectionDocument{Label: s.Label, Lines: s.Lines})
	}

	return Document{
		Device:     snap.Device,
		TakenAt:    snap.TakenAt.UTC(),
		ReportPath: snap.ReportPath,
		Error:      snap.Error,
		Sections:   sections,
	}
}

type inserter interface {
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
}

// MongoArchiver inserts one document per snapshot.
type MongoArchiver struct {
	coll    inserter
	client  *mongo.Client
	timeout time.Duration
	logger  logger.Logger
}

// NewMongoArchiver connects to MongoDB and pings the primary.
func NewMongoArchiver(ctx context.Context, cfg *models.MongoConfig, log logger.Logger) (*MongoArchiver, error) {
	if log == nil {
		log = logger.NewTestLogger()
	}

	timeout := time.Duration(cfg.Timeout)
	if timeout <= 0 {
		timeout = defaultMongoTimeout
	}

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)

		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	log.Info().
		Str("database", cfg.Database).
		Str("collection", cfg.Collection).
		Msg("Connected to mongo snapshot archive")

	return &MongoArchiver{
		coll:    client.Database(cfg.Database).Collection(cfg.Collection),
		client:  client,
		timeout: timeout,
		logger:  log,
	}, nil
}

// Archive implements Archiver.
func (a *MongoArchiver) Archive(ctx context.Context, snap *snapshot.Snapshot) error {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	res, err := a.coll.InsertOne(ctx, NewDocument(snap))
	if err != nil {
		return fmt.Errorf("failed to insert snapshot document: %w", err)
	}

	a.logger.Debug().
		Str("device", snap.Device).
		Interface("id", res.InsertedID).
		Msg("Archived snapshot document")

	return nil
}

// Close disconnects the client.
func (a *MongoArchiver) Close(ctx context.Context) error {
	if a.client == nil {
		return nil
	}

	return a.client.Disconnect(ctx)
}
