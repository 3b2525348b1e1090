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
	"errors"
	"testing"
	"time"

	"github.com/carverauto/sitecheck/pkg/logger"
	"github.com/carverauto/sitecheck/pkg/models"
	"github.com/carverauto/sitecheck/pkg/snapshot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	errFirst  = errors.New("first down")
	errInsert = errors.New("insert failed")
)

type fakeArchiver struct {
	calls  int
	err    error
	closed bool
}

func (f *fakeArchiver) Archive(_ context.Context, _ *snapshot.Snapshot) error {
	f.calls++

	return f.err
}

func (f *fakeArchiver) Close(_ context.Context) error {
	f.closed = true

	return nil
}

type fakePublisher struct {
	got models.SnapshotEventData
}

func (f *fakePublisher) PublishSnapshotEvent(_ context.Context, data models.SnapshotEventData) error {
	f.got = data

	return nil
}

type fakeInserter struct {
	doc interface{}
	err error
}

func (f *fakeInserter) InsertOne(_ context.Context, doc interface{}, _ ...*options.InsertOneOptions) (*mongo.InsertOneResult, error) {
	if f.err != nil {
		return nil, f.err
	}

	f.doc = doc

	return &mongo.InsertOneResult{InsertedID: "abc"}, nil
}

func testSnapshot() *snapshot.Snapshot {
	return &snapshot.Snapshot{
		Device:     "leaf1",
		ReportPath: "/srv/reports/2026-10-14_leaf1_09_30.txt",
		TakenAt:    time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC),
		Sections: []snapshot.Section{
			{Label: "show inventory", Lines: []string{`1 : {"modelName": "SFP-10G-SR"}`}},
			{Label: "show vlan", Lines: []string{}},
		},
	}
}

func TestMultiArchiveTriesAll(t *testing.T) {
	first := &fakeArchiver{err: errFirst}
	second := &fakeArchiver{}

	err := Multi{first, second}.Archive(context.Background(), testSnapshot())
	require.ErrorIs(t, err, errFirst)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)

	require.NoError(t, Multi{first, second}.Close(context.Background()))
	assert.True(t, first.closed)
	assert.True(t, second.closed)

	assert.NoError(t, Multi{}.Archive(context.Background(), testSnapshot()))
}

func TestNATSArchiver(t *testing.T) {
	pub := &fakePublisher{}
	a := &NATSArchiver{publisher: pub}

	snap := testSnapshot()
	snap.Error = "connection refused"

	require.NoError(t, a.Archive(context.Background(), snap))
	assert.Equal(t, models.SnapshotEventData{
		Device:     "leaf1",
		ReportPath: snap.ReportPath,
		TakenAt:    snap.TakenAt,
		Sections:   2,
		Error:      "connection refused",
	}, pub.got)
	assert.NoError(t, a.Close(context.Background()))
}

func TestMongoArchiverInsertsDocument(t *testing.T) {
	ins := &fakeInserter{}
	a := &MongoArchiver{coll: ins, timeout: time.Second, logger: logger.NewTestLogger()}

	require.NoError(t, a.Archive(context.Background(), testSnapshot()))

	doc, ok := ins.doc.(Document)
	require.True(t, ok)
	assert.Equal(t, "leaf1", doc.Device)
	require.Len(t, doc.Sections, 2)
	assert.Equal(t, "show inventory", doc.Sections[0].Label)

	raw, err := bson.Marshal(doc)
	require.NoError(t, err)

	var m bson.M
	require.NoError(t, bson.Unmarshal(raw, &m))
	assert.Equal(t, "leaf1", m["device"])
	assert.Contains(t, m, "taken_at")
	assert.Contains(t, m, "report_path")
	assert.Contains(t, m, "sections")
	assert.NotContains(t, m, "error", "empty error is omitted")
}

func TestMongoArchiverInsertError(t *testing.T) {
	a := &MongoArchiver{coll: &fakeInserter{err: errInsert}, timeout: time.Second, logger: logger.NewTestLogger()}

	err := a.Archive(context.Background(), testSnapshot())
	assert.ErrorIs(t, err, errInsert)
}
