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

package natsutil

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/carverauto/sitecheck/pkg/models"
	"github.com/nats-io/nats.go/jetstream"
)

var errPublish = errors.New("no responders")

type fakePublisher struct {
	subject string
	data    []byte
	err     error
}

func (f *fakePublisher) Publish(_ context.Context, subject string, data []byte, _ ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	if f.err != nil {
		return nil, f.err
	}

	f.subject = subject
	f.data = data

	return &jetstream.PubAck{Stream: "sitecheck", Sequence: 7}, nil
}

type fakeStore struct {
	cfg      *jetstream.StreamConfig
	lookErr  error
	upserted *jetstream.StreamConfig
}

func (f *fakeStore) config(_ context.Context, _ string) (*jetstream.StreamConfig, error) {
	if f.lookErr != nil {
		return nil, f.lookErr
	}

	return f.cfg, nil
}

func (f *fakeStore) upsert(_ context.Context, cfg jetstream.StreamConfig) error {
	f.upserted = &cfg

	return nil
}

func TestPublishSnapshotEvent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		data     models.SnapshotEventData
		wantType string
		wantSubj string
	}{
		{
			name:     "completed",
			data:     models.SnapshotEventData{Device: "leaf1", ReportPath: "r.txt", Sections: 9},
			wantType: EventTypeSnapshotCompleted,
			wantSubj: "sitecheck.snapshots.leaf1",
		},
		{
			name:     "failed with dotted device",
			data:     models.SnapshotEventData{Device: "leaf2.dc1", Error: "connection refused"},
			wantType: EventTypeSnapshotFailed,
			wantSubj: "sitecheck.snapshots.leaf2_dc1",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			pub := &fakePublisher{}
			p := NewEventPublisher(pub, "sitecheck", "sitecheck.snapshots", nil)

			tc.data.TakenAt = time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)
			if err := p.PublishSnapshotEvent(context.Background(), tc.data); err != nil {
				t.Fatalf("PublishSnapshotEvent: %v", err)
			}

			if pub.subject != tc.wantSubj {
				t.Fatalf("subject = %q, want %q", pub.subject, tc.wantSubj)
			}

			var event struct {
				SpecVersion string                   `json:"specversion"`
				ID          string                   `json:"id"`
				Type        string                   `json:"type"`
				Source      string                   `json:"source"`
				Subject     string                   `json:"subject"`
				Data        models.SnapshotEventData `json:"data"`
			}

			if err := json.Unmarshal(pub.data, &event); err != nil {
				t.Fatalf("unmarshal event: %v", err)
			}

			if event.Type != tc.wantType || event.SpecVersion != "1.0" || event.ID == "" || event.Source != "sitecheck" {
				t.Fatalf("unexpected envelope: %+v", event)
			}

			if event.Subject != tc.wantSubj {
				t.Fatalf("event subject = %q, want %q", event.Subject, tc.wantSubj)
			}

			if event.Data.Device != tc.data.Device || event.Data.Error != tc.data.Error || !event.Data.TakenAt.Equal(tc.data.TakenAt) {
				t.Fatalf("unexpected data: %+v", event.Data)
			}
		})
	}
}

func TestPublishSnapshotEventError(t *testing.T) {
	t.Parallel()

	p := NewEventPublisher(&fakePublisher{err: errPublish}, "sitecheck", "sitecheck.snapshots", nil)

	err := p.PublishSnapshotEvent(context.Background(), models.SnapshotEventData{Device: "leaf1"})
	if !errors.Is(err, errPublish) {
		t.Fatalf("expected wrapped publish error, got %v", err)
	}
}

func TestEnsureStream(t *testing.T) {
	t.Parallel()

	t.Run("creates missing stream", func(t *testing.T) {
		t.Parallel()

		store := &fakeStore{lookErr: jetstream.ErrStreamNotFound}
		if err := ensureStream(context.Background(), store, "sitecheck", "sitecheck.snapshots.>"); err != nil {
			t.Fatalf("ensureStream: %v", err)
		}

		if store.upserted == nil || store.upserted.Name != "sitecheck" ||
			len(store.upserted.Subjects) != 1 || store.upserted.Subjects[0] != "sitecheck.snapshots.>" {
			t.Fatalf("unexpected stream config: %+v", store.upserted)
		}
	})

	t.Run("leaves covering stream alone", func(t *testing.T) {
		t.Parallel()

		store := &fakeStore{cfg: &jetstream.StreamConfig{Name: "sitecheck", Subjects: []string{"sitecheck.>"}}}
		if err := ensureStream(context.Background(), store, "sitecheck", "sitecheck.snapshots.>"); err != nil {
			t.Fatalf("ensureStream: %v", err)
		}

		if store.upserted != nil {
			t.Fatalf("stream should not be updated, got %+v", store.upserted)
		}
	})

	t.Run("extends existing stream", func(t *testing.T) {
		t.Parallel()

		store := &fakeStore{cfg: &jetstream.StreamConfig{Name: "events", Subjects: []string{"events.syslog.*"}, MaxAge: time.Hour}}
		if err := ensureStream(context.Background(), store, "events", "sitecheck.snapshots.>"); err != nil {
			t.Fatalf("ensureStream: %v", err)
		}

		if store.upserted == nil || len(store.upserted.Subjects) != 2 || store.upserted.MaxAge != time.Hour {
			t.Fatalf("unexpected stream config: %+v", store.upserted)
		}
	})

	t.Run("lookup error", func(t *testing.T) {
		t.Parallel()

		store := &fakeStore{lookErr: errPublish}
		if err := ensureStream(context.Background(), store, "sitecheck", "sitecheck.snapshots.>"); !errors.Is(err, errPublish) {
			t.Fatalf("expected lookup error, got %v", err)
		}
	})
}

func TestEnsureSubjectList(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		subjects []string
		subject  string
		want     []string
	}{
		{
			name:     "adds subject when list empty",
			subjects: nil,
			subject:  "sitecheck.snapshots.>",
			want:     []string{"sitecheck.snapshots.>"},
		},
		{
			name:     "keeps list when wildcard matches",
			subjects: []string{"sitecheck.*.>"},
			subject:  "sitecheck.snapshots.>",
			want:     []string{"sitecheck.*.>"},
		},
		{
			name:     "keeps list when greater wildcard matches",
			subjects: []string{"sitecheck.>"},
			subject:  "sitecheck.snapshots.>",
			want:     []string{"sitecheck.>"},
		},
		{
			name:     "appends when unmatched",
			subjects: []string{"events.syslog.*"},
			subject:  "sitecheck.snapshots.>",
			want:     []string{"events.syslog.*", "sitecheck.snapshots.>"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			result := ensureSubjectList(append([]string(nil), tc.subjects...), tc.subject)

			if len(result) != len(tc.want) {
				t.Fatalf("expected %d subjects, got %d", len(tc.want), len(result))
			}

			for i := range tc.want {
				if tc.want[i] != result[i] {
					t.Fatalf("result[%d] = %q, want %q", i, result[i], tc.want[i])
				}
			}
		})
	}
}

func TestMatchesSubject(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		pattern  string
		subject  string
		expected bool
	}{
		{"exact match", "sitecheck.snapshots.leaf1", "sitecheck.snapshots.leaf1", true},
		{"single wildcard", "sitecheck.*.leaf1", "sitecheck.snapshots.leaf1", true},
		{"greater wildcard", "sitecheck.>", "sitecheck.snapshots.leaf1", true},
		{"greater needs a token", "sitecheck.snapshots.>", "sitecheck.snapshots", false},
		{"no match length", "sitecheck.*", "sitecheck.snapshots.leaf1", false},
		{"no match tokens", "events.syslog.*", "sitecheck.snapshots.leaf1", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := matchesSubject(tc.pattern, tc.subject); got != tc.expected {
				t.Fatalf("matchesSubject(%q, %q) = %t, want %t", tc.pattern, tc.subject, got, tc.expected)
			}
		})
	}
}

func TestSubjectToken(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]string{"leaf1": "leaf1", "core.dc1": "core_dc1", "a b>*": "a_b__", "": "_"} {
		if got := subjectToken(in); got != want {
			t.Fatalf("subjectToken(%q) = %q, want %q", in, got, want)
		}
	}
}
