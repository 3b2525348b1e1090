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

// Package archive hands finished snapshots to secondary sinks.
package archive

import (
	"context"
	"errors"
	"fmt"

	"github.com/carverauto/sitecheck/pkg/snapshot"
)

// Archiver stores a finished snapshot.
type Archiver interface {
	Archive(ctx context.Context, snap *snapshot.Snapshot) error
}

// Closer is implemented by archivers that hold connections.
type Closer interface {
	Close(ctx context.Context) error
}

// Multi fans a snapshot out to every archiver. All archivers are tried and
// their errors joined.
type Multi []Archiver

// Archive implements Archiver.
func (m Multi) Archive(ctx context.Context, snap *snapshot.Snapshot) error {
	var errs []error

	for _, a := range m {
		if err := a.Archive(ctx, snap); err != nil {
			errs = append(errs, fmt.Errorf("%T: %w", a, err))
		}
	}

	return errors.Join(errs...)
}

// Close closes every archiver that implements Closer.
func (m Multi) Close(ctx context.Context) error {
	var errs []error

	for _, a := range m {
		if c, ok := a.(Closer); ok {
			if err := c.Close(ctx); err != nil {
				errs = append(errs, err)
			}
		}
	}

	return errors.Join(errs...)
}
