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

package models

import "errors"

var (
	errMongoURIRequired        = errors.New("mongo uri is required")
	errMongoDatabaseRequired   = errors.New("mongo database is required")
	errMongoCollectionRequired = errors.New("mongo collection is required")
)

// MongoConfig configures the snapshot document archive.
type MongoConfig struct {
	URI        string   `json:"uri"`
	Database   string   `json:"database"`
	Collection string   `json:"collection"`
	Timeout    Duration `json:"timeout,omitempty"`
}

// Validate ensures the Mongo configuration is complete.
func (c *MongoConfig) Validate() error {
	if c.URI == "" {
		return errMongoURIRequired
	}

	if c.Database == "" {
		return errMongoDatabaseRequired
	}

	if c.Collection == "" {
		return errMongoCollectionRequired
	}

	return nil
}
