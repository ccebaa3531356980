// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package storage provides the storage abstraction layer for obsim.
//
// This package defines the interfaces the search layer reads corpora and
// allocations through. Two backends implement them:
//
//   - storage/badger: an embedded BadgerDB store filled by the import command
//   - storage/sqlstore: the production relational schema (PostgreSQL), read
//     through database/sql
//
// # Architecture
//
//   - CorpusSource: breakdowns by tenant and style type, style type listing,
//     and lookup by layout code
//   - AllocationSource: allocations scoped to a set of layout ids
//   - CorpusStore: a writable CorpusSource and AllocationSource used by import
//   - ImportRepository: bookkeeping of completed imports
//
// # Usage
//
// Use in tests with in-memory storage:
//
//	store, backend, err := badger.NewMemoryRepositories()
//	if err != nil {
//	    t.Fatal(err)
//	}
//	defer backend.Close()
//
// Values are serialized with goccy/go-json; see serialization.go.
package storage
