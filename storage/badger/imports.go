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


package badger

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/obsim/core"
	"github.com/poiesic/obsim/storage"
)

// ImportRepository implements storage.ImportRepository for BadgerDB.
type ImportRepository struct {
	backend *Backend
}

var _ storage.ImportRepository = (*ImportRepository)(nil)

// NewImportRepository creates a new ImportRepository.
func NewImportRepository(backend *Backend) *ImportRepository {
	return &ImportRepository{
		backend: backend,
	}
}

// SaveImport persists the import record for its source.
func (r *ImportRepository) SaveImport(ctx context.Context, record *core.ImportRecord) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		record.UpdatedAt = time.Now().UTC()
		value, err := storage.MarshalImportRecord(record)
		if err != nil {
			return err
		}
		if err := tx.Set(makeImportKey(record.Source), value); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// LoadImport retrieves the import record for a source.
// Returns nil, nil if the source was never imported.
func (r *ImportRepository) LoadImport(ctx context.Context, source string) (*core.ImportRecord, error) {
	var record *core.ImportRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeImportKey(source))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}

		return item.Value(func(val []byte) error {
			var unmarshalErr error
			record, unmarshalErr = storage.UnmarshalImportRecord(val)
			return unmarshalErr
		})
	}, false)

	return record, err
}
