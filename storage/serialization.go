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


package storage

import (
	"encoding/binary"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/poiesic/obsim/core"
)

// MarshalID serializes an int64 identifier to 8 big-endian bytes.
func MarshalID(id int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(id))
	return buf
}

// UnmarshalID deserializes an identifier written by MarshalID.
func UnmarshalID(data []byte) (int64, error) {
	if len(data) != 8 {
		return 0, fmt.Errorf("%w: id needs 8 bytes, got %d", ErrSerializationFailed, len(data))
	}
	return int64(binary.BigEndian.Uint64(data)), nil
}

func marshal(kind string, v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSerializationFailed, kind, err)
	}
	return data, nil
}

func unmarshal[T any](kind string, data []byte) (*T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSerializationFailed, kind, err)
	}
	return &v, nil
}

// MarshalBreakdown serializes a Breakdown to bytes.
func MarshalBreakdown(b *core.Breakdown) ([]byte, error) {
	return marshal("breakdown", b)
}

// UnmarshalBreakdown deserializes a Breakdown from bytes.
func UnmarshalBreakdown(data []byte) (*core.Breakdown, error) {
	return unmarshal[core.Breakdown]("breakdown", data)
}

// MarshalAllocation serializes an AllocationRecord to bytes.
func MarshalAllocation(a *core.AllocationRecord) ([]byte, error) {
	return marshal("allocation", a)
}

// UnmarshalAllocation deserializes an AllocationRecord from bytes.
func UnmarshalAllocation(data []byte) (*core.AllocationRecord, error) {
	return unmarshal[core.AllocationRecord]("allocation", data)
}

// MarshalImportRecord serializes an ImportRecord to bytes.
func MarshalImportRecord(r *core.ImportRecord) ([]byte, error) {
	return marshal("import record", r)
}

// UnmarshalImportRecord deserializes an ImportRecord from bytes.
func UnmarshalImportRecord(data []byte) (*core.ImportRecord, error) {
	return unmarshal[core.ImportRecord]("import record", data)
}
