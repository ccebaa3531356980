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


package core

import (
	"fmt"
	"strings"
)

// ValidateSteps validates a query operation list according to domain rules.
//
// Validation rules:
//   - At least one step
//   - OperationName and MachineName must not be blank
//   - SequenceNumber must be unique within the list
//
// NOT validated:
//   - Contiguity of sequence numbers (gaps and negative values are fine)
func ValidateSteps(steps []OperationStep) error {
	if len(steps) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidOperations, ErrNoOperations)
	}

	seen := make(map[int]struct{}, len(steps))
	for i, step := range steps {
		if strings.TrimSpace(step.OperationName) == "" {
			return fmt.Errorf("%w: step %d: %w", ErrInvalidOperations, i, ErrEmptyOperationName)
		}
		if strings.TrimSpace(step.MachineName) == "" {
			return fmt.Errorf("%w: step %d: %w", ErrInvalidOperations, i, ErrEmptyMachineName)
		}
		if _, dup := seen[step.SequenceNumber]; dup {
			return fmt.Errorf("%w: %w %d", ErrInvalidOperations, ErrDuplicateSequence, step.SequenceNumber)
		}
		seen[step.SequenceNumber] = struct{}{}
	}

	return nil
}

// ValidateBreakdown checks that a corpus record can be scored.
// Stored data is looser than query data: machine names may be blank
// and sequence numbers may repeat.
func ValidateBreakdown(b *Breakdown) error {
	if b == nil {
		return fmt.Errorf("%w: breakdown is nil", ErrInvalidBreakdown)
	}
	for i, op := range b.Operations {
		if strings.TrimSpace(op.OperationName) == "" {
			return fmt.Errorf("%w: operation %d: %w", ErrInvalidBreakdown, i, ErrEmptyOperationName)
		}
	}
	return nil
}

// ValidateAllocation validates an AllocationRecord.
func ValidateAllocation(record *AllocationRecord) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidAllocation)
	}
	if record.LayoutID == 0 {
		return fmt.Errorf("%w: layout id is required", ErrInvalidAllocation)
	}
	return nil
}
