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

import "errors"

// Domain validation errors
var (
	// ErrInvalidOperations indicates a query operation list failed validation.
	ErrInvalidOperations = errors.New("invalid operation data")

	// ErrNoOperations indicates an empty operation list.
	ErrNoOperations = errors.New("operation list cannot be empty")

	// ErrEmptyOperationName indicates the OperationName field is empty.
	ErrEmptyOperationName = errors.New("operation name cannot be empty")

	// ErrEmptyMachineName indicates the MachineName field is empty.
	ErrEmptyMachineName = errors.New("machine name cannot be empty")

	// ErrDuplicateSequence indicates two steps share a sequence number.
	ErrDuplicateSequence = errors.New("duplicate sequence number")

	// ErrInvalidBreakdown indicates a corpus record cannot be scored.
	ErrInvalidBreakdown = errors.New("invalid breakdown")

	// ErrInvalidAllocation indicates an AllocationRecord failed validation.
	ErrInvalidAllocation = errors.New("invalid allocation")
)
