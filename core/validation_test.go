package core

import (
	"errors"
	"testing"
)

func TestValidateSteps(t *testing.T) {
	tests := []struct {
		name    string
		steps   []OperationStep
		wantErr error
	}{
		{
			name: "valid steps",
			steps: []OperationStep{
				{OperationName: "Tack side seams", MachineName: "Zig Zag Machine", SequenceNumber: 1},
				{OperationName: "Attach elastic", MachineName: "Coverstitch Machine", SequenceNumber: 2},
			},
			wantErr: nil,
		},
		{
			name: "non contiguous sequence numbers",
			steps: []OperationStep{
				{OperationName: "Hem", MachineName: "Overlock", SequenceNumber: 40},
				{OperationName: "Tack", MachineName: "Lockstitch", SequenceNumber: -3},
			},
			wantErr: nil,
		},
		{
			name:    "nil steps",
			steps:   nil,
			wantErr: ErrNoOperations,
		},
		{
			name: "blank operation name",
			steps: []OperationStep{
				{OperationName: "   ", MachineName: "Overlock", SequenceNumber: 1},
			},
			wantErr: ErrEmptyOperationName,
		},
		{
			name: "blank machine name",
			steps: []OperationStep{
				{OperationName: "Hem", MachineName: "", SequenceNumber: 1},
			},
			wantErr: ErrEmptyMachineName,
		},
		{
			name: "duplicate sequence number",
			steps: []OperationStep{
				{OperationName: "Hem", MachineName: "Overlock", SequenceNumber: 1},
				{OperationName: "Tack", MachineName: "Lockstitch", SequenceNumber: 1},
			},
			wantErr: ErrDuplicateSequence,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSteps(tt.steps)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateSteps() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateSteps() error = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, ErrInvalidOperations) {
				t.Errorf("ValidateSteps() error = %v, should wrap ErrInvalidOperations", err)
			}
		})
	}
}

func TestValidateBreakdown(t *testing.T) {
	tests := []struct {
		name      string
		breakdown *Breakdown
		wantErr   bool
	}{
		{
			name:      "nil breakdown",
			breakdown: nil,
			wantErr:   true,
		},
		{
			name:      "no operations is scoreable",
			breakdown: &Breakdown{LayoutID: 1},
			wantErr:   false,
		},
		{
			name: "blank machine is allowed",
			breakdown: &Breakdown{LayoutID: 1, Operations: []OperationStep{
				{OperationName: "Hem", SequenceNumber: 1},
			}},
			wantErr: false,
		},
		{
			name: "blank operation name",
			breakdown: &Breakdown{LayoutID: 1, Operations: []OperationStep{
				{OperationName: "", MachineName: "Overlock", SequenceNumber: 1},
			}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBreakdown(tt.breakdown)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateBreakdown() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidBreakdown) {
				t.Errorf("ValidateBreakdown() error = %v, should wrap ErrInvalidBreakdown", err)
			}
		})
	}
}

func TestValidateAllocation(t *testing.T) {
	if err := ValidateAllocation(nil); !errors.Is(err, ErrInvalidAllocation) {
		t.Errorf("ValidateAllocation(nil) error = %v", err)
	}
	if err := ValidateAllocation(&AllocationRecord{AllocationID: 3}); !errors.Is(err, ErrInvalidAllocation) {
		t.Errorf("ValidateAllocation() without layout error = %v", err)
	}
	if err := ValidateAllocation(&AllocationRecord{LayoutID: 7, AllocationID: 3}); err != nil {
		t.Errorf("ValidateAllocation() error = %v, want nil", err)
	}
}
