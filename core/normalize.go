package core

import (
	"cmp"
	"slices"
)

// Normalize orders steps by sequence number and drops the number.
// Steps sharing a sequence number keep their input order.
func Normalize(steps []OperationStep) NormalizedSequence {
	sorted := slices.Clone(steps)
	slices.SortStableFunc(sorted, func(a, b OperationStep) int {
		return cmp.Compare(a.SequenceNumber, b.SequenceNumber)
	})

	seq := make(NormalizedSequence, len(sorted))
	for i, step := range sorted {
		seq[i] = OperationPair{
			OperationName: step.OperationName,
			MachineName:   step.MachineName,
		}
	}
	return seq
}

// Normalized returns the breakdown's operations as a NormalizedSequence.
func (b Breakdown) Normalized() NormalizedSequence {
	return Normalize(b.Operations)
}
