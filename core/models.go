package core

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/go-crypt/x/blake2b"
	"github.com/goccy/go-json"
)

// ID is a content-derived identifier used for import bookkeeping.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// OperationStep is a single operation of a breakdown as submitted by a caller
// or stored in the corpus. SequenceNumber only defines execution order.
type OperationStep struct {
	OperationName  string `json:"operation_name" validate:"required"`
	MachineName    string `json:"machine_name" validate:"required"`
	SequenceNumber int    `json:"sequence_number"`
}

// OperationPair is an operation with its sequence number dropped.
type OperationPair struct {
	OperationName string
	MachineName   string
}

// NormalizedSequence is a breakdown's operations ordered by sequence number.
type NormalizedSequence []OperationPair

// Breakdown is one corpus record: all operations of a single layout.
type Breakdown struct {
	LayoutID   int64           `json:"layout_id"`
	LayoutCode string          `json:"layout_code"`
	StyleType  string          `json:"style_type"`
	TenantID   int64           `json:"tenant_id,omitempty"`
	Operations []OperationStep `json:"operation_data"`
}

// Fingerprint returns a content hash of the breakdown's operations.
// Two breakdowns with the same ordered operations share a fingerprint.
func (b Breakdown) Fingerprint() ID {
	var buf []byte
	for _, pair := range Normalize(b.Operations) {
		buf = append(buf, pair.OperationName...)
		buf = append(buf, 0x1f)
		buf = append(buf, pair.MachineName...)
		buf = append(buf, 0x1e)
	}
	return IDFromContent(string(buf))
}

// FlatOperationRow is one denormalized operation row as returned by a
// relational query or supplied in a caller dataset.
type FlatOperationRow struct {
	LayoutID       int64  `json:"layout_id"`
	LayoutCode     string `json:"layout_code"`
	StyleType      string `json:"style_type"`
	TenantID       int64  `json:"tenant_id,omitempty"`
	OperationName  string `json:"operation_name"`
	MachineName    string `json:"machine_name"`
	SequenceNumber int    `json:"sequence_number"`
}

// UnmarshalJSON accepts operation_seq as an alias of sequence_number, the
// column name used by database exports. sequence_number wins if both are set.
func (r *FlatOperationRow) UnmarshalJSON(data []byte) error {
	type plain FlatOperationRow
	if err := json.Unmarshal(data, (*plain)(r)); err != nil {
		return err
	}
	var seq struct {
		SequenceNumber *int `json:"sequence_number"`
		OperationSeq   *int `json:"operation_seq"`
	}
	if err := json.Unmarshal(data, &seq); err != nil {
		return err
	}
	if seq.SequenceNumber == nil && seq.OperationSeq != nil {
		r.SequenceNumber = *seq.OperationSeq
	}
	return nil
}

// AllocationRecord is a production-line allocation associated with a layout.
// RunEfficiency is nil when the line has no recorded efficiency.
type AllocationRecord struct {
	LayoutID       int64    `json:"layout_id"`
	AllocationID   int64    `json:"allocation_id"`
	AllocationName string   `json:"allocation_name"`
	LineID         *int64   `json:"line_id,omitempty"`
	HourlyTarget   float64  `json:"hourly_target"`
	RunEfficiency  *float64 `json:"run_efficiency"`
}

// SimilarityResult is the score of one corpus record against a query.
// AllocationData is nil unless the result was enriched.
type SimilarityResult struct {
	LayoutID                 int64              `json:"layout_id"`
	LayoutCode               string             `json:"layout_code"`
	OperationSimilarityScore float64            `json:"operation_similarity_score"`
	MachineSimilarityScore   float64            `json:"machine_similarity_score"`
	TotalSimilarityScore     float64            `json:"total_similarity_score"`
	AllocationData           []AllocationRecord `json:"allocation_data,omitempty"`
}

// MarshalJSON writes allocation_data for every enriched result, as an empty
// list when the layout has no allocations, and leaves it out otherwise.
func (r SimilarityResult) MarshalJSON() ([]byte, error) {
	out := struct {
		LayoutID                 int64               `json:"layout_id"`
		LayoutCode               string              `json:"layout_code"`
		OperationSimilarityScore float64             `json:"operation_similarity_score"`
		MachineSimilarityScore   float64             `json:"machine_similarity_score"`
		TotalSimilarityScore     float64             `json:"total_similarity_score"`
		AllocationData           *[]AllocationRecord `json:"allocation_data,omitempty"`
	}{
		LayoutID:                 r.LayoutID,
		LayoutCode:               r.LayoutCode,
		OperationSimilarityScore: r.OperationSimilarityScore,
		MachineSimilarityScore:   r.MachineSimilarityScore,
		TotalSimilarityScore:     r.TotalSimilarityScore,
	}
	if r.AllocationData != nil {
		out.AllocationData = &r.AllocationData
	}
	return json.Marshal(out)
}

// NewSimilarityResult builds a result for a breakdown, deriving the total
// as the mean of the two component scores.
func NewSimilarityResult(b *Breakdown, operationScore, machineScore float64) SimilarityResult {
	return SimilarityResult{
		LayoutID:                 b.LayoutID,
		LayoutCode:               b.LayoutCode,
		OperationSimilarityScore: operationScore,
		MachineSimilarityScore:   machineScore,
		TotalSimilarityScore:     (operationScore + machineScore) / 2,
	}
}

// ScoreError records a corpus record that could not be scored.
type ScoreError struct {
	LayoutID   int64
	LayoutCode string
	Err        error
}

func (e *ScoreError) Error() string {
	return fmt.Sprintf("layout %s (%d): %v", e.LayoutCode, e.LayoutID, e.Err)
}

func (e *ScoreError) Unwrap() error {
	return e.Err
}

// ImportRecord tracks the last import of a corpus source into local storage.
type ImportRecord struct {
	Source      string    `json:"source"`
	RunID       string    `json:"run_id"`
	Fingerprint ID        `json:"fingerprint"`
	Breakdowns  int       `json:"breakdowns"`
	Rows        int       `json:"rows"`
	UpdatedAt   time.Time `json:"updated_at"`
}
