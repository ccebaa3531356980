package core

import (
	"errors"
	"strings"
	"testing"

	"github.com/goccy/go-json"
)

func TestIDFromContent(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantSame bool
	}{
		{
			name:     "same content produces same ID",
			content:  "test content",
			wantSame: true,
		},
		{
			name:     "empty string",
			content:  "",
			wantSame: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id1 := IDFromContent(tt.content)
			id2 := IDFromContent(tt.content)

			if tt.wantSame && id1 != id2 {
				t.Errorf("IDFromContent() produced different IDs for same content: %d vs %d", id1, id2)
			}
		})
	}

	if IDFromContent("a") == IDFromContent("b") {
		t.Error("IDFromContent() produced the same ID for different content")
	}
}

func TestNormalize(t *testing.T) {
	t.Run("orders by sequence number", func(t *testing.T) {
		steps := []OperationStep{
			{OperationName: "Hem", MachineName: "Overlock", SequenceNumber: 30},
			{OperationName: "Tack", MachineName: "Lockstitch", SequenceNumber: 10},
			{OperationName: "Join", MachineName: "Flatlock", SequenceNumber: 20},
		}
		got := Normalize(steps)
		want := NormalizedSequence{
			{OperationName: "Tack", MachineName: "Lockstitch"},
			{OperationName: "Join", MachineName: "Flatlock"},
			{OperationName: "Hem", MachineName: "Overlock"},
		}
		if len(got) != len(want) {
			t.Fatalf("Normalize() len = %d, want %d", len(got), len(want))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("Normalize()[%d] = %v, want %v", i, got[i], want[i])
			}
		}
		if steps[0].OperationName != "Hem" {
			t.Error("Normalize() modified its input")
		}
	})

	t.Run("equal sequence numbers keep input order", func(t *testing.T) {
		steps := []OperationStep{
			{OperationName: "B", SequenceNumber: 1},
			{OperationName: "A", SequenceNumber: 1},
			{OperationName: "C", SequenceNumber: 0},
		}
		got := Normalize(steps)
		names := []string{got[0].OperationName, got[1].OperationName, got[2].OperationName}
		if names[0] != "C" || names[1] != "B" || names[2] != "A" {
			t.Errorf("Normalize() order = %v, want [C B A]", names)
		}
	})

	t.Run("empty input", func(t *testing.T) {
		if got := Normalize(nil); len(got) != 0 {
			t.Errorf("Normalize(nil) = %v, want empty", got)
		}
	})
}

func TestBreakdownFingerprint(t *testing.T) {
	a := &Breakdown{LayoutID: 1, Operations: []OperationStep{
		{OperationName: "Hem", MachineName: "Overlock", SequenceNumber: 2},
		{OperationName: "Tack", MachineName: "Lockstitch", SequenceNumber: 1},
	}}
	b := &Breakdown{LayoutID: 2, Operations: []OperationStep{
		{OperationName: "Tack", MachineName: "Lockstitch", SequenceNumber: 5},
		{OperationName: "Hem", MachineName: "Overlock", SequenceNumber: 9},
	}}
	c := &Breakdown{LayoutID: 3, Operations: []OperationStep{
		{OperationName: "Hem", MachineName: "Overlock", SequenceNumber: 1},
		{OperationName: "Tack", MachineName: "Lockstitch", SequenceNumber: 2},
	}}

	if a.Fingerprint() != b.Fingerprint() {
		t.Error("Fingerprint() differs for the same ordered operations")
	}
	if a.Fingerprint() == c.Fingerprint() {
		t.Error("Fingerprint() equal for differently ordered operations")
	}
}

func TestBreakdownNormalized(t *testing.T) {
	newBreakdown := func() Breakdown {
		return Breakdown{LayoutID: 1, Operations: []OperationStep{
			{OperationName: "Hem", MachineName: "Overlock", SequenceNumber: 2},
			{OperationName: "Tack", MachineName: "Lockstitch", SequenceNumber: 1},
		}}
	}

	got := newBreakdown().Normalized()
	want := NormalizedSequence{
		{OperationName: "Tack", MachineName: "Lockstitch"},
		{OperationName: "Hem", MachineName: "Overlock"},
	}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("Normalized() = %v, want %v", got, want)
	}
}

func TestSimilarityResultAllocationDataJSON(t *testing.T) {
	tests := []struct {
		name    string
		data    []AllocationRecord
		want    string
		present bool
	}{
		{"not enriched", nil, "", false},
		{"enriched without allocations", []AllocationRecord{}, `"allocation_data":[]`, true},
		{"enriched", []AllocationRecord{{LayoutID: 1, AllocationID: 2}}, `"allocation_data":[{"layout_id":1,"allocation_id":2`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := SimilarityResult{LayoutID: 1, LayoutCode: "L-1", TotalSimilarityScore: 50, AllocationData: tt.data}
			data, err := json.Marshal(r)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			got := string(data)
			if strings.Contains(got, `"allocation_data"`) != tt.present {
				t.Fatalf("Marshal() = %s, allocation_data present want %v", got, tt.present)
			}
			if tt.present && !strings.Contains(got, tt.want) {
				t.Errorf("Marshal() = %s, want it to contain %s", got, tt.want)
			}
			if !strings.Contains(got, `"layout_code":"L-1"`) || !strings.Contains(got, `"total_similarity_score":50`) {
				t.Errorf("Marshal() = %s, missing score fields", got)
			}

			var back SimilarityResult
			if err := json.Unmarshal(data, &back); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if (back.AllocationData != nil) != tt.present {
				t.Errorf("Unmarshal() AllocationData = %v, present want %v", back.AllocationData, tt.present)
			}
		})
	}
}

func TestNewSimilarityResult(t *testing.T) {
	b := &Breakdown{LayoutID: 42, LayoutCode: "LC-42"}
	r := NewSimilarityResult(b, 80, 50)

	if r.LayoutID != 42 || r.LayoutCode != "LC-42" {
		t.Errorf("NewSimilarityResult() identity = %d/%s", r.LayoutID, r.LayoutCode)
	}
	if r.TotalSimilarityScore != 65 {
		t.Errorf("NewSimilarityResult() total = %v, want 65", r.TotalSimilarityScore)
	}
}

func TestScoreError(t *testing.T) {
	cause := errors.New("boom")
	err := &ScoreError{LayoutID: 9, LayoutCode: "X", Err: cause}
	if !errors.Is(err, cause) {
		t.Error("ScoreError does not unwrap to its cause")
	}
	if err.Error() != "layout X (9): boom" {
		t.Errorf("ScoreError.Error() = %q", err.Error())
	}
}

func TestFlatOperationRowSequenceAlias(t *testing.T) {
	tests := []struct {
		name string
		data string
		want int
	}{
		{"sequence_number", `{"layout_id":1,"operation_name":"Hem","sequence_number":4}`, 4},
		{"operation_seq", `{"layout_id":1,"operation_name":"Hem","operation_seq":7}`, 7},
		{"both prefers sequence_number", `{"sequence_number":2,"operation_seq":9}`, 2},
		{"neither", `{"layout_id":1}`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var row FlatOperationRow
			if err := json.Unmarshal([]byte(tt.data), &row); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if row.SequenceNumber != tt.want {
				t.Errorf("SequenceNumber = %d, want %d", row.SequenceNumber, tt.want)
			}
		})
	}

	var row FlatOperationRow
	if err := json.Unmarshal([]byte(`{"layout_id":3,"layout_code":"TEE","machine_name":"Overlock"}`), &row); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if row.LayoutID != 3 || row.LayoutCode != "TEE" || row.MachineName != "Overlock" {
		t.Errorf("other fields not decoded: %+v", row)
	}
}
