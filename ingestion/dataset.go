package ingestion

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"

	"github.com/poiesic/obsim/core"
	"github.com/poiesic/obsim/corpus"
)

// Dataset is the content of a datasource file: the same shape as the
// ob_datasource and allocation_datasource fields of a datasource search.
type Dataset struct {
	Rows        []core.FlatOperationRow `json:"ob_datasource"`
	Allocations []core.AllocationRecord `json:"allocation_datasource"`
}

// ReadDataset decodes a dataset. A bare JSON array is read as rows only.
func ReadDataset(r io.Reader) (*Dataset, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return decodeDataset(data)
}

// LoadDataset reads a dataset file.
func LoadDataset(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	ds, err := decodeDataset(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ds, nil
}

// Fingerprint hashes what an import of ds would store: every breakdown's
// identity and operation fingerprint, plus the allocations. Reformatting a
// file does not change it.
func (ds *Dataset) Fingerprint() core.ID {
	var buf bytes.Buffer
	for _, b := range corpus.GroupByBreakdown(ds.Rows) {
		fmt.Fprintf(&buf, "%d\x1f%s\x1f%s\x1f%d\x1f%d\x1e",
			b.LayoutID, b.LayoutCode, b.StyleType, b.TenantID, b.Fingerprint())
	}
	if len(ds.Allocations) > 0 {
		// AllocationRecord is plain data; Marshal cannot fail on it.
		data, _ := json.Marshal(ds.Allocations)
		buf.Write(data)
	}
	return core.IDFromContent(buf.String())
}

func decodeDataset(data []byte) (*Dataset, error) {
	trimmed := bytes.TrimSpace(data)
	ds := &Dataset{}
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &ds.Rows); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidDataset, err)
		}
		return ds, nil
	}
	if err := json.Unmarshal(trimmed, ds); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDataset, err)
	}
	return ds, nil
}
