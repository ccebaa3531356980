package search

import (
	"fmt"
	"strings"

	"github.com/poiesic/obsim/core"
)

const (
	// DefaultNoOfResults is the result count used when a request omits it.
	DefaultNoOfResults = 10

	// DefaultNoOfAllocations is the per-result allocation count used when a
	// request omits it.
	DefaultNoOfAllocations = 3

	// DefaultNoOfDataSourceAllocations is DefaultNoOfAllocations for
	// datasource requests.
	DefaultNoOfDataSourceAllocations = 5

	// SuccessMessage is the message of every successful response.
	SuccessMessage = "Search successful"
)

// Request searches a tenant's stored corpus of one style type.
type Request struct {
	TenantID        int64                `json:"tenant_id" validate:"gte=0"`
	StyleType       string               `json:"style_type" validate:"required"`
	AllocationData  bool                 `json:"allocation_data"`
	NoOfResults     int                  `json:"no_of_results" validate:"gt=0"`
	NoOfAllocations int                  `json:"no_of_allocations" validate:"gt=0"`
	OperationData   []core.OperationStep `json:"operation_data" validate:"required,min=1,dive"`
}

// NewRequest returns a Request carrying the default counts. A Request built
// any other way must set both counts.
func NewRequest() Request {
	return Request{
		NoOfResults:     DefaultNoOfResults,
		NoOfAllocations: DefaultNoOfAllocations,
	}
}

// DataSourceRequest searches a corpus supplied with the request instead of
// the stored one. Rows are filtered by style type and grouped by layout id.
type DataSourceRequest struct {
	Request
	OBDatasource         []core.FlatOperationRow `json:"ob_datasource" validate:"required"`
	AllocationDatasource []core.AllocationRecord `json:"allocation_datasource"`
}

// NewDataSourceRequest returns a DataSourceRequest carrying the default counts.
func NewDataSourceRequest() DataSourceRequest {
	req := NewRequest()
	req.NoOfAllocations = DefaultNoOfDataSourceAllocations
	return DataSourceRequest{Request: req}
}

// Response is the outcome of a search.
type Response struct {
	Message        string                  `json:"message"`
	AllocationData bool                    `json:"allocation_data"`
	TotalObs       int                     `json:"total_obs"`
	NoOfResults    int                     `json:"no_of_results"`
	ProcessTime    float64                 `json:"process_time"`
	Results        []core.SimilarityResult `json:"results"`
	Skipped        []int64                 `json:"skipped_layout_ids,omitempty"`
}

// normalize trims the style type. Counts are taken as given; defaults only
// come from NewRequest and NewDataSourceRequest.
func (r *Request) normalize() {
	r.StyleType = strings.TrimSpace(r.StyleType)
}

// validate checks the parts of a request shared by both search flavors.
func (r *Request) validate(requireTenant bool) error {
	if requireTenant && r.TenantID <= 0 {
		return fmt.Errorf("%w: tenant_id must be positive", ErrInvalidRequest)
	}
	if r.StyleType == "" {
		return fmt.Errorf("%w: style_type is required", ErrInvalidRequest)
	}
	if r.NoOfResults <= 0 {
		return fmt.Errorf("%w: no_of_results must be positive", ErrInvalidRequest)
	}
	if r.NoOfAllocations <= 0 {
		return fmt.Errorf("%w: no_of_allocations must be positive", ErrInvalidRequest)
	}
	if err := core.ValidateSteps(r.OperationData); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return nil
}
