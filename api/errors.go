package api

import "errors"

// ErrServiceRequired is returned when no search service is provided.
var ErrServiceRequired = errors.New("search service required")
