package ingestion

import "errors"

var (
	// ErrStoreRequired indicates the corpus store was not provided.
	ErrStoreRequired = errors.New("corpus store is required")

	// ErrImportRepositoryRequired indicates the import repository was not provided.
	ErrImportRepositoryRequired = errors.New("import repository is required")

	// ErrInvalidDataset indicates a dataset file could not be decoded.
	ErrInvalidDataset = errors.New("invalid dataset")
)
