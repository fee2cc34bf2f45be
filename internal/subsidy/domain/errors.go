package domain

import "errors"

var (
	ErrNotFound         = errors.New("subsidy not found")
	ErrRegionNotFound   = errors.New("region not found")
	ErrCategoryNotFound = errors.New("category not found")

	// ErrDuplicateExternalID marks an insert that lost the race against
	// another writer on the same external id.
	ErrDuplicateExternalID = errors.New("duplicate external id")
)
