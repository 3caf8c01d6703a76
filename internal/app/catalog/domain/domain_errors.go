package domain

import (
	"errors"
	"fmt"

	"github.com/zeebo/errs"
)

// Sentinel errors.
var (
	ErrEmptyName         = errors.New("asset name cannot be empty")
	ErrAssetNotFound     = errors.New("asset not found")
	ErrInvalidPatch      = errors.New("invalid metadata patch")
	ErrAssetDeleteFailed = errors.New("asset delete failed")
)

// Error classes of the reconciliation taxonomy.
var (
	// LookupFailure marks a single metadata read that failed. The engine
	// recovers by treating the asset as having no metadata.
	LookupFailure = errs.Class("lookup failure")
	// EnumerationFailure marks a failed asset listing. It is always surfaced.
	EnumerationFailure = errs.Class("enumeration failure")
	// PartialDeleteFailure marks a delete that changed one store but not the other.
	PartialDeleteFailure = errs.Class("partial delete")
)

// OrphanKind names the store left holding an orphan after a partial delete.
type OrphanKind string

const (
	OrphanAsset    OrphanKind = "asset"
	OrphanMetadata OrphanKind = "metadata"
)

// PartialDeleteError reports which side of a delete survived.
type PartialDeleteError struct {
	Kind    OrphanKind
	RawName string
	Key     string
	Err     error
}

func (e *PartialDeleteError) Error() string {
	msg := fmt.Sprintf("%s orphaned", e.Kind)
	if e.RawName != "" {
		msg = fmt.Sprintf("%s orphaned (%s)", e.Kind, e.RawName)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *PartialDeleteError) Unwrap() error { return e.Err }

// IsEnumerationFailure reports whether err belongs to the EnumerationFailure class.
func IsEnumerationFailure(err error) bool { return EnumerationFailure.Has(err) }

// AsPartialDelete extracts a *PartialDeleteError from err's chain.
func AsPartialDelete(err error) (*PartialDeleteError, bool) {
	var pde *PartialDeleteError
	if errors.As(err, &pde) {
		return pde, true
	}
	return nil, false
}
