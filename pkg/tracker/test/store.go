package test

import (
	"context"

	repository "github.com/tigerroll/processtracker/pkg/tracker/core/domain/repository"
	"github.com/tigerroll/processtracker/pkg/tracker/support/util/exception"
)

// FailingStore wraps a MetadataStore and refuses the column updates selected
// by Refuse. Everything else reaches the wrapped store.
type FailingStore struct {
	repository.MetadataStore
	Refuse func(row interface{}) bool
}

// UpdateColumns implements repository.MetadataStore.
func (s *FailingStore) UpdateColumns(ctx context.Context, row interface{}, columns map[string]interface{}) error {
	if s.Refuse != nil && s.Refuse(row) {
		return exception.Newf(exception.ErrStore, "FailingStore.UpdateColumns", "update of %T refused", row)
	}
	return s.MetadataStore.UpdateColumns(ctx, row, columns)
}
