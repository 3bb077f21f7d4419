// Package lookup maintains the enumerated tables of the tracker (actors,
// tools, sources, statuses, error types and the like) addressed by topic and
// name.
package lookup

import (
	"context"
	"reflect"

	"go.uber.org/fx"

	model "github.com/tigerroll/processtracker/pkg/tracker/core/domain/model"
	repository "github.com/tigerroll/processtracker/pkg/tracker/core/domain/repository"
	tx "github.com/tigerroll/processtracker/pkg/tracker/core/tx"
	"github.com/tigerroll/processtracker/pkg/tracker/support/util/exception"
	"github.com/tigerroll/processtracker/pkg/tracker/support/util/logger"
)

// Registry is the policy layer over the metadata store for lookup tables.
type Registry struct {
	store repository.MetadataStore
	tm    tx.TransactionManager
}

// NewRegistry creates a Registry.
func NewRegistry(store repository.MetadataStore, tm tx.TransactionManager) *Registry {
	return &Registry{store: store, tm: tm}
}

// Resolve returns the row of topic named name. When the row does not exist it
// is created if create is true, otherwise a NotFound error is returned.
func (r *Registry) Resolve(ctx context.Context, topic Topic, name string, create bool) (model.Lookup, error) {
	row := topic.newRow()
	if row == nil {
		return nil, exception.Newf(exception.ErrInvalidTopic, "Registry.Resolve", "unrecognized topic %q", topic)
	}
	if name == "" {
		return nil, exception.Newf(exception.ErrInvalidName, "Registry.Resolve", "%s name is empty", topic)
	}
	row.SetLookupName(name)
	if err := r.store.FindOrCreate(ctx, row, create); err != nil {
		return nil, err
	}
	return row, nil
}

// Create inserts the row if not present. It is idempotent.
func (r *Registry) Create(ctx context.Context, topic Topic, name string) (model.Lookup, error) {
	row, err := r.Resolve(ctx, topic, name, true)
	if err != nil {
		return nil, err
	}
	logger.Infof("Lookup %s '%s' available (id %d).", topic, name, row.LookupID())
	return row, nil
}

// Delete removes the row of topic named name. Protected rows fail with
// Protected and rows other rows still point at fail with Referenced; an
// absent row is not an error.
func (r *Registry) Delete(ctx context.Context, topic Topic, name string) error {
	const op = "Registry.Delete"
	if topic.newRow() == nil {
		return exception.Newf(exception.ErrInvalidTopic, op, "unrecognized topic %q", topic)
	}
	if topic.IsProtected(name) {
		return exception.Newf(exception.ErrProtected, op, "%s '%s' is a protected record", topic, name)
	}

	return tx.WithinTransaction(ctx, r.tm, func(ctx context.Context) error {
		row, err := r.Resolve(ctx, topic, name, false)
		if exception.IsKind(err, exception.ErrNotFound) {
			logger.Infof("Lookup %s '%s' does not exist; nothing to delete.", topic, name)
			return nil
		}
		if err != nil {
			return err
		}
		for _, ref := range topic.references() {
			n, err := r.store.Count(ctx, ref.table, map[string]interface{}{ref.column: row.LookupID()})
			if err != nil {
				return err
			}
			if n > 0 {
				return exception.Newf(exception.ErrReferenced, op, "%s '%s' is still referenced by %d %s", topic, name, n, ref.what)
			}
		}
		if err := r.store.Delete(ctx, row); err != nil {
			return err
		}
		logger.Infof("Lookup %s '%s' deleted.", topic, name)
		return nil
	})
}

// Update renames the row of topic named initialName to name. Protected rows
// fail with Protected.
func (r *Registry) Update(ctx context.Context, topic Topic, initialName, name string) error {
	const op = "Registry.Update"
	if topic.newRow() == nil {
		return exception.Newf(exception.ErrInvalidTopic, op, "unrecognized topic %q", topic)
	}
	if topic.IsProtected(initialName) {
		return exception.Newf(exception.ErrProtected, op, "%s '%s' is a protected record", topic, initialName)
	}
	if name == "" {
		return exception.Newf(exception.ErrInvalidName, op, "new %s name is empty", topic)
	}

	return tx.WithinTransaction(ctx, r.tm, func(ctx context.Context) error {
		row, err := r.Resolve(ctx, topic, initialName, false)
		if err != nil {
			return err
		}
		if err := r.store.UpdateColumns(ctx, row, map[string]interface{}{topic.nameColumn(): name}); err != nil {
			return err
		}
		logger.Infof("Lookup %s '%s' renamed to '%s'.", topic, initialName, name)
		return nil
	})
}

// List returns the names of every row of topic in name order.
func (r *Registry) List(ctx context.Context, topic Topic) ([]string, error) {
	row := topic.newRow()
	if row == nil {
		return nil, exception.Newf(exception.ErrInvalidTopic, "Registry.List", "unrecognized topic %q", topic)
	}
	rows := reflect.New(reflect.SliceOf(reflect.TypeOf(row)))
	if err := r.store.Find(ctx, rows.Interface(), nil, topic.nameColumn()+" ASC", 0); err != nil {
		return nil, err
	}

	names := make([]string, 0, rows.Elem().Len())
	for i := 0; i < rows.Elem().Len(); i++ {
		names = append(names, rows.Elem().Index(i).Interface().(model.Lookup).LookupName())
	}
	return names, nil
}

// Module provides the Registry to Fx.
var Module = fx.Options(
	fx.Provide(NewRegistry),
)
