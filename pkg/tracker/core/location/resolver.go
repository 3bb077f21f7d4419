// Package location derives canonical Location rows from filesystem paths and
// object-store URLs.
package location

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/fx"

	s3adapter "github.com/tigerroll/processtracker/pkg/tracker/adapter/storage/s3"
	model "github.com/tigerroll/processtracker/pkg/tracker/core/domain/model"
	repository "github.com/tigerroll/processtracker/pkg/tracker/core/domain/repository"
	tx "github.com/tigerroll/processtracker/pkg/tracker/core/tx"
	"github.com/tigerroll/processtracker/pkg/tracker/support/util/exception"
	"github.com/tigerroll/processtracker/pkg/tracker/support/util/logger"
)

const nameSeparator = " - "

// Resolver finds or registers the Location of a path.
type Resolver struct {
	store repository.MetadataStore
	tm    tx.TransactionManager
}

// NewResolver creates a Resolver.
func NewResolver(store repository.MetadataStore, tm tx.TransactionManager) *Resolver {
	return &Resolver{store: store, tm: tm}
}

// Resolve returns the Location registered for path, registering it first when
// it is new. name is only used for new locations; when empty a name is
// synthesized from the location type and the last path component.
func (r *Resolver) Resolve(ctx context.Context, path, name string) (*model.Location, error) {
	const op = "Resolver.Resolve"
	if strings.TrimSpace(path) == "" {
		return nil, exception.New(exception.ErrInvalidPath, op, "location path is empty")
	}

	var loc *model.Location
	err := tx.WithinTransaction(ctx, r.tm, func(ctx context.Context) error {
		existing := &model.Location{LocationPath: path}
		err := r.store.FindOrCreate(ctx, existing, false)
		if err == nil {
			loc = existing
			return nil
		}
		if !exception.IsKind(err, exception.ErrNotFound) {
			return err
		}

		locationType, bucket, err := Classify(path)
		if err != nil {
			return err
		}

		if name == "" {
			if name, err = r.synthesizeName(ctx, path, locationType); err != nil {
				return err
			}
		}

		typeRow := &model.LocationType{LocationTypeName: locationType}
		if err := r.store.FindOrCreate(ctx, typeRow, true); err != nil {
			return err
		}

		loc = &model.Location{
			LocationName:   name,
			LocationPath:   path,
			LocationTypeID: typeRow.LocationTypeID,
		}
		if bucket != "" {
			loc.LocationBucketName = &bucket
		}
		if err := r.store.Create(ctx, loc); err != nil {
			return err
		}
		logger.Infof("Location '%s' registered for path '%s' (%s).", name, path, locationType)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return loc, nil
}

// Classify returns the location type of path and, for S3 paths, the bucket.
// Any path containing "s3" (case-insensitively) is an S3 path and must match
// one of the recognized S3 URL shapes.
func Classify(path string) (locationType, bucket string, err error) {
	if !strings.Contains(strings.ToLower(path), "s3") {
		return model.LocationTypeLocal, "", nil
	}
	bucket, _, perr := s3adapter.ParseURL(path)
	if perr != nil {
		return "", "", exception.Wrap(exception.ErrInvalidPath, "location.Classify", fmt.Sprintf("cannot parse S3 location '%s'", path), perr)
	}
	return model.LocationTypeS3, bucket, nil
}

// synthesizeName builds "<prefix> - <component>", suffixed with " - <n>" when
// n locations already carry that name as a prefix.
func (r *Resolver) synthesizeName(ctx context.Context, path, locationType string) (string, error) {
	prefix := "local"
	if locationType == model.LocationTypeS3 {
		prefix = "s3"
	}
	name := prefix + nameSeparator + lastComponent(path)

	count, err := r.store.CountLocationsWithNamePrefix(ctx, name)
	if err != nil {
		return "", err
	}
	if count > 0 {
		name = fmt.Sprintf("%s%s%d", name, nameSeparator, count)
	}
	return name, nil
}

// lastComponent returns the last element of path, or the element before it
// when the last one looks like a filename.
func lastComponent(path string) string {
	trimmed := strings.TrimRight(strings.ReplaceAll(path, `\`, "/"), "/")
	parts := strings.Split(trimmed, "/")
	last := parts[len(parts)-1]
	if strings.Contains(last, ".") && len(parts) > 1 && parts[len(parts)-2] != "" {
		return parts[len(parts)-2]
	}
	return last
}

// StoragePath returns the bucket and prefix under which the files of loc are
// listed by its storage adapter.
func StoragePath(loc *model.Location, locationType string) (bucket, prefix string, err error) {
	if locationType != model.LocationTypeS3 {
		return "", loc.LocationPath, nil
	}
	bucket, key, err := s3adapter.ParseURL(loc.LocationPath)
	if err != nil {
		return "", "", exception.Wrap(exception.ErrInvalidPath, "location.StoragePath", fmt.Sprintf("cannot parse S3 location '%s'", loc.LocationPath), err)
	}
	return bucket, key, nil
}

// TypeName returns the location type name of loc.
func (r *Resolver) TypeName(ctx context.Context, loc *model.Location) (string, error) {
	var types []*model.LocationType
	if err := r.store.Find(ctx, &types, &model.LocationType{LocationTypeID: loc.LocationTypeID}, "", 1); err != nil {
		return "", err
	}
	if len(types) == 0 {
		return "", exception.Newf(exception.ErrNotFound, "Resolver.TypeName", "location type %d not found", loc.LocationTypeID)
	}
	return types[0].LocationTypeName, nil
}

// Module provides the Resolver to Fx.
var Module = fx.Options(
	fx.Provide(NewResolver),
)
