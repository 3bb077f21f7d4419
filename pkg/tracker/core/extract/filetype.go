package extract

import (
	"context"
	"strings"

	model "github.com/tigerroll/processtracker/pkg/tracker/core/domain/model"
	"github.com/tigerroll/processtracker/pkg/tracker/core/lookup"
	"github.com/tigerroll/processtracker/pkg/tracker/support/util/exception"
)

// resolveFormat returns the filetype and compression type ids of an extract.
//
// A missing fileType is derived from the extension. A trailing extension that
// names a known compression type (orders.csv.gz) sets the compression and the
// extension before it is used as the filetype.
func (e *Engine) resolveFormat(ctx context.Context, filename, fileType, compression string) (fileTypeID, compressionID *int64, err error) {
	const op = "extract.resolveFormat"

	if compression != "" {
		row, err := e.lookups.Resolve(ctx, lookup.TopicCompressionType, compression, false)
		if err != nil {
			return nil, nil, err
		}
		id := row.LookupID()
		compressionID = &id
	}

	if fileType == "" {
		exts := extensions(filename)
		if len(exts) == 0 {
			return nil, nil, exception.Newf(exception.ErrUnknownFileType, op, "cannot derive a filetype from '%s'", filename)
		}
		last := exts[len(exts)-1]
		if compressionID == nil && len(exts) > 1 {
			if id, ok, err := e.compressionByExtension(ctx, last); err != nil {
				return nil, nil, err
			} else if ok {
				compressionID = &id
				last = exts[len(exts)-2]
			}
		}
		fileType = last
	}

	row, err := e.lookups.Resolve(ctx, lookup.TopicFileType, fileType, false)
	if exception.IsKind(err, exception.ErrNotFound) {
		return nil, nil, exception.Wrap(exception.ErrUnknownFileType, op, "unknown filetype '"+fileType+"' for '"+filename+"'", err)
	}
	if err != nil {
		return nil, nil, err
	}
	id := row.LookupID()
	return &id, compressionID, nil
}

// compressionByExtension looks up the compression type using extension ext.
func (e *Engine) compressionByExtension(ctx context.Context, ext string) (int64, bool, error) {
	var rows []*model.CompressionType
	if err := e.store.Find(ctx, &rows, &model.CompressionType{CompressionTypeExtension: ext}, "", 1); err != nil {
		return 0, false, err
	}
	if len(rows) == 0 {
		return 0, false, nil
	}
	return rows[0].CompressionTypeID, true, nil
}

// extensions returns the lower-cased dot-separated suffixes of the base name
// of filename, e.g. ["csv", "gz"] for "dir/orders.csv.gz".
func extensions(filename string) []string {
	base := filename
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}
	parts := strings.Split(strings.ToLower(base), ".")
	if len(parts) < 2 {
		return nil
	}
	var exts []string
	for _, p := range parts[1:] {
		if p != "" {
			exts = append(exts, p)
		}
	}
	return exts
}
