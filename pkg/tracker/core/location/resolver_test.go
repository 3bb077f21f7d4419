package location_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	model "github.com/tigerroll/processtracker/pkg/tracker/core/domain/model"
	"github.com/tigerroll/processtracker/pkg/tracker/core/location"
	"github.com/tigerroll/processtracker/pkg/tracker/support/util/exception"
	"github.com/tigerroll/processtracker/pkg/tracker/test"
)

func newResolver(t *testing.T) *location.Resolver {
	env := test.NewEnv(t)
	return location.NewResolver(env.Store, env.TxManager)
}

func TestResolve_S3NameSynthesis(t *testing.T) {
	r := newResolver(t)
	ctx := context.Background()

	loc, err := r.Resolve(ctx, "s3://test-test.s3.amazonaws.com/test/extract_dir", "")
	require.NoError(t, err)
	assert.Equal(t, "s3 - extract_dir", loc.LocationName)
	require.NotNil(t, loc.LocationBucketName)
	assert.Equal(t, "test-test", *loc.LocationBucketName)

	typeName, err := r.TypeName(ctx, loc)
	require.NoError(t, err)
	assert.Equal(t, model.LocationTypeS3, typeName)

	again, err := r.Resolve(ctx, "s3://test-test.s3.amazonaws.com/test/extract_dir", "ignored")
	require.NoError(t, err)
	assert.Equal(t, loc.LocationID, again.LocationID)
	assert.Equal(t, "s3 - extract_dir", again.LocationName)
}

func TestResolve_LocalNameIsDisambiguated(t *testing.T) {
	r := newResolver(t)
	ctx := context.Background()

	first, err := r.Resolve(ctx, "/data/a/extract_dir", "")
	require.NoError(t, err)
	assert.Equal(t, "local - extract_dir", first.LocationName)
	assert.Nil(t, first.LocationBucketName)

	second, err := r.Resolve(ctx, "/data/b/extract_dir/", "")
	require.NoError(t, err)
	assert.Equal(t, "local - extract_dir - 1", second.LocationName)

	third, err := r.Resolve(ctx, "/data/c/extract_dir/orders.csv", "")
	require.NoError(t, err)
	assert.Equal(t, "local - extract_dir - 2", third.LocationName)
}

func TestResolve_ExplicitName(t *testing.T) {
	r := newResolver(t)

	loc, err := r.Resolve(context.Background(), "/data/landing", "Landing Zone")
	require.NoError(t, err)
	assert.Equal(t, "Landing Zone", loc.LocationName)
}

func TestResolve_InvalidS3Path(t *testing.T) {
	r := newResolver(t)

	_, err := r.Resolve(context.Background(), "https://example.com/S3/data", "")
	require.Error(t, err)
	assert.True(t, exception.IsKind(err, exception.ErrInvalidPath))
}

func TestClassify(t *testing.T) {
	typ, bucket, err := location.Classify("https://s3.eu-west-1.amazonaws.com/reports/2026")
	require.NoError(t, err)
	assert.Equal(t, model.LocationTypeS3, typ)
	assert.Equal(t, "reports", bucket)

	typ, bucket, err = location.Classify("/var/exports")
	require.NoError(t, err)
	assert.Equal(t, model.LocationTypeLocal, typ)
	assert.Empty(t, bucket)
}

func TestStoragePath(t *testing.T) {
	bucket, prefix, err := location.StoragePath(&model.Location{LocationPath: "s3://reports/daily/"}, model.LocationTypeS3)
	require.NoError(t, err)
	assert.Equal(t, "reports", bucket)
	assert.Equal(t, "daily", prefix)

	bucket, prefix, err = location.StoragePath(&model.Location{LocationPath: "/var/exports"}, model.LocationTypeLocal)
	require.NoError(t, err)
	assert.Empty(t, bucket)
	assert.Equal(t, "/var/exports", prefix)
}
