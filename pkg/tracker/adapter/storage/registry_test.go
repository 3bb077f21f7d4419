package storage_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/processtracker/pkg/tracker/adapter/storage"
	"github.com/tigerroll/processtracker/pkg/tracker/adapter/storage/local"
	s3adapter "github.com/tigerroll/processtracker/pkg/tracker/adapter/storage/s3"
	"github.com/tigerroll/processtracker/pkg/tracker/test"
)

func TestRegistry(t *testing.T) {
	r := storage.NewRegistry(local.NewLocalAdapter(), s3adapter.NewS3Adapter(s3adapter.WithS3Client(test.NewFakeS3Client())))
	assert.Equal(t, []string{"local filesystem", "s3"}, r.Types())

	conn, err := r.Get("s3")
	require.NoError(t, err)
	assert.Equal(t, "s3", conn.Type())

	_, err = r.Get("gcs")
	assert.Error(t, err)

	require.NoError(t, r.CloseAll())
	assert.Empty(t, r.Types())
}
