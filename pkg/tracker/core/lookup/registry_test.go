package lookup_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	model "github.com/tigerroll/processtracker/pkg/tracker/core/domain/model"
	"github.com/tigerroll/processtracker/pkg/tracker/core/lookup"
	"github.com/tigerroll/processtracker/pkg/tracker/support/util/exception"
	"github.com/tigerroll/processtracker/pkg/tracker/test"
)

func newRegistry(t *testing.T) *lookup.Registry {
	env := test.NewEnv(t)
	return lookup.NewRegistry(env.Store, env.TxManager)
}

func TestParseTopic(t *testing.T) {
	cases := map[string]lookup.Topic{
		"actor":            lookup.TopicActor,
		" Process Type ":   lookup.TopicProcessType,
		"process_status":   lookup.TopicProcessStatus,
		"extract-status":   lookup.TopicExtractStatus,
		"error type":       lookup.TopicErrorType,
		"file type":        lookup.TopicFileType,
		"filetype":         lookup.TopicFileType,
		"compression type": lookup.TopicCompressionType,
	}
	for in, want := range cases {
		got, err := lookup.ParseTopic(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := lookup.ParseTopic("colour")
	assert.True(t, exception.IsKind(err, exception.ErrInvalidTopic))
}

func TestRegistry_CreateIsIdempotent(t *testing.T) {
	r := newRegistry(t)
	ctx := context.Background()

	first, err := r.Create(ctx, lookup.TopicActor, "nightly-scheduler")
	require.NoError(t, err)
	second, err := r.Create(ctx, lookup.TopicActor, "nightly-scheduler")
	require.NoError(t, err)
	assert.Equal(t, first.LookupID(), second.LookupID())

	names, err := r.List(ctx, lookup.TopicActor)
	require.NoError(t, err)
	assert.Equal(t, []string{"nightly-scheduler"}, names)
}

func TestRegistry_Delete(t *testing.T) {
	r := newRegistry(t)
	ctx := context.Background()

	_, err := r.Create(ctx, lookup.TopicTool, "nifi")
	require.NoError(t, err)
	require.NoError(t, r.Delete(ctx, lookup.TopicTool, "nifi"))
	// Deleting an absent row is not an error.
	require.NoError(t, r.Delete(ctx, lookup.TopicTool, "nifi"))

	_, err = r.Resolve(ctx, lookup.TopicTool, "nifi", false)
	assert.True(t, exception.IsKind(err, exception.ErrNotFound))
}

func TestRegistry_DeleteReferencedRow(t *testing.T) {
	env := test.NewEnv(t)
	r := lookup.NewRegistry(env.Store, env.TxManager)
	ctx := context.Background()

	runID := test.NewRun(t, env, "P1")
	run := &model.ProcessTracking{ProcessTrackingID: runID}
	require.NoError(t, env.Store.Reload(ctx, run, false))
	actor := &model.Actor{ActorID: run.ProcessRunActorID}
	require.NoError(t, env.Store.Reload(ctx, actor, false))

	err := r.Delete(ctx, lookup.TopicActor, actor.ActorName)
	require.Error(t, err)
	assert.True(t, exception.IsKind(err, exception.ErrReferenced))
	assert.Contains(t, err.Error(), "1 runs")

	_, err = r.Resolve(ctx, lookup.TopicActor, actor.ActorName, false)
	assert.NoError(t, err)

	// An unreferenced row of the same topic is still deletable.
	_, err = r.Create(ctx, lookup.TopicActor, "retired")
	require.NoError(t, err)
	require.NoError(t, r.Delete(ctx, lookup.TopicActor, "retired"))
}

func TestRegistry_EmptyName(t *testing.T) {
	r := newRegistry(t)
	ctx := context.Background()

	for _, create := range []bool{true, false} {
		_, err := r.Resolve(ctx, lookup.TopicErrorType, "", create)
		assert.True(t, exception.IsKind(err, exception.ErrInvalidName), "create=%v", create)
	}
	_, err := r.Create(ctx, lookup.TopicActor, "")
	assert.True(t, exception.IsKind(err, exception.ErrInvalidName))

	_, err = r.Create(ctx, lookup.TopicTool, "nifi")
	require.NoError(t, err)
	err = r.Update(ctx, lookup.TopicTool, "nifi", "")
	assert.True(t, exception.IsKind(err, exception.ErrInvalidName))

	names, err := r.List(ctx, lookup.TopicActor)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestRegistry_ProtectedRows(t *testing.T) {
	r := newRegistry(t)
	ctx := context.Background()

	err := r.Delete(ctx, lookup.TopicProcessStatus, "running")
	assert.True(t, exception.IsKind(err, exception.ErrProtected))

	err = r.Update(ctx, lookup.TopicExtractStatus, "loaded", "done")
	assert.True(t, exception.IsKind(err, exception.ErrProtected))

	err = r.Delete(ctx, lookup.TopicErrorType, "File Error")
	assert.True(t, exception.IsKind(err, exception.ErrProtected))

	// The rows are still present.
	_, err = r.Resolve(ctx, lookup.TopicProcessStatus, "running", false)
	assert.NoError(t, err)
	_, err = r.Resolve(ctx, lookup.TopicExtractStatus, "loaded", false)
	assert.NoError(t, err)
}

func TestRegistry_Update(t *testing.T) {
	r := newRegistry(t)
	ctx := context.Background()

	created, err := r.Create(ctx, lookup.TopicProcessStatus, "on hold")
	require.NoError(t, err)
	require.NoError(t, r.Update(ctx, lookup.TopicProcessStatus, "on hold", "paused"))

	renamed, err := r.Resolve(ctx, lookup.TopicProcessStatus, "paused", false)
	require.NoError(t, err)
	assert.Equal(t, created.LookupID(), renamed.LookupID())

	err = r.Update(ctx, lookup.TopicProcessStatus, "never existed", "whatever")
	assert.True(t, exception.IsKind(err, exception.ErrNotFound))
}

func TestRegistry_ListSeededTopics(t *testing.T) {
	r := newRegistry(t)
	ctx := context.Background()

	names, err := r.List(ctx, lookup.TopicProcessStatus)
	require.NoError(t, err)
	assert.Equal(t, []string{"completed", "failed", "running"}, names)

	names, err = r.List(ctx, lookup.TopicFileType)
	require.NoError(t, err)
	assert.Contains(t, names, "csv")
	assert.Contains(t, names, "parquet")
}
