package scenegraph_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/scenegraph"
	"github.com/soundprediction/scenegraph/pkg/codec"
	"github.com/soundprediction/scenegraph/pkg/config"
	"github.com/soundprediction/scenegraph/pkg/driver"
	"github.com/soundprediction/scenegraph/pkg/linker"
	"github.com/soundprediction/scenegraph/pkg/schema"
	"github.com/soundprediction/scenegraph/pkg/types"
)

func newClient(t *testing.T) *scenegraph.Client {
	t.Helper()
	store, err := driver.NewBadgerDriver(driver.BadgerConfig{InMemory: true})
	require.NoError(t, err)

	class, err := scenegraph.LoadSchema(config.SchemaConfig{})
	require.NoError(t, err)

	client, err := scenegraph.NewClient(store, class, linker.Exact{}, nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close(context.Background()) })
	return client
}

func cup() types.Attributes {
	return types.Attributes{
		"hasType":        "Cup",
		"hasVersion":     "Ceramic Cup",
		"hasPosition":    types.Attributes{"x": 1.0, "y": 1.0, "z": 1.0},
		"hasOrientation": types.Attributes{"qx": 0.1, "qy": 0.1, "qz": 0.1, "qw": 0.1},
	}
}

func TestClientProcessAndRead(t *testing.T) {
	ctx := context.Background()
	client := newClient(t)
	require.NoError(t, client.Ping(ctx))

	res, err := client.Process(ctx, []*types.ObservedObject{types.NewObservedObject(cup())})
	require.NoError(t, err)
	require.Len(t, res.Committed(), 1)

	entities, excluded, err := client.Entities(ctx)
	require.NoError(t, err)
	assert.Empty(t, excluded)
	require.Len(t, entities, 1)

	want, err := codec.New(client.Schema()).Normalize(cup())
	require.NoError(t, err)
	e, err := client.Entity(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, want, e.Attributes)

	_, err = client.Entity(ctx, "2")
	assert.ErrorIs(t, err, scenegraph.ErrEntityNotFound)

	_, err = client.Entity(ctx, "bad id")
	assert.ErrorIs(t, err, types.ErrInvalidID)

	assert.Equal(t, "SceneObject", client.Schema().Name)
}

func TestClientSerializesProcess(t *testing.T) {
	ctx := context.Background()
	client := newClient(t)

	const workers = 8
	ids := make(chan string, workers)
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			obs := cup()
			obs["hasVersion"] = "Cup " + string(rune('A'+i))
			res, err := client.Process(ctx, []*types.ObservedObject{types.NewObservedObject(obs)})
			if err != nil {
				errs <- err
				return
			}
			ids <- res.Results[0].ID
		}(i)
	}

	seen := make(map[string]bool)
	for i := 0; i < workers; i++ {
		select {
		case err := <-errs:
			t.Fatalf("process: %v", err)
		case id := <-ids:
			assert.False(t, seen[id], "identifier %s handed out twice", id)
			seen[id] = true
		case <-time.After(10 * time.Second):
			t.Fatal("timed out waiting for workers")
		}
	}

	entities, _, err := client.Entities(ctx)
	require.NoError(t, err)
	assert.Len(t, entities, workers)
}

func TestNewClientRequiresCollaborators(t *testing.T) {
	class, err := scenegraph.LoadSchema(config.SchemaConfig{})
	require.NoError(t, err)

	_, err = scenegraph.NewClient(nil, class, nil, nil, nil)
	assert.Error(t, err)

	store, err := driver.NewBadgerDriver(driver.BadgerConfig{InMemory: true})
	require.NoError(t, err)
	defer store.Close(context.Background())
	_, err = scenegraph.NewClient(store, nil, nil, nil, nil)
	assert.Error(t, err)
}

func TestLoadSchema(t *testing.T) {
	class, err := scenegraph.LoadSchema(config.SchemaConfig{Orientation: "euler"})
	require.NoError(t, err)
	orientation, ok := class.Attribute("hasOrientation")
	require.True(t, ok)
	composite, ok := orientation.Kind.(schema.Composite)
	require.True(t, ok)
	assert.Equal(t, []string{"pitch", "roll", "yaw"}, composite.Class.Names())

	_, err = scenegraph.LoadSchema(config.SchemaConfig{Orientation: "matrix"})
	assert.Error(t, err)

	_, err = scenegraph.LoadSchema(config.SchemaConfig{Class: "Robot"})
	var se *schema.SchemaError
	assert.ErrorAs(t, err, &se)
}

func TestNewFromConfig(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{
		Store:   config.StoreConfig{Driver: "badger", InMemory: true},
		Linker:  config.LinkerConfig{Mode: "exact"},
		Updater: config.UpdaterConfig{Allocator: "uuid"},
	}

	client, err := scenegraph.NewFromConfig(ctx, cfg, nil)
	require.NoError(t, err)
	defer client.Close(ctx)

	res, err := client.Process(ctx, []*types.ObservedObject{types.NewObservedObject(cup())})
	require.NoError(t, err)
	assert.Len(t, res.Results[0].ID, 36)

	cfg.Linker.Mode = "fuzzy"
	_, err = scenegraph.NewFromConfig(ctx, cfg, nil)
	assert.Error(t, err)
}
