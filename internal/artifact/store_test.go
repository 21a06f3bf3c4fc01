package artifact

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShaniStaretz-ai/FinalProject/internal/dataset"
	"github.com/ShaniStaretz-ai/FinalProject/internal/encoder"
	"github.com/ShaniStaretz-ai/FinalProject/internal/estimator"
)

func testPipeline() *Pipeline {
	return &Pipeline{
		ModelType: "linear",
		Encoder: &encoder.Encoder{
			FeatureCols: []string{"age"},
			Kinds:       map[string]dataset.ColumnKind{"age": dataset.KindNumeric},
			Categories:  map[string][]string{},
			TrainedCols: []string{"age"},
		},
		Estimator: &estimator.Linear{FitIntercept: true, Coef: []float64{2}, Intercept: 5},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	metrics := map[string]float64{"r2_score": 0.9}
	path, err := store.Save("1_demo", testPipeline(), metrics)
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.True(t, store.Exists("1_demo"))

	loaded, err := store.Load("1_demo")
	require.NoError(t, err)
	assert.Equal(t, "linear", loaded.ModelType)
	assert.Equal(t, []string{"age"}, loaded.Encoder.TrainedCols)

	// the estimator comes back as its concrete type and still predicts
	pred, err := loaded.Estimator.Predict([]float64{3})
	require.NoError(t, err)
	assert.InDelta(t, 11, pred, 1e-9)
}

func TestSaveWritesMetricsSidecar(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	_, err = store.Save("1_demo", testPipeline(), map[string]float64{"r2_score": 0.5})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "1_demo_metrics.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "r2_score")
}

func TestLoadMissing(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Load("nope")
	assert.ErrorIs(t, err, ErrArtifactNotFound)
}

func TestDelete(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	_, err = store.Save("1_demo", testPipeline(), map[string]float64{})
	require.NoError(t, err)

	existed, err := store.Delete("1_demo")
	require.NoError(t, err)
	assert.True(t, existed)
	assert.False(t, store.Exists("1_demo"))
	assert.NoFileExists(t, filepath.Join(dir, "1_demo_metrics.json"))

	existed, err = store.Delete("1_demo")
	require.NoError(t, err)
	assert.False(t, existed)
}

func TestPathTraversalRejected(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"", "../escape", "a/b", `a\b`, "..", "x..y"} {
		_, err := store.Save(name, testPipeline(), nil)
		assert.ErrorIs(t, err, ErrInvalidName, "name %q", name)

		_, err = store.Load(name)
		assert.ErrorIs(t, err, ErrInvalidName, "name %q", name)

		_, err = store.Delete(name)
		assert.ErrorIs(t, err, ErrInvalidName, "name %q", name)

		assert.False(t, store.Exists(name), "name %q", name)
	}
}
