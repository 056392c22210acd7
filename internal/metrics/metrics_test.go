package metrics

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aktagon/content-pipeline/internal/apperr"
)

func TestObserveStage(t *testing.T) {
	r := NewRecorder("run-1")
	r.ObserveStage("content", time.Now(), nil)
	r.ObserveStage("content", time.Now(), nil)
	r.ObserveStage("image", time.Now(), apperr.WriteFailed("hero.png", fs.ErrPermission))
	r.ObserveStage("valuation", time.Now(), errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(r.stageRuns.WithLabelValues("content", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.stageRuns.WithLabelValues("image", "write_failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.stageRuns.WithLabelValues("valuation", "error")))
	assert.Equal(t, 3, testutil.CollectAndCount(r.stageDuration))
}

func TestFallbackAndTextfile(t *testing.T) {
	r := NewRecorder("run-2")
	r.Fallback("text generator")
	r.Fallback("text generator")
	r.Fallback("trends service")
	r.ArtifactsVerified(14)

	expected := `
# HELP content_pipeline_fallbacks_total Deterministic fallbacks taken per collaborator
# TYPE content_pipeline_fallbacks_total counter
content_pipeline_fallbacks_total{collaborator="text generator",run_id="run-2"} 2
content_pipeline_fallbacks_total{collaborator="trends service",run_id="run-2"} 1
`
	require.NoError(t, testutil.GatherAndCompare(r.Registry(), strings.NewReader(expected), "content_pipeline_fallbacks_total"))

	path := filepath.Join(t.TempDir(), "pipeline.prom")
	require.NoError(t, r.WriteTextfile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `content_pipeline_artifacts_verified_total{run_id="run-2"} 14`)
}
