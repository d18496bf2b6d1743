package archive_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/planetquant/quant-engine/internal/archive"
	"github.com/planetquant/quant-engine/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestArchiverSave(t *testing.T) {
	fs, err := archive.NewLocalFS(t.TempDir())
	require.NoError(t, err)
	a := archive.NewArchiver(fs, zap.NewNop())

	score := 65
	resp := core.AnalyzeResponse{
		InferenceResult: core.InferenceResult{
			ConfidenceScore: &score,
			Sentiment:       "bullish",
			Reasoning:       "test",
		},
		Question: "Will TSLA rise?",
	}

	path, err := a.Save(context.Background(), resp)
	require.NoError(t, err)

	today := time.Now().UTC().Format("2006-01-02")
	assert.True(t, strings.HasPrefix(path, "analyses/"+today+"/"), "path should be day-partitioned: %s", path)
	assert.True(t, strings.HasSuffix(path, ".json"), "path should end in .json: %s", path)

	data, err := fs.Read(context.Background(), path)
	require.NoError(t, err)

	var stored struct {
		ArchivedAt time.Time            `json:"archived_at"`
		Analysis   core.AnalyzeResponse `json:"analysis"`
	}
	require.NoError(t, json.Unmarshal(data, &stored))

	assert.Equal(t, "Will TSLA rise?", stored.Analysis.Question)
	require.NotNil(t, stored.Analysis.ConfidenceScore)
	assert.Equal(t, 65, *stored.Analysis.ConfidenceScore)
	assert.False(t, stored.ArchivedAt.IsZero(), "archived_at should be set")
}

func TestArchiverSaveUniquePaths(t *testing.T) {
	fs, err := archive.NewLocalFS(t.TempDir())
	require.NoError(t, err)
	a := archive.NewArchiver(fs, zap.NewNop())

	p1, err := a.Save(context.Background(), core.AnalyzeResponse{Question: "q"})
	require.NoError(t, err)
	p2, err := a.Save(context.Background(), core.AnalyzeResponse{Question: "q"})
	require.NoError(t, err)

	assert.NotEqual(t, p1, p2, "separate saves should get distinct paths")
}

func TestArchiverList(t *testing.T) {
	fs, err := archive.NewLocalFS(t.TempDir())
	require.NoError(t, err)
	a := archive.NewArchiver(fs, zap.NewNop())

	_, err = a.Save(context.Background(), core.AnalyzeResponse{Question: "one"})
	require.NoError(t, err)
	_, err = a.Save(context.Background(), core.AnalyzeResponse{Question: "two"})
	require.NoError(t, err)

	paths, err := a.List(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Len(t, paths, 2)
}
