package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sampa-labs/brgen-cli/internal/model"
	"github.com/sampa-labs/brgen-cli/internal/store"
)

func TestFormatRunsList(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	runs := []model.GenerationRun{
		{
			ID:          "abc12345-6789-0000-0000-000000000000",
			Params:      model.RunParams{Quantity: 100, OutputPath: "output/output.jsonl"},
			RecordCount: 100,
			Status:      model.RunStatusComplete,
			CreatedAt:   now,
			UpdatedAt:   now.Add(2 * time.Minute),
		},
		{
			ID:        "def12345-6789-0000-0000-000000000000",
			Params:    model.RunParams{Quantity: 5},
			Status:    model.RunStatusRunning,
			CreatedAt: now.Add(-1 * time.Hour),
			UpdatedAt: now.Add(-30 * time.Minute),
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)

	out := buf.String()
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "STATUS")
	assert.Contains(t, out, "RECORDS")
	assert.Contains(t, out, "abc12345")
	assert.Contains(t, out, "complete")
	assert.Contains(t, out, "def12345")
	assert.Contains(t, out, "running")
	assert.Contains(t, out, "output/output.jsonl")
	assert.Contains(t, out, "2026-03-14 09:30")
	assert.Contains(t, out, "2m0s")
}

func TestFormatRunsList_NoOutputPath(t *testing.T) {
	runs := []model.GenerationRun{
		{
			ID:        "abc12345-6789-0000-0000-000000000000",
			Params:    model.RunParams{Quantity: 1},
			Status:    model.RunStatusFailed,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)

	assert.Contains(t, buf.String(), "-")
	assert.Contains(t, buf.String(), "failed")
}

func TestComputeRunStats(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	runs := []model.GenerationRun{
		{Status: model.RunStatusComplete, RecordCount: 100, CreatedAt: now, UpdatedAt: now.Add(10 * time.Second)},
		{Status: model.RunStatusComplete, RecordCount: 50, CreatedAt: now, UpdatedAt: now.Add(20 * time.Second)},
		{Status: model.RunStatusFailed, CreatedAt: now, UpdatedAt: now.Add(time.Second)},
		{Status: model.RunStatusRunning, CreatedAt: now, UpdatedAt: now},
	}

	s := computeRunStats(runs)

	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 2, s.Complete)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 1, s.Running)
	assert.Equal(t, 150, s.Records)
	assert.InDelta(t, 15.0, s.AvgDurSecs, 0.001)
}

func TestComputeRunStats_Empty(t *testing.T) {
	s := computeRunStats(nil)

	assert.Equal(t, 0, s.Total)
	assert.Equal(t, 0.0, s.AvgDurSecs)
}

func TestFormatRunStats(t *testing.T) {
	var buf bytes.Buffer
	formatRunStats(&buf, runStats{
		Total:      4,
		Complete:   2,
		Failed:     1,
		Running:    1,
		Records:    150,
		AvgDurSecs: 15,
	}, store.LookupStats{Total: 20, Failed: 3})

	out := buf.String()
	assert.Contains(t, out, "Total runs:")
	assert.Contains(t, out, "150")
	assert.Contains(t, out, "15.0s")
	assert.Contains(t, out, "Bridge lookups:")
	assert.Contains(t, out, "20")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "abc12345", truncateID("abc12345-6789-0000-0000-000000000000"))
	assert.Equal(t, "short", truncateID("short"))
	assert.Equal(t, "", truncateID(""))
}
