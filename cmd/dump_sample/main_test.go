package main

import (
	"strings"
	"testing"

	"SlotDB/config"
	storageengine "SlotDB/storage_engine"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDumpHeapFiles(t *testing.T) {
	cfg := config.Default(t.TempDir())
	se, err := storageengine.NewStorageEngine(cfg)
	require.NoError(t, err)
	hf, err := se.CreateTable("t")
	require.NoError(t, err)
	_, err = hf.InsertRecord([]byte("abc"))
	require.NoError(t, err)
	require.NoError(t, se.Close())

	var out strings.Builder
	require.NoError(t, dumpHeapFiles(&out, cfg.DataDir))
	assert.Contains(t, out.String(), "INSPECT t.heap")
	assert.Contains(t, out.String(), "total: 1 records")
}

func TestDumpHeapFilesBadPattern(t *testing.T) {
	var out strings.Builder
	assert.Error(t, dumpHeapFiles(&out, "["))
	assert.Empty(t, out.String())
}
