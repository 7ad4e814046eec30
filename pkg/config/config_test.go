package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWithoutPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadReadsYAMLOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "node.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
nodeId: node-7
raftAddr: 10.0.0.7:7946
partitionCount: 3
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "node-7", cfg.NodeId)
	assert.Equal(t, "10.0.0.7:7946", cfg.RaftAddr)
	assert.Equal(t, int32(3), cfg.PartitionCount)
	assert.Equal(t, Default().DataDir, cfg.DataDir)
}

func TestLoadAppliesEnvOverridesAfterYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "node.yaml")
	require.NoError(t, os.WriteFile(path, []byte("nodeId: node-from-yaml\n"), 0644))

	t.Setenv("FLOWMESH_NODE_ID", "node-from-env")
	t.Setenv("FLOWMESH_PARTITION_COUNT", "5")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "node-from-env", cfg.NodeId)
	assert.Equal(t, int32(5), cfg.PartitionCount)
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	_, err := Load("/nonexistent/node.yaml")
	assert.Error(t, err)
}
