package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/Faultbox/vmap/pkg/math"
	"github.com/Faultbox/vmap/pkg/vmap"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCommand(t *testing.T, command string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(command, args, &out)
	return out.String(), err
}

func TestCmdInfo(t *testing.T) {
	dir := createTestModels(t)

	out, err := runCommand(t, "info", filepath.Join(dir, "pool.vmo"))
	require.NoError(t, err)
	assert.Contains(t, out, "Root ID:   2")
	assert.Contains(t, out, "Groups:    1")
	assert.Contains(t, out, "Triangles: 12")
	assert.Contains(t, out, "Group 0: id 20, flags 0x8")
	assert.Contains(t, out, "liquid     type 4, flat at 0.500")
	assert.Contains(t, out, "Group tree: 1 nodes, 1 objects")
	assert.Regexp(t, `mesh tree  \d+ nodes, 12 objects`, out)
}

func TestCmdInfoExtensionFallback(t *testing.T) {
	dir := createTestModels(t)

	out, err := runCommand(t, "info", filepath.Join(dir, "slab"))
	require.NoError(t, err)
	assert.Contains(t, out, "Root ID:   1")
}

func TestCmdRay(t *testing.T) {
	dir := createTestModels(t)
	slab := filepath.Join(dir, "slab.vmo")

	out, err := runCommand(t, "ray", slab, "5.3", "5.4", "20", "0", "0", "-1")
	require.NoError(t, err)
	assert.Contains(t, out, "Hit at distance 19.0000")

	out, err = runCommand(t, "ray", slab, "5.3", "5.4", "20", "0", "0", "-1", "10")
	require.NoError(t, err)
	assert.Contains(t, out, "No hit")

	_, err = runCommand(t, "ray", slab, "0", "0", "0", "0", "0", "0")
	assert.ErrorIs(t, err, errUsage)
}

func TestCmdHeight(t *testing.T) {
	dir := createTestModels(t)

	out, err := runCommand(t, "height", filepath.Join(dir, "pool.vmo"), "5.3", "5.4", "4")
	require.NoError(t, err)
	assert.Contains(t, out, "Ground:  1.0000")
	assert.Contains(t, out, "Group:   20")

	out, err = runCommand(t, "height", filepath.Join(dir, "pool.vmo"), "50", "50", "4")
	require.NoError(t, err)
	assert.Contains(t, out, "No ground")
}

func TestCmdLiquid(t *testing.T) {
	dir := createTestModels(t)

	out, err := runCommand(t, "liquid", filepath.Join(dir, "pool.vmo"), "5.3", "5.4", "4")
	require.NoError(t, err)
	assert.Contains(t, out, "Level: 0.5000")
	assert.Contains(t, out, "Type:  4")

	out, err = runCommand(t, "liquid", filepath.Join(dir, "slab.vmo"), "5.3", "5.4", "0.5")
	require.NoError(t, err)
	assert.Contains(t, out, "No liquid in group 10")
}

func TestCmdManifest(t *testing.T) {
	dir := createTestModels(t)

	out, err := runCommand(t, "manifest", filepath.Join(dir, "manifest"))
	require.NoError(t, err)
	assert.Regexp(t, `(?s)3\s+m2\s+slab\.vmo.*7\s+wmo\s+pool\.vmo`, out)
	assert.Contains(t, out, "(2 records, 1 world map objects)")

	out, err = runCommand(t, "manifest", "-n", "1", filepath.Join(dir, "manifest"))
	require.NoError(t, err)
	assert.NotContains(t, out, "pool.vmo")
}

func writeSpawns(t *testing.T, spawns ...vmap.ModelSpawn) string {
	t.Helper()
	var buf bytes.Buffer
	for _, s := range spawns {
		_, err := s.WriteTo(&buf)
		require.NoError(t, err)
	}
	path := filepath.Join(t.TempDir(), "spawns")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestCmdSpawns(t *testing.T) {
	path := writeSpawns(t,
		vmap.ModelSpawn{ID: 11, Pos: math.Vec3{X: 1, Y: 2, Z: 3}, Scale: 1, Name: "pool.vmo"},
		vmap.ModelSpawn{Flags: vmap.ModM2, ID: 12, Scale: 0.5, Name: "slab.vmo"},
	)

	out, err := runCommand(t, "spawns", path)
	require.NoError(t, err)
	assert.Regexp(t, `11\s+wmo\s+pool\.vmo`, out)
	assert.Regexp(t, `12\s+m2\s+slab\.vmo.*scale 0\.500`, out)
	assert.Contains(t, out, "(2 spawns)")

	out, err = runCommand(t, "spawns", "-n", "1", path)
	require.NoError(t, err)
	assert.NotContains(t, out, "slab.vmo")
	assert.Contains(t, out, "(2 spawns)")
}

func TestCmdSpawnsTruncated(t *testing.T) {
	path := writeSpawns(t, vmap.ModelSpawn{ID: 11, Scale: 1, Name: "pool.vmo"})
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data[:len(data)-3], 0o644))

	_, err = runCommand(t, "spawns", path)
	assert.ErrorIs(t, err, vmap.ErrTruncated)
}

func TestRunErrors(t *testing.T) {
	dir := createTestModels(t)

	tests := []struct {
		name    string
		command string
		args    []string
	}{
		{"unknown command", "frobnicate", nil},
		{"info without file", "info", nil},
		{"height with bad number", "height", []string{filepath.Join(dir, "slab.vmo"), "1", "x", "3"}},
		{"manifest bad flag", "manifest", []string{"-bogus", "file"}},
		{"spawns without file", "spawns", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCommand(t, tt.command, tt.args...)
			assert.ErrorIs(t, err, errUsage)
		})
	}

	_, err := runCommand(t, "info", filepath.Join(dir, "missing.vmo"))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, errUsage)
}

func TestHelp(t *testing.T) {
	out, err := runCommand(t, "help")
	require.NoError(t, err)
	assert.Contains(t, out, "vmaptool <command>")
}
