package runner

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectManifest(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "plots"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "result.csv"), []byte("a,b\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "plots", "levels.png"), []byte("png"), 0o644))

	files, err := collectManifest(root)
	require.NoError(t, err)
	require.Len(t, files, 2)

	assert.Equal(t, "levels.png", files[0].FileName)
	assert.Equal(t, "plots/levels.png", files[0].FilePath)
	assert.Equal(t, int64(3), files[0].FileSize)
	assert.Equal(t, "result.csv", files[1].FileName)
	assert.Equal(t, "result.csv", files[1].FilePath)
	assert.Equal(t, int64(4), files[1].FileSize)
}

func TestCollectManifest_MissingRoot(t *testing.T) {
	_, err := collectManifest(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}

func TestFailedStepNames(t *testing.T) {
	steps := []StepResult{
		{Name: "remove container"},
		{Name: "remove run image", Err: errors.New("no such image")},
		{Name: "remove algorithm image", Err: errors.New("no such image")},
	}
	assert.Equal(t, "remove run image, remove algorithm image", failedStepNames(steps))
	assert.Empty(t, failedStepNames(steps[:1]))
}
