package runner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderRunDockerfile(t *testing.T) {
	tmpl := filepath.Join(t.TempDir(), "Dockerfile.run")
	require.NoError(t, os.WriteFile(tmpl, []byte(
		"FROM {{RUN_ID}}-algorithm\nENV WORKSPACE={{WORKSPACE_ID}}\nCMD [\"./run.sh\"]\n"), 0o644))

	r := &Runner{cfg: Config{DockerfileTemplate: tmpl}}
	scratch := filepath.Join(t.TempDir(), "scratch")
	require.NoError(t, r.renderRunDockerfile("run-42", "ws-7", scratch))

	got, err := os.ReadFile(filepath.Join(scratch, "Dockerfile"))
	require.NoError(t, err)
	assert.Equal(t,
		"FROM run-42-algorithm\nENV WORKSPACE=ws-7\nCMD [\"./run.sh\"]\n",
		string(got))
}

func TestRenderRunDockerfile_MissingTemplate(t *testing.T) {
	r := &Runner{cfg: Config{DockerfileTemplate: "/nonexistent/Dockerfile.run"}}
	err := r.renderRunDockerfile("run-42", "ws-7", t.TempDir())
	require.Error(t, err)
}
