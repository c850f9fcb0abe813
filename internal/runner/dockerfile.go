package runner

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Placeholder tokens of the run-image Dockerfile template.
const (
	tokenRunID       = "{{RUN_ID}}"
	tokenWorkspaceID = "{{WORKSPACE_ID}}"
)

// renderRunDockerfile substitutes the template tokens and writes the
// resulting Dockerfile into the scratch build context. The template's
// FROM line references the algorithm image through the run id token,
// which layers the run image on the image built from the clone.
func (r *Runner) renderRunDockerfile(runID, workspace, scratch string) error {
	tmpl, err := os.ReadFile(r.cfg.DockerfileTemplate)
	if err != nil {
		return fmt.Errorf("failed to read dockerfile template: %w", err)
	}

	rendered := strings.NewReplacer(
		tokenRunID, runID,
		tokenWorkspaceID, workspace,
	).Replace(string(tmpl))

	if err := os.MkdirAll(scratch, 0o755); err != nil {
		return fmt.Errorf("failed to create scratch directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(scratch, "Dockerfile"), []byte(rendered), 0o644); err != nil {
		return fmt.Errorf("failed to write rendered dockerfile: %w", err)
	}
	return nil
}
