package runner

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/sylva-labs/algorun/internal/execute"
	"github.com/sylva-labs/algorun/internal/ledger"
)

// StepResult reports the outcome of one cleanup step.
type StepResult struct {
	Name string
	Err  error
}

// cleanup is the single exit funnel of every invocation that is not
// suspended: it removes the container, the run image, the algorithm
// image and the per-run directories, each attempted independently of
// the others' outcome. The boolean verdict covers the three container
// engine removals; directory removal is reported but excluded from the
// verdict (see DESIGN.md). Persistence errors are ignored here, best
// effort being the point of cleanup.
func (r *Runner) cleanup(ctx context.Context, runID string) ([]StepResult, bool) {
	_ = r.store.StartSection(ctx, runID, ledger.SectionCleanup)
	sink := execute.LineSink(func(line string) {
		_ = r.store.AppendLogLine(ctx, runID, ledger.SectionCleanup, line)
	})

	engineSteps := []struct {
		name string
		args []string
	}{
		{"remove container", []string{"rm", runID}},
		{"remove run image", []string{"rmi", r.runImage(runID)}},
		{"remove algorithm image", []string{"rmi", r.algorithmImage(runID)}},
	}

	var results []StepResult
	ok := true
	for _, st := range engineSteps {
		err := r.exec.Run(ctx, "", sink, "docker", st.args...)
		results = append(results, StepResult{Name: st.name, Err: err})
		if err != nil {
			ok = false
			sink(fmt.Sprintf("%s failed: %v", st.name, err))
		}
	}

	for _, dir := range []string{r.workDir(runID), r.scratchDir(runID)} {
		err := os.RemoveAll(dir)
		results = append(results, StepResult{Name: "remove " + dir, Err: err})
		if err != nil {
			sink(fmt.Sprintf("removing %s failed: %v", dir, err))
		}
	}

	status := ledger.SectionStatusSuccess
	if !ok {
		status = ledger.SectionStatusFailure
	}
	_ = r.store.EndSection(ctx, runID, ledger.SectionCleanup, status)
	return results, ok
}

func failedStepNames(steps []StepResult) string {
	var names []string
	for _, st := range steps {
		if st.Err != nil {
			names = append(names, st.Name)
		}
	}
	return strings.Join(names, ", ")
}

// collectManifest walks the collected output tree and records the
// relative path and size of every regular file.
func collectManifest(root string) ([]ledger.OutputFile, error) {
	var files []ledger.OutputFile
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, ledger.OutputFile{
			FileName: d.Name(),
			FilePath: filepath.ToSlash(rel),
			FileSize: info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk output directory: %w", err)
	}
	return files, nil
}
