// Package runner drives a single algorithm execution through data
// acquisition, image build, containerized execution, output collection
// and cleanup.
//
// One Execute call is one orchestration invocation. An invocation that
// finds the dataset not yet provided parks the run in WAITING_FOR_DATA
// and returns cleanly; a later invocation for the same order resumes
// that run using its persisted id and workspace handle. The ledger is
// the only state shared between invocations.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/sylva-labs/algorun/internal/dataprov"
	"github.com/sylva-labs/algorun/internal/execute"
	"github.com/sylva-labs/algorun/internal/ledger"
)

// errDataNotReady suspends the invocation without failing the run.
var errDataNotReady = errors.New("data not ready")

// DataService orders datasets and probes workspace readiness.
type DataService interface {
	OrderDataset(ctx context.Context, dataset string) (string, error)
	Check(ctx context.Context, workspaceID string) (dataprov.Availability, error)
}

// Executor runs external commands, streaming output to a line sink.
type Executor interface {
	Run(ctx context.Context, dir string, sink execute.LineSink, name string, args ...string) error
	Output(ctx context.Context, dir string, sink execute.LineSink, name string, args ...string) (string, error)
}

// Config holds the filesystem and container-engine conventions of the
// orchestrator. All per-run paths and image names derive from the run
// id, so concurrent invocations never contend.
type Config struct {
	// WorkPath is the base directory for per-run clones.
	WorkPath string
	// OutputPath is the base directory for collected run outputs.
	OutputPath string
	// DockerfileTemplate is the path of the run-image Dockerfile
	// template. {{RUN_ID}} and {{WORKSPACE_ID}} tokens are substituted
	// verbatim before the build.
	DockerfileTemplate string
	// WorkspacePath is the host directory under which the provisioning
	// service stages workspaces.
	WorkspacePath string
	// MountPath is where the workspace is bind-mounted inside the
	// container (read-only).
	MountPath string
	// ContainerOutputDir is the container directory collected after
	// the algorithm exits.
	ContainerOutputDir string
}

// Runner is the orchestration state machine for one run order.
type Runner struct {
	cfg    Config
	store  ledger.Store
	data   DataService
	exec   Executor
	logger *slog.Logger
}

// New creates a Runner.
func New(cfg Config, store ledger.Store, data DataService, exec Executor, logger *slog.Logger) *Runner {
	if cfg.MountPath == "" {
		cfg.MountPath = "/data"
	}
	if cfg.ContainerOutputDir == "" {
		cfg.ContainerOutputDir = "/output"
	}
	return &Runner{cfg: cfg, store: store, data: data, exec: exec, logger: logger}
}

// Execute performs one orchestration invocation for the order: resume
// the waiting run if one exists, otherwise start a new one, then drive
// the pipeline as far as it can go. Every fatal condition after run
// creation funnels through cleanup before the run is closed FAILURE.
func (r *Runner) Execute(ctx context.Context, ord *ledger.RunOrder) error {
	if ord.Status != ledger.OrderStatusCreated {
		return fmt.Errorf("run order %s is %s, not runnable", ord.ID, ord.Status)
	}

	waiting, err := r.store.FindWaitingForData(ctx, ord.ID)
	if err != nil {
		return err
	}

	var runID, workspace string
	resumed := waiting != nil
	if resumed {
		runID, workspace = waiting.ID, waiting.Workspace
		r.logger.Info("resuming run", "run", runID, "order", ord.ID, "workspace", workspace)
	} else {
		runID, err = r.store.StartRun(ctx, ord.ID)
		if err != nil {
			return err
		}
		r.logger.Info("started run", "run", runID, "order", ord.ID)
	}

	pipeErr := r.pipeline(ctx, ord, runID, workspace, resumed)
	if errors.Is(pipeErr, errDataNotReady) {
		// Suspension, not failure: the working directory and images
		// stay in place for the invocation that resumes this run.
		r.logger.Info("run parked waiting for data", "run", runID, "order", ord.ID)
		return nil
	}

	steps, cleanOK := r.cleanup(ctx, runID)
	for _, st := range steps {
		if st.Err != nil {
			r.logger.Warn("cleanup step failed", "run", runID, "step", st.Name, "error", st.Err)
		}
	}

	status := ledger.RunStatusSuccess
	if pipeErr != nil || !cleanOK {
		status = ledger.RunStatusFailure
	}
	if err := r.store.EndRun(ctx, runID, status); err != nil {
		return errors.Join(pipeErr, err)
	}
	r.logger.Info("run finished", "run", runID, "status", status)

	if pipeErr != nil {
		return pipeErr
	}
	if !cleanOK {
		return fmt.Errorf("cleanup incomplete: %s", failedStepNames(steps))
	}
	return nil
}

// pipeline runs the pipeline stages in order. It returns
// errDataNotReady when the invocation should suspend.
func (r *Runner) pipeline(ctx context.Context, ord *ledger.RunOrder, runID, workspace string, resumed bool) error {
	if !resumed {
		ws, err := r.prepare(ctx, ord, runID)
		if err != nil {
			return err
		}
		workspace = ws
	}

	if err := r.waitForData(ctx, ord, runID, workspace); err != nil {
		return err
	}

	containerName := runID
	mount := fmt.Sprintf("%s:%s:ro", r.hostDataPath(ord, workspace), r.cfg.MountPath)
	if err := r.section(ctx, runID, ledger.SectionStartAlgorithm, func(sink execute.LineSink) error {
		return r.exec.Run(ctx, "", sink, "docker", "run",
			"--detach", "--name", containerName, "--volume", mount, r.runImage(runID))
	}); err != nil {
		return err
	}

	if err := r.section(ctx, runID, ledger.SectionRunAlgorithm, func(sink execute.LineSink) error {
		return r.exec.Run(ctx, "", sink, "docker", "logs", "--follow", containerName)
	}); err != nil {
		return err
	}

	// The log follow exiting cleanly says nothing about the
	// container's own result; probe the exit code explicitly.
	if err := r.section(ctx, runID, ledger.SectionWaitForAlgorithm, func(sink execute.LineSink) error {
		out, err := r.exec.Output(ctx, "", sink, "docker", "wait", containerName)
		if err != nil {
			return err
		}
		code := strings.TrimSpace(out)
		if code != "0" {
			return fmt.Errorf("algorithm exited with code %s", code)
		}
		return nil
	}); err != nil {
		return err
	}

	return r.section(ctx, runID, ledger.SectionCopyOutput, func(sink execute.LineSink) error {
		dest := r.outputDir(runID)
		// docker cp creates dest itself but not its parent; a fresh
		// host may not have the output base yet.
		if err := os.MkdirAll(r.cfg.OutputPath, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		src := containerName + ":" + r.cfg.ContainerOutputDir
		if err := r.exec.Run(ctx, "", sink, "docker", "cp", src, dest); err != nil {
			return err
		}
		files, err := collectManifest(dest)
		if err != nil {
			return err
		}
		sink(fmt.Sprintf("collected %d output files", len(files)))
		return r.store.RecordOutputFiles(ctx, runID, files)
	})
}

// prepare performs the one-time preparation of a fresh run: order the
// dataset, clone the pinned algorithm source, build the algorithm
// image and the run image layered on it. Failures here are fatal; a
// later invocation for the same order starts over from scratch because
// no WAITING_FOR_DATA run exists yet.
func (r *Runner) prepare(ctx context.Context, ord *ledger.RunOrder, runID string) (string, error) {
	workDir := r.workDir(runID)

	var workspace string
	if err := r.section(ctx, runID, ledger.SectionOrderData, func(sink execute.LineSink) error {
		if ord.LocalPath != "" {
			sink(fmt.Sprintf("using local data path %s, no dataset order required", ord.LocalPath))
			return nil
		}
		ws, err := r.data.OrderDataset(ctx, ord.Dataset)
		if err != nil {
			return err
		}
		if err := r.store.LogWorkspace(ctx, runID, ws); err != nil {
			return err
		}
		sink(fmt.Sprintf("ordered dataset %s into workspace %s", ord.Dataset, ws))
		workspace = ws
		return nil
	}); err != nil {
		return "", err
	}

	cloneURL := fmt.Sprintf("https://github.com/%s.git", ord.Algorithm.Repository)
	if err := r.section(ctx, runID, ledger.SectionClone, func(sink execute.LineSink) error {
		return r.exec.Run(ctx, "", sink, "git", "clone",
			"-c", "advice.detachedHead=false",
			"--branch", ord.Algorithm.Version, cloneURL, workDir)
	}); err != nil {
		return "", err
	}

	if err := r.section(ctx, runID, ledger.SectionBuildAlgorithmImage, func(sink execute.LineSink) error {
		return r.exec.Run(ctx, workDir, sink, "docker", "build", "--tag", r.algorithmImage(runID), ".")
	}); err != nil {
		return "", err
	}

	if err := r.section(ctx, runID, ledger.SectionBuildAlgorithmRunImage, func(sink execute.LineSink) error {
		scratch := r.scratchDir(runID)
		if err := r.renderRunDockerfile(runID, workspace, scratch); err != nil {
			return err
		}
		return r.exec.Run(ctx, scratch, sink, "docker", "build", "--tag", r.runImage(runID), ".")
	}); err != nil {
		return "", err
	}

	return workspace, nil
}

// waitForData is the data-wait gate, probed once per invocation.
func (r *Runner) waitForData(ctx context.Context, ord *ledger.RunOrder, runID, workspace string) error {
	if err := r.store.StartSection(ctx, runID, ledger.SectionWaitForData); err != nil {
		return err
	}

	if ord.LocalPath != "" {
		if err := r.store.AppendLogLine(ctx, runID, ledger.SectionWaitForData,
			fmt.Sprintf("local data path %s is immediately available", ord.LocalPath)); err != nil {
			return err
		}
		return r.store.EndSection(ctx, runID, ledger.SectionWaitForData, ledger.SectionStatusSuccess)
	}

	avail, err := r.data.Check(ctx, workspace)
	if err != nil {
		// Expired workspaces and probe failures are both terminal for
		// the attempt; only NotReady suspends.
		_ = r.store.AppendLogLine(ctx, runID, ledger.SectionWaitForData, err.Error())
		_ = r.store.EndSection(ctx, runID, ledger.SectionWaitForData, ledger.SectionStatusFailure)
		return err
	}

	if avail == dataprov.NotReady {
		if err := r.store.AppendLogLine(ctx, runID, ledger.SectionWaitForData,
			fmt.Sprintf("workspace %s not yet provided, parking run until the next scheduling pass", workspace)); err != nil {
			return err
		}
		if err := r.store.SetRunStatus(ctx, runID, ledger.RunStatusWaitingForData); err != nil {
			return err
		}
		return errDataNotReady
	}

	if err := r.store.AppendLogLine(ctx, runID, ledger.SectionWaitForData,
		fmt.Sprintf("workspace %s provided", workspace)); err != nil {
		return err
	}
	if err := r.store.EndSection(ctx, runID, ledger.SectionWaitForData, ledger.SectionStatusSuccess); err != nil {
		return err
	}
	// A resumed run was WAITING_FOR_DATA until now.
	return r.store.SetRunStatus(ctx, runID, ledger.RunStatusRunning)
}

// section brackets fn with the start/end bookkeeping of one pipeline
// section and wires its output into the section log. Persistence
// failures count as section failures.
func (r *Runner) section(ctx context.Context, runID string, sec ledger.Section, fn func(sink execute.LineSink) error) error {
	if err := r.store.StartSection(ctx, runID, sec); err != nil {
		return err
	}

	var sinkErr error
	sink := func(line string) {
		if err := r.store.AppendLogLine(ctx, runID, sec, line); err != nil && sinkErr == nil {
			sinkErr = err
		}
	}

	err := fn(sink)
	if err == nil {
		err = sinkErr
	}

	status := ledger.SectionStatusSuccess
	if err != nil {
		status = ledger.SectionStatusFailure
	}
	if endErr := r.store.EndSection(ctx, runID, sec, status); endErr != nil && err == nil {
		err = endErr
	}
	if err != nil {
		return fmt.Errorf("section %s: %w", sec, err)
	}
	return nil
}

func (r *Runner) hostDataPath(ord *ledger.RunOrder, workspace string) string {
	if ord.LocalPath != "" {
		return ord.LocalPath
	}
	return filepath.Join(r.cfg.WorkspacePath, workspace)
}

func (r *Runner) workDir(runID string) string {
	return filepath.Join(r.cfg.WorkPath, runID)
}

func (r *Runner) scratchDir(runID string) string {
	return filepath.Join(r.cfg.WorkPath, runID+"-run")
}

func (r *Runner) outputDir(runID string) string {
	return filepath.Join(r.cfg.OutputPath, runID)
}

func (r *Runner) algorithmImage(runID string) string {
	return runID + "-algorithm"
}

func (r *Runner) runImage(runID string) string {
	return runID + "-run"
}
