// Package execute runs external commands and streams their merged
// output line-by-line while they execute.
package execute

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
)

// maxLineSize bounds a single output line (docker build output can
// carry long progress lines).
const maxLineSize = 1024 * 1024

// LineSink receives one output line at a time, as it is produced.
type LineSink func(line string)

// Executor runs external commands.
type Executor struct {
	logger *slog.Logger
}

// New creates an Executor.
func New(logger *slog.Logger) *Executor {
	return &Executor{logger: logger}
}

// Run executes the command in dir, streaming merged stdout/stderr to
// sink per line as it arrives. A non-zero exit comes back as an
// ordinary error value.
func (e *Executor) Run(ctx context.Context, dir string, sink LineSink, name string, args ...string) error {
	_, err := e.run(ctx, dir, sink, name, args...)
	return err
}

// Output behaves like Run but additionally returns the full captured
// text, for callers that need the command's output as data (the
// container exit-code probe).
func (e *Executor) Output(ctx context.Context, dir string, sink LineSink, name string, args ...string) (string, error) {
	return e.run(ctx, dir, sink, name, args...)
}

func (e *Executor) run(ctx context.Context, dir string, sink LineSink, name string, args ...string) (string, error) {
	e.logger.Debug("executing command", "command", name, "args", strings.Join(args, " "), "dir", dir)

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	// Merge stdout and stderr through one pipe so the sink observes
	// lines in the order the process produced them.
	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	var (
		buf     strings.Builder
		scanErr error
		done    sync.WaitGroup
	)
	done.Add(1)
	go func() {
		defer done.Done()
		scanner := bufio.NewScanner(pr)
		scanner.Buffer(make([]byte, 64*1024), maxLineSize)
		for scanner.Scan() {
			line := scanner.Text()
			buf.WriteString(line)
			buf.WriteByte('\n')
			if sink != nil {
				sink(line)
			}
		}
		if err := scanner.Err(); err != nil {
			scanErr = err
			// Keep draining so the writer never blocks on a full pipe
			// and the command can run to completion.
			_, _ = io.Copy(io.Discard, pr)
		}
	}()

	runErr := cmd.Run()
	_ = pw.Close()
	done.Wait()

	if runErr == nil && scanErr != nil {
		runErr = fmt.Errorf("failed to scan command output: %w", scanErr)
	}
	if runErr != nil {
		e.logger.Debug("command failed", "command", name, "error", runErr)
	}
	return buf.String(), runErr
}
