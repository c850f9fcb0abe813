package ledger

import "context"

// Store is the persistence contract for run orders and runs. Every
// operation maps to a single atomic statement (or transaction) so that
// concurrent orchestration invocations never observe partial writes.
//
// Any error returned by a Store method is fatal to the orchestration
// step that triggered it; the store itself never retries.
type Store interface {
	// InsertOrderIfAbsent persists the order keyed by its SourceID.
	// It reports whether a new row was inserted; a duplicate SourceID
	// is a no-op that leaves the existing order unchanged.
	InsertOrderIfAbsent(ctx context.Context, order *RunOrder) (bool, error)

	// GetOrder returns the order with the given id, or nil if absent.
	GetOrder(ctx context.Context, id string) (*RunOrder, error)

	// ListOrders returns all orders, newest first.
	ListOrders(ctx context.Context) ([]*RunOrder, error)

	// StartRun creates a RUNNING run for the order and returns its id.
	StartRun(ctx context.Context, orderID string) (string, error)

	// FindWaitingForData returns the most recent WAITING_FOR_DATA run
	// for the order, or nil if none exists.
	FindWaitingForData(ctx context.Context, orderID string) (*Run, error)

	// SetRunStatus updates a run's status without touching timestamps.
	SetRunStatus(ctx context.Context, runID string, status RunStatus) error

	// EndRun sets the run's terminal status and stamps its end time.
	EndRun(ctx context.Context, runID string, status RunStatus) error

	// LogWorkspace records the provisioning workspace handle on the run.
	LogWorkspace(ctx context.Context, runID, workspaceID string) error

	// RecordOutputFiles replaces the run's output file manifest.
	RecordOutputFiles(ctx context.Context, runID string, files []OutputFile) error

	// StartSection upserts the section and stamps its start time.
	StartSection(ctx context.Context, runID string, section Section) error

	// AppendLogLine appends one timestamped line to the section log.
	AppendLogLine(ctx context.Context, runID string, section Section, line string) error

	// EndSection stamps the section's end time and terminal status.
	EndSection(ctx context.Context, runID string, section Section, status SectionStatus) error

	// FindEligibleOrderIDs returns up to limit order ids eligible to
	// (re)start: CREATED orders whose latest run is absent or
	// WAITING_FOR_DATA, waiting orders first, then newest first.
	FindEligibleOrderIDs(ctx context.Context, limit int) ([]string, error)

	// GetRun returns the run with sections, logs and output manifest,
	// or nil if absent.
	GetRun(ctx context.Context, runID string) (*Run, error)

	// ListRuns returns all runs for an order, newest first, without
	// section logs or output manifests.
	ListRuns(ctx context.Context, orderID string) ([]*Run, error)
}
