// Package ledger is the durable record of run orders and run attempts.
// It is the single source of truth for orchestration and for external
// readers; no other component persists state.
package ledger

import "time"

// OrderStatus is the lifecycle status of a run order.
type OrderStatus string

const (
	OrderStatusCreated OrderStatus = "CREATED"
	OrderStatusInvalid OrderStatus = "INVALID"
)

// RunStatus is the lifecycle status of a run attempt.
type RunStatus string

const (
	RunStatusRunning        RunStatus = "RUNNING"
	RunStatusWaitingForData RunStatus = "WAITING_FOR_DATA"
	RunStatusSuccess        RunStatus = "SUCCESS"
	RunStatusFailure        RunStatus = "FAILURE"
)

// Terminal reports whether the status is final. A terminal run is
// immutable and carries an end timestamp.
func (s RunStatus) Terminal() bool {
	return s == RunStatusSuccess || s == RunStatusFailure
}

// Section names one stage of the execution pipeline. Sections are
// persisted as sub-records of a run, in pipeline order.
type Section string

const (
	SectionOrderData              Section = "ORDER_DATA"
	SectionClone                  Section = "CLONE"
	SectionBuildAlgorithmImage    Section = "BUILD_ALGORITHM_IMAGE"
	SectionBuildAlgorithmRunImage Section = "BUILD_ALGORITHM_RUN_IMAGE"
	SectionWaitForData            Section = "WAIT_FOR_DATA"
	SectionStartAlgorithm         Section = "START_ALGORITHM"
	SectionRunAlgorithm           Section = "RUN_ALGORITHM"
	SectionWaitForAlgorithm       Section = "WAIT_FOR_ALGORITHM"
	SectionCopyOutput             Section = "COPY_OUTPUT"
	SectionCleanup                Section = "CLEANUP"
)

// SectionStatus is the terminal status of a pipeline section.
type SectionStatus string

const (
	SectionStatusSuccess SectionStatus = "SUCCESS"
	SectionStatusFailure SectionStatus = "FAILURE"
)

// Algorithm identifies a versioned algorithm source repository.
type Algorithm struct {
	Name       string `json:"name"`
	Repository string `json:"repository"`
	Version    string `json:"version"`
}

// RunOrder is a validated intent to execute one algorithm version
// against one dataset. Orders are keyed by SourceID for de-duplication
// and are immutable after creation except for status transitions.
type RunOrder struct {
	ID        string      `json:"id"`
	SourceID  string      `json:"sourceId"`
	Source    string      `json:"source"`
	Algorithm Algorithm   `json:"algorithm"`
	Dataset   string      `json:"dataset,omitempty"`
	LocalPath string      `json:"localPath,omitempty"`
	Status    OrderStatus `json:"status"`
	CreatedAt time.Time   `json:"createdAt"`
}

// LogLine is one timestamped line of section output. Lines are
// append-only and ordering-sensitive.
type LogLine struct {
	Timestamp time.Time `json:"timestamp"`
	Line      string    `json:"line"`
}

// SectionRecord is the persisted state of one pipeline section.
type SectionRecord struct {
	Start  time.Time     `json:"start"`
	End    *time.Time    `json:"end,omitempty"`
	Status SectionStatus `json:"status,omitempty"`
	Log    []LogLine     `json:"log,omitempty"`
}

// OutputFile is one entry of a run's collected output manifest.
type OutputFile struct {
	FileName string `json:"fileName"`
	FilePath string `json:"filePath"`
	FileSize int64  `json:"fileSize"`
}

// Run is one execution attempt of a run order. Its ID doubles as the
// suffix for the working directory and image names of the attempt. A
// run may span multiple process invocations while waiting for data.
type Run struct {
	ID          string                     `json:"id"`
	OrderID     string                     `json:"runOrder"`
	Status      RunStatus                  `json:"status"`
	Start       time.Time                  `json:"start"`
	End         *time.Time                 `json:"end,omitempty"`
	Workspace   string                     `json:"workspace,omitempty"`
	Sections    map[Section]*SectionRecord `json:"sections,omitempty"`
	OutputFiles []OutputFile               `json:"outputFiles,omitempty"`
}
