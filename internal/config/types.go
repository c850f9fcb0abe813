// Package config provides configuration for algorun. Settings come
// from algorun.yaml, ALGORUN_* environment variables and CLI flags,
// layered in that order.
package config

// RunnerConfig holds the orchestrator's filesystem and container
// engine conventions.
type RunnerConfig struct {
	// Path is the base directory for per-run working directories.
	Path string `koanf:"path"`
	// OutputPath is the base directory for collected run outputs.
	OutputPath string `koanf:"output_path"`
	// DockerfileTemplate is the run-image Dockerfile template file.
	DockerfileTemplate string `koanf:"dockerfile_template"`
	// MountPath is the container mount point of the data workspace.
	MountPath string `koanf:"mount_path"`
	// ContainerOutputDir is the container directory collected after
	// the algorithm exits.
	ContainerOutputDir string `koanf:"container_output_dir"`
}

// DatabaseConfig holds the ledger database location.
type DatabaseConfig struct {
	Path string `koanf:"path"`
}

// DataServiceConfig holds the data-provisioning service endpoint.
type DataServiceConfig struct {
	BaseURL string `koanf:"base_url"`
	Token   string `koanf:"token"`
	// WorkspacePath is the host directory under which provisioned
	// workspaces appear.
	WorkspacePath string `koanf:"workspace_path"`
}

// GitHubConfig holds the repository that defines run orders.
type GitHubConfig struct {
	Repository string `koanf:"repository"`
	Token      string `koanf:"token"`
}

// SchedulerConfig holds the local concurrency ceiling.
type SchedulerConfig struct {
	MaxConcurrent int `koanf:"max_concurrent"`
	// Signature is the process-table pattern that identifies a running
	// orchestration invocation.
	Signature string `koanf:"signature"`
}

// APIConfig holds the read-only query API settings.
type APIConfig struct {
	Port int `koanf:"port"`
}

// Config is the complete algorun configuration.
type Config struct {
	Runner      RunnerConfig      `koanf:"runner"`
	Database    DatabaseConfig    `koanf:"database"`
	DataService DataServiceConfig `koanf:"data_service"`
	GitHub      GitHubConfig      `koanf:"github"`
	Scheduler   SchedulerConfig   `koanf:"scheduler"`
	API         APIConfig         `koanf:"api"`
	Verbose     bool              `koanf:"verbose"`
}
