package config

// Default configuration values.
const (
	DefaultDatabasePath       = "/var/lib/algorun/ledger.db"
	DefaultRunnerPath         = "/var/lib/algorun/runs"
	DefaultOutputPath         = "/var/lib/algorun/output"
	DefaultDockerfileTemplate = "/etc/algorun/Dockerfile.run"
	DefaultMountPath          = "/data"
	DefaultContainerOutputDir = "/output"
	DefaultWorkspacePath      = "/var/lib/algorun/workspaces"
	DefaultMaxConcurrent      = 2
	DefaultSignature          = "algorun execute"
	DefaultAPIPort            = 8080
)

// defaults is the base configuration layer; file, environment and
// flags override it in that order.
func defaults() map[string]any {
	return map[string]any{
		"runner.path":                 DefaultRunnerPath,
		"runner.output_path":          DefaultOutputPath,
		"runner.dockerfile_template":  DefaultDockerfileTemplate,
		"runner.mount_path":           DefaultMountPath,
		"runner.container_output_dir": DefaultContainerOutputDir,
		"database.path":               DefaultDatabasePath,
		"data_service.workspace_path": DefaultWorkspacePath,
		"scheduler.max_concurrent":    DefaultMaxConcurrent,
		"scheduler.signature":         DefaultSignature,
		"api.port":                    DefaultAPIPort,
	}
}
