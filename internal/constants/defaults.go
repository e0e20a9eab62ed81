package constants

// DefaultVersion is the default version of the application
const DefaultVersion = "0.1.0-dev"

// DefaultBuildTime is the default build time when not provided at build time
const DefaultBuildTime = "unknown"

// DefaultGitCommit is the default git commit hash when not provided at build time
const DefaultGitCommit = "unknown"

// DefaultGoVersion is the default Go version when not provided at build time
const DefaultGoVersion = "unknown"

// DefaultConfigPath is used when no --config flag is given.
const DefaultConfigPath = "./config.toml"

// DefaultMetricsNamespace prefixes every prometheus metric.
const DefaultMetricsNamespace = "tempo"

// DefaultDispatcherCapacity is the dispatcher queue size.
const DefaultDispatcherCapacity = 1000

// DefaultDispatcherWorkers is the number of handler goroutines.
const DefaultDispatcherWorkers = 1

// DefaultEnvPath is the optional .env file loaded before the config.
const DefaultEnvPath = ".env"
