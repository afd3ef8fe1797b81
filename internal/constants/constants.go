package constants

import "os"

// Stack names
const (
	// StackIdentity provisions the identity-provider server and its
	// Postgres store.
	StackIdentity = "identity"

	// StackDatabases provisions the application database engines
	// (MySQL, MongoDB, Redis).
	StackDatabases = "databases"
)

// Default file locations
const (
	// DefaultConfigFile is the config filename looked up in the working
	// directory when --config is not given.
	DefaultConfigFile = "chatctl.yaml"

	// DefaultDeployDir is the directory holding per-stack compose manifests.
	DefaultDeployDir = "deploy"

	// ManifestFile is the compose manifest filename inside each stack
	// directory.
	ManifestFile = "docker-compose.yml"

	// DefaultJournalFile is the SQLite run-journal location, relative to
	// the user home directory.
	DefaultJournalFile = ".chatctl/journal.db"
)

// Vault-related constants
const (
	// VaultURLEnvVar names the environment variable carrying the Key Vault
	// URL when the config file does not set one.
	VaultURLEnvVar = "AZURE_VAULT_URL"
)

// File permissions
const (
	// DirPermissions is the default permission mode for directories.
	DirPermissions os.FileMode = 0755

	// EnvFilePermissions is the permission mode for generated env files.
	// Owner read/write only: these files hold live credentials.
	EnvFilePermissions os.FileMode = 0600
)
