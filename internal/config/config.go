package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ls-github123/openai-chat-deploy/internal/constants"
)

// EnvEntry is one line of a generated env file, in document order.
// Exactly one of Value or Secret is set: Value entries are literals copied
// through verbatim, Secret entries are resolved against the vault at
// provisioning time. SecretNameVar, when set, names an environment variable
// that overrides the vault secret name for this entry.
type EnvEntry struct {
	Key           string `yaml:"key"`
	Value         string `yaml:"value,omitempty"`
	Secret        string `yaml:"secret,omitempty"`
	SecretNameVar string `yaml:"secret_name_var,omitempty"`
}

// IsSecret reports whether this entry is resolved from the vault.
func (e EnvEntry) IsSecret() bool {
	return e.Secret != ""
}

// SecretName returns the vault secret name for this entry, honoring the
// SecretNameVar environment override.
func (e EnvEntry) SecretName() string {
	if e.SecretNameVar != "" {
		if name := os.Getenv(e.SecretNameVar); name != "" {
			return name
		}
	}
	return e.Secret
}

// ProbeSpec describes one readiness probe run after a stack comes up.
// PasswordKey names the env entry whose rendered value authenticates the
// connection.
type ProbeSpec struct {
	Engine      string `yaml:"engine"` // mysql, postgres, redis, mongo
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	User        string `yaml:"user,omitempty"`
	Database    string `yaml:"database,omitempty"`
	PasswordKey string `yaml:"password_key"`
}

// Stack is one independently provisioned compose stack. Stacks share no
// secrets, manifests, env files, or networks with each other.
type Stack struct {
	Manifest string      `yaml:"manifest"`
	EnvFile  string      `yaml:"env_file"`
	Project  string      `yaml:"project"`
	Entries  []EnvEntry  `yaml:"entries"`
	Probes   []ProbeSpec `yaml:"probes"`
}

// SecretEntries returns the entries that must be fetched from the vault.
func (s Stack) SecretEntries() []EnvEntry {
	var out []EnvEntry
	for _, e := range s.Entries {
		if e.IsSecret() {
			out = append(out, e)
		}
	}
	return out
}

type Config struct {
	Vault struct {
		URL string `yaml:"url"`
	} `yaml:"vault"`
	Logging struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"logging"`
	Journal struct {
		Path string `yaml:"path"`
	} `yaml:"journal"`
	Timeouts struct {
		ComposeSeconds      int `yaml:"compose_seconds"`
		ProbeSeconds        int `yaml:"probe_seconds"`
		ProbeIntervalMillis int `yaml:"probe_interval_millis"`
	} `yaml:"timeouts"`
	Stacks map[string]Stack `yaml:"stacks"`
}

func defaultConfig() Config {
	var c Config
	c.Logging.Level = "info"
	c.Logging.Pretty = true
	c.Timeouts.ComposeSeconds = 300
	c.Timeouts.ProbeSeconds = 90
	c.Timeouts.ProbeIntervalMillis = 1000
	c.Stacks = map[string]Stack{
		constants.StackDatabases: {
			Manifest: filepath.Join(constants.DefaultDeployDir, constants.StackDatabases, constants.ManifestFile),
			EnvFile:  filepath.Join(constants.DefaultDeployDir, constants.StackDatabases, ".env"),
			Project:  "openai-chat-db",
			Entries: []EnvEntry{
				{Key: "MYSQL_ROOT_PASSWORD", Secret: "openai-mysql-root", SecretNameVar: "DB_PASSWORD_NAME"},
				{Key: "MYSQL_DATABASE", Value: "openai_chat_db"},
				{Key: "MYSQL_PORT", Value: "3306"},
				{Key: "MONGO_INITDB_ROOT_USERNAME", Value: "root"},
				{Key: "MONGO_INITDB_ROOT_PASSWORD", Secret: "mongodb-chatuser-pwd", SecretNameVar: "MONGO_PASSWORD_NAME"},
				{Key: "MONGO_INITDB_DATABASE", Value: "openai_chat_db"},
				{Key: "MONGO_PORT", Value: "27017"},
				{Key: "REDIS_PASSWORD", Secret: "openai-redis-pd", SecretNameVar: "REDIS_PASSWORD_NAME"},
				{Key: "REDIS_PORT", Value: "6379"},
			},
			Probes: []ProbeSpec{
				{Engine: "mysql", Host: "127.0.0.1", Port: 3306, User: "root", Database: "openai_chat_db", PasswordKey: "MYSQL_ROOT_PASSWORD"},
				{Engine: "mongo", Host: "127.0.0.1", Port: 27017, User: "root", Database: "openai_chat_db", PasswordKey: "MONGO_INITDB_ROOT_PASSWORD"},
				{Engine: "redis", Host: "127.0.0.1", Port: 6379, PasswordKey: "REDIS_PASSWORD"},
			},
		},
		constants.StackIdentity: {
			Manifest: filepath.Join(constants.DefaultDeployDir, constants.StackIdentity, constants.ManifestFile),
			EnvFile:  filepath.Join(constants.DefaultDeployDir, constants.StackIdentity, ".env"),
			Project:  "openai-chat-identity",
			Entries: []EnvEntry{
				{Key: "LOGTO_APP_SECRET", Secret: "logto-app-secret", SecretNameVar: "IDENTITY_APP_SECRET_NAME"},
				{Key: "LOGTO_ENDPOINT", Value: "http://localhost:3001"},
				{Key: "POSTGRES_USER", Value: "logto"},
				{Key: "POSTGRES_PASSWORD", Secret: "logto-postgres-pwd", SecretNameVar: "IDENTITY_DB_PASSWORD_NAME"},
				{Key: "POSTGRES_DB", Value: "logto"},
				{Key: "POSTGRES_PORT", Value: "5432"},
			},
			Probes: []ProbeSpec{
				{Engine: "postgres", Host: "127.0.0.1", Port: 5432, User: "logto", Database: "logto", PasswordKey: "POSTGRES_PASSWORD"},
			},
		},
	}
	return c
}

// Load reads the config file at path over the built-in defaults. A missing
// file is not an error when path is the default location: the defaults match
// the production deployment. Environment overrides are applied last.
func Load(path string) (Config, error) {
	c := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && filepath.Base(path) == constants.DefaultConfigFile {
			applyEnvOverrides(&c)
			return c, nil
		}
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	// yaml.v3 decodes map values into fresh zero structs, so a stack
	// section in the file replaced the whole default stack above.
	// Re-merge the file's per-stack overrides field-wise over the
	// defaults so partial overrides keep everything they did not name.
	if err := mergeStackOverrides(&c, data); err != nil {
		return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	applyEnvOverrides(&c)
	return c, nil
}

// stackOverride mirrors Stack with optional fields so absent keys can be
// told apart from explicitly empty ones.
type stackOverride struct {
	Manifest *string      `yaml:"manifest"`
	EnvFile  *string      `yaml:"env_file"`
	Project  *string      `yaml:"project"`
	Entries  *[]EnvEntry  `yaml:"entries"`
	Probes   *[]ProbeSpec `yaml:"probes"`
}

func mergeStackOverrides(c *Config, data []byte) error {
	var file struct {
		Stacks map[string]stackOverride `yaml:"stacks"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return err
	}

	defaults := defaultConfig().Stacks
	for name, ov := range file.Stacks {
		base, ok := defaults[name]
		if !ok {
			// Stacks the defaults don't know keep the fully decoded
			// value; Validate will demand they are complete.
			continue
		}
		if ov.Manifest != nil {
			base.Manifest = *ov.Manifest
		}
		if ov.EnvFile != nil {
			base.EnvFile = *ov.EnvFile
		}
		if ov.Project != nil {
			base.Project = *ov.Project
		}
		if ov.Entries != nil {
			base.Entries = *ov.Entries
		}
		if ov.Probes != nil {
			base.Probes = *ov.Probes
		}
		c.Stacks[name] = base
	}
	return nil
}

// applyEnvOverrides applies environment-variable overrides. The vault URL
// follows the same precedence as the production settings loader: explicit
// environment variable wins over the config file.
func applyEnvOverrides(c *Config) {
	if url := os.Getenv(constants.VaultURLEnvVar); url != "" {
		c.Vault.URL = url
	}
}

// Validate checks the loaded configuration for use by provisioning commands.
func (c Config) Validate() error {
	if c.Vault.URL == "" {
		return fmt.Errorf("vault URL is not set (set vault.url in %s or export %s)",
			constants.DefaultConfigFile, constants.VaultURLEnvVar)
	}
	for name, s := range c.Stacks {
		if s.Manifest == "" {
			return fmt.Errorf("stack %s: manifest path is not set", name)
		}
		if s.EnvFile == "" {
			return fmt.Errorf("stack %s: env file path is not set", name)
		}
		if len(s.Entries) == 0 {
			return fmt.Errorf("stack %s: no env entries configured", name)
		}
		seen := make(map[string]bool, len(s.Entries))
		for _, e := range s.Entries {
			if e.Key == "" {
				return fmt.Errorf("stack %s: env entry with empty key", name)
			}
			if seen[e.Key] {
				return fmt.Errorf("stack %s: duplicate env key %s", name, e.Key)
			}
			seen[e.Key] = true
			if e.IsSecret() == (e.Value != "") {
				return fmt.Errorf("stack %s: entry %s must set exactly one of value or secret", name, e.Key)
			}
		}
		for _, p := range s.Probes {
			if !seen[p.PasswordKey] {
				return fmt.Errorf("stack %s: probe %s references unknown env key %s", name, p.Engine, p.PasswordKey)
			}
		}
	}
	return nil
}

// StackNamed returns the named stack configuration.
func (c Config) StackNamed(name string) (Stack, error) {
	s, ok := c.Stacks[name]
	if !ok {
		return Stack{}, fmt.Errorf("unknown stack %q (expected %s or %s)",
			name, constants.StackIdentity, constants.StackDatabases)
	}
	return s, nil
}
