// Package config holds the settings shared by the moviesdemo commands.
//
// A Config is built once at process start and passed explicitly to the code
// that needs it. Sources, lowest precedence first:
//
//	defaults
//	moviesdemo.yaml, searched from the working directory up to the root
//	.env, then .env.local
//	process environment
//	command line flags (applied by the caller)
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultRegion = "us-east-1"
	DefaultAddr   = ":3000"

	FileName = "moviesdemo.yaml"
)

// Environment variables read by Load.
const (
	EnvTableName            = "DB_TABLE_NAME"
	EnvRegion               = "AWS_REGION"
	EnvDefaultRegion        = "AWS_DEFAULT_REGION"
	EnvEndpoint             = "DDB_ENDPOINT"
	EnvRoleARN              = "AWS_ROLE_ARN"
	EnvOIDCToken            = "VERCEL_OIDC_TOKEN"
	EnvWebIdentityTokenFile = "AWS_WEB_IDENTITY_TOKEN_FILE"
	EnvPort                 = "PORT"
)

var ErrMissingTableName = errors.New(EnvTableName + " environment variable is required")

type Config struct {
	// TableName is the DynamoDB table the app reads and the migration creates.
	TableName string `yaml:"tableName"`
	Region    string `yaml:"region"`
	// Endpoint overrides the DynamoDB endpoint, e.g. DynamoDB Local.
	Endpoint string `yaml:"endpoint"`

	// RoleARN plus an OIDC token (inline or from a file) selects web identity
	// federation. Without them the default AWS credential chain is used.
	RoleARN              string `yaml:"roleArn"`
	OIDCToken            string `yaml:"-"`
	WebIdentityTokenFile string `yaml:"webIdentityTokenFile"`

	// LocalDir points the migration at a BadgerDB directory instead of AWS.
	LocalDir string `yaml:"localDir"`
	// LocalMemory points the migration at a throwaway in-memory store.
	LocalMemory bool `yaml:"-"`

	// Addr is the listen address of the web server.
	Addr string `yaml:"addr"`
}

// Default returns a Config with every optional field at its default.
func Default() Config {
	return Config{
		Region: DefaultRegion,
		Addr:   DefaultAddr,
	}
}

// Validate checks the settings the migration cannot run without. It never
// touches the network.
func (c Config) Validate() error {
	if c.TableName == "" {
		return ErrMissingTableName
	}
	if c.Region == "" {
		return errors.New("region must not be empty")
	}
	if c.LocalDir != "" && c.LocalMemory {
		return errors.New("local directory and in-memory store are mutually exclusive")
	}
	if c.Local() && c.Endpoint != "" {
		return errors.New("an endpoint cannot be combined with the local store")
	}
	return nil
}

// Local reports whether the BadgerDB-backed store should be used.
func (c Config) Local() bool {
	return c.LocalDir != "" || c.LocalMemory
}

// WebIdentity reports whether credentials come from OIDC federation.
func (c Config) WebIdentity() bool {
	return c.RoleARN != "" && (c.OIDCToken != "" || c.WebIdentityTokenFile != "")
}

// LoadOptions controls where Load looks.
type LoadOptions struct {
	// Dir is where the search for config and dotenv files starts.
	// Defaults to the working directory.
	Dir string
	// LookupEnv defaults to os.LookupEnv. With the default, dotenv files are
	// exported into the process environment; with a custom lookup they are
	// only layered under it.
	LookupEnv func(string) (string, bool)
	// SkipFiles disables moviesdemo.yaml and dotenv loading.
	SkipFiles bool
}

// Load builds a Config from defaults, files and environment.
func Load(opts LoadOptions) (Config, error) {
	cfg := Default()

	lookup := opts.LookupEnv
	processEnv := lookup == nil
	if processEnv {
		lookup = os.LookupEnv
	}

	if !opts.SkipFiles {
		dir := opts.Dir
		if dir == "" {
			wd, err := os.Getwd()
			if err != nil {
				return Config{}, fmt.Errorf("get working directory: %w", err)
			}
			dir = wd
		}

		if path := findConfigFile(dir); path != "" {
			if err := loadYAML(path, &cfg); err != nil {
				return Config{}, err
			}
		}

		if processEnv {
			// The AWS SDK reads its own settings from the environment.
			if err := exportDotEnv(dir); err != nil {
				return Config{}, err
			}
		} else {
			dotenv, err := readDotEnv(dir)
			if err != nil {
				return Config{}, err
			}
			lookup = layered(lookup, dotenv)
		}
	}

	applyEnv(&cfg, lookup)
	return cfg, nil
}

func loadYAML(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// readDotEnv merges .env and .env.local from dir, .env.local winning.
// Missing files are skipped.
func readDotEnv(dir string) (map[string]string, error) {
	merged := make(map[string]string)
	for _, name := range []string{".env", ".env.local"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			continue
		}
		vals, err := godotenv.Read(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		for k, v := range vals {
			merged[k] = v
		}
	}
	return merged, nil
}

// exportDotEnv loads .env.local, then .env from dir into the process
// environment. Variables that are already set are left alone, so
// .env.local wins over .env and the real environment wins over both.
func exportDotEnv(dir string) error {
	var files []string
	for _, name := range []string{".env.local", ".env"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			files = append(files, path)
		}
	}
	if len(files) == 0 {
		return nil
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("load dotenv files: %w", err)
	}
	return nil
}

// layered resolves from the real environment first, then from fallback,
// matching dotenv's rule of never overriding variables that are already set.
func layered(env func(string) (string, bool), fallback map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		if v, ok := env(key); ok {
			return v, true
		}
		v, ok := fallback[key]
		return v, ok
	}
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) {
	set := func(dst *string, keys ...string) {
		for _, key := range keys {
			if v, ok := lookup(key); ok && v != "" {
				*dst = v
				return
			}
		}
	}
	set(&cfg.TableName, EnvTableName)
	set(&cfg.Region, EnvRegion, EnvDefaultRegion)
	set(&cfg.Endpoint, EnvEndpoint)
	set(&cfg.RoleARN, EnvRoleARN)
	set(&cfg.OIDCToken, EnvOIDCToken)
	set(&cfg.WebIdentityTokenFile, EnvWebIdentityTokenFile)
	if port, ok := lookup(EnvPort); ok && port != "" {
		cfg.Addr = ":" + port
	}
}

// findConfigFile searches for moviesdemo.yaml walking up from dir.
func findConfigFile(dir string) string {
	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return path
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			return ""
		}
		dir = parent
	}
}
