// package config holds the settings of a collection run: which repositories
// are scraped, which of them is the canonical upstream for commits and where
// the resulting dataset is written.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/open-sauced/pizza/activity/pkg/common"
	"github.com/open-sauced/pizza/activity/pkg/validator"
)

const (
	// DefaultPerPage is the page size requested from list endpoints
	DefaultPerPage = 100

	// MaxPerPage is the largest page size the API honors
	MaxPerPage = 100

	// DefaultOutput is the CSV file the dataset is written to
	DefaultOutput = "activity.csv"

	// DefaultCanonical is the upstream repository mirrors are deduplicated against
	DefaultCanonical = "apache/arrow"
)

// DefaultRepositories is the Apache Arrow repository family. The canonical
// repository is listed last so the mirrors are processed first.
var DefaultRepositories = []string{
	"apache/arrow-adbc",
	"apache/arrow-cookbook",
	"apache/arrow-go",
	"apache/arrow-julia",
	"apache/arrow-nanoarrow",
	"apache/arrow-rs",
	"apache/arrow-site",
	"apache/arrow-testing",
	"apache/arrow",
}

// Config is the configuration of a single collection run
type Config struct {
	// Repositories is the ordered list of repositories to collect activity for
	Repositories []string `yaml:"repositories"`

	// Canonical is the repository whose commits are authoritative. It must
	// be part of Repositories.
	Canonical string `yaml:"canonical"`

	// Output is the path of the CSV file
	Output string `yaml:"output"`

	// PerPage is the page size used for every list endpoint
	PerPage int `yaml:"per_page"`

	// State filters listed issues and pull requests (open, closed, all).
	// Empty leaves the API default in place.
	State string `yaml:"state"`

	// Strict turns truncated endpoints into a failed run
	Strict bool `yaml:"strict"`

	// VerifyRemotes checks every repository is reachable with git before
	// any API call is made
	VerifyRemotes bool `yaml:"verify_remotes"`
}

// Default returns the built-in configuration
func Default() *Config {
	repos := make([]string, len(DefaultRepositories))
	copy(repos, DefaultRepositories)

	return &Config{
		Repositories: repos,
		Canonical:    DefaultCanonical,
		Output:       DefaultOutput,
		PerPage:      DefaultPerPage,
	}
}

// Load reads a yaml configuration file. Settings missing from the file keep
// their default values.
func Load(path string) (*Config, error) {
	configFile, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read yaml configuration file: %w", err)
	}

	return Parse(configFile)
}

// Parse decodes yaml configuration, applies defaults, normalizes the
// repository identifiers and validates the result
func Parse(data []byte) (*Config, error) {
	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("could not unmarshal configuration file: %w", err)
	}

	cfg := Default()
	if len(parsed.Repositories) > 0 {
		cfg.Repositories = parsed.Repositories
	}
	if parsed.Canonical != "" {
		cfg.Canonical = parsed.Canonical
	}
	if parsed.Output != "" {
		cfg.Output = parsed.Output
	}
	if parsed.PerPage != 0 {
		cfg.PerPage = parsed.PerPage
	}
	cfg.State = parsed.State
	cfg.Strict = parsed.Strict
	cfg.VerifyRemotes = parsed.VerifyRemotes

	if err := cfg.Normalize(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Normalize rewrites repository references into "owner/name" identifiers,
// drops duplicates and validates the configuration
func (c *Config) Normalize() error {
	v := validator.New()

	seen := make(map[string]bool)
	repos := make([]string, 0, len(c.Repositories))
	for i, repo := range c.Repositories {
		key := fmt.Sprintf("repositories[%d]", i)

		normalized, err := common.NormalizeRepo(repo)
		if err != nil {
			v.AddError(key, err.Error())
			continue
		}

		validator.ValidateRepository(v, key, normalized)
		if seen[normalized] {
			continue
		}
		seen[normalized] = true
		repos = append(repos, normalized)
	}
	c.Repositories = repos

	canonical, err := common.NormalizeRepo(c.Canonical)
	if err != nil {
		v.AddError("canonical", err.Error())
	} else {
		c.Canonical = canonical
		v.CheckConstraint(seen[canonical], "canonical", fmt.Sprintf("%s must be listed in repositories", canonical))
	}

	v.CheckConstraint(len(c.Repositories) > 0, "repositories", "at least one repository must be configured")
	v.CheckConstraint(c.Output != "", "output", "output path must be provided")
	v.CheckConstraint(c.PerPage > 0 && c.PerPage <= MaxPerPage, "per_page", fmt.Sprintf("must be between 1 and %d", MaxPerPage))
	v.CheckConstraint(c.State == "" || c.State == "open" || c.State == "closed" || c.State == "all", "state", "must be one of open, closed, all")

	return v.Err()
}
