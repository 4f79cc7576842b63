package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// DryRunToken is the GH_PAT_WRITE value that turns the publish step into a
// logged no-op.
const DryRunToken = "dry-run"

// AllowPrivateValue must be set verbatim in ALLOW_PRIVATE_REPO to include
// private events in the prompt.
const AllowPrivateValue = "yes_i_know_that_it_is_insecure_but_i_want_to_use_it_anyway"

// ContentPlaceholder is substituted with the extracted bullet list.
const ContentPlaceholder = "{content}"

const DefaultReadmeTemplate = `Five bullets of what I accomplished last week:

{content}

<sup>This summary is generated by [five-bullets](https://github.com/kevinmichaelchen/five-bullets)</sup>`

var (
	ErrMissingUsername   = errors.New("GITHUB_USERNAME (or GITHUB_ACTOR) is required")
	ErrMissingWriteToken = errors.New("GH_PAT_WRITE is required")
	ErrMissingLLMURL     = errors.New("OAI_COMPAT_URL is required")
	ErrMissingLLMToken   = errors.New("OAI_COMPAT_TOKEN is required")
	ErrBadTemplate       = errors.New("README_TEMPLATE must contain exactly one " + ContentPlaceholder + " placeholder")
)

type Config struct {
	GitHubUsername   string
	GitHubWriteToken string
	GitHubReadToken  string
	GitHubAPIURL     string

	LLMBaseURL      string
	LLMAPIKey       string
	LLMModel        string
	LLMExtraBody    map[string]any
	LLMExtraHeaders map[string]string

	ReadmeTemplate   string
	BlacklistedRepos map[string]struct{}
	AllowPrivate     bool
	LookbackDays     int
}

// Load reads the environment (and a .env file when present) into a validated
// Config. It never touches the network.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		GitHubUsername:   os.Getenv("GITHUB_USERNAME"),
		GitHubWriteToken: os.Getenv("GH_PAT_WRITE"),
		GitHubReadToken:  os.Getenv("GITHUB_TOKEN"),
		GitHubAPIURL:     os.Getenv("GITHUB_API_URL"),

		LLMBaseURL: os.Getenv("OAI_COMPAT_URL"),
		LLMAPIKey:  os.Getenv("OAI_COMPAT_TOKEN"),
		LLMModel:   os.Getenv("OAI_COMPAT_MODEL"),

		ReadmeTemplate:   os.Getenv("README_TEMPLATE"),
		BlacklistedRepos: ParseRepoList(os.Getenv("BLACKLISTED_REPOS")),
		AllowPrivate:     os.Getenv("ALLOW_PRIVATE_REPO") == AllowPrivateValue,
		LookbackDays:     7,
	}

	if cfg.GitHubUsername == "" {
		cfg.GitHubUsername = os.Getenv("GITHUB_ACTOR")
	}
	if cfg.ReadmeTemplate == "" {
		cfg.ReadmeTemplate = DefaultReadmeTemplate
	}

	var err error
	if cfg.LLMExtraBody, err = decodeJSONObject[any]("OAI_COMPAT_EXTRA_BODY"); err != nil {
		return nil, err
	}
	if cfg.LLMExtraHeaders, err = decodeJSONObject[string]("OAI_COMPAT_EXTRA_HEADERS"); err != nil {
		return nil, err
	}

	if v := os.Getenv("LOOKBACK_DAYS"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil || days <= 0 {
			return nil, fmt.Errorf("LOOKBACK_DAYS must be a positive integer, got %q", v)
		}
		cfg.LookbackDays = days
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first missing or malformed required value.
func (c *Config) Validate() error {
	switch {
	case c.GitHubUsername == "":
		return ErrMissingUsername
	case c.GitHubWriteToken == "":
		return ErrMissingWriteToken
	case c.LLMBaseURL == "":
		return ErrMissingLLMURL
	case c.LLMAPIKey == "":
		return ErrMissingLLMToken
	case strings.Count(c.ReadmeTemplate, ContentPlaceholder) != 1:
		return ErrBadTemplate
	}
	return nil
}

// DryRun reports whether the write credential is the dry-run sentinel.
func (c *Config) DryRun() bool {
	return c.GitHubWriteToken == DryRunToken
}

// IsBlacklisted matches either the full "owner/name" or the bare repo name.
func (c *Config) IsBlacklisted(repo string) bool {
	if len(c.BlacklistedRepos) == 0 || repo == "" {
		return false
	}
	if _, ok := c.BlacklistedRepos[repo]; ok {
		return true
	}
	if i := strings.LastIndex(repo, "/"); i != -1 {
		_, ok := c.BlacklistedRepos[repo[i+1:]]
		return ok
	}
	return false
}

// ParseRepoList splits a comma and/or newline separated list, dropping blanks.
func ParseRepoList(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, f := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == '\n' || r == '\r' }) {
		if f = strings.TrimSpace(f); f != "" {
			set[f] = struct{}{}
		}
	}
	return set
}

func decodeJSONObject[V any](key string) (map[string]V, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	out := map[string]V{}
	if raw == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", key, err)
	}
	return out, nil
}
