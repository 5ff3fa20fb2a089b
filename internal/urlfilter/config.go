package urlfilter

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Config holds the substring lists the filter matches against. All entries
// are compared case-insensitively against the full URL unless noted.
type Config struct {
	// SkipPatterns reject a URL outright: auth/session paths, non-http
	// schemes, document/binary extensions and low-yield social or
	// marketplace domains.
	SkipPatterns []string `yaml:"skip_patterns" mapstructure:"skip_patterns"`

	// AllowKeywords admit a URL when any appears anywhere in it.
	AllowKeywords []string `yaml:"allow_keywords" mapstructure:"allow_keywords"`

	// AllowPaths admit a URL when any appears in its path.
	AllowPaths []string `yaml:"allow_paths" mapstructure:"allow_paths"`

	// PromisingKeywords mark search result links worth fetching.
	PromisingKeywords []string `yaml:"promising_keywords" mapstructure:"promising_keywords"`
}

// DefaultConfig returns the built-in pattern lists.
func DefaultConfig() Config {
	return Config{
		SkipPatterns: []string{
			"/search", "/login", "/signup", "/register", "/auth", "/signin",
			"javascript:", "mailto:", "tel:", "#",
			".pdf", ".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx",
			".zip", ".rar", ".exe", ".dmg",
			"linkedin.com/in/", "facebook.com", "twitter.com", "instagram.com",
			"youtube.com", "tiktok.com", "pinterest.com", "reddit.com/r/",
			"amazon.com/dp/", "amazon.com/gp/", "ebay.com", "etsy.com",
		},
		AllowKeywords: []string{
			"company", "corp", "inc", "llc", "org", "edu", "gov",
			"about", "team", "contact", "directory", "staff", "leadership",
		},
		AllowPaths: []string{"/about", "/team", "/contact"},
		PromisingKeywords: []string{
			"about", "team", "contact", "directory", "staff", "leadership",
			"management", "executives", "people", "bio", "profile",
		},
	}
}

// Merge returns c with every empty list replaced by the matching default.
func (c Config) Merge(defaults Config) Config {
	if len(c.SkipPatterns) == 0 {
		c.SkipPatterns = defaults.SkipPatterns
	}
	if len(c.AllowKeywords) == 0 {
		c.AllowKeywords = defaults.AllowKeywords
	}
	if len(c.AllowPaths) == 0 {
		c.AllowPaths = defaults.AllowPaths
	}
	if len(c.PromisingKeywords) == 0 {
		c.PromisingKeywords = defaults.PromisingKeywords
	}
	return c
}

// LoadConfig reads pattern lists from a YAML file. Lists missing from the
// file keep their defaults.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, eris.Wrapf(err, "urlfilter: read %s", path)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, eris.Wrapf(err, "urlfilter: parse %s", path)
	}

	return cfg.Merge(DefaultConfig()), nil
}
