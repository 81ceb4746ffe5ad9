package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"time"
)

type Config struct {
	//===============
	//  Crawl scope
	//===============
	// Starting URL of the audit.
	seedURL url.URL
	// External hosts allowed to be crawled. Glob patterns ("*.example.com").
	allowedHosts []string
	// External hosts static resources may be fetched from. Glob patterns.
	allowedStaticHosts []string
	// URL paths must match at least one of these (when any are given).
	includeRegex []*regexp.Regexp
	// URL paths matching any of these are skipped.
	excludeRegex []*regexp.Regexp
	// Honor robots.txt for internal URLs.
	respectRobots bool

	//===============
	// Limits
	//===============
	// Maximum number of hyperlink hops from the seed. 0 = seed only, -1 = unlimited.
	maxDepth int
	// Hard cap on reserved URLs.
	maxUrls int
	// Abort a response beyond this many bytes.
	maxBodyBytes int64
	// In-memory body budget before spilling to disk.
	bodyMemoryBudget int64

	//===============
	// Politeness
	//===============
	// Worker goroutines fetching concurrently.
	workers int
	// Max parallel requests to one host:port.
	perHostConcurrency int
	// Global requests-per-second cap. 0 = unlimited.
	maxReqPerSec float64
	// Transient-failure retries per request.
	maxRetries int
	// Controls retry jitter reproducibility.
	randomSeed int64

	//===============
	// Fetch
	//===============
	// Total per-request deadline.
	requestTimeout time.Duration
	// User agent sent on every request.
	userAgent string
	// Accept-Encoding list. Advertising "br" opts in Brotli reporting.
	acceptEncoding string

	//===============
	// Analysis
	//===============
	// Analyzers whose name matches are excluded.
	analyzerFilterRegex *regexp.Regexp
	// Heading-tree extraction depth, 1-6.
	maxHeadingLevel int

	//===============
	// Output
	//===============
	// Directory for the audit report files.
	outputDir string
	// Write an offline Markdown mirror of crawled HTML.
	exportMarkdown bool
	// zerolog level string: debug, info, warn, error.
	logLevel string
}

type configDTO struct {
	SeedURL            string   `json:"seedUrl"`
	AllowedHosts       []string `json:"allowedHosts,omitempty"`
	AllowedStaticHosts []string `json:"allowedStaticHosts,omitempty"`
	IncludeRegex       []string `json:"includeRegex,omitempty"`
	ExcludeRegex       []string `json:"excludeRegex,omitempty"`
	RespectRobots      *bool    `json:"respectRobots,omitempty"`
	MaxDepth           *int     `json:"maxDepth,omitempty"`
	MaxUrls            *int     `json:"maxUrls,omitempty"`
	MaxBodyBytes       *int64   `json:"maxBodyBytes,omitempty"`
	BodyMemoryBudget   *int64   `json:"bodyMemoryBudget,omitempty"`
	Workers            *int     `json:"workers,omitempty"`
	PerHostConcurrency *int     `json:"perHostConcurrency,omitempty"`
	MaxReqPerSec       *float64 `json:"maxReqPerSec,omitempty"`
	MaxRetries         *int     `json:"maxRetries,omitempty"`
	RandomSeed         *int64   `json:"randomSeed,omitempty"`
	RequestTimeoutSec  *int     `json:"requestTimeoutSec,omitempty"`
	UserAgent          string   `json:"userAgent,omitempty"`
	AcceptEncoding     string   `json:"acceptEncoding,omitempty"`
	AnalyzerFilter     string   `json:"analyzerFilterRegex,omitempty"`
	MaxHeadingLevel    *int     `json:"maxHeadingLevel,omitempty"`
	OutputDir          string   `json:"outputDir,omitempty"`
	ExportMarkdown     *bool    `json:"exportMarkdown,omitempty"`
	LogLevel           string   `json:"logLevel,omitempty"`
}

const (
	DefaultWorkers            = 10
	DefaultPerHostConcurrency = 5
	DefaultRequestTimeoutSec  = 10
	DefaultMaxDepth           = -1
	DefaultMaxUrls            = 10000
	DefaultMaxBodyBytes       = 10 << 20 // 10 MiB
	DefaultBodyMemoryBudget   = 256 << 20
	DefaultMaxRetries         = 2
	DefaultMaxHeadingLevel    = 3
	DefaultUserAgent          = "site-auditor/1.0"
	DefaultAcceptEncoding     = "gzip, deflate, br"
	DefaultOutputDir          = "audit-out"
	DefaultLogLevel           = "info"
)

// Default returns a Config with every option at its documented default
// and the given seed.
func Default(seed url.URL) Config {
	return Config{
		seedURL:            seed,
		respectRobots:      true,
		maxDepth:           DefaultMaxDepth,
		maxUrls:            DefaultMaxUrls,
		maxBodyBytes:       DefaultMaxBodyBytes,
		bodyMemoryBudget:   DefaultBodyMemoryBudget,
		workers:            DefaultWorkers,
		perHostConcurrency: DefaultPerHostConcurrency,
		maxRetries:         DefaultMaxRetries,
		randomSeed:         time.Now().UnixNano(),
		requestTimeout:     DefaultRequestTimeoutSec * time.Second,
		userAgent:          DefaultUserAgent,
		acceptEncoding:     DefaultAcceptEncoding,
		maxHeadingLevel:    DefaultMaxHeadingLevel,
		outputDir:          DefaultOutputDir,
		logLevel:           DefaultLogLevel,
	}
}

// WithConfigFile loads a JSON config file on top of the defaults.
func WithConfigFile(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, &ConfigError{
			Message: fmt.Sprintf("cannot read config file: %v", err),
			Cause:   ErrCauseFileUnreadable,
		}
	}

	var dto configDTO
	if err := json.Unmarshal(raw, &dto); err != nil {
		return Config{}, &ConfigError{
			Message: fmt.Sprintf("cannot parse config file: %v", err),
			Cause:   ErrCauseContentInvalid,
		}
	}

	return fromDTO(dto)
}

// fromDTO validates and converts the wire representation.
func fromDTO(dto configDTO) (Config, error) {
	if dto.SeedURL == "" {
		return Config{}, &ConfigError{
			Message: "seedUrl is required",
			Cause:   ErrCauseMissingSeed,
		}
	}
	seed, err := url.Parse(dto.SeedURL)
	if err != nil || seed.Host == "" || (seed.Scheme != "http" && seed.Scheme != "https") {
		return Config{}, &ConfigError{
			Message: fmt.Sprintf("seedUrl %q is not an absolute http(s) URL", dto.SeedURL),
			Cause:   ErrCauseContentInvalid,
		}
	}

	cfg := Default(*seed)
	cfg.allowedHosts = dto.AllowedHosts
	cfg.allowedStaticHosts = dto.AllowedStaticHosts
	if cfg.includeRegex, err = compileAll(dto.IncludeRegex); err != nil {
		return Config{}, &ConfigError{Message: err.Error(), Cause: ErrCauseContentInvalid}
	}
	if cfg.excludeRegex, err = compileAll(dto.ExcludeRegex); err != nil {
		return Config{}, &ConfigError{Message: err.Error(), Cause: ErrCauseContentInvalid}
	}
	if dto.RespectRobots != nil {
		cfg.respectRobots = *dto.RespectRobots
	}
	if dto.MaxDepth != nil {
		cfg.maxDepth = *dto.MaxDepth
	}
	if dto.MaxUrls != nil {
		cfg.maxUrls = *dto.MaxUrls
	}
	if dto.MaxBodyBytes != nil {
		cfg.maxBodyBytes = *dto.MaxBodyBytes
	}
	if dto.BodyMemoryBudget != nil {
		cfg.bodyMemoryBudget = *dto.BodyMemoryBudget
	}
	if dto.Workers != nil {
		cfg.workers = *dto.Workers
	}
	if dto.PerHostConcurrency != nil {
		cfg.perHostConcurrency = *dto.PerHostConcurrency
	}
	if dto.MaxReqPerSec != nil {
		cfg.maxReqPerSec = *dto.MaxReqPerSec
	}
	if dto.MaxRetries != nil {
		cfg.maxRetries = *dto.MaxRetries
	}
	if dto.RandomSeed != nil {
		cfg.randomSeed = *dto.RandomSeed
	}
	if dto.RequestTimeoutSec != nil {
		cfg.requestTimeout = time.Duration(*dto.RequestTimeoutSec) * time.Second
	}
	if dto.UserAgent != "" {
		cfg.userAgent = dto.UserAgent
	}
	if dto.AcceptEncoding != "" {
		cfg.acceptEncoding = dto.AcceptEncoding
	}
	if dto.AnalyzerFilter != "" {
		filter, err := regexp.Compile(dto.AnalyzerFilter)
		if err != nil {
			return Config{}, &ConfigError{
				Message: fmt.Sprintf("analyzerFilterRegex: %v", err),
				Cause:   ErrCauseContentInvalid,
			}
		}
		cfg.analyzerFilterRegex = filter
	}
	if dto.MaxHeadingLevel != nil {
		cfg.maxHeadingLevel = *dto.MaxHeadingLevel
	}
	if dto.OutputDir != "" {
		cfg.outputDir = dto.OutputDir
	}
	if dto.ExportMarkdown != nil {
		cfg.exportMarkdown = *dto.ExportMarkdown
	}
	if dto.LogLevel != "" {
		cfg.logLevel = dto.LogLevel
	}

	return cfg, cfg.Validate()
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	var compiled []*regexp.Regexp
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("regex %q: %v", p, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

// Validate rejects option combinations the engine cannot honor.
func (c *Config) Validate() error {
	if c.workers < 1 {
		return &ConfigError{Message: "workers must be >= 1", Cause: ErrCauseContentInvalid}
	}
	if c.perHostConcurrency < 1 {
		return &ConfigError{Message: "perHostConcurrency must be >= 1", Cause: ErrCauseContentInvalid}
	}
	if c.maxUrls < 1 {
		return &ConfigError{Message: "maxUrls must be >= 1", Cause: ErrCauseContentInvalid}
	}
	if c.maxDepth < -1 {
		return &ConfigError{Message: "maxDepth must be >= -1", Cause: ErrCauseContentInvalid}
	}
	if c.maxBodyBytes < 1 {
		return &ConfigError{Message: "maxBodyBytes must be >= 1", Cause: ErrCauseContentInvalid}
	}
	if c.maxRetries < 0 {
		return &ConfigError{Message: "maxRetries must be >= 0", Cause: ErrCauseContentInvalid}
	}
	if c.maxHeadingLevel < 1 || c.maxHeadingLevel > 6 {
		return &ConfigError{Message: "maxHeadingLevel must be 1-6", Cause: ErrCauseContentInvalid}
	}
	if c.requestTimeout <= 0 {
		return &ConfigError{Message: "requestTimeoutSec must be >= 1", Cause: ErrCauseContentInvalid}
	}
	return nil
}

func (c *Config) SeedURL() url.URL                    { return c.seedURL }
func (c *Config) AllowedHosts() []string              { return c.allowedHosts }
func (c *Config) AllowedStaticHosts() []string        { return c.allowedStaticHosts }
func (c *Config) IncludeRegex() []*regexp.Regexp      { return c.includeRegex }
func (c *Config) ExcludeRegex() []*regexp.Regexp      { return c.excludeRegex }
func (c *Config) RespectRobots() bool                 { return c.respectRobots }
func (c *Config) MaxDepth() int                       { return c.maxDepth }
func (c *Config) MaxUrls() int                        { return c.maxUrls }
func (c *Config) MaxBodyBytes() int64                 { return c.maxBodyBytes }
func (c *Config) BodyMemoryBudget() int64             { return c.bodyMemoryBudget }
func (c *Config) Workers() int                        { return c.workers }
func (c *Config) PerHostConcurrency() int             { return c.perHostConcurrency }
func (c *Config) MaxReqPerSec() float64               { return c.maxReqPerSec }
func (c *Config) MaxRetries() int                     { return c.maxRetries }
func (c *Config) RandomSeed() int64                   { return c.randomSeed }
func (c *Config) RequestTimeout() time.Duration       { return c.requestTimeout }
func (c *Config) UserAgent() string                   { return c.userAgent }
func (c *Config) AcceptEncoding() string              { return c.acceptEncoding }
func (c *Config) AnalyzerFilterRegex() *regexp.Regexp { return c.analyzerFilterRegex }
func (c *Config) MaxHeadingLevel() int                { return c.maxHeadingLevel }
func (c *Config) OutputDir() string                   { return c.outputDir }
func (c *Config) ExportMarkdown() bool                { return c.exportMarkdown }
func (c *Config) LogLevel() string                    { return c.logLevel }

// Mutators used by the CLI flag overlay and by tests.

func (c *Config) SetSeedURL(u url.URL)                { c.seedURL = u }
func (c *Config) SetAllowedHosts(hosts []string)      { c.allowedHosts = hosts }
func (c *Config) SetAllowedStaticHosts(h []string)    { c.allowedStaticHosts = h }
func (c *Config) SetRespectRobots(v bool)             { c.respectRobots = v }
func (c *Config) SetMaxDepth(v int)                   { c.maxDepth = v }
func (c *Config) SetMaxUrls(v int)                    { c.maxUrls = v }
func (c *Config) SetMaxBodyBytes(v int64)             { c.maxBodyBytes = v }
func (c *Config) SetBodyMemoryBudget(v int64)         { c.bodyMemoryBudget = v }
func (c *Config) SetWorkers(v int)                    { c.workers = v }
func (c *Config) SetPerHostConcurrency(v int)         { c.perHostConcurrency = v }
func (c *Config) SetMaxReqPerSec(v float64)           { c.maxReqPerSec = v }
func (c *Config) SetMaxRetries(v int)                 { c.maxRetries = v }
func (c *Config) SetRandomSeed(v int64)               { c.randomSeed = v }
func (c *Config) SetRequestTimeout(d time.Duration)   { c.requestTimeout = d }
func (c *Config) SetUserAgent(ua string)              { c.userAgent = ua }
func (c *Config) SetAcceptEncoding(v string)          { c.acceptEncoding = v }
func (c *Config) SetAnalyzerFilter(re *regexp.Regexp) { c.analyzerFilterRegex = re }
func (c *Config) SetMaxHeadingLevel(v int)            { c.maxHeadingLevel = v }
func (c *Config) SetOutputDir(dir string)             { c.outputDir = dir }
func (c *Config) SetExportMarkdown(v bool)            { c.exportMarkdown = v }
func (c *Config) SetLogLevel(v string)                { c.logLevel = v }

// SetIncludeRegex compiles and installs include patterns.
func (c *Config) SetIncludeRegex(patterns []string) error {
	compiled, err := compileAll(patterns)
	if err != nil {
		return err
	}
	c.includeRegex = compiled
	return nil
}

// SetExcludeRegex compiles and installs exclude patterns.
func (c *Config) SetExcludeRegex(patterns []string) error {
	compiled, err := compileAll(patterns)
	if err != nil {
		return err
	}
	c.excludeRegex = compiled
	return nil
}
