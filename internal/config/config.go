// Package config loads the worker's YAML configuration via go-zero's
// conf.MustLoad, the same loader the teacher's service entrypoints
// use, with environment variables applied as overrides afterward.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/zeromicro/go-zero/core/conf"
	"gopkg.in/yaml.v3"
)

// Config is the worker's complete startup configuration.
type Config struct {
	Redis struct {
		URL string `json:"url,optional"`
	} `json:"redis,optional"`
	Sandbox struct {
		Endpoint        string        `json:"endpoint,optional"`
		Timeout         time.Duration `json:"timeout,optional"`
		CacheExpire     time.Duration `json:"cacheExpire,optional"`
		CacheRecycleGap time.Duration `json:"cacheRecycleGap,optional"`
	} `json:"sandbox,optional"`
	InitConcurrent int    `json:"initConcurrent,optional"`
	LogFile        string `json:"logFile,optional"`
	Debug          bool   `json:"debug,optional"`
	HealthAddr     string `json:"healthAddr,optional"`
	Languages      []LanguageOverride `json:"languages,optional"`
}

// LanguageOverride lets etc/judger.yaml add languages to the static
// defaults without a code change (a tag that is already registered is
// rejected, not replaced), with compile/run commands
// authored as shell-style strings (parsed via internal/language's
// shlex-based ParseCommand, matching the Python registry's literal
// bash -c multi-step commands).
type LanguageOverride struct {
	Tag              string `json:"tag"`
	SourceFilename   string `json:"sourceFilename"`
	CompiledFilename string `json:"compiledFilename"`
	NeedsCompile     bool   `json:"needsCompile"`
	CompileCmd       string `json:"compileCmd"`
	RunCmd           string `json:"runCmd"`
	TimeFactor       int64  `json:"timeFactor,optional"`
	MemoryFactor     int64  `json:"memoryFactor,optional"`
}

// Default resource limits, used when a Submission-level override is
// absent.
const (
	DefaultTimeLimitMs    = 10_000
	DefaultMemoryLimitKiB = 512 * 1024
	DefaultProcLimit      = 64
	DefaultCPURateLimit   = 1000
	DefaultOutputLimit    = 16 * 1024 * 1024
)

// Load reads path via conf.MustLoad and applies environment overrides
// and defaults.
func Load(path string) Config {
	var c Config
	conf.MustLoad(path, &c)
	applyDefaults(&c)
	applyEnvOverrides(&c)
	return c
}

// Dump renders the effective, post-default, post-env configuration as
// YAML, used by cmd/judgectl to let an operator inspect what a worker
// actually resolved a config file to.
func Dump(c Config) (string, error) {
	body, err := yaml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("config: marshal: %w", err)
	}
	return string(body), nil
}

func applyDefaults(c *Config) {
	if c.Redis.URL == "" {
		c.Redis.URL = "redis://localhost:6379"
	}
	if c.Sandbox.Endpoint == "" {
		c.Sandbox.Endpoint = "http://localhost:5050"
	}
	if c.Sandbox.Timeout <= 0 {
		c.Sandbox.Timeout = 30 * time.Second
	}
	if c.Sandbox.CacheExpire <= 0 {
		c.Sandbox.CacheExpire = 30 * time.Minute
	}
	if c.Sandbox.CacheRecycleGap <= 0 {
		c.Sandbox.CacheRecycleGap = time.Minute
	}
	if c.InitConcurrent <= 0 {
		c.InitConcurrent = 4
	}
	if c.LogFile == "" {
		c.LogFile = "judger.log"
	}
}

// applyEnvOverrides applies the scheduler's documented environment
// variables on top of whatever etc/judger.yaml set.
func applyEnvOverrides(c *Config) {
	if v := os.Getenv("PTOJ_REDIS_URL"); v != "" {
		c.Redis.URL = v
	}
	if v := os.Getenv("PTOJ_SANDBOX_ENDPOINT"); v != "" {
		c.Sandbox.Endpoint = v
	}
	if v := os.Getenv("PTOJ_INIT_CONCURRENT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.InitConcurrent = n
		}
	}
	if v := os.Getenv("PTOJ_LOG_FILE"); v != "" {
		c.LogFile = v
	}
	if v := os.Getenv("PTOJ_DEBUG"); v != "" {
		c.Debug = v == "1"
	}
	if v := os.Getenv("PTOJ_HEALTH_ADDR"); v != "" {
		c.HealthAddr = v
	}
}
