// Package config loads process settings from flags, environment variables and
// an optional YAML file. Precedence is flag, then environment, then file, then
// the built in default.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/reviewlink/reviewlink/gmaps"
	"github.com/reviewlink/reviewlink/places"
)

const (
	RunModeWeb = iota + 1
	RunModeWorker
	RunModeResolve
)

const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	Addr                  string
	BaseURL               string
	AllowedOrigins        []string
	PlacesAPIKey          string
	PlacesBaseURL         string
	PlacesAutocompleteURL string
	PlacesRPS             float64
	ResolveTimeout        time.Duration
	LookupTimeout         time.Duration
	MaxRedirects          int
	MaxBodyBytes          int64
	UserAgent             string
	Store                 string
	DSN                   string
	DataFolder            string
	RedisURL              string
	CacheTTL              time.Duration
	AsyncAnalytics        bool
	PostHogKey            string
	PostHogEndpoint       string
	ClerkKey              string
	Debug                 bool
	Worker                bool
	Resolve               string
	RunMode               int
}

// option describes one setting. env defaults to the upper cased name with
// dashes replaced by underscores.
type option struct {
	name   string
	env    string
	def    string
	usage  string
	isBool bool
	apply  func(*Config, string) error
}

func (o option) envKey() string {
	if o.env != "" {
		return o.env
	}

	return strings.ToUpper(strings.ReplaceAll(o.name, "-", "_"))
}

var options = []option{
	{name: "addr", def: ":8080", usage: "address to listen on for the web server",
		apply: func(c *Config, v string) error { c.Addr = v; return nil }},
	{name: "base-url", def: "http://localhost:8080", usage: "public origin used to build review page links",
		apply: func(c *Config, v string) error { c.BaseURL = strings.TrimRight(v, "/"); return nil }},
	{name: "allowed-origins", usage: "comma separated CORS origins [default: any]",
		apply: func(c *Config, v string) error { c.AllowedOrigins = splitList(v); return nil }},
	{name: "places-api-key", env: "GOOGLE_PLACES_API_KEY", usage: "Google Places API key",
		apply: func(c *Config, v string) error { c.PlacesAPIKey = v; return nil }},
	{name: "places-base-url", def: places.DefaultBaseURL, usage: "Places API base URL",
		apply: func(c *Config, v string) error { c.PlacesBaseURL = v; return nil }},
	{name: "places-autocomplete-url", def: places.DefaultAutocompleteURL, usage: "Places autocomplete endpoint",
		apply: func(c *Config, v string) error { c.PlacesAutocompleteURL = v; return nil }},
	{name: "places-rps", def: "0", usage: "client side limit of Places requests per second, 0 disables it",
		apply: func(c *Config, v string) (err error) { c.PlacesRPS, err = strconv.ParseFloat(v, 64); return err }},
	{name: "resolve-timeout", def: gmaps.DefaultResolveTimeout.String(), usage: "timeout of link resolution",
		apply: func(c *Config, v string) (err error) { c.ResolveTimeout, err = time.ParseDuration(v); return err }},
	{name: "lookup-timeout", def: places.DefaultTimeout.String(), usage: "timeout of place lookups",
		apply: func(c *Config, v string) (err error) { c.LookupTimeout, err = time.ParseDuration(v); return err }},
	{name: "max-redirects", def: strconv.Itoa(gmaps.DefaultMaxRedirects), usage: "redirects followed while resolving links",
		apply: func(c *Config, v string) (err error) { c.MaxRedirects, err = strconv.Atoi(v); return err }},
	{name: "max-body-bytes", def: strconv.Itoa(gmaps.DefaultMaxBodyBytes), usage: "bytes of a resolved page inspected for a place id",
		apply: func(c *Config, v string) (err error) { c.MaxBodyBytes, err = strconv.ParseInt(v, 10, 64); return err }},
	{name: "user-agent", def: gmaps.DefaultUserAgent, usage: "User-Agent sent while resolving links",
		apply: func(c *Config, v string) error { c.UserAgent = v; return nil }},
	{name: "store", def: StoreMemory, usage: "storage backend: memory, sqlite, postgres or redis",
		apply: func(c *Config, v string) error { c.Store = strings.ToLower(v); return nil }},
	{name: "dsn", env: "DATABASE_URL", usage: "postgres connection string",
		apply: func(c *Config, v string) error { c.DSN = v; return nil }},
	{name: "data-folder", def: "webdata", usage: "folder of the sqlite database",
		apply: func(c *Config, v string) error { c.DataFolder = v; return nil }},
	{name: "redis-url", usage: "redis:// or rediss:// URL, overrides REDIS_HOST and friends",
		apply: func(c *Config, v string) error { c.RedisURL = v; return nil }},
	{name: "cache-ttl", def: "1h", usage: "how long place details are cached",
		apply: func(c *Config, v string) (err error) { c.CacheTTL, err = time.ParseDuration(v); return err }},
	{name: "async-analytics", def: "false", isBool: true, usage: "record analytics through the task queue",
		apply: func(c *Config, v string) (err error) { c.AsyncAnalytics, err = strconv.ParseBool(v); return err }},
	{name: "posthog-key", usage: "PostHog project key, analytics events are forwarded when set",
		apply: func(c *Config, v string) error { c.PostHogKey = v; return nil }},
	{name: "posthog-endpoint", def: "https://eu.i.posthog.com", usage: "PostHog endpoint",
		apply: func(c *Config, v string) error { c.PostHogEndpoint = v; return nil }},
	{name: "clerk-key", env: "CLERK_SECRET_KEY", usage: "Clerk secret key, enables authentication when set",
		apply: func(c *Config, v string) error { c.ClerkKey = v; return nil }},
	{name: "debug", def: "false", isBool: true, usage: "development logging",
		apply: func(c *Config, v string) (err error) { c.Debug, err = strconv.ParseBool(v); return err }},
	{name: "worker", def: "false", isBool: true, usage: "only consume analytics tasks",
		apply: func(c *Config, v string) (err error) { c.Worker, err = strconv.ParseBool(v); return err }},
	{name: "resolve", env: "-", usage: "resolve and look up one input, print the result and exit",
		apply: func(c *Config, v string) error { c.Resolve = v; return nil }},
}

type flagValue struct {
	value  string
	isBool bool
}

func (v *flagValue) String() string   { return v.value }
func (v *flagValue) Set(s string) error { v.value = s; return nil }
func (v *flagValue) IsBoolFlag() bool { return v.isBool }

// Load parses args (without the program name) and returns a validated
// configuration.
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("reviewlink", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	configFile := fs.String("config", os.Getenv("CONFIG_FILE"), "optional YAML configuration file")

	flags := make(map[string]*flagValue, len(options))

	for _, o := range options {
		v := &flagValue{isBool: o.isBool}
		flags[o.name] = v
		fs.Var(v, o.name, o.usage)
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			fs.SetOutput(os.Stderr)
			fs.PrintDefaults()

			return nil, err
		}

		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	var file map[string]string

	if *configFile != "" {
		var err error

		file, err = readFile(*configFile)
		if err != nil {
			return nil, err
		}
	}

	cfg := Config{}

	var errs error

	for _, o := range options {
		value := o.def

		if v, ok := file[o.name]; ok {
			value = v
		}

		if o.env != "-" {
			if v := os.Getenv(o.envKey()); v != "" {
				value = v
			}
		}

		if set[o.name] {
			value = flags[o.name].value
		}

		if err := o.apply(&cfg, value); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", o.name, err))
		}
	}

	if errs != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, errs)
	}

	switch {
	case cfg.Resolve != "":
		cfg.RunMode = RunModeResolve
	case cfg.Worker:
		cfg.RunMode = RunModeWorker
	default:
		cfg.RunMode = RunModeWeb
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: config file: %w", ErrInvalidConfig, err)
	}

	ans := make(map[string]string, len(raw))

	for k, v := range raw {
		switch val := v.(type) {
		case []any:
			parts := make([]string, 0, len(val))
			for _, p := range val {
				parts = append(parts, fmt.Sprint(p))
			}

			ans[k] = strings.Join(parts, ",")
		case nil:
		default:
			ans[k] = fmt.Sprint(val)
		}
	}

	return ans, nil
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs error

	checkDuration := func(name string, d time.Duration) {
		if d < time.Second || d > time.Minute {
			errs = multierr.Append(errs, fmt.Errorf("%s must be between 1s and 1m", name))
		}
	}

	checkDuration("resolve-timeout", c.ResolveTimeout)
	checkDuration("lookup-timeout", c.LookupTimeout)

	if c.MaxRedirects < 1 || c.MaxRedirects > 20 {
		errs = multierr.Append(errs, errors.New("max-redirects must be between 1 and 20"))
	}

	if c.MaxBodyBytes < 16<<10 || c.MaxBodyBytes > 8<<20 {
		errs = multierr.Append(errs, errors.New("max-body-bytes must be between 16KiB and 8MiB"))
	}

	if c.PlacesRPS < 0 {
		errs = multierr.Append(errs, errors.New("places-rps must not be negative"))
	}

	if c.CacheTTL <= 0 {
		errs = multierr.Append(errs, errors.New("cache-ttl must be positive"))
	}

	if u, err := url.Parse(c.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = multierr.Append(errs, fmt.Errorf("base-url must be an absolute http(s) URL, got %q", c.BaseURL))
	}

	switch c.Store {
	case StoreMemory, StoreSQLite, StoreRedis:
	case StorePostgres:
		if c.DSN == "" {
			errs = multierr.Append(errs, errors.New("dsn is required for the postgres store"))
		}
	default:
		errs = multierr.Append(errs, fmt.Errorf("unknown store %q", c.Store))
	}

	if c.RunMode != RunModeWorker && c.PlacesAPIKey == "" {
		errs = multierr.Append(errs, fmt.Errorf("places-api-key is required: %w", places.ErrMissingAPIKey))
	}

	if c.Worker && c.Resolve != "" {
		errs = multierr.Append(errs, errors.New("worker and resolve are mutually exclusive"))
	}

	if errs != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errs)
	}

	return nil
}

// NeedsRedis reports whether any configured component talks to Redis.
func (c *Config) NeedsRedis() bool {
	return c.Store == StoreRedis || c.AsyncAnalytics || c.RunMode == RunModeWorker
}

func splitList(s string) []string {
	var ans []string

	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			ans = append(ans, part)
		}
	}

	return ans
}
