package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/xhit/go-str2duration/v2"
	"gopkg.in/yaml.v3"
)

// Duration accepts "500ms", "5m", "1d" and similar in YAML and env vars.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := str2duration.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

type Config struct {
	ListenAddr  string `yaml:"listen_addr"`
	MetricsAddr string `yaml:"metrics_addr"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		File   string `yaml:"file"`
	} `yaml:"log"`

	Cache struct {
		Dir       string   `yaml:"dir"`
		TTL       Duration `yaml:"ttl"`
		RedisHost string   `yaml:"redis_host"`
	} `yaml:"cache"`

	Request struct {
		FastTimeout  Duration `yaml:"fast_timeout"`
		SlowTimeout  Duration `yaml:"slow_timeout"`
		ProbeTimeout Duration `yaml:"probe_timeout"`
		Attempts     int      `yaml:"attempts"`
		BackoffBase  Duration `yaml:"backoff_base"`
		JitterMin    Duration `yaml:"jitter_min"`
		JitterMax    Duration `yaml:"jitter_max"`
		FlareSolverr string   `yaml:"flaresolverr_address"`
	} `yaml:"request"`

	Sources struct {
		YTSURL    string   `yaml:"yts_url"`
		LeetxURL  string   `yaml:"leetx_url"`
		MaxPages  int      `yaml:"max_pages"`
		PageDelay Duration `yaml:"page_delay"`
	} `yaml:"sources"`

	Metadata struct {
		TMDBAPIKey        string `yaml:"tmdb_api_key"`
		TMDBURL           string `yaml:"tmdb_url"`
		MetacriticURL     string `yaml:"metacritic_url"`
		RottenTomatoesURL string `yaml:"rottentomatoes_url"`
	} `yaml:"metadata"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	cfg := &Config{}
	cfg.ListenAddr = ":7006"
	cfg.MetricsAddr = ":8081"

	cfg.Cache.Dir = ".cache"
	cfg.Cache.TTL = Duration(5 * time.Minute)

	cfg.Request.FastTimeout = Duration(time.Second)
	cfg.Request.SlowTimeout = Duration(10 * time.Second)
	cfg.Request.ProbeTimeout = Duration(5 * time.Second)
	cfg.Request.Attempts = 3
	cfg.Request.BackoffBase = Duration(500 * time.Millisecond)
	cfg.Request.JitterMin = Duration(time.Second)
	cfg.Request.JitterMax = Duration(3 * time.Second)

	cfg.Sources.MaxPages = 5
	cfg.Sources.PageDelay = Duration(time.Second)
	return cfg
}

// Load reads the YAML file at path (a missing file is not an error) and then
// applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	var errs []error
	dur := func(key string, dst *Duration) {
		if v, ok := lookup(key); ok && v != "" {
			d, err := str2duration.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = Duration(d)
		}
	}
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}

	str("LISTEN_ADDR", &c.ListenAddr)
	str("METRICS_ADDR", &c.MetricsAddr)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)
	str("LOG_FILE", &c.Log.File)
	str("CACHE_DIR", &c.Cache.Dir)
	dur("CACHE_TTL", &c.Cache.TTL)
	str("REDIS_HOST", &c.Cache.RedisHost)
	dur("REQUEST_FAST_TIMEOUT", &c.Request.FastTimeout)
	dur("REQUEST_SLOW_TIMEOUT", &c.Request.SlowTimeout)
	num("REQUEST_ATTEMPTS", &c.Request.Attempts)
	str("FLARESOLVERR_ADDRESS", &c.Request.FlareSolverr)
	str("YTS_URL", &c.Sources.YTSURL)
	str("LEETX_URL", &c.Sources.LeetxURL)
	num("LEETX_MAX_PAGES", &c.Sources.MaxPages)
	dur("LEETX_PAGE_DELAY", &c.Sources.PageDelay)
	str("TMDB_API_KEY", &c.Metadata.TMDBAPIKey)
	str("TMDB_URL", &c.Metadata.TMDBURL)

	return errors.Join(errs...)
}
