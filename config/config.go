package config

import (
	"errors"
	"strings"
	"time"

	"github.com/romangod6/sitemap-builder/internal/walker"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment key (SITEMAP_SITE_DOMAIN, ...).
const EnvPrefix = "SITEMAP"

type Config struct {
	Site struct {
		Domain         string
		Dir            string
		Out            string
		WriteRobots    bool   `mapstructure:"write_robots"`
		Overrides      string // per-path override JSON
		Exclude        []string
		RespectNoindex bool `mapstructure:"respect_noindex"`
	}
	Server struct {
		Port int
	}
	Database struct {
		URL string // run history DSN; empty disables history
	}
	Verifier struct {
		UserAgent   string `mapstructure:"user_agent"`
		Parallelism int
		Timeout     time.Duration
	}
	Watch struct {
		Debounce time.Duration
	}
	Metrics struct {
		Textfile string // node_exporter textfile written after each run
	}
	Log struct {
		Verbose bool
		File    string
	}
}

// SetDefaults registers every known key on v so env and file values can override them.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("site.domain", "")
	v.SetDefault("site.dir", ".")
	v.SetDefault("site.out", "sitemap.xml")
	v.SetDefault("site.write_robots", false)
	v.SetDefault("site.overrides", "")
	v.SetDefault("site.exclude", walker.DefaultExclude)
	v.SetDefault("site.respect_noindex", false)

	v.SetDefault("server.port", 8080)
	v.SetDefault("database.url", "")

	v.SetDefault("verifier.user_agent", "sitemap-builder/1.0")
	v.SetDefault("verifier.parallelism", 2)
	v.SetDefault("verifier.timeout", 10*time.Second)

	v.SetDefault("watch.debounce", 500*time.Millisecond)
	v.SetDefault("metrics.textfile", "")

	v.SetDefault("log.verbose", false)
	v.SetDefault("log.file", "")
}

// LoadConfig reads defaults, an optional sitemap.yaml (or the file named by
// the config_file key) and the environment into a Config. Flags should be
// bound on v before calling.
func LoadConfig(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("site.domain", EnvPrefix+"_SITE_DOMAIN", "SITE_DOMAIN"); err != nil {
		return nil, err
	}

	if file := v.GetString("config_file"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	} else {
		v.SetConfigName("sitemap")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, err
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// GetExclude returns the exclusion list with blanks removed.
func (c *Config) GetExclude() []string {
	out := make([]string, 0, len(c.Site.Exclude))
	for _, e := range c.Site.Exclude {
		if e = strings.TrimSpace(e); e != "" {
			out = append(out, e)
		}
	}
	return out
}
