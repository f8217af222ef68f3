package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

const (
	envPrefix         = "MARKET_"
	defaultConfigFile = "config.yaml"
)

type Config struct {
	HTTP struct {
		Port      int    `koanf:"port"`
		BodyLimit int    `koanf:"bodylimit"`
		Origins   string `koanf:"origins"`
	} `koanf:"http"`

	RateLimit struct {
		Max    int           `koanf:"max"`
		Window time.Duration `koanf:"window"`
	} `koanf:"ratelimit"`

	DB struct {
		Host     string `koanf:"host"`
		Port     int    `koanf:"port"`
		User     string `koanf:"user"`
		Password string `koanf:"password"`
		Name     string `koanf:"name"`
		SSLMode  string `koanf:"sslmode"`
		// Replicas is a comma separated list of host[:port] read replicas.
		Replicas string `koanf:"replicas"`
	} `koanf:"db"`

	JWT struct {
		Secret string        `koanf:"secret"`
		TTL    time.Duration `koanf:"ttl"`
	} `koanf:"jwt"`

	// Admin bootstraps a staff account on startup when both fields are set.
	Admin struct {
		Email    string `koanf:"email"`
		Password string `koanf:"password"`
	} `koanf:"admin"`

	SMTP struct {
		Host     string `koanf:"host"`
		Port     int    `koanf:"port"`
		User     string `koanf:"user"`
		Password string `koanf:"password"`
		From     string `koanf:"from"`
	} `koanf:"smtp"`

	Jobs struct {
		MailTopic        string `koanf:"mailtopic"`
		MailSubscription string `koanf:"mailsubscription"`
		ThumbnailTopic   string `koanf:"thumbnailtopic"`
	} `koanf:"jobs"`

	Blob struct {
		URL string `koanf:"url"`
	} `koanf:"blob"`

	Log struct {
		Level  string `koanf:"level"`
		Pretty bool   `koanf:"pretty"`
	} `koanf:"log"`
}

var defaults = map[string]any{
	"http.port":             8080,
	"http.bodylimit":        4 * 1024 * 1024,
	"http.origins":          "*",
	"ratelimit.max":         100,
	"ratelimit.window":      "60s",
	"db.host":               "localhost",
	"db.port":               5432,
	"db.user":               "postgres",
	"db.name":               "marketplace",
	"db.sslmode":            "disable",
	"jwt.ttl":               "24h",
	"smtp.port":             587,
	"smtp.from":             "no-reply@marketplace.local",
	"jobs.mailtopic":        "mem://mail",
	"jobs.mailsubscription": "mem://mail",
	"jobs.thumbnailtopic":   "mem://thumbnails",
	"blob.url":              "mem://",
	"log.level":             "info",
}

// Load reads configuration from defaults, an optional YAML file and MARKET_* environment
// variables, in that order. A .env file in the working directory is loaded first if present.
// MARKET_CONFIG overrides the YAML file path.
func Load() (*Config, error) {
	_ = godotenv.Load()

	path := os.Getenv(envPrefix + "CONFIG")
	if path == "" {
		path = defaultConfigFile
	}
	return LoadFile(path)
}

// LoadFile is Load with an explicit YAML path. A missing file is not an error.
func LoadFile(path string) (*Config, error) {
	k := koanf.New(".")

	for key, val := range defaults {
		if err := k.Set(key, val); err != nil {
			return nil, errors.Wrapf(err, "set default %s", key)
		}
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, errors.Wrapf(err, "read config file %s", path)
			}
		}
	}

	// MARKET_HTTP_PORT -> http.port
	if err := k.Load(env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(key, value string) (string, any) {
			key = strings.TrimPrefix(key, envPrefix)
			if key == "CONFIG" {
				return "", nil
			}
			return strings.ReplaceAll(strings.ToLower(key), "_", "."), value
		},
	}), nil); err != nil {
		return nil, errors.Wrap(err, "load env variables")
	}

	cfg := new(Config)
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.JWT.Secret) == "" {
		return errors.New("jwt secret not configured (set MARKET_JWT_SECRET)")
	}
	if c.JWT.TTL <= 0 {
		return errors.Errorf("jwt ttl must be positive, got %s", c.JWT.TTL)
	}
	if c.HTTP.BodyLimit <= 0 {
		return errors.Errorf("http body limit must be positive, got %d", c.HTTP.BodyLimit)
	}
	return nil
}

// SMTPEnabled reports whether outgoing mail can be delivered.
func (c *Config) SMTPEnabled() bool {
	return c.SMTP.Host != "" && c.SMTP.Port > 0
}

// ReplicaHosts splits DB.Replicas into trimmed, non-empty entries.
func (c *Config) ReplicaHosts() []string {
	var out []string
	for _, h := range strings.Split(c.DB.Replicas, ",") {
		if h = strings.TrimSpace(h); h != "" {
			out = append(out, h)
		}
	}
	return out
}
