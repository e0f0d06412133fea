// Package config loads service settings from defaults, an optional YAML file,
// environment variables and command-line flags, in rising precedence.
package config

import (
	"errors"
	"fmt"
	"net/netip"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/PaulFidika/authmodule/messaging"
	"github.com/PaulFidika/authmodule/password"
)

// Keys.
const (
	KeyEnableOperateLog = "auth-module.enable-operate-log"
	KeyDigestAlgorithm  = "auth-module.digest-algorithm"
	KeyAuthority        = "auth-module.authority"
	KeyOplogWorkers     = "oplog.workers"
	KeyOplogQueueSize   = "oplog.queue_size"
	KeyOplogTaskTimeout = "oplog.task_timeout"
	KeyOplogSink        = "oplog.sink"
	KeyOplogRemoteURL   = "oplog.remote_url"
	KeyOplogReportEvery = "oplog.report_every"
	KeyMessagingDriver  = "messaging.driver"
	KeyMessagingURL     = "messaging.url"
	KeyExchange         = "messaging.exchange"
	KeyRoutingKey       = "messaging.routing_key"
	KeyDatabaseURL      = "database_url"
	KeyRedisURL         = "redis_url"
	KeyHTTPAddr         = "http.addr"
	KeyTrustedProxies   = "http.trusted_proxies"
	KeyJWTKID           = "jwt.kid"
	KeyJWTIssuer        = "jwt.issuer"
	KeyJWTTTL           = "jwt.ttl"
	KeyJWTKeysDir       = "jwt.keys_dir"
	KeyLoginPerMinute   = "ratelimit.login_per_minute"
	KeyLogLevel         = "log.level"
)

// Operate-log sinks.
const (
	SinkHTTP     = "http"
	SinkPostgres = "postgres"
	SinkRiver    = "river"
	SinkNone     = "none"
)

var defaults = map[string]any{
	KeyEnableOperateLog: true,
	KeyDigestAlgorithm:  password.AlgSHA256,
	KeyAuthority:        "ADMIN",
	KeyOplogWorkers:     4,
	KeyOplogQueueSize:   1024,
	KeyOplogTaskTimeout: "10s",
	KeyOplogSink:        SinkNone,
	KeyOplogRemoteURL:   "",
	KeyOplogReportEvery: "1m",
	KeyMessagingDriver:  messaging.DriverNone,
	KeyMessagingURL:     "",
	KeyExchange:         messaging.DefaultExchange,
	KeyRoutingKey:       messaging.DefaultRoutingKey,
	KeyDatabaseURL:      "",
	KeyRedisURL:         "",
	KeyHTTPAddr:         ":8080",
	KeyTrustedProxies:   "",
	KeyJWTKID:           "",
	KeyJWTIssuer:        "authmodule",
	KeyJWTTTL:           "1h",
	KeyJWTKeysDir:       ".runtime/authmodule",
	KeyLoginPerMinute:   10,
	KeyLogLevel:         "info",
}

var (
	ErrMissingRemoteURL   = errors.New("oplog.remote_url is required for the http sink")
	ErrMissingDatabaseURL = errors.New("database_url is required for the postgres and river sinks")
	ErrMissingBrokerURL   = errors.New("messaging.url is required for the selected driver")
)

type Oplog struct {
	Enabled     bool
	Workers     int
	QueueSize   int
	TaskTimeout time.Duration
	Sink        string
	RemoteURL   string
	ReportEvery time.Duration
}

type Messaging struct {
	Driver     string
	URL        string
	Exchange   string
	RoutingKey string
}

type JWT struct {
	KID     string
	Issuer  string
	TTL     time.Duration
	KeysDir string
}

// Config is the resolved service configuration.
type Config struct {
	DigestAlgorithm string
	Authority       string
	Oplog           Oplog
	Messaging       Messaging
	DatabaseURL     string
	RedisURL        string
	HTTPAddr        string
	// TrustedProxies lists the IPs or CIDRs whose X-Forwarded-For is
	// believed. Empty means the socket address is always the client.
	TrustedProxies  []string
	JWT             JWT
	LoginPerMinute  int
	LogLevel        string
}

// EnvName maps a key to its environment variable, e.g.
// auth-module.enable-operate-log -> AUTH_MODULE_ENABLE_OPERATE_LOG.
func EnvName(key string) string {
	return strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(key))
}

// Load resolves configuration. path may be empty; flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")
	for key, v := range defaults {
		if err := k.Set(key, v); err != nil {
			return nil, fmt.Errorf("config: default %s: %w", key, err)
		}
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	for key := range defaults {
		if v, ok := os.LookupEnv(EnvName(key)); ok && v != "" {
			if err := k.Set(key, v); err != nil {
				return nil, fmt.Errorf("config: env %s: %w", EnvName(key), err)
			}
		}
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, fmt.Errorf("config: flags: %w", err)
		}
	}

	cfg := &Config{
		DigestAlgorithm: k.String(KeyDigestAlgorithm),
		Authority:       k.String(KeyAuthority),
		Oplog: Oplog{
			Enabled:     k.Bool(KeyEnableOperateLog),
			Workers:     k.Int(KeyOplogWorkers),
			QueueSize:   k.Int(KeyOplogQueueSize),
			TaskTimeout: k.Duration(KeyOplogTaskTimeout),
			Sink:        strings.ToLower(k.String(KeyOplogSink)),
			RemoteURL:   k.String(KeyOplogRemoteURL),
			ReportEvery: k.Duration(KeyOplogReportEvery),
		},
		Messaging: Messaging{
			Driver:     strings.ToLower(k.String(KeyMessagingDriver)),
			URL:        k.String(KeyMessagingURL),
			Exchange:   k.String(KeyExchange),
			RoutingKey: k.String(KeyRoutingKey),
		},
		DatabaseURL:    k.String(KeyDatabaseURL),
		RedisURL:       k.String(KeyRedisURL),
		HTTPAddr:       k.String(KeyHTTPAddr),
		TrustedProxies: splitList(k.Get(KeyTrustedProxies)),
		JWT: JWT{
			KID:     k.String(KeyJWTKID),
			Issuer:  k.String(KeyJWTIssuer),
			TTL:     k.Duration(KeyJWTTTL),
			KeysDir: k.String(KeyJWTKeysDir),
		},
		LoginPerMinute: k.Int(KeyLoginPerMinute),
		LogLevel:       k.String(KeyLogLevel),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []error
	if _, err := password.NewEncoder(c.DigestAlgorithm); err != nil {
		errs = append(errs, fmt.Errorf("%s: %w", KeyDigestAlgorithm, err))
	}
	if c.Oplog.Workers <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", KeyOplogWorkers))
	}
	if c.Oplog.QueueSize <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", KeyOplogQueueSize))
	}
	if c.Oplog.TaskTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be a positive duration", KeyOplogTaskTimeout))
	}
	switch c.Oplog.Sink {
	case SinkHTTP:
		if c.Oplog.RemoteURL == "" {
			errs = append(errs, ErrMissingRemoteURL)
		} else if u, err := url.Parse(c.Oplog.RemoteURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("%s is not an absolute URL", KeyOplogRemoteURL))
		}
	case SinkPostgres, SinkRiver:
		if c.DatabaseURL == "" {
			errs = append(errs, ErrMissingDatabaseURL)
		}
	case SinkNone, "":
	default:
		errs = append(errs, fmt.Errorf("%s: unknown sink %q", KeyOplogSink, c.Oplog.Sink))
	}
	switch c.Messaging.Driver {
	case messaging.DriverRabbitMQ, messaging.DriverRedis, messaging.DriverKafka:
		if c.Messaging.URL == "" {
			errs = append(errs, ErrMissingBrokerURL)
		}
	case messaging.DriverNone, "":
	default:
		errs = append(errs, fmt.Errorf("%s: unknown driver %q", KeyMessagingDriver, c.Messaging.Driver))
	}
	for _, p := range c.TrustedProxies {
		if _, err := netip.ParsePrefix(p); err == nil {
			continue
		}
		if _, err := netip.ParseAddr(p); err != nil {
			errs = append(errs, fmt.Errorf("%s: %q is not an IP or CIDR", KeyTrustedProxies, p))
		}
	}
	if c.LoginPerMinute < 0 {
		errs = append(errs, fmt.Errorf("%s must not be negative", KeyLoginPerMinute))
	}
	return errors.Join(errs...)
}

// splitList accepts a YAML list or a comma-separated string.
func splitList(v any) []string {
	var raw []string
	switch t := v.(type) {
	case string:
		raw = strings.Split(t, ",")
	case []string:
		raw = t
	case []any:
		for _, e := range t {
			raw = append(raw, fmt.Sprint(e))
		}
	}
	var out []string
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Flags declares the command-line overrides understood by Load.
func Flags(fs *pflag.FlagSet) {
	fs.String(KeyHTTPAddr, defaults[KeyHTTPAddr].(string), "listen address")
	fs.Bool(KeyEnableOperateLog, true, "record operate logs")
	fs.String(KeyOplogSink, SinkNone, "operate log sink: http, postgres, river or none")
	fs.String(KeyMessagingDriver, messaging.DriverNone, "access log broker: rabbitmq, redis, kafka or none")
	fs.String(KeyLogLevel, "info", "log level")
}
