// Package config is the ambient configuration layer SPEC_FULL.md §10.2
// describes: a plain struct bound from flags and environment variables,
// handed to the core as the immutable Config value SPEC_FULL.md §3
// specifies. Parsing, defaulting, and validation live here; the core
// itself never reads a flag or an env var.
package config

import (
	"errors"
	"flag"
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Config is the bootstrap-to-core contract. Field names mirror
// SPEC_FULL.md §3's Config data model one-for-one.
type Config struct {
	DocRoot        string `env:"UHTTPD_DOCROOT"`
	Realm          string `env:"UHTTPD_REALM"`
	NetworkTimeout int    `env:"UHTTPD_NETWORK_TIMEOUT" envDefault:"30"`
	NoSymlinks     bool   `env:"UHTTPD_NO_SYMLINKS"`
	NoDirLists     bool   `env:"UHTTPD_NO_DIRLISTS"`
	IndexFiles     string `env:"UHTTPD_INDEX_FILES" envDefault:"index.html"`
	ListenAddrs    string `env:"UHTTPD_LISTEN" envDefault:"0.0.0.0:8080"`
	MetricsAddr    string `env:"UHTTPD_METRICS_LISTEN"` // empty disables the /metrics listener
	TLSCertFile    string `env:"UHTTPD_TLS_CERT"`
	TLSKeyFile     string `env:"UHTTPD_TLS_KEY"`
}

// IndexFileList splits IndexFiles on ',' preserving order, matching the
// spec's insertion-ordered IndexFile collection.
func (c Config) IndexFileList() []string {
	return splitNonEmpty(c.IndexFiles)
}

// ListenAddrList splits ListenAddrs on ','.
func (c Config) ListenAddrList() []string {
	return splitNonEmpty(c.ListenAddrs)
}

func splitNonEmpty(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Load parses flags (which take precedence when set) then fills anything
// left at its zero value from the environment via caarlos0/env, mirroring
// absmach-mproxy/cmd/main.go's env.Parse-based bootstrap.
func Load(args []string) (Config, error) {
	var cfg Config
	fs := flag.NewFlagSet("uhttpd", flag.ContinueOnError)
	fs.StringVar(&cfg.DocRoot, "docroot", "", "absolute path to the document root")
	fs.StringVar(&cfg.Realm, "realm", "", "WWW-Authenticate realm name")
	fs.IntVar(&cfg.NetworkTimeout, "timeout", 0, "per-I/O-wait timeout in seconds")
	fs.BoolVar(&cfg.NoSymlinks, "no-symlinks", false, "resolve symlinks and require world-readable files")
	fs.BoolVar(&cfg.NoDirLists, "no-dirlists", false, "disable directory listings")
	fs.StringVar(&cfg.IndexFiles, "index-files", "", "comma-separated index filenames, tried in order")
	fs.StringVar(&cfg.ListenAddrs, "listen", "", "comma-separated host:port listen addresses")
	fs.StringVar(&cfg.MetricsAddr, "metrics-listen", "", "optional host:port for the /metrics endpoint")
	fs.StringVar(&cfg.TLSCertFile, "tls-cert", "", "optional TLS certificate file")
	fs.StringVar(&cfg.TLSKeyFile, "tls-key", "", "optional TLS key file")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	flagSet := Config{}
	if err := env.Parse(&flagSet); err != nil {
		return Config{}, fmt.Errorf("config: parsing environment: %w", err)
	}
	cfg = mergeDefaults(cfg, flagSet)

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// mergeDefaults fills any zero-valued flag field from the env-parsed
// defaults struct, so flags win when set and env/defaults fill the rest.
func mergeDefaults(flags, envd Config) Config {
	if flags.DocRoot == "" {
		flags.DocRoot = envd.DocRoot
	}
	if flags.Realm == "" {
		flags.Realm = envd.Realm
	}
	if flags.NetworkTimeout == 0 {
		flags.NetworkTimeout = envd.NetworkTimeout
	}
	if !flags.NoSymlinks {
		flags.NoSymlinks = envd.NoSymlinks
	}
	if !flags.NoDirLists {
		flags.NoDirLists = envd.NoDirLists
	}
	if flags.IndexFiles == "" {
		flags.IndexFiles = envd.IndexFiles
	}
	if flags.ListenAddrs == "" {
		flags.ListenAddrs = envd.ListenAddrs
	}
	if flags.MetricsAddr == "" {
		flags.MetricsAddr = envd.MetricsAddr
	}
	if flags.TLSCertFile == "" {
		flags.TLSCertFile = envd.TLSCertFile
	}
	if flags.TLSKeyFile == "" {
		flags.TLSKeyFile = envd.TLSKeyFile
	}
	return flags
}

func validate(c Config) error {
	if c.DocRoot == "" {
		return errors.New("config: docroot is required")
	}
	if !strings.HasPrefix(c.DocRoot, "/") {
		return errors.New("config: docroot must be absolute")
	}
	if c.NetworkTimeout <= 0 {
		return errors.New("config: network timeout must be positive")
	}
	if len(c.ListenAddrList()) == 0 {
		return errors.New("config: at least one listen address is required")
	}
	if (c.TLSCertFile == "") != (c.TLSKeyFile == "") {
		return errors.New("config: tls-cert and tls-key must be set together")
	}
	return nil
}
