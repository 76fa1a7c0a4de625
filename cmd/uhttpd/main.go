// Command uhttpd is the bootstrap SPEC_FULL.md §10.1 describes: an
// external collaborator to the core, not part of it. It loads
// configuration, builds the MIME table and auth realms, opens one
// listener per configured address, and runs them under an errgroup so a
// fatal error on any listener — or SIGINT/SIGTERM — brings the whole
// process down together.
package main

import (
	"context"
	"crypto/tls"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/xqyjlj/uhttpd/internal/auth"
	"github.com/xqyjlj/uhttpd/internal/config"
	"github.com/xqyjlj/uhttpd/internal/core"
	"github.com/xqyjlj/uhttpd/internal/corelog"
	"github.com/xqyjlj/uhttpd/internal/mimetable"
	"github.com/xqyjlj/uhttpd/internal/netio"
	"github.com/xqyjlj/uhttpd/internal/registry"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "uhttpd:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	logger, err := corelog.Create("zerolog", "")
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer logger.Close()

	mime := mimetable.New(nil)

	realms := auth.NewRealms()
	sysdb := auth.NewSystemDB()
	for _, spec := range realmSpecsFromEnv() {
		realms.Add(spec.path, spec.user, spec.pass, sysdb)
	}

	reg := registry.New(nil)

	srv := core.New(core.Config{
		DocRoot:        cfg.DocRoot,
		Realm:          cfg.Realm,
		NetworkTimeout: time.Duration(cfg.NetworkTimeout) * time.Second,
		NoSymlinks:     cfg.NoSymlinks,
		NoDirLists:     cfg.NoDirLists,
		IndexFiles:     cfg.IndexFileList(),
	}, mime, realms, reg, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	var tlsConfig *tls.Config
	if cfg.TLSCertFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.TLSCertFile, cfg.TLSKeyFile)
		if err != nil {
			return fmt.Errorf("loading TLS keypair: %w", err)
		}
		tlsConfig = &tls.Config{Certificates: []tls.Certificate{cert}}
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, addr := range cfg.ListenAddrList() {
		addr := addr
		g.Go(func() error {
			return serveOne(ctx, addr, tlsConfig, srv, time.Duration(cfg.NetworkTimeout)*time.Second, logger)
		})
	}
	if cfg.MetricsAddr != "" {
		g.Go(func() error { return serveMetrics(ctx, cfg.MetricsAddr) })
	}

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func serveOne(ctx context.Context, addr string, tlsConfig *tls.Config, srv *core.Server, timeout time.Duration, logger corelog.Logger) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	logger.Logf("info", "listening", map[string]any{"addr": addr, "tls": tlsConfig != nil})

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		raw, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if tlsConfig != nil {
			raw = tls.Server(raw, tlsConfig)
		}
		conn := netio.NewConn(raw, timeout)
		go srv.HandleConnection(conn)
	}
}

func serveMetrics(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		_ = server.Close()
	}()
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type realmSpec struct {
	path, user, pass string
}

// realmSpecsFromEnv parses UHTTPD_REALMS as a semicolon-separated list of
// "path:user:pass" triples. This is intentionally minimal — the original
// uhttpd takes realm definitions from UCI config sections, which this
// repo has no equivalent of; env vars are the closest ambient-config
// analogue available without inventing a new config file format.
func realmSpecsFromEnv() []realmSpec {
	raw := os.Getenv("UHTTPD_REALMS")
	if raw == "" {
		return nil
	}
	var specs []realmSpec
	for _, entry := range splitTrim(raw, ';') {
		fields := splitTrim(entry, ':')
		if len(fields) != 3 {
			continue
		}
		specs = append(specs, realmSpec{path: fields[0], user: fields[1], pass: fields[2]})
	}
	return specs
}

func splitTrim(s string, sep byte) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == sep {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}
