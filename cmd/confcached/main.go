// Command confcached is the configuration cache daemon. It owns the bolt
// database and serves get/refresh/status/purge requests over a unix socket
// so that any number of CLI and MCP clients share one cache and one
// in-flight fetch.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/apex/log"
	altsrc "github.com/urfave/cli-altsrc/v3"
	yaml "github.com/urfave/cli-altsrc/v3/yaml"
	"github.com/urfave/cli/v3"

	"github.com/confcache/confcache/internal/confcache"
	"github.com/confcache/confcache/internal/config"
	"github.com/confcache/confcache/internal/daemon"
	"github.com/confcache/confcache/internal/logger"
	"github.com/confcache/confcache/internal/source"
	"github.com/confcache/confcache/internal/store"
)

func main() {
	os.Exit(realMain())
}

func realMain() int {
	cfgFile := config.Path()

	cmd := &cli.Command{
		Name:  "confcached",
		Usage: "configuration cache daemon",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "url",
				Usage: "remote configuration endpoint",
				Sources: cli.NewValueSourceChain(
					cli.EnvVar("CONFCACHE_URL"),
					yaml.YAML("url", altsrc.StringSourcer(cfgFile)),
				),
			},
			&cli.StringFlag{
				Name:  "socket",
				Usage: "unix socket to listen on",
				Sources: cli.NewValueSourceChain(
					cli.EnvVar("CONFCACHE_SOCK"),
					yaml.YAML("socket", altsrc.StringSourcer(cfgFile)),
				),
				Value: config.SocketPath(),
			},
			&cli.StringFlag{
				Name:  "db",
				Usage: "bolt database file",
				Sources: cli.NewValueSourceChain(
					cli.EnvVar("CONFCACHE_DB"),
					yaml.YAML("db", altsrc.StringSourcer(cfgFile)),
				),
				Value: config.DBPath(),
			},
			&cli.DurationFlag{
				Name:  "freshness",
				Usage: "how long a cached payload is served without revalidation",
				Sources: cli.NewValueSourceChain(
					cli.EnvVar("CONFCACHE_FRESHNESS"),
					yaml.YAML("freshness", altsrc.StringSourcer(cfgFile)),
				),
				Value: confcache.DefaultFreshness,
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "remote fetch timeout",
				Sources: cli.NewValueSourceChain(
					yaml.YAML("timeout", altsrc.StringSourcer(cfgFile)),
				),
				Value: source.DefaultTimeout,
			},
			&cli.BoolFlag{
				Name:  "memory",
				Usage: "keep the cache in memory instead of on disk",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log level (debug, info, warn, error)",
				Sources: cli.NewValueSourceChain(
					yaml.YAML("log-level", altsrc.StringSourcer(cfgFile)),
				),
				Value: "info",
			},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func run(ctx context.Context, cmd *cli.Command) error {
	if err := logger.Init(cmd.String("log-level")); err != nil {
		return err
	}

	st, closeStore, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer closeStore()

	var src confcache.Source
	if url := cmd.String("url"); url != "" {
		h, err := source.NewHTTP(url, source.HTTPOptions{Timeout: cmd.Duration("timeout")})
		if err != nil {
			return err
		}
		src = h
		log.Infof("fetching configuration from %s", h.URL())
	} else {
		log.Warn("no url configured, serving cached configuration only")
	}

	fetcher := confcache.New(st, src, confcache.WithFreshness(cmd.Duration("freshness")))

	sock := cmd.String("socket")
	if err := os.MkdirAll(filepath.Dir(sock), 0o755); err != nil {
		return err
	}
	_ = os.Remove(sock)

	l, err := net.Listen("unix", sock)
	if err != nil {
		return err
	}
	_ = os.Chmod(sock, 0o600)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		_ = l.Close()
		_ = os.Remove(sock)
	}()

	log.Infof("listening on %s", sock)
	return daemon.NewServer(fetcher, st).Serve(ctx, l)
}

func openStore(cmd *cli.Command) (confcache.Store, func(), error) {
	if cmd.Bool("memory") {
		return store.NewMem(), func() {}, nil
	}

	b, err := store.OpenBolt(cmd.String("db"), store.BoltOptions{})
	if err != nil {
		return nil, nil, err
	}
	return b, func() { _ = b.Close() }, nil
}
