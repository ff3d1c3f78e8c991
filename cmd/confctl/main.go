// Command confctl inspects and drives the configuration cache. It talks to
// a running confcached over its unix socket; when no daemon is up it opens
// the bolt database and resolves in-process instead.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	humanize "github.com/dustin/go-humanize"
	"github.com/tidwall/gjson"
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

const probeTimeout = 200 * time.Millisecond

func main() {
	os.Exit(realMain())
}

func realMain() int {
	cfgFile := config.Path()

	cmd := &cli.Command{
		Name:  "confctl",
		Usage: "configuration cache control",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "url",
				Usage: "remote configuration endpoint (direct mode only)",
				Sources: cli.NewValueSourceChain(
					cli.EnvVar("CONFCACHE_URL"),
					yaml.YAML("url", altsrc.StringSourcer(cfgFile)),
				),
			},
			&cli.StringFlag{
				Name:  "socket",
				Usage: "daemon unix socket",
				Sources: cli.NewValueSourceChain(
					cli.EnvVar("CONFCACHE_SOCK"),
					yaml.YAML("socket", altsrc.StringSourcer(cfgFile)),
				),
				Value: config.SocketPath(),
			},
			&cli.StringFlag{
				Name:  "db",
				Usage: "bolt database file (direct mode only)",
				Sources: cli.NewValueSourceChain(
					cli.EnvVar("CONFCACHE_DB"),
					yaml.YAML("db", altsrc.StringSourcer(cfgFile)),
				),
				Value: config.DBPath(),
			},
			&cli.DurationFlag{
				Name:  "freshness",
				Usage: "freshness window (direct mode only)",
				Sources: cli.NewValueSourceChain(
					cli.EnvVar("CONFCACHE_FRESHNESS"),
					yaml.YAML("freshness", altsrc.StringSourcer(cfgFile)),
				),
				Value: confcache.DefaultFreshness,
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log level (debug, info, warn, error)",
				Value: "warn",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			return ctx, logger.Init(cmd.String("log-level"))
		},
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "print the current configuration payload",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "field",
						Aliases: []string{"f"},
						Usage:   "print a single field (dotted path) instead of the full payload",
					},
				},
				Action: getAction,
			},
			{
				Name:   "status",
				Usage:  "show cache age, size and freshness",
				Action: statusAction,
			},
			{
				Name:   "refresh",
				Usage:  "revalidate against the remote endpoint now",
				Action: refreshAction,
			},
			{
				Name:   "purge",
				Usage:  "drop the cached configuration",
				Action: purgeAction,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

// service is the cache surface confctl drives, through the daemon or
// directly against the store.
type service interface {
	Get(ctx context.Context) (confcache.Result, error)
	Refresh(ctx context.Context) (confcache.Result, error)
	Status(ctx context.Context) (confcache.Status, error)
	Purge(ctx context.Context) error
}

// local resolves in-process when no daemon is reachable.
type local struct {
	fetcher *confcache.Fetcher
	store   confcache.Store
}

func (l *local) Get(ctx context.Context) (confcache.Result, error) {
	return l.fetcher.Get(ctx), nil
}

func (l *local) Refresh(ctx context.Context) (confcache.Result, error) {
	return l.fetcher.Refresh(ctx), nil
}

func (l *local) Status(ctx context.Context) (confcache.Status, error) {
	return l.fetcher.Status(ctx), nil
}

func (l *local) Purge(ctx context.Context) error {
	return l.store.Delete(ctx, confcache.PayloadKey, confcache.StoredAtKey)
}

func openService(cmd *cli.Command) (service, func(), error) {
	sock := cmd.String("socket")
	if daemon.Probe(sock, probeTimeout) {
		return daemon.NewClient(sock), func() {}, nil
	}

	b, err := store.OpenBolt(cmd.String("db"), store.BoltOptions{})
	if err != nil {
		return nil, nil, err
	}

	var src confcache.Source
	if url := cmd.String("url"); url != "" {
		h, err := source.NewHTTP(url, source.HTTPOptions{})
		if err != nil {
			_ = b.Close()
			return nil, nil, err
		}
		src = h
	}

	f := confcache.New(b, src, confcache.WithFreshness(cmd.Duration("freshness")))
	return &local{fetcher: f, store: b}, func() { _ = b.Close() }, nil
}

func getAction(ctx context.Context, cmd *cli.Command) error {
	svc, done, err := openService(cmd)
	if err != nil {
		return err
	}
	defer done()

	res, err := svc.Get(ctx)
	if err != nil {
		return err
	}
	if res.Origin == confcache.OriginNone {
		return fmt.Errorf("no configuration available: fetch failed and the cache is empty")
	}

	if field := cmd.String("field"); field != "" {
		v := gjson.GetBytes(res.Payload, field)
		if !v.Exists() {
			return fmt.Errorf("field not found: %s", field)
		}
		fmt.Println(v.String())
		return nil
	}

	os.Stdout.Write(res.Payload)
	fmt.Println()
	return nil
}

func statusAction(ctx context.Context, cmd *cli.Command) error {
	svc, done, err := openService(cmd)
	if err != nil {
		return err
	}
	defer done()

	st, err := svc.Status(ctx)
	if err != nil {
		return err
	}
	if !st.Exists {
		fmt.Println("no cached configuration")
		return nil
	}

	if st.StoredAt.IsZero() {
		fmt.Println("stored   unknown")
	} else {
		fmt.Printf("stored   %s (%s)\n", st.StoredAt.Format(time.RFC3339), humanize.Time(st.StoredAt))
	}
	fmt.Printf("size     %s\n", humanize.Bytes(uint64(st.Size)))
	if st.Fresh {
		fmt.Println("state    fresh")
	} else {
		fmt.Println("state    stale")
	}
	return nil
}

func refreshAction(ctx context.Context, cmd *cli.Command) error {
	svc, done, err := openService(cmd)
	if err != nil {
		return err
	}
	defer done()

	res, err := svc.Refresh(ctx)
	if err != nil {
		return err
	}
	switch res.Origin {
	case confcache.OriginRefreshed:
		fmt.Printf("refreshed, %s\n", humanize.Bytes(uint64(len(res.Payload))))
		return nil
	case confcache.OriginStale:
		return fmt.Errorf("refresh failed, cache still holds a stale copy")
	default:
		return fmt.Errorf("refresh failed and the cache is empty")
	}
}

func purgeAction(ctx context.Context, cmd *cli.Command) error {
	svc, done, err := openService(cmd)
	if err != nil {
		return err
	}
	defer done()

	if err := svc.Purge(ctx); err != nil {
		return err
	}
	fmt.Println("purged")
	return nil
}
