package main

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/Farcas-Consult/rams-sub000/config"
	"github.com/Farcas-Consult/rams-sub000/pkg/httpclient"
	"github.com/Farcas-Consult/rams-sub000/pkg/liveview"
	"github.com/Farcas-Consult/rams-sub000/pkg/reconciler"
	"github.com/Farcas-Consult/rams-sub000/pkg/redis"
)

const (
	pushKafka = "kafka"
	pushRedis = "redis"
	pushNone  = "none"
)

type watchOptions struct {
	server   string
	push     string
	gate     string
	category string
	status   string
	window   string
	interval time.Duration
}

// viewFrame is one line of watch output
type viewFrame struct {
	At        time.Time      `json:"at"`
	Connected bool           `json:"connected"`
	Rows      []liveview.Row `json:"rows"`
}

func newWatchCommand(load loader) *cobra.Command {
	var opts watchOptions

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the live view of a running server and print the filtered merged view",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, zapLogger, err := load()
			if err != nil {
				return err
			}
			defer func() { _ = zapLogger.Sync() }()

			window, err := reconciler.ParseWindow(opts.window)
			if err != nil {
				return err
			}
			filter := reconciler.Filter{
				Gate:     opts.gate,
				Category: opts.category,
				Status:   opts.status,
				Window:   window,
			}

			source, closeSource, err := pushSource(opts.push, cfg, logger)
			if err != nil {
				return err
			}
			defer closeSource()

			puller := reconciler.NewHTTPPuller(httpclient.NewClient(httpclient.DefaultConfig(), logger), opts.server)

			var sub *reconciler.Subscription
			var mu sync.Mutex
			out := json.NewEncoder(cmd.OutOrStdout())

			subCfg := reconciler.DefaultConfig()
			if opts.interval > 0 {
				subCfg.PollInterval = opts.interval
			}
			subCfg.OnUpdate = func() {
				mu.Lock()
				defer mu.Unlock()
				if err := printView(out, sub, filter, time.Now()); err != nil {
					logger.WithError(err).Error("Failed to print view")
				}
			}

			sub = reconciler.NewSubscription(puller, source, logger, subCfg)

			ctx := cmd.Context()
			if err := sub.Start(ctx); err != nil {
				return err
			}
			<-ctx.Done()
			sub.Stop()
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.server, "server", "http://localhost:3000", "base URL of the rams server")
	cmd.Flags().StringVar(&opts.push, "push", pushNone, "push channel: kafka, redis or none")
	cmd.Flags().StringVar(&opts.gate, "gate", "", "only rows seen at this gate")
	cmd.Flags().StringVar(&opts.category, "category", "", "only rows of this category")
	cmd.Flags().StringVar(&opts.status, "status", "", "only rows with this status")
	cmd.Flags().StringVar(&opts.window, "window", string(reconciler.WindowAll), "recency window: all, 5m, 15m or 60m")
	cmd.Flags().DurationVar(&opts.interval, "interval", 0, "pull period while the push channel is connected")

	return cmd
}

func printView(w *json.Encoder, sub *reconciler.Subscription, filter reconciler.Filter, now time.Time) error {
	rows := sub.Store().View(filter, now)
	if rows == nil {
		rows = []liveview.Row{}
	}
	return w.Encode(viewFrame{
		At:        now.UTC(),
		Connected: sub.Connected(),
		Rows:      rows,
	})
}

// pushSource builds the push channel named by push. A nil source runs the
// subscription pull-only.
func pushSource(push string, cfg *config.Config, logger ectologger.Logger) (reconciler.PushSource, func(), error) {
	switch push {
	case pushKafka:
		return reconciler.NewKafkaSource(cfg.KafkaBrokers, cfg.KafkaSightingsTopic, logger), func() {}, nil
	case pushRedis:
		rdb := goredis.NewClient(&goredis.Options{
			Addr:     redis.Config{Host: cfg.RedisHost, Port: cfg.RedisPort}.Addr(),
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		client := redis.NewClientFromRedis(rdb, logger)
		return reconciler.NewRedisSource(client, cfg.RedisSightingsChannel), func() { _ = client.Close() }, nil
	case pushNone, "":
		return nil, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("push must be one of kafka, redis, none, got %q", push)
	}
}
