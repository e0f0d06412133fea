package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/riverqueue/river"
	"github.com/sirupsen/logrus"
	"github.com/uptrace/bun"

	"github.com/PaulFidika/authmodule/accesslog"
	"github.com/PaulFidika/authmodule/adapters/ginutil"
	authgin "github.com/PaulFidika/authmodule/adapters/gin"
	authhttp "github.com/PaulFidika/authmodule/adapters/http"
	"github.com/PaulFidika/authmodule/config"
	"github.com/PaulFidika/authmodule/core"
	"github.com/PaulFidika/authmodule/credential"
	"github.com/PaulFidika/authmodule/identity"
	"github.com/PaulFidika/authmodule/jobs"
	jwtkit "github.com/PaulFidika/authmodule/jwt"
	"github.com/PaulFidika/authmodule/messaging"
	"github.com/PaulFidika/authmodule/oplog"
	"github.com/PaulFidika/authmodule/password"
	memorylimiter "github.com/PaulFidika/authmodule/ratelimit/memory"
	redislimiter "github.com/PaulFidika/authmodule/ratelimit/redis"
	pgstore "github.com/PaulFidika/authmodule/storage/postgres"
)

// userDirectory is what the service needs from a user store.
type userDirectory interface {
	identity.UserStore
	FindUserInfo(ctx context.Context, username string) (*core.UserInfo, error)
}

// deps is the wired object graph behind the HTTP server.
type deps struct {
	cfg *config.Config
	log logrus.FieldLogger

	registry *prometheus.Registry
	pool     *pgxpool.Pool
	db       *bun.DB
	rdb      *redis.Client
	river    *river.Client[pgx.Tx]

	users      userDirectory
	provider   *credential.Provider
	dispatcher *oplog.Dispatcher
	reporter   *oplog.Reporter
	advice     *oplog.Advice
	publisher  messaging.Publisher
	emitter    *accesslog.Emitter
	limiter    ginutil.RateLimiter
	keys       jwtkit.KeySource
	issuer     *jwtkit.Issuer
	history    *pgstore.OperateLogStore
}

// Operations recorded by the service itself.
var operations = []oplog.Operation{
	{Name: "view-profile", Description: "Read the signed-in user's profile"},
	{Name: "list-operate-logs", Description: "List a user's recent operate logs"},
}

func buildDeps(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (_ *deps, err error) {
	d := &deps{cfg: cfg, log: log, registry: prometheus.NewRegistry()}
	// Error returns clear the named result, so close the local graph.
	defer func() {
		if err != nil {
			d.close(context.Background())
		}
	}()
	d.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if cfg.DatabaseURL != "" {
		if d.pool, err = pgxpool.New(ctx, cfg.DatabaseURL); err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		d.db = pgstore.OpenBun(d.pool)
		d.users = identity.NewStore(d.pool, "auth")
		d.history = pgstore.NewOperateLogStore(d.db)
	} else {
		log.Warn("database_url not set, using an empty in-memory user store")
		d.users = identity.NewMemoryStore()
	}

	enc, err := password.NewEncoder(cfg.DigestAlgorithm)
	if err != nil {
		return nil, err
	}
	d.provider = credential.NewProvider(d.users,
		credential.WithEncoder(enc),
		credential.WithAuthorities(cfg.Authority),
		credential.WithLogger(log),
	)

	d.dispatcher = oplog.NewDispatcher(oplog.DispatcherConfig{
		Workers:     cfg.Oplog.Workers,
		QueueSize:   cfg.Oplog.QueueSize,
		TaskTimeout: cfg.Oplog.TaskTimeout,
		Logger:      log,
		Metrics:     oplog.NewMetrics(d.registry),
	})
	if cfg.Oplog.ReportEvery > 0 {
		if d.reporter, err = oplog.NewReporter(d.dispatcher, cfg.Oplog.ReportEvery, log); err != nil {
			return nil, err
		}
	}

	sink, err := d.buildSink(ctx)
	if err != nil {
		return nil, err
	}
	d.advice = oplog.New(oplog.Config{
		Enabled:  cfg.Oplog.Enabled,
		Sink:     sink,
		Executor: d.dispatcher,
		Registry: oplog.NewRegistry(operations...),
		Logger:   log,
	})

	if d.publisher, err = messaging.Open(cfg.Messaging.Driver, cfg.Messaging.URL); err != nil {
		return nil, err
	}

	if d.keys, err = jwtkit.LoadKeySource(cfg.JWT.KeysDir, cfg.JWT.KID, log); err != nil {
		return nil, err
	}
	d.issuer = jwtkit.NewIssuer(d.keys, cfg.JWT.Issuer, cfg.JWT.TTL)

	d.emitter = accesslog.New(accesslog.Config{
		Publisher:  d.publisher,
		Executor:   d.dispatcher,
		Extender:   authgin.TokenExtender{Issuer: d.issuer},
		Exchange:   cfg.Messaging.Exchange,
		RoutingKey: cfg.Messaging.RoutingKey,
		Logger:     log,
	})

	if err = d.buildLimiter(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *deps) buildSink(ctx context.Context) (core.OperateLogSink, error) {
	switch d.cfg.Oplog.Sink {
	case config.SinkHTTP:
		return authhttp.NewOperateLogClient(d.cfg.Oplog.RemoteURL, nil), nil
	case config.SinkPostgres:
		return d.history, nil
	case config.SinkRiver:
		if err := jobs.Migrate(ctx, d.pool); err != nil {
			return nil, err
		}
		client, err := jobs.NewClient(d.pool, d.history, d.cfg.Oplog.Workers, d.log)
		if err != nil {
			return nil, err
		}
		d.river = client
		return jobs.NewQueueSink(client), nil
	default:
		return nil, nil
	}
}

func (d *deps) buildLimiter() error {
	per := d.cfg.LoginPerMinute
	if per == 0 {
		return nil
	}
	if d.cfg.RedisURL != "" {
		opt, err := redis.ParseURL(d.cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parse redis_url: %w", err)
		}
		d.rdb = redis.NewClient(opt)
		d.limiter = redislimiter.New(d.rdb, map[string]redislimiter.Limit{
			"default": {Limit: per, Window: time.Minute},
		})
		return nil
	}
	d.limiter = memorylimiter.New(map[string]memorylimiter.Limit{
		"default": {Limit: per, Window: time.Minute},
	})
	return nil
}

// start launches background workers.
func (d *deps) start(ctx context.Context) error {
	if d.reporter != nil {
		d.reporter.Start()
	}
	if d.river != nil {
		if err := d.river.Start(ctx); err != nil {
			return fmt.Errorf("start river: %w", err)
		}
	}
	return nil
}

// close drains queued log tasks, then releases connections.
func (d *deps) close(ctx context.Context) {
	if d == nil {
		return
	}
	var errs []error
	if d.reporter != nil {
		d.reporter.Stop(ctx)
	}
	if d.dispatcher != nil {
		errs = append(errs, d.dispatcher.Close(ctx))
	}
	if d.river != nil {
		errs = append(errs, d.river.Stop(ctx))
	}
	if d.publisher != nil {
		errs = append(errs, d.publisher.Close())
	}
	if d.rdb != nil {
		errs = append(errs, d.rdb.Close())
	}
	if d.db != nil {
		errs = append(errs, d.db.Close())
	}
	if d.pool != nil {
		d.pool.Close()
	}
	if err := errors.Join(errs...); err != nil {
		d.log.WithError(err).Warn("shutdown incomplete")
	}
}
