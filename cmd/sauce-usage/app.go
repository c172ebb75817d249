package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"

	"github.com/vnmchuo/sauce-usage/config"
	"github.com/vnmchuo/sauce-usage/internal/accounts"
	"github.com/vnmchuo/sauce-usage/internal/auth"
	"github.com/vnmchuo/sauce-usage/internal/report"
	"github.com/vnmchuo/sauce-usage/internal/sauce"
	"github.com/vnmchuo/sauce-usage/internal/sink"
	"github.com/vnmchuo/sauce-usage/internal/telemetry"
	"github.com/vnmchuo/sauce-usage/internal/usage"
	"github.com/vnmchuo/sauce-usage/pkg/ratelimit"
)

type app struct {
	cfg    *config.Config
	opts   *options
	runID  string
	logger log.FieldLogger

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	now    func() time.Time
}

func (a *app) run(ctx context.Context) error {
	opts := a.opts

	// 1. Prompt for what is missing
	if opts.interactive {
		if err := a.prompt(); err != nil {
			return err
		}
	}

	// 2. Encode credentials
	cred := auth.Credential{Username: opts.user, AccessKey: opts.key}
	authHeader, err := cred.Header()
	if err != nil {
		return fmt.Errorf("missing credentials: %w", err)
	}

	// 3. Validate range
	rng := usage.Range{Start: opts.start, End: opts.end}
	if err := rng.Validate(); err != nil {
		return err
	}
	if opts.redisAddr != "" && opts.quota <= 0 {
		return fmt.Errorf("--quota must be positive, got %d", opts.quota)
	}

	// 4. Init telemetry
	tcfg := *a.cfg
	tcfg.OTELExporterType = opts.traceExporter
	shutdownTracer, err := telemetry.InitTracer("sauce-usage", &tcfg)
	if err != nil {
		return fmt.Errorf("failed to init tracer: %w", err)
	}
	defer shutdownTracer()
	tracer := otel.GetTracerProvider().Tracer("sauce-usage")

	// 5. Init rate limiter, sharing the quota through Redis when configured
	var limiterOpts []ratelimit.Option
	if opts.redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: opts.redisAddr})
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to ping redis: %w", err)
		}
		a.logger.WithField("redis", opts.redisAddr).Debug("sharing API quota through redis")
		limiterOpts = append(limiterOpts, ratelimit.WithQuota(ratelimit.NewRedisQuota(rdb, opts.quota), opts.user))
	}
	limiter := ratelimit.NewLimiter(opts.interval, limiterOpts...)
	a.logger.WithField("interval", limiter.Interval()).Debug("rate limiter ready")

	// 6. Init API client
	client := sauce.New(authHeader,
		sauce.WithBaseURL(opts.apiURL),
		sauce.WithTimeout(opts.timeout),
		sauce.WithRunID(a.runID),
		sauce.WithTracer(tracer),
	)

	// 7. Resolve accounts
	accts := []string{opts.user}
	if !opts.noSubaccounts {
		accts, err = accounts.NewResolver(client, limiter, a.logger).Resolve(ctx, opts.user)
		if err != nil {
			return err
		}
	}
	a.logger.WithField("accounts", len(accts)).Info("resolved accounts")

	// 8. Build report
	assembler := report.NewAssembler(client, limiter, a.logger,
		report.WithKeepGoing(opts.keepGoing),
		report.WithTracer(tracer),
	)
	rep, err := assembler.Build(ctx, accts, rng)
	for _, job := range assembler.Jobs() {
		a.logger.WithFields(log.Fields{
			"account":  job.Account,
			"status":   job.Status,
			"duration": job.Duration(),
		}).Debug("account job")
	}
	if err != nil {
		return err
	}
	if len(rep.Failures) > 0 {
		a.logger.WithField("failed", len(rep.Failures)).Warnf("report is missing accounts: %s", rep.FailureSummary())
	}
	totals := rep.Totals()
	a.logger.WithFields(log.Fields{
		"accounts": rep.Len(),
		"jobs":     totals.Jobs,
		"seconds":  totals.Seconds,
	}).Info("report built")

	// 9. Output
	return a.output(ctx, rep)
}

func (a *app) output(ctx context.Context, rep *usage.Report) error {
	dest := a.opts.csv
	if dest == "" && a.opts.save {
		dest = sink.DefaultFileName(a.opts.user, a.now())
	}

	if dest == "" {
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}

	s, err := sink.Open(dest, a.stdout)
	if err != nil {
		return err
	}
	if err := s.Write(ctx, rep); err != nil {
		return err
	}
	a.logger.WithField("dest", s.String()).Info("wrote csv report")
	return nil
}
