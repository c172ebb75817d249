// Package report builds the usage report of a list of accounts.
package report

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vnmchuo/sauce-usage/internal/usage"
)

type UsageFetcher interface {
	Usage(ctx context.Context, account string, rng usage.Range) ([]usage.DailyRecord, error)
}

type Waiter interface {
	Wait(ctx context.Context) error
}

type Assembler struct {
	fetcher   UsageFetcher
	limiter   Waiter
	logger    logrus.FieldLogger
	tracer    trace.Tracer
	keepGoing bool

	lastJobs []*AccountJob
}

type Option func(*Assembler)

// WithKeepGoing records failed accounts in Report.Failures and carries on
// instead of aborting the report.
func WithKeepGoing(keepGoing bool) Option {
	return func(a *Assembler) {
		a.keepGoing = keepGoing
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(a *Assembler) {
		if tracer != nil {
			a.tracer = tracer
		}
	}
}

func NewAssembler(fetcher UsageFetcher, limiter Waiter, logger logrus.FieldLogger, opts ...Option) *Assembler {
	a := &Assembler{
		fetcher: fetcher,
		limiter: limiter,
		logger:  logger,
		tracer:  otel.Tracer("github.com/vnmchuo/sauce-usage/internal/report"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Jobs returns the jobs of the last Build.
func (a *Assembler) Jobs() []*AccountJob {
	return a.lastJobs
}

// Build fetches and aggregates usage for each account strictly one after the
// other, waiting on the limiter before every fetch. Accounts appear in the
// report in the order given. Unless keep-going is set, the first failure
// aborts the build and no report is returned.
func (a *Assembler) Build(ctx context.Context, accounts []string, rng usage.Range) (*usage.Report, error) {
	if err := rng.Validate(); err != nil {
		return nil, err
	}

	ctx, span := a.tracer.Start(ctx, "report.build")
	defer span.End()
	span.SetAttributes(
		attribute.Int("accounts", len(accounts)),
		attribute.String("start", rng.Start),
		attribute.String("end", rng.End),
		attribute.Bool("keep_going", a.keepGoing),
	)

	q := newQueue(accounts)
	a.lastJobs = q.jobs
	for _, dup := range q.duplicates {
		a.logger.WithField("account", dup).Warn("account given more than once, fetching it once")
	}

	rep := usage.NewReport()
	var errs []error

	for _, job := range q.jobs {
		job.start()
		months, err := a.fetch(ctx, job.Account, rng)
		if err == nil {
			err = rep.Add(job.Account, months)
		}
		if err != nil {
			job.fail(err)
			err = fmt.Errorf("usage for %s: %w", job.Account, err)

			if !a.keepGoing || ctx.Err() != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return nil, err
			}
			a.logger.WithField("account", job.Account).WithError(err).Warn("skipping account")
			rep.Failures = append(rep.Failures, usage.AccountFailure{Account: job.Account, Err: err})
			errs = append(errs, err)
			continue
		}
		job.finish(len(months))
	}

	a.logger.WithFields(logrus.Fields{
		"done":   q.count(JobStatusDone),
		"failed": q.count(JobStatusFailed),
	}).Info("usage report complete")

	if len(q.jobs) > 0 && len(errs) == len(q.jobs) {
		err := errors.Join(errs...)
		span.SetStatus(codes.Error, "every account failed")
		return rep, err
	}
	return rep, nil
}

func (a *Assembler) fetch(ctx context.Context, account string, rng usage.Range) (usage.Monthly, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	a.logger.WithField("account", account).Info("getting usage")
	records, err := a.fetcher.Usage(ctx, account, rng)
	if err != nil {
		return nil, err
	}

	months, err := usage.Aggregate(records)
	if err != nil {
		var malformed *usage.MalformedDataError
		if errors.As(err, &malformed) && malformed.Account == "" {
			malformed.Account = account
		}
		return nil, err
	}

	a.logger.WithFields(logrus.Fields{
		"account": account,
		"days":    len(records),
		"months":  len(months),
	}).Debug("aggregated usage")
	return months, nil
}
