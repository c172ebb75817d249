// Package accounts discovers every account below a parent account.
package accounts

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/vnmchuo/sauce-usage/internal/sauce"
)

type SubAccountLister interface {
	ListSubAccounts(ctx context.Context, account string) ([]sauce.SubAccount, error)
}

// Waiter gates every quota-consuming call.
type Waiter interface {
	Wait(ctx context.Context) error
}

type Resolver struct {
	lister  SubAccountLister
	limiter Waiter
	logger  logrus.FieldLogger
}

func NewResolver(lister SubAccountLister, limiter Waiter, logger logrus.FieldLogger) *Resolver {
	return &Resolver{
		lister:  lister,
		limiter: limiter,
		logger:  logger,
	}
}

type pending struct {
	name   string
	expand bool
}

// Resolve returns root followed by all of its descendants in depth-first
// pre-order. Only accounts reporting children are listed, so there is one
// call per internal node plus one for root. Any failed call aborts the whole
// resolution.
func (r *Resolver) Resolve(ctx context.Context, root string) ([]string, error) {
	if root == "" {
		return nil, fmt.Errorf("root account is empty")
	}

	var resolved []string
	seen := make(map[string]bool)
	stack := []pending{{name: root, expand: true}}

	for len(stack) > 0 {
		next := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if seen[next.name] {
			r.logger.WithField("account", next.name).Warn("account listed more than once, skipping")
			continue
		}
		seen[next.name] = true
		resolved = append(resolved, next.name)

		if !next.expand {
			continue
		}

		if err := r.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		subs, err := r.lister.ListSubAccounts(ctx, next.name)
		if err != nil {
			return nil, fmt.Errorf("listing sub-accounts of %s: %w", next.name, err)
		}
		r.logger.WithFields(logrus.Fields{
			"account":      next.name,
			"sub_accounts": len(subs),
		}).Debug("listed sub-accounts")

		// Push in reverse so the first sub-account is visited first.
		for i := len(subs) - 1; i >= 0; i-- {
			stack = append(stack, pending{
				name:   subs[i].Username,
				expand: subs[i].ChildrenCount > 0,
			})
		}
	}

	return resolved, nil
}
