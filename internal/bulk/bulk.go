// Package bulk applies delete or duplicate to a multi-id selection with a
// bounded number of concurrent calls. A failure on one id never stops the others.
package bulk

import (
	"context"
	"errors"

	"posadmin/internal/logging"
	"posadmin/internal/metrics"
	"posadmin/internal/model"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const DefaultWorkers = 4

// ErrNotDeleted is recorded when the backend answered without deleting.
var ErrNotDeleted = errors.New("backend reported nothing deleted")

type Remover interface {
	Remove(ctx context.Context, id string) (bool, error)
}

type Duplicator interface {
	Duplicate(ctx context.Context, id string) (model.Entity, error)
}

type Options struct {
	// Workers bounds concurrent calls; 1 processes ids one after another.
	Workers int
	Logger  logrus.FieldLogger
}

// Outcome reports every requested id as succeeded or failed. All slices keep
// the order of Requested whatever order the calls completed in.
type Outcome struct {
	Requested []string
	Succeeded []string
	Failed    []string
	Errors    map[string]error
	// Created holds the new entities of a duplicate run, in Succeeded order.
	Created []model.Entity
}

// Partial reports a mix of successes and failures.
func (o Outcome) Partial() bool {
	return len(o.Succeeded) > 0 && len(o.Failed) > 0
}

// AllFailed reports that nothing succeeded out of a non-empty request.
func (o Outcome) AllFailed() bool {
	return len(o.Requested) > 0 && len(o.Succeeded) == 0
}

// FirstError returns the error of the first failed id in request order.
func (o Outcome) FirstError() error {
	if len(o.Failed) == 0 {
		return nil
	}
	return o.Errors[o.Failed[0]]
}

func Delete(ctx context.Context, r Remover, ids []string, opts Options) Outcome {
	return run(ctx, "delete", ids, opts, func(ctx context.Context, id string) (model.Entity, error) {
		ok, err := r.Remove(ctx, id)
		if err != nil {
			return model.Entity{}, err
		}
		if !ok {
			return model.Entity{}, ErrNotDeleted
		}
		return model.Entity{}, nil
	})
}

func Duplicate(ctx context.Context, d Duplicator, ids []string, opts Options) Outcome {
	return run(ctx, "duplicate", ids, opts, d.Duplicate)
}

type result struct {
	entity model.Entity
	err    error
}

func run(ctx context.Context, op string, ids []string, opts Options, fn func(context.Context, string) (model.Entity, error)) Outcome {
	log := logging.OrDiscard(opts.Logger).WithField("op", op)
	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	requested := dedupe(ids)
	results := make([]result, len(requested))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, id := range requested {
		if err := ctx.Err(); err != nil {
			results[i].err = err
			continue
		}
		i, id := i, id
		g.Go(func() error {
			e, err := fn(ctx, id)
			results[i] = result{entity: e, err: err}
			return nil
		})
	}
	_ = g.Wait()

	out := Outcome{Requested: requested, Errors: map[string]error{}}
	for i, id := range requested {
		r := results[i]
		if r.err != nil {
			out.Failed = append(out.Failed, id)
			out.Errors[id] = r.err
			log.WithField("id", id).WithError(r.err).Warn("bulk item failed")
			continue
		}
		out.Succeeded = append(out.Succeeded, id)
		if op == "duplicate" {
			out.Created = append(out.Created, r.entity)
		}
	}
	metrics.ObserveBulk(op, len(out.Succeeded), len(out.Failed))
	log.WithFields(logrus.Fields{"requested": len(requested), "succeeded": len(out.Succeeded), "failed": len(out.Failed)}).Info("bulk run finished")
	return out
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = model.CanonicalID(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
