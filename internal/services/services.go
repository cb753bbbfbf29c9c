package services

import (
	"context"
	"errors"
	"fmt"

	"greendrake/estate/internal/rules"
	"greendrake/estate/internal/store"
	"greendrake/estate/internal/utils"
)

type actorKey struct{}

// WithActor returns a context carrying the acting user's id.
func WithActor(ctx context.Context, userID utils.SixID) context.Context {
	return context.WithValue(ctx, actorKey{}, userID)
}

// ActorFromContext returns the acting user, if any.
func ActorFromContext(ctx context.Context) (utils.SixID, bool) {
	id, ok := ctx.Value(actorKey{}).(utils.SixID)
	return id, ok && !id.IsZero()
}

// Result is the outcome of a batch operation for one record.
type Result struct {
	ID  utils.SixID `json:"id"`
	Err error       `json:"-"`
}

// OK reports whether the operation succeeded for this record.
func (r Result) OK() bool { return r.Err == nil }

// Results holds per-record outcomes in input order.
type Results []Result

// Err joins the errors of every failed record, or returns nil.
func (rs Results) Err() error {
	var errs []error
	for _, r := range rs {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.ID, r.Err))
		}
	}
	return errors.Join(errs...)
}

// Failed returns only the failed results.
func (rs Results) Failed() Results {
	var out Results
	for _, r := range rs {
		if r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}

// notFound maps store.ErrNotFound to a not_found rules error and wraps anything else.
func notFound(err error, what string, id utils.SixID) error {
	if errors.Is(err, store.ErrNotFound) {
		return rules.NotFound(what, id)
	}
	return fmt.Errorf("failed to load %s %s: %w", what, id, err)
}
