// Package observed wraps the stores with a span and a latency/error metric per logical operation.
package observed

import (
	"context"
	"errors"

	"github.com/geocoder89/inventoryhub/internal/domain/item"
	"github.com/geocoder89/inventoryhub/internal/domain/oid"
	"github.com/geocoder89/inventoryhub/internal/domain/user"
	"github.com/geocoder89/inventoryhub/internal/observability"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type ItemStore interface {
	Create(ctx context.Context, it item.Item) (item.Item, error)
	List(ctx context.Context, f item.ListFilter) ([]item.Item, int64, error)
	GetByID(ctx context.Context, id oid.ID) (item.Item, error)
	Update(ctx context.Context, id oid.ID, p item.Patch) (item.Item, error)
	Delete(ctx context.Context, id oid.ID) error
	ListLowStock(ctx context.Context, threshold int64) ([]item.Item, error)
	Stats(ctx context.Context) (item.Stats, error)
	Ping(ctx context.Context) error
}

type UserStore interface {
	Create(ctx context.Context, u user.User) error
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByID(ctx context.Context, id oid.ID) (user.User, error)
}

// outcomes the callers expect; they are not storage failures
func expected(err error) bool {
	return errors.Is(err, item.ErrNotFound) ||
		errors.Is(err, user.ErrNotFound) ||
		errors.Is(err, user.ErrEmailTaken)
}

type observer struct {
	prom   *observability.Prom
	tracer trace.Tracer
	system string
}

func (o observer) do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, span := o.tracer.Start(ctx, "db."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("db.system", o.system)),
	)
	defer span.End()

	var err error

	run := func() error {
		err = fn(ctx)
		if expected(err) {
			return nil
		}
		return err
	}

	if o.prom != nil {
		_ = o.prom.ObserveDB(op, run)
	} else {
		_ = run()
	}

	if err != nil && !expected(err) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	return err
}

func newObserver(prom *observability.Prom, system string) observer {
	return observer{
		prom:   prom,
		tracer: otel.Tracer("github.com/geocoder89/inventoryhub/internal/repo"),
		system: system,
	}
}

type Items struct {
	next ItemStore
	obs  observer
}

// NewItems wraps next; prom may be nil.
func NewItems(next ItemStore, prom *observability.Prom, system string) *Items {
	return &Items{next: next, obs: newObserver(prom, system)}
}

func (s *Items) Create(ctx context.Context, it item.Item) (out item.Item, err error) {
	err = s.obs.do(ctx, "items.create", func(ctx context.Context) error {
		out, err = s.next.Create(ctx, it)
		return err
	})
	return out, err
}

func (s *Items) List(ctx context.Context, f item.ListFilter) (out []item.Item, total int64, err error) {
	err = s.obs.do(ctx, "items.list", func(ctx context.Context) error {
		out, total, err = s.next.List(ctx, f)
		return err
	})
	return out, total, err
}

func (s *Items) GetByID(ctx context.Context, id oid.ID) (out item.Item, err error) {
	err = s.obs.do(ctx, "items.get", func(ctx context.Context) error {
		out, err = s.next.GetByID(ctx, id)
		return err
	})
	return out, err
}

func (s *Items) Update(ctx context.Context, id oid.ID, p item.Patch) (out item.Item, err error) {
	err = s.obs.do(ctx, "items.update", func(ctx context.Context) error {
		out, err = s.next.Update(ctx, id, p)
		return err
	})
	return out, err
}

func (s *Items) Delete(ctx context.Context, id oid.ID) error {
	return s.obs.do(ctx, "items.delete", func(ctx context.Context) error {
		return s.next.Delete(ctx, id)
	})
}

func (s *Items) ListLowStock(ctx context.Context, threshold int64) (out []item.Item, err error) {
	err = s.obs.do(ctx, "items.low_stock", func(ctx context.Context) error {
		out, err = s.next.ListLowStock(ctx, threshold)
		return err
	})
	return out, err
}

func (s *Items) Stats(ctx context.Context) (out item.Stats, err error) {
	err = s.obs.do(ctx, "items.stats", func(ctx context.Context) error {
		out, err = s.next.Stats(ctx)
		return err
	})
	return out, err
}

func (s *Items) Ping(ctx context.Context) error {
	return s.next.Ping(ctx)
}

type Users struct {
	next UserStore
	obs  observer
}

func NewUsers(next UserStore, prom *observability.Prom, system string) *Users {
	return &Users{next: next, obs: newObserver(prom, system)}
}

func (s *Users) Create(ctx context.Context, u user.User) error {
	return s.obs.do(ctx, "users.create", func(ctx context.Context) error {
		return s.next.Create(ctx, u)
	})
}

func (s *Users) GetByEmail(ctx context.Context, email string) (out user.User, err error) {
	err = s.obs.do(ctx, "users.get_by_email", func(ctx context.Context) error {
		out, err = s.next.GetByEmail(ctx, email)
		return err
	})
	return out, err
}

func (s *Users) GetByID(ctx context.Context, id oid.ID) (out user.User, err error) {
	err = s.obs.do(ctx, "users.get_by_id", func(ctx context.Context) error {
		out, err = s.next.GetByID(ctx, id)
		return err
	})
	return out, err
}
