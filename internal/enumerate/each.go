package enumerate

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/vharness/internal/environ"
)

// Each makes one instance per element of a []T bound under Source. Each
// instance environ binds its element as T under Item.
//
// Example: with a []Order bound under "orders",
//
//	enumerate.Each[Order]{Source: "orders", Label: func(o Order) string { return o.ID }}
//
// runs the template once per order, and check bodies request the order
// with environ.ParamOf[Order]("order", "").
type Each[T any] struct {
	Source environ.Tag
	Item   environ.Tag

	// Label names an instance. Defaults to fmt.Sprint(item).
	Label func(T) string

	// Key maps an item to the value compared against exemptions.
	// Defaults to the item itself.
	Key func(T) any
}

// Name labels the instance's item.
func (e Each[T]) Name(env *environ.Environ) (string, error) {
	item, err := environ.Require[T](env, e.Item)
	if err != nil {
		return "", err
	}
	if e.Label != nil {
		return e.Label(item), nil
	}
	return fmt.Sprint(item), nil
}

// Project walks the items in order on the calling goroutine.
func (e Each[T]) Project(ctx context.Context, env *environ.Environ, each InstanceFunc) error {
	items, err := environ.Require[[]T](env, e.Source)
	if err != nil {
		return err
	}
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return err
		}
		each(environ.ExtendTagged(env, e.Item, item))
	}
	return nil
}

// Exempt checks the item's key against exemptions.
func (e Each[T]) Exempt(env *environ.Environ, exemptions Exemptions) (bool, error) {
	item, err := environ.Require[T](env, e.Item)
	if err != nil {
		return false, err
	}
	var key any = item
	if e.Key != nil {
		key = e.Key(item)
	}
	return exemptions.Contains(key), nil
}

// Parallel is Each with instances evaluated on up to Workers goroutines.
// Workers <= 0 means runtime.GOMAXPROCS(0).
type Parallel[T any] struct {
	Each[T]
	Workers int
}

// Project fans the items out over an errgroup. Once ctx is cancelled no
// new instance starts; instances already running finish.
func (p Parallel[T]) Project(ctx context.Context, env *environ.Environ, each InstanceFunc) error {
	items, err := environ.Require[[]T](env, p.Source)
	if err != nil {
		return err
	}

	workers := p.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, item := range items {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			each(environ.ExtendTagged(env, p.Item, item))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
