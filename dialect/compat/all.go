package compat

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	dbschema "github.com/syssam/dbkit/schema"
)

// ValidateAll validates the bundle against several dialects concurrently.
// The result map is keyed by dialect name. It fails only if ctx is done
// before all validations complete.
func ValidateAll(ctx context.Context, b *dbschema.Bundle, dialects ...string) (map[string]*Result, error) {
	var (
		mu      sync.Mutex
		results = make(map[string]*Result, len(dialects))
	)
	g, ctx := errgroup.WithContext(ctx)
	for _, name := range dialects {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			v := NewValidator(name)
			res := v.Validate(b)
			mu.Lock()
			results[v.Dialect()] = res
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
