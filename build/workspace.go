package build

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Workspace builds several members. Members share nothing: each has its
// own manifest, lock file, encoded target, and artifact, so they run
// concurrently without coordination.
type Workspace struct {
	Members []Config
}

// Build runs every member. Results are indexed like Members; on error the
// first failure is returned and remaining members are cancelled.
func (w *Workspace) Build(ctx context.Context) ([]*Result, error) {
	results := make([]*Result, len(w.Members))

	g, ctx := errgroup.WithContext(ctx)
	for i, cfg := range w.Members {
		g.Go(func() error {
			res, err := NewDriver(cfg).Build(ctx)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
