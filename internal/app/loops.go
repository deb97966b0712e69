package app

import (
	"context"

	"github.com/sourcegraph/conc/pool"
)

// runLoops runs each loop on its own goroutine. The first error cancels the
// others and is returned once all of them have exited.
func runLoops(ctx context.Context, loops ...func(context.Context) error) error {
	p := pool.New().WithContext(ctx).WithCancelOnError().WithFirstError()
	for _, loop := range loops {
		p.Go(loop)
	}
	return p.Wait()
}
