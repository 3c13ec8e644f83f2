package driver

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"quill/internal/trace"
)

// ProjectResult содержит результат проверки одного проекта.
type ProjectResult struct {
	Dir    string
	Result *Result
	// Err is set when the project could not be checked at all (no manifest,
	// unreadable manifest, cancellation).
	Err error
}

// CheckAll checks the projects containing dirs in parallel. Every project
// gets its own session, so no file or type id is shared between them.
// The returned error is only the cancellation of ctx; per-project failures
// are in ProjectResult.Err.
func CheckAll(ctx context.Context, dirs []string, opts Options, jobs int) ([]ProjectResult, error) {
	results := make([]ProjectResult, len(dirs))
	if len(dirs) == 0 {
		return results, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	ctx, span := trace.Start(ctx, trace.ScopeDriver, "check_all")
	defer span.End("")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(dirs)))

	for i, dir := range dirs {
		g.Go(func() error {
			// Проверка отмены
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			res, err := NewSession(opts).Check(gctx, dir)
			// индекс i уникален, мьютекс не нужен
			results[i] = ProjectResult{Dir: dir, Result: res, Err: err}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, ctx.Err()
}
