package billingevent

import (
	"context"

	"github.com/cardmint/cardmint/internal/billingevent/repository"
	"github.com/cardmint/cardmint/internal/billingevent/worker"
	"go.uber.org/fx"
)

var Module = fx.Module("billingevent",
	fx.Provide(repository.Provide),
	fx.Provide(worker.New),
	fx.Invoke(runWorker),
)

func runWorker(lc fx.Lifecycle, w *worker.Worker) {
	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				defer close(done)
				w.RunForever(runCtx)
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}
