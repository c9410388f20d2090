package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/odyssey-erp/odyssey-crm/cmd/odyssey/cli"
	"github.com/odyssey-erp/odyssey-crm/internal/app"
	"github.com/odyssey-erp/odyssey-crm/internal/savedviews"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps := cli.Deps{
		Views: func(ctx context.Context) (savedviews.KV, func(), error) {
			cfg, err := app.LoadConfig()
			if err != nil {
				return nil, nil, err
			}
			if cfg.SavedViewBackend == app.BackendMemory {
				return nil, nil, errors.New("SAVED_VIEW_BACKEND=memory keeps views inside the server process")
			}
			services, err := app.OpenServices(ctx, cfg, slog.New(slog.NewTextHandler(os.Stderr, nil)), nil)
			if err != nil {
				return nil, nil, err
			}
			return services.Views, services.Close, nil
		},
		Jobs: func() (*cli.JobsCLI, error) {
			cfg, err := app.LoadConfig()
			if err != nil {
				return nil, err
			}
			return cli.NewJobsCLI(cfg.AsynqRedis())
		},
	}

	err := cli.NewRootCommand(deps).ExecuteContext(ctx)
	var exit *cli.ExitError
	switch {
	case errors.As(err, &exit):
		stop()
		os.Exit(exit.Code)
	case err != nil:
		_, _ = fmt.Fprintln(os.Stderr, "odyssey-cli:", err)
		stop()
		os.Exit(1)
	}
}
