package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/odyssey-crm/internal/crm"
	"github.com/odyssey-erp/odyssey-crm/internal/savedviews"
)

// ExitError carries a process exit code out of a command.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// Deps opens the backends used by the commands. Each opener returns a release
// function the command calls when done.
type Deps struct {
	Views func(ctx context.Context) (savedviews.KV, func(), error)
	Jobs  func() (*JobsCLI, error)
}

// NewRootCommand assembles the odyssey-cli command tree.
func NewRootCommand(deps Deps) *cobra.Command {
	root := &cobra.Command{
		Use:           "odyssey-cli",
		Short:         "Operate Odyssey CRM list pages",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newQueryCommand(), newEntitiesCommand(), newViewsCommand(deps), newJobsCommand(deps))
	return root
}

func newQueryCommand() *cobra.Command {
	var opts QueryOptions
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Filter, sort and page a JSON collection with a YAML schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Stdout = cmd.OutOrStdout()
			opts.Stderr = cmd.ErrOrStderr()
			if code := QueryCommand(cmd.Context(), opts); code != 0 {
				return &ExitError{Code: code}
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.SchemaPath, "schema", "", "YAML schema file")
	f.StringVar(&opts.DataPath, "data", "", "JSON collection file")
	f.StringVar(&opts.QuickFilter, "quick", "", "quick filter name")
	f.StringVar(&opts.Search, "search", "", "free-text search")
	f.StringArrayVar(&opts.ColumnSearch, "column-search", nil, "column=text, repeatable")
	f.StringArrayVar(&opts.Filters, "filter", nil, "column=value or column!=value, repeatable")
	f.StringVar(&opts.Sort, "sort", "", "column[:asc|desc]")
	f.IntVar(&opts.Page, "page", 0, "page number")
	f.IntVar(&opts.ItemsPerPage, "per-page", 0, "items per page (10, 25 or 50)")
	f.StringSliceVar(&opts.Columns, "columns", nil, "visible columns in order")
	f.BoolVar(&opts.JSONOutput, "json", false, "print JSON")
	return cmd
}

func newEntitiesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "entities",
		Short: "List the CRM list pages",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, page := range crm.Pages() {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s%s\tviews:%s\n", page.Schema.Entity, page.Service, page.Path, savedviews.Key(page.ViewScope))
			}
			return nil
		},
	}
}

func newViewsCommand(deps Deps) *cobra.Command {
	var (
		target  ViewsTarget
		asJSON  bool
		name    string
		filters []string
	)
	withViews := func(cmd *cobra.Command, fn func(context.Context, *ViewsCLI) error) error {
		if deps.Views == nil {
			return errors.New("views: store not configured")
		}
		kv, release, err := deps.Views(cmd.Context())
		if err != nil {
			return err
		}
		defer release()
		views, err := NewViewsCLI(kv)
		if err != nil {
			return err
		}
		return fn(cmd.Context(), views)
	}

	cmd := &cobra.Command{Use: "views", Short: "Manage saved views"}
	cmd.PersistentFlags().StringVar(&target.Client, "client", "anonymous", "client id owning the views")
	cmd.PersistentFlags().StringVar(&target.Scope, "scope", "", "view scope, e.g. employee")
	cmd.PersistentFlags().BoolVar(&asJSON, "json", false, "print JSON")

	list := &cobra.Command{
		Use:   "list",
		Short: "List saved views",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withViews(cmd, func(ctx context.Context, c *ViewsCLI) error {
				views, err := c.List(ctx, target)
				if err != nil {
					return err
				}
				return RenderViews(cmd.OutOrStdout(), views, asJSON)
			})
		},
	}
	save := &cobra.Command{
		Use:   "save",
		Short: "Save a view from filter flags",
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := ParseFilters(filters)
			if err != nil {
				return err
			}
			return withViews(cmd, func(ctx context.Context, c *ViewsCLI) error {
				view, err := c.Save(ctx, target, name, parsed)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), view.ID)
				return nil
			})
		},
	}
	save.Flags().StringVar(&name, "name", "", "view name")
	save.Flags().StringArrayVar(&filters, "filter", nil, "column=value or column!=value, repeatable")
	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a saved view",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withViews(cmd, func(ctx context.Context, c *ViewsCLI) error {
				return c.Delete(ctx, target, args[0])
			})
		},
	}
	cmd.AddCommand(list, save, del)
	return cmd
}

func newJobsCommand(deps Deps) *cobra.Command {
	var (
		opts TriggerOptions
		size int
	)
	withJobs := func(fn func(*JobsCLI) error) error {
		if deps.Jobs == nil {
			return errors.New("jobs: queue not configured")
		}
		c, err := deps.Jobs()
		if err != nil {
			return err
		}
		defer func() { _ = c.Close() }()
		return fn(c)
	}

	cmd := &cobra.Command{Use: "jobs", Short: "Trigger and inspect background jobs"}
	trigger := &cobra.Command{
		Use:   "trigger <task>",
		Short: "Enqueue a warmup or invalidate task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := BuildTask(args[0], opts); err != nil {
				return err
			}
			return withJobs(func(c *JobsCLI) error {
				info, err := c.Trigger(cmd.Context(), args[0], opts)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s (%s) on %s\n", info.Type, info.ID, info.Queue)
				return nil
			})
		},
	}
	trigger.Flags().StringSliceVar(&opts.Entities, "entity", nil, "entities to target")
	trigger.Flags().BoolVar(&opts.Force, "force", false, "invalidate before warming")
	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show default queue statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withJobs(func(c *JobsCLI) error {
				s, err := c.InspectQueue(cmd.Context())
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "queue=%s pending=%d active=%d scheduled=%d retry=%d failed=%d\n",
					s.Queue, s.Pending, s.Active, s.Scheduled, s.Retry, s.Failed)
				return nil
			})
		},
	}
	scheduled := &cobra.Command{
		Use:   "scheduled",
		Short: "List scheduled tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withJobs(func(c *JobsCLI) error {
				tasks, err := c.ListScheduled(cmd.Context(), size)
				if err != nil {
					return err
				}
				for _, task := range tasks {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", task.ID, task.Type, task.NextProcessAt.Format("2006-01-02 15:04:05"))
				}
				return nil
			})
		},
	}
	scheduled.Flags().IntVar(&size, "size", 10, "page size")
	cmd.AddCommand(trigger, stats, scheduled)
	return cmd
}
