package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AarushDarne/shelftrack-webapp/internal/engine"
	"github.com/AarushDarne/shelftrack-webapp/internal/journal"
	"github.com/AarushDarne/shelftrack-webapp/internal/persistence"
	"github.com/AarushDarne/shelftrack-webapp/internal/seed"
)

type seedOptions struct {
	dryRun bool
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &seedOptions{}
	cmd := &cobra.Command{
		Use:   "seed <catalog.yaml>",
		Short: "Load branches, users and titles from a YAML catalog",
		Long: `Load a YAML catalog into the database.

Entries that already exist are skipped, so a catalog can be applied
repeatedly. When the catalog's admin is unknown it is created along with
its branch, which is how a fresh database gets its first admin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd, rootOpts, opts, args[0])
		},
	}
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "apply in memory without writing to the database")
	return cmd
}

func runSeed(cmd *cobra.Command, rootOpts *RootOptions, opts *seedOptions, path string) error {
	ctx := cmd.Context()

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	catalog, err := seed.Parse(f)
	if err != nil {
		return err
	}

	rt, release, err := rootOpts.Open(ctx)
	if err != nil {
		return err
	}
	defer release()

	repos := persistence.NewRepositories(rt.DB.DB())
	queue := journal.NewQueue(nil)
	sink, err := persistence.NewGormSink(rt.DB, repos)
	if err != nil {
		return err
	}
	writer, err := journal.NewWriter(journal.WriterParams{
		Queue:        queue,
		Sink:         sink,
		Logger:       rt.Logger,
		BatchSize:    rt.Config.Journal.BatchSize,
		WriteTimeout: rt.Config.Journal.WriteTimeout,
	})
	if err != nil {
		return err
	}

	params := engine.ParamsFromConfig(rt.Config.Circulation)
	params.Logger = rt.Logger
	params.Journal = queue
	params.History = repos.Activity
	eng, err := engine.New(params)
	if err != nil {
		return err
	}
	loader := persistence.NewLoader(repos, rt.Config.Circulation.ActivityTailSize)
	directory, err := loader.LoadDirectory(ctx)
	if err != nil {
		return err
	}
	snapshot, err := loader.LoadSnapshot(ctx)
	if err != nil {
		return err
	}
	if err := eng.Hydrate(directory.Branches, directory.Users, snapshot); err != nil {
		return err
	}

	res, err := seed.Apply(ctx, seed.Params{Engine: eng, Journal: queue, Logger: rt.Logger}, catalog)
	if err != nil {
		return err
	}
	pending := queue.Len()
	if !opts.dryRun {
		if err := writer.Flush(ctx); err != nil {
			return fmt.Errorf("persist catalog: %w", err)
		}
	}

	p := printer{format: rootOpts.Format, out: cmd.OutOrStdout()}
	if p.format == "json" {
		return p.json(map[string]any{
			"admin_id":           res.AdminID,
			"bootstrapped_admin": res.BootstrappedAdmin,
			"branches":           res.Branches,
			"users":              res.Users,
			"titles":             res.Titles,
			"copies":             res.Copies,
			"skipped":            res.Skipped,
			"changesets":         pending,
			"dry_run":            opts.dryRun,
		})
	}
	return p.table([]string{"CREATED", "COUNT"}, [][]string{
		{"branches", fmt.Sprint(res.Branches)},
		{"users", fmt.Sprint(res.Users)},
		{"titles", fmt.Sprint(res.Titles)},
		{"copies", fmt.Sprint(res.Copies)},
		{"skipped", fmt.Sprint(res.Skipped)},
	})
}
