package cli

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/AarushDarne/shelftrack-webapp/internal/loans"
	"github.com/AarushDarne/shelftrack-webapp/pkg/db/models"
)

type historyOptions struct {
	borrower string
	limit    int
}

// NewHistoryCommand creates the borrower loan history command. It reads
// storage, so returned loans are listed too.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &historyOptions{}
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List a borrower's loans, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd, rootOpts, opts)
		},
	}
	cmd.Flags().StringVar(&opts.borrower, "borrower", "", "borrower user id")
	cmd.Flags().IntVar(&opts.limit, "limit", 50, "maximum loans to list")
	_ = cmd.MarkFlagRequired("borrower")
	return cmd
}

func runHistory(cmd *cobra.Command, rootOpts *RootOptions, opts *historyOptions) error {
	ctx := cmd.Context()
	borrowerID, err := uuid.Parse(opts.borrower)
	if err != nil {
		return fmt.Errorf("invalid --borrower %q: %w", opts.borrower, err)
	}
	if opts.limit <= 0 {
		return fmt.Errorf("--limit must be positive")
	}

	rt, release, err := rootOpts.Open(ctx)
	if err != nil {
		return err
	}
	defer release()

	records, err := loans.NewRepository(rt.DB.DB()).ListByBorrower(ctx, borrowerID, opts.limit)
	if err != nil {
		return err
	}

	p := printer{format: rootOpts.Format, out: cmd.OutOrStdout()}
	if p.format == "json" {
		if records == nil {
			records = []models.CheckoutRecord{}
		}
		return p.json(records)
	}
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		returned := "-"
		if rec.ReturnedAt != nil {
			returned = rec.ReturnedAt.Format(time.DateOnly)
		}
		rows = append(rows, []string{
			rec.ID.String(),
			rec.CopyID.String(),
			rec.CheckedOutAt.Format(time.DateOnly),
			rec.DueAt.Format(time.DateOnly),
			returned,
		})
	}
	return p.table([]string{"LOAN", "COPY", "CHECKED OUT", "DUE", "RETURNED"}, rows)
}
