package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"spendwise/internal/backend"
	"spendwise/internal/core"
	"spendwise/internal/storage"
)

func runRecurrenceCmd(a *app) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "run-recurrence",
		Short: "Materialize recurring transactions due on the reference date",
		Long: `Create the expenses of every active recurring transaction due on the
reference date. Each template runs at most once per calendar month.

Examples:
  finctl run-recurrence --owner 1
  finctl run-recurrence --all --date 2024-05-31`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all {
				if err := a.requireOwner(); err != nil {
					return err
				}
			}
			ref, err := a.refDate()
			if err != nil {
				return err
			}
			if err := a.open(cmd.Context()); err != nil {
				return err
			}

			var n int
			if all {
				n, err = a.engine.Recurrence.RunAll(cmd.Context(), ref)
			} else {
				n, err = a.engine.RunRecurrence(cmd.Context(), a.owner, ref)
			}
			if err != nil {
				return err
			}
			if a.asJSON {
				return a.printJSON(map[string]any{"date": ref.String(), "created": n})
			}
			fmt.Fprintf(a.out, "created %d expense(s) for %s\n", n, ref)
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "run for every owner with active templates")
	return cmd
}

func closeMonthCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "close-month",
		Short: "Carry unused budget amounts of the reference month forward",
		Long: `Add the unused amount of every rollover-enabled budget to its rollover
balance. Closing the same month twice counts it twice.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireOwner(); err != nil {
				return err
			}
			ref, err := a.refDate()
			if err != nil {
				return err
			}
			if err := a.open(cmd.Context()); err != nil {
				return err
			}
			res, err := a.engine.CloseMonth(cmd.Context(), a.owner, ref)
			if err != nil {
				return err
			}
			dc, err := a.display()
			if err != nil {
				return err
			}

			if a.asJSON {
				rolled := make([]map[string]any, 0, len(res.Rolled))
				for _, e := range res.Rolled {
					rolled = append(rolled, map[string]any{
						"budget_id":        e.BudgetID,
						"category":         e.Category,
						"unused":           e.Unused.StringFixed(2),
						"rollover_balance": e.Balance.StringFixed(2),
					})
				}
				return a.printJSON(map[string]any{"period": res.Period.String(), "checked": res.Checked, "rolled": rolled})
			}
			fmt.Fprintf(a.out, "closed %s: %d rollover budget(s) checked, %d updated\n", res.Period, res.Checked, len(res.Rolled))
			for _, e := range res.Rolled {
				fmt.Fprintf(a.out, "  %-16s +%s  balance %s\n", e.Category.Label(), dc.Amount(e.Unused), dc.Amount(e.Balance))
			}
			return nil
		},
	}
}

func contributeCmd(a *app) *cobra.Command {
	var (
		goalID int64
		amount string
		source string
	)
	cmd := &cobra.Command{
		Use:   "contribute",
		Short: "Add a contribution to a savings goal",
		Example: `  finctl contribute --owner 1 --goal 3 --amount 250
  finctl contribute --owner 1 --goal 3 --amount 99.50 --source savings`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireOwner(); err != nil {
				return err
			}
			amt, err := core.ParseAmount(amount)
			if err != nil {
				return err
			}
			src, err := core.ParseContributionSource(source)
			if err != nil {
				return err
			}
			if err := a.open(cmd.Context()); err != nil {
				return err
			}
			g, err := a.engine.Goals.Contribute(cmd.Context(), a.owner, goalID, amt, src)
			if err != nil {
				return err
			}
			dc, err := a.display()
			if err != nil {
				return err
			}
			pct := core.ClampedPercent(g.CurrentAmount, g.TargetAmount)
			if a.asJSON {
				return a.printJSON(map[string]any{
					"goal_id":        g.ID,
					"name":           g.Name,
					"current_amount": g.CurrentAmount.StringFixed(2),
					"target_amount":  g.TargetAmount.StringFixed(2),
					"percent":        pct.StringFixed(2),
				})
			}
			fmt.Fprintf(a.out, "%s: %s of %s (%s)\n", g.Name, dc.Amount(g.CurrentAmount), dc.Amount(g.TargetAmount), dc.Percent(pct))
			return nil
		},
	}
	cmd.Flags().Int64Var(&goalID, "goal", 0, "savings goal id")
	cmd.Flags().StringVar(&amount, "amount", "", "contribution amount")
	cmd.Flags().StringVar(&source, "source", "", "source category: wants, savings or other")
	_ = cmd.MarkFlagRequired("goal")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func dashboardCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Print the dashboard for the reference month",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireOwner(); err != nil {
				return err
			}
			ref, err := a.refDate()
			if err != nil {
				return err
			}
			if err := a.open(cmd.Context()); err != nil {
				return err
			}
			d, err := a.engine.ComputeDashboard(cmd.Context(), a.owner, ref)
			if err != nil {
				return err
			}
			dc, err := a.display()
			if err != nil {
				return err
			}
			if a.asJSON {
				return a.printJSON(d)
			}

			fmt.Fprintf(a.out, "Owner %d, %s\nTotal spent: %s\n\n", d.Owner, d.Period, dc.Amount(d.TotalSpent))
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CATEGORY\tSPENT")
			for _, c := range d.CategoryBreakdown {
				fmt.Fprintf(tw, "%s\t%s\n", c.Category.Label(), dc.Amount(c.Amount))
			}
			fmt.Fprintln(tw, "\nBUDGET\tSPENT\tAVAILABLE\tUSED")
			for _, b := range d.BudgetStatuses {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", b.Budget.Category.Label(), dc.Amount(b.Spent), dc.Amount(b.Availability), dc.Percent(b.Percent))
			}
			fmt.Fprintln(tw, "\nGOAL\tCURRENT\tTARGET\tPROGRESS")
			for _, g := range d.Goals {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", g.Goal.Name, dc.Amount(g.Goal.CurrentAmount), dc.Amount(g.Goal.TargetAmount), dc.Percent(g.Percent))
			}
			return tw.Flush()
		},
	}
}

func migrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations to the SQLite database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			if cfg.DataBackend != string(backend.SQLiteBackend) {
				return fmt.Errorf("migrate requires the sqlite backend, got %q", cfg.DataBackend)
			}
			version, err := storage.MigrateUp(cfg.SQLiteDBPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "schema at version %d (%s)\n", version, cfg.SQLiteDBPath)
			return nil
		},
	}
}
