package app

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"

	"poe2-arb-scanner/internal/arb"
	"poe2-arb-scanner/internal/service"
	"poe2-arb-scanner/internal/storage"
)

// Scan performs a one-shot scan and prints the top opportunities.
func (a *App) Scan(ctx context.Context, opts ScanOptions) error {
	league, err := a.resolveLeague(opts.League)
	if err != nil {
		return err
	}

	client := a.newClient()
	if opts.Refresh {
		client.InvalidateLeague(league)
	}
	scanner := arb.NewScanner(client, a.Logger)

	startedAt := time.Now().UTC()
	result, err := scanner.Scan(ctx, league, func(p arb.ScanProgress) {
		fmt.Fprintf(os.Stderr, "\rscanning %d/%d (ok %d, failed %d)", p.Done, p.Total, p.OK, p.Failed)
	})
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return err
	}
	finishedAt := time.Now().UTC()

	arb.Rate(result.Opportunities, a.Config.Thresholds)
	arb.SortOpportunities(result.Opportunities, arb.SortMode(opts.Sort))

	if opts.Persist {
		if err := a.persistScan(ctx, league, startedAt, finishedAt, result); err != nil {
			return err
		}
	}

	printOpportunities(result.Opportunities, opts.Top)

	if len(result.Errors) > 0 {
		fmt.Fprintf(os.Stdout, "\n%d item(s) failed:\n", len(result.Errors))
		for _, e := range result.Errors {
			fmt.Fprintf(os.Stdout, "  %s\n", e)
		}
	}
	return nil
}

func (a *App) persistScan(ctx context.Context, league string, startedAt, finishedAt time.Time, result arb.ScanResult) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return fmt.Errorf("database not configured; cannot persist scan")
	}
	if closeStore != nil {
		defer closeStore()
	}

	runID := uuid.New()
	run := storage.ScanRun{
		ID:         runID,
		League:     league,
		StartedAt:  startedAt,
		FinishedAt: finishedAt,
		Total:      result.Progress.Total,
		OK:         result.Progress.OK,
		Failed:     result.Progress.Failed,
		Errors:     result.Errors,
	}
	if err := store.InsertScanRun(ctx, run, service.OpportunityRows(runID, result.Opportunities)); err != nil {
		return err
	}
	a.Logger.Info().Str("run_id", runID.String()).Msg("scan persisted")
	return nil
}

func printOpportunities(opps []arb.Opportunity, top int) {
	if len(opps) == 0 {
		fmt.Fprintln(os.Stdout, "no opportunities found")
		return
	}
	if top > 0 && len(opps) > top {
		opps = opps[:top]
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Item\tRoute\tEdge%\tVolMin\tVol7d\tProfit\tExec\tOverall")
	for _, o := range opps {
		fmt.Fprintf(writer, "%s\t%s\t%.2f\t%s\t%s\t%.0f\t%.0f\t%.0f\n",
			o.ItemName,
			o.RouteKind,
			o.Edge*100,
			formatMaybe(o.VolumeMin, "%.1f"),
			formatMaybe(o.Volatility7d, "%.4f"),
			o.ProfitRating,
			o.ExecutionRating,
			o.Overall,
		)
	}
	writer.Flush()
}

func formatMaybe(v *float64, format string) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf(format, *v)
}
