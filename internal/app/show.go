package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"poe2-arb-scanner/internal/storage"
)

// Show prints the latest persisted run's top opportunities, or the recent
// run history when opts.Runs is set.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show runs")
	}
	if closeStore != nil {
		defer closeStore()
	}

	if opts.Runs > 0 {
		return a.showRecentRuns(ctx, store, opts.Runs)
	}

	league, err := a.resolveLeague(opts.League)
	if err != nil {
		return err
	}

	run, err := store.LatestRun(ctx, league)
	if errors.Is(err, storage.ErrNotFound) {
		fmt.Fprintln(os.Stdout, "no scan runs found")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "run %s | league %s | %s | items %d (ok %d, failed %d)\n\n",
		run.ID, run.League, run.StartedAt.UTC().Format(time.RFC3339), run.Total, run.OK, run.Failed)

	opps, err := store.ListRunOpportunities(ctx, run.ID, opts.Limit)
	if err != nil {
		return err
	}
	if len(opps) == 0 {
		fmt.Fprintln(os.Stdout, "no opportunities in this run")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Item\tRoute\tEdge%\tImplied\tBaseline\tProfit\tExec\tOverall")
	for _, o := range opps {
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			sanitizeInline(o.ItemName),
			o.RouteKind,
			o.EdgePct.StringFixed(2),
			o.Implied.StringFixed(4),
			o.Baseline.StringFixed(4),
			o.ProfitRating.StringFixed(0),
			o.ExecutionRating.StringFixed(0),
			o.Overall.StringFixed(0),
		)
	}
	writer.Flush()

	if run.Failed > 0 {
		fmt.Fprintf(os.Stdout, "\n%d item(s) failed during this run\n", run.Failed)
	}
	return nil
}

func (a *App) showRecentRuns(ctx context.Context, store *storage.Store, limit int) error {
	runs, err := store.ListRecentRuns(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(os.Stdout, "no scan runs found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Run\tLeague\tStarted\tItems\tOK\tFailed")
	for _, r := range runs {
		fmt.Fprintf(writer, "%s\t%s\t%s\t%d\t%d\t%d\n",
			r.ID, sanitizeInline(r.League), r.StartedAt.UTC().Format(time.RFC3339),
			r.Total, r.OK, r.Failed)
	}
	return writer.Flush()
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}
