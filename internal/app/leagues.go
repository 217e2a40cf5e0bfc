package app

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
)

// Leagues lists the economy leagues the market index currently tracks.
func (a *App) Leagues(ctx context.Context) error {
	client := a.newClient()

	leagues, err := client.EconomyLeagues(ctx)
	if err != nil {
		return err
	}
	if len(leagues) == 0 {
		fmt.Fprintln(os.Stdout, "no leagues indexed")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Name\tDisplay\tHardcore\tIndexed")
	for _, l := range leagues {
		display := l.DisplayName
		if display == "" {
			display = l.Name
		}
		fmt.Fprintf(writer, "%s\t%s\t%t\t%t\n", l.Name, display, l.Hardcore, l.Indexed)
	}
	return writer.Flush()
}
