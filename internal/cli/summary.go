package cli

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/vvka-141/sparketl/pkg/sparketl"
)

// renderSummary prints one row per pass that ran.
func renderSummary(w io.Writer, summary *sparketl.RunSummary) {
	fmt.Fprintf(w, "Run %s\n", summary.RunID)

	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_CENTER)
	table.SetAutoFormatHeaders(false)
	table.SetBorder(true)
	table.SetHeader([]string{
		"Pass",
		"Root",
		"Files",
		"Songs",
		"Artists",
		"Users",
		"Time",
		"Songplays",
		"Skipped",
		"Lookup hits",
		"Lookup misses",
		"Duration",
	})

	for _, p := range summary.Passes {
		table.Append([]string{
			string(p.Pass),
			p.Root,
			fmt.Sprintf("%d/%d", p.FilesProcessed, p.FilesFound),
			strconv.Itoa(p.Songs),
			strconv.Itoa(p.Artists),
			strconv.Itoa(p.Users),
			strconv.Itoa(p.TimeRows),
			strconv.Itoa(p.SongPlays),
			strconv.Itoa(p.SkippedEvents),
			strconv.Itoa(p.LookupHits),
			strconv.Itoa(p.LookupMisses),
			p.Duration.Round(time.Millisecond).String(),
		})
	}

	table.Render()
}
