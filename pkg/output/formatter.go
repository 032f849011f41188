package output

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cvsubs74/dm-consent/pkg/datamap"
	"github.com/cvsubs74/dm-consent/pkg/projector"
	"github.com/fatih/color"
)

var (
	bold   = color.New(color.Bold)
	red    = color.New(color.FgRed)
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	cyan   = color.New(color.FgCyan)
)

// PrintStep prints the outcome of one replayed integration operation
func PrintStep(w io.Writer, n int, op string, result datamap.Result, err error) {
	fmt.Fprintf(w, "%3d. %-20s ", n, op)
	var ve *datamap.ValidationError
	switch {
	case err == nil:
		green.Fprintf(w, "ok")
		fmt.Fprintf(w, "  %s\n", result.Message)
	case errors.As(err, &ve):
		yellow.Fprintf(w, "rejected")
		fmt.Fprintln(w)
		for _, f := range ve.Fields {
			yellow.Fprintf(w, "       - %s\n", f.Message)
		}
	default:
		red.Fprintf(w, "failed")
		fmt.Fprintf(w, "  %v\n", err)
	}
}

// PrintDataMap prints a colorized summary of a Data Map
func PrintDataMap(w io.Writer, store *datamap.Store) {
	bold.Fprintln(w, "Data Map")
	bold.Fprintln(w, "========")

	if store.IsEmpty() {
		fmt.Fprintln(w, "(empty)")
		return
	}

	printEntities(w, "Processing Activities", store.Entities(datamap.ProcessingActivities))
	printEntities(w, "Assets", store.Entities(datamap.Assets))

	if vendors := store.Vendors(); len(vendors) > 0 {
		cyan.Fprintf(w, "Vendors (%d)\n", len(vendors))
		fmt.Fprintf(w, "  %s\n", strings.Join(vendors, ", "))
	}

	if models := store.Models(); len(models) > 0 {
		cyan.Fprintf(w, "Models (%d)\n", len(models))
		for _, m := range models {
			fmt.Fprintf(w, "  %s  purpose: %s\n", m.Name, m.Purpose)
		}
	}

	links := store.Links()
	cyan.Fprintf(w, "Links (%d)\n", len(links))
	for _, l := range links {
		fmt.Fprintf(w, "  %s -> %s\n", l.Source, l.Target)
	}

	// names only known from links show up as placeholders in the graph
	var unresolved []string
	for _, n := range projector.Project(store).Nodes {
		if n.Category == projector.CategoryUnresolved {
			unresolved = append(unresolved, n.Label)
		}
	}
	if len(unresolved) > 0 {
		yellow.Fprintf(w, "Unresolved link endpoints: %s\n", strings.Join(unresolved, ", "))
	}

	for _, cycle := range store.Cycles() {
		yellow.Fprintf(w, "Circular flow: %s -> %s\n", strings.Join(cycle, " -> "), cycle[0])
	}
}

func printEntities(w io.Writer, title string, entities []datamap.Entity) {
	if len(entities) == 0 {
		return
	}
	cyan.Fprintf(w, "%s (%d)\n", title, len(entities))
	for _, e := range entities {
		if len(e.Elements) == 0 {
			fmt.Fprintf(w, "  %s\n", e.Name)
			continue
		}
		fmt.Fprintf(w, "  %s: %s\n", e.Name, strings.Join(e.Elements, ", "))
	}
}
