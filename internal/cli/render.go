package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/roach88/semfilter/internal/filterir"
)

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

// renderSpec prints a resolution for humans.
func renderSpec(w io.Writer, spec *filterir.ResolvedSpec) {
	fmt.Fprintf(w, "Status: %s\n", spec.Status)
	fmt.Fprintln(w, spec.Explanation)

	if len(spec.PendingConfirmations) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Awaiting confirmation:")
		t := newTable(w)
		t.AppendHeader(table.Row{"Term", "Tier", "Expansion"})
		for _, p := range spec.PendingConfirmations {
			t.AppendRow(table.Row{p.Term, p.Tier, p.Expansion})
		}
		t.Render()
	}

	if len(spec.UnresolvedTerms) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Not understood:")
		t := newTable(w)
		t.AppendHeader(table.Row{"Phrase", "Did you mean"})
		for _, u := range spec.UnresolvedTerms {
			keys := make([]string, len(u.Suggestions))
			for i, s := range u.Suggestions {
				keys[i] = s.Expansion
			}
			t.AppendRow(table.Row{u.Phrase, strings.Join(keys, "\n")})
		}
		t.Render()
	}

	if spec.ResolutionToken != "" {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Token: %s\n", spec.ResolutionToken)
	}
}

// renderFilter prints a compiled filter for humans.
func renderFilter(w io.Writer, f *filterir.CompiledFilter) {
	fmt.Fprintln(w, f.Explanation)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "WHERE %s\n", f.WhereSQL)
	if len(f.Params) == 0 {
		return
	}
	fmt.Fprintln(w)
	t := newTable(w)
	t.AppendHeader(table.Row{"Param", "Value"})
	for i, p := range f.Params {
		t.AppendRow(table.Row{fmt.Sprintf("$%d", i+1), formatParam(p)})
	}
	t.Render()
}

func formatParam(v any) string {
	switch val := v.(type) {
	case string:
		return fmt.Sprintf("%q", val)
	case float64:
		return filterir.FormatFloat(val)
	}
	return fmt.Sprintf("%v", v)
}
