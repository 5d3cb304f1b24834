package diag

import (
	"strings"

	"github.com/pterm/pterm"
)

// Render formats a list of diagnostics as human-readable text, underlining
// the offending source column with a caret when a Diagnostic carries a
// SourceLocation and source is non-empty. Errors are styled red/bold,
// warnings yellow, following pterm's style vocabulary the way other_examples
// in the retrieval pack style CLI-adjacent diagnostics output.
func Render(source string, ds []Diagnostic) string {
	lines := strings.Split(source, "\n")
	var b strings.Builder
	for _, d := range ds {
		style := pterm.NewStyle(pterm.FgRed, pterm.Bold)
		tag := "error"
		if d.Severity == Warning {
			style = pterm.NewStyle(pterm.FgYellow, pterm.Bold)
			tag = "warning"
		}
		header := style.Sprintf("%s[%s]", tag, d.Kind)
		b.WriteString(header)
		b.WriteString(": ")
		b.WriteString(d.Message)
		b.WriteString("\n")
		if !d.Location.IsZero() {
			b.WriteString(pterm.Gray("  --> "))
			b.WriteString(d.Location.String())
			b.WriteString("\n")
			if d.Location.Line-1 >= 0 && d.Location.Line-1 < len(lines) {
				srcLine := lines[d.Location.Line-1]
				b.WriteString("  ")
				b.WriteString(srcLine)
				b.WriteString("\n  ")
				col := d.Location.Column
				if col < 1 {
					col = 1
				}
				b.WriteString(strings.Repeat(" ", col-1))
				carets := d.Location.Length
				if carets < 1 {
					carets = 1
				}
				b.WriteString(pterm.FgRed.Sprint(strings.Repeat("^", carets)))
				b.WriteString("\n")
			}
		}
	}
	return b.String()
}
