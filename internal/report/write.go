package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/roach88/vharness/internal/result"
)

// WriteJSON writes r as indented JSON followed by a newline. HTML
// characters are not escaped, so constraints such as "<3" stay readable.
func WriteJSON(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteText writes a human-readable summary of r.
func WriteText(w io.Writer, r *Report) error {
	tw := &textWriter{w: w}
	tw.printf("Run %s (%s): %s\n", r.RunID, r.RunDate, label(r.Status))
	if r.Error != "" {
		tw.printf("  error: %s\n", r.Error)
	}
	tw.printf("  fixtures:  %s\n", counts(r.Fixtures))
	tw.printf("  templates: %s\n", counts(r.Templates))
	tw.printf("  instances: %s\n", counts(r.Instances))

	for _, f := range r.Results {
		tw.printf("\n%s %s\n", label(f.Status), f.Name)
		if f.Error != "" {
			tw.printf("  error: %s\n", f.Error)
		}
		for _, t := range f.Results {
			tw.printf("  %s %s (%s)\n", label(t.Status), t.Name, counts(t.Instances))
			if t.Error != "" {
				tw.printf("    error: %s\n", t.Error)
			}
			for _, in := range t.Results {
				tw.printf("    %s %s\n", label(in.Status), instanceName(in.Name))
				if in.Error != "" {
					tw.printf("      error: %s\n", in.Error)
				}
				for _, c := range in.Checks {
					if c.Status == result.CheckSuccess {
						continue
					}
					tw.printf("      %s: %s\n", c.Status, c.Name)
				}
			}
		}
	}
	return tw.err
}

// textWriter keeps the first write error so callers can format freely.
type textWriter struct {
	w   io.Writer
	err error
}

func (tw *textWriter) printf(format string, args ...any) {
	if tw.err != nil {
		return
	}
	_, tw.err = fmt.Fprintf(tw.w, format, args...)
}

func label(s result.Status) string {
	return "[" + strings.ToUpper(s.String()) + "]"
}

func counts(c result.Counts) string {
	return fmt.Sprintf("%d total, %d success, %d failure, %d error, %d skipped",
		c.Total, c.Success, c.Failure, c.Error, c.Skipped)
}

func instanceName(name string) string {
	if name == "" {
		return "(default)"
	}
	return name
}
