package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/educloud/educloud-cli/internal/api"
)

// pricePrinter renders USD amounts with locale-aware digit grouping.
var pricePrinter = message.NewPrinter(language.English)

// formatPrice renders a course price, e.g. "$1,299.00".
func formatPrice(v float64) string {
	return pricePrinter.Sprintf("$%.2f", v)
}

// formatDate renders a service timestamp as a short date. Unparseable
// values pass through untouched.
func formatDate(s string) string {
	if s == "" {
		return ""
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("Jan 2, 2006")
		}
	}
	return s
}

// renderCourseTable writes one line per course in aligned columns.
func renderCourseTable(w io.Writer, courses []api.DisplayCourse) {
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tPRICE\tCATEGORY\tINSTRUCTOR")
	for _, c := range courses {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", c.ID, c.Title, formatPrice(c.Price), c.Category, c.Instructor)
	}
	tw.Flush()
}

// renderCourseDetail writes the full course view.
func renderCourseDetail(w io.Writer, c api.DisplayCourse) {
	fmt.Fprintf(w, "%s\n", c.Title)
	fmt.Fprintf(w, "  ID:          %s\n", c.ID)
	fmt.Fprintf(w, "  Price:       %s\n", formatPrice(c.Price))
	fmt.Fprintf(w, "  Category:    %s\n", c.Category)
	fmt.Fprintf(w, "  Instructor:  %s\n", c.Instructor)
	fmt.Fprintf(w, "  Level:       %s\n", c.Level)
	if c.Duration != "" {
		fmt.Fprintf(w, "  Duration:    %s\n", c.Duration)
	}
	if len(c.Tags) > 0 {
		fmt.Fprintf(w, "  Tags:        %v\n", c.Tags)
	}
	fmt.Fprintf(w, "  %s\n", c.Description)
}
