package cli

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

const bannerWidth = 60

// printBanner draws a boxed title on w. Long titles widen the box.
func printBanner(w io.Writer, title string) {
	inner := bannerWidth - 2
	if n := utf8.RuneCountInString(title) + 2; n > inner {
		inner = n
	}

	edge := strings.Repeat("═", inner)
	fmt.Fprintf(w, "╔%s╗\n", edge)
	fmt.Fprintf(w, "║%s║\n", centered(title, inner))
	fmt.Fprintf(w, "╚%s╝\n", edge)
}

func centered(text string, width int) string {
	pad := width - utf8.RuneCountInString(text)
	if pad <= 0 {
		return text
	}
	left := pad / 2
	return strings.Repeat(" ", left) + text + strings.Repeat(" ", pad-left)
}
