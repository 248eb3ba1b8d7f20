package cli

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/cloo-solutions/nl2sparql/internal/render"
)

const logoHeight = 5

var letterArt = map[rune][logoHeight]string{
	'N': {"#   #", "##  #", "# # #", "#  ##", "#   #"},
	'L': {"#    ", "#    ", "#    ", "#    ", "#####"},
	'2': {"#####", "    #", "#####", "#    ", "#####"},
	'S': {"#####", "#    ", "#####", "    #", "#####"},
	'P': {"#### ", "#   #", "#### ", "#    ", "#    "},
	'A': {" ### ", "#   #", "#####", "#   #", "#   #"},
	'R': {"#### ", "#   #", "#### ", "#  # ", "#   #"},
	'Q': {" ### ", "#   #", "#   #", "#  ##", " ####"},
	' ': {"     ", "     ", "     ", "     ", "     "},
}

var gradientCodes = []string{"34", "35", "36", "94", "95", "96"}

var bannerTips = []string{
	"Ask in natural language; mention entities by name.",
	"Add constraints (time, place, type) for precision.",
	"Type 'exit' or 'quit' to stop.",
}

func renderLogo(text string) []string {
	var rows [logoHeight]string
	for _, ch := range strings.ToUpper(text) {
		art, ok := letterArt[ch]
		if !ok {
			art = letterArt[' ']
		}
		for i := range rows {
			rows[i] += art[i] + "  "
		}
	}
	out := make([]string, logoHeight)
	for i, row := range rows {
		out[i] = strings.TrimRight(row, " ")
	}
	return out
}

type bannerInfo struct {
	Model      string
	Endpoint   string
	TimeoutSec int
}

func writeBanner(w io.Writer, style render.Style, info bannerInfo) {
	logo := renderLogo("NL2SPARQL")

	host := info.Endpoint
	if u, err := url.Parse(info.Endpoint); err == nil && u.Host != "" {
		host = u.Host
	}

	subtitle := "DBpedia SPARQL console online"
	status := fmt.Sprintf("Model: %s | Endpoint: %s | Timeout: %ds", info.Model, host, info.TimeoutSec)
	tipsHeader := "Tips for getting started:"

	width := max(len(subtitle), len(status), len(tipsHeader))
	for _, line := range logo {
		width = max(width, len(line))
	}
	rule := style.Dim(strings.Repeat("-", width))

	fmt.Fprintln(w, rule)
	for _, line := range logo {
		fmt.Fprintln(w, style.Gradient(line, gradientCodes))
	}
	fmt.Fprintln(w, style.Accent(subtitle))
	fmt.Fprintln(w)
	fmt.Fprintln(w, style.Bold(tipsHeader))
	for i, tip := range bannerTips {
		fmt.Fprintf(w, "  %d. %s\n", i+1, tip)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, style.Dim(status))
	fmt.Fprintln(w, rule)
}
