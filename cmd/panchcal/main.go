// Command panchcal is the Malayalam Panchang calendar: CLI lookups, an
// HTTP server with a printable month page and an iCalendar feed.
package main

import (
	"os"

	"panchcal/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
