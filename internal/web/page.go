package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"panchcal/internal/grid"
	appLog "panchcal/internal/log"
	"panchcal/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.New("calendar.html").ParseFS(templateFS, "templates/calendar.html"))

type pageCell struct {
	grid.Cell
	Today   bool
	Primary *model.Occurrence
	Others  []model.Occurrence
}

type pageLink struct {
	Year  int
	Month int
}

type pageData struct {
	Title      string
	SolarRange string
	Weekdays   []string
	Weeks      [][]pageCell
	Prev, Next pageLink
}

var weekdayNames = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// buildPage shapes a grid for the template. today marks the highlighted cell.
func buildPage(g grid.Grid, today model.Date) pageData {
	data := pageData{
		Title:    fmt.Sprintf("%s %d", g.Month, g.Year),
		Weekdays: weekdayNames,
	}

	current := g.CurrentMonthCells()
	first := current[0].Panchang.Solar.MonthName
	last := current[len(current)-1].Panchang.Solar.MonthName
	if first == last {
		data.SolarRange = fmt.Sprintf("%s (%s)", first.English, first.Native)
	} else {
		data.SolarRange = fmt.Sprintf("%s (%s) / %s (%s)", first.English, first.Native, last.English, last.Native)
	}

	py, pm := grid.Shift(g.Year, g.Month, -1)
	ny, nm := grid.Shift(g.Year, g.Month, 1)
	data.Prev = pageLink{py, int(pm)}
	data.Next = pageLink{ny, int(nm)}

	for _, week := range g.Weeks() {
		row := make([]pageCell, 0, len(week))
		for _, c := range week {
			pc := pageCell{Cell: c, Today: c.Date.SameDay(today)}
			if len(c.Events) > 0 {
				pc.Primary = &c.Events[0]
				pc.Others = c.Events[1:]
			}
			row = append(row, pc)
		}
		data.Weeks = append(data.Weeks, row)
	}
	return data
}

// handleCalendarPage renders the month as HTML. The body carries
// data-ready="true" once rendered, which the snapshot capture waits for.
//
// GET /calendar?year=2026&month=10&offset=1 (default: current month)
func (s *Server) handleCalendarPage(w http.ResponseWriter, r *http.Request) {
	year, month, err := s.monthQuery(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	g, err := s.monthGrid(year, month)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	start := time.Now()
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, buildPage(g, s.svc.Today())); err != nil {
		appLog.Error("calendar page render failed", err, "year", year, "month", int(month))
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	appLog.Debug("calendar page rendered", "year", year, "month", int(month), "elapsed", time.Since(start))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)
}
