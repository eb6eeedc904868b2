package web

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"panchcal/internal/grid"
	appLog "panchcal/internal/log"
	"panchcal/internal/model"
	"panchcal/internal/panchang"
)

type panchangResponse struct {
	Date      model.Date         `json:"date"`
	Panchang  panchang.Snapshot  `json:"panchang"`
	Positions panchang.Positions `json:"positions"`
	Events    []model.Occurrence `json:"events"`
}

// handlePanchang returns the snapshot for one date.
//
// GET /api/panchang?date=2026-10-02 (default: today)
func (s *Server) handlePanchang(w http.ResponseWriter, r *http.Request) {
	d, err := s.svc.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	p, err := s.svc.ComputePanchang(d)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	pos, err := panchang.PositionsOf(d)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	events := s.svc.EventsFor(d, p)
	writeJSON(w, http.StatusOK, panchangResponse{Date: d, Panchang: p, Positions: pos, Events: events})
}

type dayEventsResponse struct {
	Date    model.Date         `json:"date"`
	Primary *model.Occurrence  `json:"primary"`
	Events  []model.Occurrence `json:"events"`
}

type rangeEventsResponse struct {
	From   model.Date              `json:"from"`
	To     model.Date              `json:"to"`
	Events []model.DatedOccurrence `json:"events"`
}

// handleEvents returns occurrences for one date or an inclusive range.
//
// GET /api/events?date=2025-10-02
// GET /api/events?from=2025-12-01&to=2026-01-31
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	from, to, isRange, err := s.dateRangeQuery(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if isRange {
		events, err := s.svc.EventsBetween(from, to)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		if events == nil {
			events = []model.DatedOccurrence{}
		}
		writeJSON(w, http.StatusOK, rangeEventsResponse{From: from, To: to, Events: events})
		return
	}

	d, err := s.svc.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	events, err := s.svc.EventsForDate(d)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	resp := dayEventsResponse{Date: d, Events: events}
	if len(events) > 0 {
		resp.Primary = &events[0]
	}
	writeJSON(w, http.StatusOK, resp)
}

type monthResponse struct {
	grid.Grid
	Today model.Date `json:"today"`
}

// handleMonth returns the 42-cell grid.
//
// GET /api/month?year=2026&month=10&offset=-1 (default: current month)
func (s *Server) handleMonth(w http.ResponseWriter, r *http.Request) {
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
	writeJSON(w, http.StatusOK, monthResponse{Grid: g, Today: s.svc.Today()})
}

type ruleDTO struct {
	Position    int            `json:"position"`
	Name        string         `json:"name"`
	Category    model.Category `json:"category"`
	Group       string         `json:"group"`
	Predicate   string         `json:"predicate"`
	Description string         `json:"description,omitempty"`
}

// handleRules lists the active rule table in evaluation order.
func (s *Server) handleRules(w http.ResponseWriter, _ *http.Request) {
	table := s.svc.Engine().Rules()
	out := make([]ruleDTO, 0, len(table))
	for i, r := range table {
		out = append(out, ruleDTO{
			Position:    i + 1,
			Name:        r.Name,
			Category:    r.Category,
			Group:       r.Match.Group().String(),
			Predicate:   r.Match.Key(),
			Description: r.Description,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// handleICS serves an iCalendar feed of occurrences.
//
// GET /calendar.ics?year=2026 (default: current year)
// GET /calendar.ics?from=2026-01-01&to=2026-06-30
func (s *Server) handleICS(w http.ResponseWriter, r *http.Request) {
	from, to, isRange, err := s.dateRangeQuery(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if !isRange {
		year := s.svc.Today().Year
		if v := r.URL.Query().Get("year"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				writeServiceError(w, r, &model.InvalidDateError{Input: v, Reason: "year is not a number"})
				return
			}
			year = n
		}
		if from, err = s.svc.Date(year, time.January, 1); err != nil {
			writeServiceError(w, r, err)
			return
		}
		if to, err = s.svc.Date(year, time.December, 31); err != nil {
			writeServiceError(w, r, err)
			return
		}
	}

	events, err := s.svc.EventsBetween(from, to)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="panchcal-%s-%s.ics"`, from, to))
	if err := s.exporter.Export(w, events); err != nil {
		appLog.Error("ics response failed", err, "from", from, "to", to)
	}
}
