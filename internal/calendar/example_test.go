package calendar_test

import (
	"fmt"
	"time"

	"panchcal/internal/calendar"
)

func ExampleService_EventsForDate() {
	loc := time.FixedZone("Asia/Kolkata", 5*60*60+30*60)
	s := calendar.New(calendar.WithLocation(loc))

	d, err := s.ParseDate("2025-10-02")
	if err != nil {
		panic(err)
	}
	p, _ := s.ComputePanchang(d)
	fmt.Printf("%s %d, %s (%s), %s\n",
		p.Solar.MonthName.English, p.Solar.Day,
		p.Tithi.Name.English, p.Tithi.Paksha,
		p.Nakshatra.Name.English)

	events, _ := s.EventsForDate(d)
	for _, e := range events {
		fmt.Printf("%s [%s]\n", e.Name, e.Category)
	}
	// Output:
	// Kanni 15, Dashami (waxing), Uthradam
	// Vijayadashami [major]
	// Gandhi Jayanthi [major]
}

func ExampleService_BuildCalendarGrid() {
	s := calendar.New()
	g, err := s.BuildCalendarGrid(2026, time.February)
	if err != nil {
		panic(err)
	}
	fmt.Println(len(g.Cells), g.Cells[0].Date, g.Cells[len(g.Cells)-1].Date)
	fmt.Println(len(g.CurrentMonthCells()))
	// Output:
	// 42 2026-02-01 2026-03-14
	// 28
}
