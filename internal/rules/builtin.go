package rules

import (
	"time"

	"panchcal/internal/model"
)

// Solar month indices (0 = Medam).
const (
	medam = iota
	edavam
	mithunam
	karkidakam
	chingam
	kanni
	thulam
	vrischikam
	dhanu
	makaram
	kumbham
	meenam
)

// Nakshatra indices used by the built-in table.
const (
	rohini       = 3
	thiruvathira = 5
	pooram       = 10
	atham        = 12
	uthradam     = 20
	thiruvonam   = 21
)

// Tithi indices used by the built-in table.
const (
	shuklaChathurthi    = 3
	shuklaNavami        = 8
	shuklaDashami       = 9
	krishnaChathurdashi = 28
	amavasya            = 29
)

var builtin = []Rule{
	// Solar month starts.
	{Name: "Vishu", Category: model.CategoryMajor, Description: "Medam 1, astronomical new year", Match: SolarDay{Month: medam, Day: 1}},
	{Name: "Karkidakam 1", Category: model.CategorySeason, Description: "Ramayana month begins", Match: SolarDay{Month: karkidakam, Day: 1}},
	{Name: "Chingam 1", Category: model.CategoryMajor, Description: "Malayalam New Year", Match: SolarDay{Month: chingam, Day: 1}},
	{Name: "Mandala Season Begins", Category: model.CategorySeason, Description: "Vrischikam 1, Sabarimala pilgrimage season", Match: SolarDay{Month: vrischikam, Day: 1}},
	{Name: "Makara Sankranthi", Category: model.CategoryFestival, Description: "Makaram 1, Makaravilakku", Match: SolarDay{Month: makaram, Day: 1}},

	// Solar month + lunar mansion.
	{Name: "Thrissur Pooram", Category: model.CategoryFestival, Match: SolarNakshatra{Month: medam, Nakshatra: pooram}},
	{Name: "Atham", Category: model.CategoryFestival, Description: "Onam festivities begin", Match: SolarNakshatra{Month: chingam, Nakshatra: atham}},
	{Name: "Uthradam", Category: model.CategoryFestival, Description: "First Onam", Match: SolarNakshatra{Month: chingam, Nakshatra: uthradam}},
	{Name: "Thiruvonam", Category: model.CategoryMajor, Description: "Onam", Match: SolarNakshatra{Month: chingam, Nakshatra: thiruvonam}},
	{Name: "Sree Krishna Jayanthi", Category: model.CategoryFestival, Description: "Ashtami Rohini", Match: SolarNakshatra{Month: chingam, Nakshatra: rohini}},
	{Name: "Dhanu Thiruvathira", Category: model.CategoryFestival, Match: SolarNakshatra{Month: dhanu, Nakshatra: thiruvathira}},
	{Name: "Attukal Pongala", Category: model.CategoryFestival, Match: SolarNakshatra{Month: kumbham, Nakshatra: pooram}},

	// Solar month + lunar day.
	{Name: "Karkidaka Vavu", Category: model.CategoryFestival, Description: "Ancestral rites on the new moon of Karkidakam", Match: SolarTithi{Month: karkidakam, Tithi: amavasya}},
	{Name: "Vinayaka Chathurthi", Category: model.CategoryFestival, Match: SolarTithi{Month: chingam, Tithi: shuklaChathurthi}},
	{Name: "Mahanavami", Category: model.CategoryFestival, Match: SolarTithi{Month: kanni, Tithi: shuklaNavami}},
	{Name: "Vijayadashami", Category: model.CategoryMajor, Description: "Vidyarambham", Match: SolarTithi{Month: kanni, Tithi: shuklaDashami}},
	{Name: "Deepavali", Category: model.CategoryFestival, Match: SolarTithi{Month: thulam, Tithi: amavasya}},
	{Name: "Maha Shivaratri", Category: model.CategoryFestival, Match: SolarTithi{Month: kumbham, Tithi: krishnaChathurdashi}},

	// Civil holidays.
	{Name: "New Year's Day", Category: model.CategoryFestival, Match: Fixed(time.January, 1)},
	{Name: "Republic Day", Category: model.CategoryMajor, Match: Fixed(time.January, 26)},
	{Name: "Independence Day", Category: model.CategoryMajor, Match: Fixed(time.August, 15)},
	{Name: "Gandhi Jayanthi", Category: model.CategoryMajor, Match: Fixed(time.October, 2)},
	{Name: "Kerala Piravi", Category: model.CategoryMajor, Description: "Formation of Kerala state", Match: Fixed(time.November, 1)},
	{Name: "Christmas", Category: model.CategoryFestival, Match: Fixed(time.December, 25)},
}

var defaultEngine = mustNew(builtin)

// Default returns the engine over the built-in table.
func Default() *Engine {
	return defaultEngine
}

func mustNew(table []Rule) *Engine {
	e, err := New(table...)
	if err != nil {
		panic(err)
	}
	return e
}
