package panchang

import "golang.org/x/text/unicode/norm"

// Name pairs the Malayalam-script name with its common English
// transliteration.
type Name struct {
	Native  string `json:"native"`
	English string `json:"english"`
}

// Solar months, starting at Medam (sidereal Aries).
var solarMonthNames = nfc([]Name{
	{"മേടം", "Medam"},
	{"ഇടവം", "Edavam"},
	{"മിഥുനം", "Mithunam"},
	{"കർക്കിടകം", "Karkidakam"},
	{"ചിങ്ങം", "Chingam"},
	{"കന്നി", "Kanni"},
	{"തുലാം", "Thulam"},
	{"വൃശ്ചികം", "Vrischikam"},
	{"ധനു", "Dhanu"},
	{"മകരം", "Makaram"},
	{"കുംഭം", "Kumbham"},
	{"മീനം", "Meenam"},
})

var nakshatraNames = nfc([]Name{
	{"അശ്വതി", "Ashwathy"},
	{"ഭരണി", "Bharani"},
	{"കാർത്തിക", "Karthika"},
	{"രോഹിണി", "Rohini"},
	{"മകയിരം", "Makayiram"},
	{"തിരുവാതിര", "Thiruvathira"},
	{"പുണർതം", "Punartham"},
	{"പൂയം", "Pooyam"},
	{"ആയില്യം", "Ayilyam"},
	{"മകം", "Makam"},
	{"പൂരം", "Pooram"},
	{"ഉത്രം", "Uthram"},
	{"അത്തം", "Atham"},
	{"ചിത്തിര", "Chithira"},
	{"ചോതി", "Chothi"},
	{"വിശാഖം", "Vishakham"},
	{"അനിഴം", "Anizham"},
	{"തൃക്കേട്ട", "Thrikketta"},
	{"മൂലം", "Moolam"},
	{"പൂരാടം", "Pooradam"},
	{"ഉത്രാടം", "Uthradam"},
	{"തിരുവോണം", "Thiruvonam"},
	{"അവിട്ടം", "Avittam"},
	{"ചതയം", "Chathayam"},
	{"പൂരുരുട്ടാതി", "Pooruruttathi"},
	{"ഉത്രട്ടാതി", "Uthrattathi"},
	{"രേവതി", "Revathi"},
})

// Shared by both halves of the lunar month; the fifteenth day of each half
// has its own name below.
var tithiCycleNames = nfc([]Name{
	{"പ്രഥമ", "Prathama"},
	{"ദ്വിതീയ", "Dwitiya"},
	{"തൃതീയ", "Tritiya"},
	{"ചതുർത്ഥി", "Chathurthi"},
	{"പഞ്ചമി", "Panchami"},
	{"ഷഷ്ഠി", "Shashti"},
	{"സപ്തമി", "Saptami"},
	{"അഷ്ടമി", "Ashtami"},
	{"നവമി", "Navami"},
	{"ദശമി", "Dashami"},
	{"ഏകാദശി", "Ekadashi"},
	{"ദ്വാദശി", "Dwadashi"},
	{"ത്രയോദശി", "Trayodashi"},
	{"ചതുർദ്ദശി", "Chathurdashi"},
})

var (
	fullMoonName = nfc([]Name{{"പൗർണ്ണമി", "Pournami"}})[0]
	newMoonName  = nfc([]Name{{"അമാവാസി", "Amavasya"}})[0]
)

func nfc(names []Name) []Name {
	out := make([]Name, len(names))
	for i, n := range names {
		out[i] = Name{Native: norm.NFC.String(n.Native), English: n.English}
	}
	return out
}

// SolarMonthName returns the name of solar month i (0 = Medam).
func SolarMonthName(i int) (Name, bool) {
	if i < 0 || i >= len(solarMonthNames) {
		return Name{}, false
	}
	return solarMonthNames[i], true
}

// NakshatraName returns the name of lunar mansion i (0 = Ashwathy).
func NakshatraName(i int) (Name, bool) {
	if i < 0 || i >= len(nakshatraNames) {
		return Name{}, false
	}
	return nakshatraNames[i], true
}

// TithiName returns the name of tithi i (0..29).
func TithiName(i int) (Name, bool) {
	switch {
	case i < 0 || i >= TithiCount:
		return Name{}, false
	case i == 14:
		return fullMoonName, true
	case i == 29:
		return newMoonName, true
	default:
		return tithiCycleNames[i%15], true
	}
}

// SolarMonthIndex looks up a solar month by its English name,
// case-sensitively. Used when reading rule definitions.
func SolarMonthIndex(english string) (int, bool) {
	return indexOf(solarMonthNames, english)
}

// NakshatraIndex looks up a lunar mansion by its English name.
func NakshatraIndex(english string) (int, bool) {
	return indexOf(nakshatraNames, english)
}

func indexOf(names []Name, english string) (int, bool) {
	for i, n := range names {
		if n.English == english {
			return i, true
		}
	}
	return -1, false
}
