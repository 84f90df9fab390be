package importer

import "strings"

type osisBook struct {
	ID   string
	Name string
}

// canonicalBooks lists the protestant canon in order; the index plus one is
// the book number
var canonicalBooks = []osisBook{
	{"Gen", "Genesis"}, {"Exod", "Exodus"}, {"Lev", "Leviticus"}, {"Num", "Numbers"},
	{"Deut", "Deuteronomy"}, {"Josh", "Joshua"}, {"Judg", "Judges"}, {"Ruth", "Ruth"},
	{"1Sam", "1 Samuel"}, {"2Sam", "2 Samuel"}, {"1Kgs", "1 Kings"}, {"2Kgs", "2 Kings"},
	{"1Chr", "1 Chronicles"}, {"2Chr", "2 Chronicles"}, {"Ezra", "Ezra"}, {"Neh", "Nehemiah"},
	{"Esth", "Esther"}, {"Job", "Job"}, {"Ps", "Psalms"}, {"Prov", "Proverbs"},
	{"Eccl", "Ecclesiastes"}, {"Song", "Song of Solomon"}, {"Isa", "Isaiah"}, {"Jer", "Jeremiah"},
	{"Lam", "Lamentations"}, {"Ezek", "Ezekiel"}, {"Dan", "Daniel"}, {"Hos", "Hosea"},
	{"Joel", "Joel"}, {"Amos", "Amos"}, {"Obad", "Obadiah"}, {"Jonah", "Jonah"},
	{"Mic", "Micah"}, {"Nah", "Nahum"}, {"Hab", "Habakkuk"}, {"Zeph", "Zephaniah"},
	{"Hag", "Haggai"}, {"Zech", "Zechariah"}, {"Mal", "Malachi"},
	{"Matt", "Matthew"}, {"Mark", "Mark"}, {"Luke", "Luke"}, {"John", "John"},
	{"Acts", "Acts"}, {"Rom", "Romans"}, {"1Cor", "1 Corinthians"}, {"2Cor", "2 Corinthians"},
	{"Gal", "Galatians"}, {"Eph", "Ephesians"}, {"Phil", "Philippians"}, {"Col", "Colossians"},
	{"1Thess", "1 Thessalonians"}, {"2Thess", "2 Thessalonians"}, {"1Tim", "1 Timothy"},
	{"2Tim", "2 Timothy"}, {"Titus", "Titus"}, {"Phlm", "Philemon"}, {"Heb", "Hebrews"},
	{"Jas", "James"}, {"1Pet", "1 Peter"}, {"2Pet", "2 Peter"}, {"1John", "1 John"},
	{"2John", "2 John"}, {"3John", "3 John"}, {"Jude", "Jude"}, {"Rev", "Revelation"},
}

var booksByOSIS = func() map[string]int {
	m := make(map[string]int, len(canonicalBooks))
	for i, b := range canonicalBooks {
		m[strings.ToLower(b.ID)] = i + 1
	}
	return m
}()

// BookNumber returns the canonical number for an OSIS book id
func BookNumber(osisID string) (int, bool) {
	n, ok := booksByOSIS[strings.ToLower(osisID)]
	return n, ok
}

// BookName returns the English name of a canonical book number
func BookName(number int) string {
	if number < 1 || number > len(canonicalBooks) {
		return ""
	}
	return canonicalBooks[number-1].Name
}
