package memory

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Locale selects a pattern table. Extraction rules are plain data so locales
// compose instead of redefining the extraction logic per language.
type Locale string

const (
	LocalePersian Locale = "fa"
	LocaleEnglish Locale = "en"
)

// ruleTable holds the ordered pattern rules for one locale. Within a
// category the first matching rule wins; categories are independent.
type ruleTable struct {
	firstName []*regexp.Regexp
	lastName  []*regexp.Regexp
	likes     []*regexp.Regexp
}

// Persian patterns match self-disclosures like "اسمم علی است",
// "فامیلی من رضایی هست" and "دوست دارم فوتبال". The capture classes accept
// Persian and Latin letters because mixed-script names are common.
var persianTable = ruleTable{
	firstName: []*regexp.Regexp{
		regexp.MustCompile(`(?:اسم(?:\s*من|م)?|نام(?:\s*من|م)?)\s*(?:هست(?:م)?|:|=)?\s*([آ-یA-Za-z]{2,30})`),
	},
	lastName: []*regexp.Regexp{
		regexp.MustCompile(`(?:اسم\s*فامیلی(?:\s*من)?|نام\s*خانوادگی(?:\s*من)?|فامیلی(?:\s*من)?)\s*(?:هست(?:م)?|:|=)?\s*([آ-یA-Za-z]{2,40})`),
	},
	likes: []*regexp.Regexp{
		regexp.MustCompile(`(?:علاقه(?:\s*من)?|دوست\s*دارم(?:\s*به)?|علاقه\s*دارم(?:\s*به)?)\s*(?::|=|-)?\s*([^.!?،]{2,80})`),
	},
}

var englishTable = ruleTable{
	firstName: []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:my\s+name|first\s+name)\s*(?:is|:|=)\s*([A-Za-z]{2,30})`),
	},
	lastName: []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:my\s+last\s+name|last\s+name)\s*(?:is|:|=)\s*([A-Za-z]{2,40})`),
	},
	likes: []*regexp.Regexp{
		regexp.MustCompile(`(?i)i\s+(?:like|love)\s*(?::|=|-)?\s*([^.!?,]{2,80})`),
	},
}

var tables = map[Locale]ruleTable{
	LocalePersian: persianTable,
	LocaleEnglish: englishTable,
}

// Rules is a merged, ordered rule set ready for extraction.
type Rules struct {
	table ruleTable
}

// RulesFor merges the pattern tables for the given locales, in order.
// Earlier locales take precedence within each category.
func RulesFor(locales ...Locale) Rules {
	var merged ruleTable
	for _, loc := range locales {
		t, ok := tables[loc]
		if !ok {
			continue
		}
		merged.firstName = append(merged.firstName, t.firstName...)
		merged.lastName = append(merged.lastName, t.lastName...)
		merged.likes = append(merged.likes, t.likes...)
	}
	return Rules{table: merged}
}

// Bilingual is the authoritative default rule set: Persian patterns first,
// then English.
var Bilingual = RulesFor(LocalePersian, LocaleEnglish)

var whitespaceRE = regexp.MustCompile(`\s+`)

// NormalizeText maps Arabic yeh/kaf variants to their Persian forms,
// collapses whitespace runs and trims. Applied before both extraction and
// fact storage so equal statements compare equal.
func NormalizeText(text string) string {
	text = strings.ReplaceAll(text, "ي", "ی") // Arabic yeh → Persian yeh
	text = strings.ReplaceAll(text, "ك", "ک") // Arabic kaf → Persian kaf
	return strings.TrimSpace(whitespaceRE.ReplaceAllString(text, " "))
}

// likeTrimCutset strips sentence punctuation (Latin and Persian) around a
// captured preference.
const likeTrimCutset = " .,!?؟،"

// Extract scans a message for self-disclosed facts: at most one first name,
// one last name and one liked thing per call. Extraction is conservative —
// a value is only ever a substring of the normalized input, never invented.
func (r Rules) Extract(text string) []Fact {
	t := NormalizeText(text)
	var facts []Fact

	for _, re := range r.table.firstName {
		if m := re.FindStringSubmatch(t); m != nil {
			facts = append(facts, Fact{Key: KeyFirstName, Value: strings.TrimSpace(m[1])})
			break
		}
	}

	for _, re := range r.table.lastName {
		if m := re.FindStringSubmatch(t); m != nil {
			facts = append(facts, Fact{Key: KeyLastName, Value: strings.TrimSpace(m[1])})
			break
		}
	}

	for _, re := range r.table.likes {
		if m := re.FindStringSubmatch(t); m != nil {
			value := strings.Trim(m[1], likeTrimCutset)
			if utf8.RuneCountInString(value) >= 2 {
				facts = append(facts, Fact{Key: KeyLikes, Value: value})
			}
			break
		}
	}

	return facts
}

// Extract applies the default bilingual rule set.
func Extract(text string) []Fact {
	return Bilingual.Extract(text)
}
