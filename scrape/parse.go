// Copyright 2025 The Gardecm Authors
// SPDX-License-Identifier: Apache-2.0

package scrape

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/jcodagnone/gardecm/utils/htmlutils"
	"golang.org/x/net/html"
)

// Entry is a pharmacy listed on duty for a city.
type Entry struct {
	Name    string `json:"name"`
	Phone   string `json:"phone,omitempty"`
	Quarter string `json:"quarter,omitempty"`
	City    string `json:"city"`
	Region  string `json:"region"`
	Slug    string `json:"slug"`
}

// Result is the outcome of reading one candidate block of a duty page. It is
// either Recognized or Unrecognized.
type Result interface {
	isResult()
}

// Recognized is a block read as a pharmacy.
type Recognized struct {
	Name    string
	Phone   string
	Quarter string
}

// Unrecognized is a candidate block that could not be read as a pharmacy.
type Unrecognized struct {
	Raw    string
	Reason string
}

func (Recognized) isResult()   {}
func (Unrecognized) isResult() {}

// Strategy extracts results from a parsed duty page.
type Strategy interface {
	Name() string
	Extract(doc *html.Node, city City) []Result
}

// Strategies are tried in order; the first one recognizing at least one
// pharmacy wins.
var Strategies = []Strategy{
	pharmaLineStrategy{},
	carouselStrategy{},
	freeTextStrategy{},
}

// Page is what was read from a duty page.
type Page struct {
	Strategy     string
	Entries      []Entry
	Unrecognized []Unrecognized
}

// Parse reads the duty entries of a city page.
func Parse(doc *html.Node, city City) Page {
	var page Page

	for _, s := range Strategies {
		results := s.Extract(doc, city)

		var entries []Entry

		var unrecognized []Unrecognized

		for _, r := range results {
			switch r := r.(type) {
			case Recognized:
				entries = append(entries, Entry{
					Name:    r.Name,
					Phone:   r.Phone,
					Quarter: r.Quarter,
					City:    city.Label(),
					Region:  city.Region,
					Slug:    city.Slug,
				})
			case Unrecognized:
				unrecognized = append(unrecognized, r)
			}
		}

		page.Unrecognized = append(page.Unrecognized, unrecognized...)

		if len(entries) > 0 {
			page.Strategy = s.Name()
			page.Entries = entries

			return page
		}
	}

	return page
}

var (
	phonePrefixRegex   = regexp.MustCompile(`^(\d{3}\s*\d{2}\s*\d{2}\s*\d{2})`)
	phoneAnywhereRegex = regexp.MustCompile(`(\d{3}\s*\d{2}\s*\d{2}\s*\d{2})`)
	trailingPipesRegex = regexp.MustCompile(`[\s|]+$`)
)

// ParseLine reads a line in the pipe separated layout
// "NAME | PHONE | CITY: ADDRESS | PHONE2", or in the inline layout
// "NAME PHONE CITY: ADDRESS".
func ParseLine(line string) (Recognized, bool) {
	var name, phone, address string

	if strings.Contains(line, " | ") {
		parts := strings.Split(line, " | ")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}

		name = parts[0]

		for _, part := range parts[1:] {
			if m := phonePrefixRegex.FindString(part); m != "" && phone == "" {
				phone = strings.TrimSpace(m)
			} else if _, after, found := strings.Cut(part, ":"); found {
				address = strings.TrimSpace(after)
			} else if phone == "" {
				address = part
			}
		}
	} else if loc := phoneAnywhereRegex.FindStringIndex(line); loc != nil {
		phone = strings.TrimSpace(line[loc[0]:loc[1]])
		name = line[:loc[0]]

		remaining := strings.TrimSpace(line[loc[1]:])
		if _, after, found := strings.Cut(remaining, ":"); found {
			address = strings.TrimSpace(after)
		} else {
			address = remaining
		}
	} else {
		name, _, _ = strings.Cut(line, ":")
	}

	name = trailingPipesRegex.ReplaceAllString(name, "")
	name = strings.Join(strings.Fields(name), " ")

	if name == "" {
		return Recognized{}, false
	}

	return Recognized{Name: name, Phone: phone, Quarter: address}, true
}

func isPharmacyLabel(s string) bool {
	upper := strings.ToUpper(s)

	return strings.Contains(upper, "PHARMACIE") || strings.Contains(upper, "PHARMACY")
}

// pharmaLineStrategy reads the current layout, one div per pharmacy with the
// name in a <strong>.
type pharmaLineStrategy struct{}

func (pharmaLineStrategy) Name() string { return "pharma_line" }

func (pharmaLineStrategy) Extract(doc *html.Node, _ City) []Result {
	var results []Result

	items := htmlutils.FindAll(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "div" &&
			(htmlutils.HasClass(n, "ligne_pers") || htmlutils.HasClass(n, "pharma_line"))
	})

	for _, item := range items {
		full, err := htmlutils.Text(item, " | ")
		if err != nil {
			results = append(results, Unrecognized{Raw: full, Reason: err.Error()})

			continue
		}

		strong := htmlutils.FindAll(item, htmlutils.Element("strong"))
		if len(strong) == 0 {
			results = append(results, Unrecognized{Raw: full, Reason: "no name element"})

			continue
		}

		name, _ := htmlutils.Text(strong[0], " ")
		if !isPharmacyLabel(name) {
			results = append(results, Unrecognized{Raw: full, Reason: "not a pharmacy"})

			continue
		}

		if r, ok := ParseLine(full); ok {
			results = append(results, r)
		} else {
			results = append(results, Unrecognized{Raw: full, Reason: "empty name"})
		}
	}

	return results
}

// carouselStrategy reads the legacy layout, one pharmacy per line inside
// carousel items.
type carouselStrategy struct{}

func (carouselStrategy) Name() string { return "carousel" }

func (carouselStrategy) Extract(doc *html.Node, _ City) []Result {
	var results []Result

	items := htmlutils.FindAll(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "div" && htmlutils.HasClass(n, "carousel-item")
	})

	for _, item := range items {
		lines, err := htmlutils.Lines(item)
		if err != nil {
			results = append(results, Unrecognized{Reason: err.Error()})

			continue
		}

		for _, line := range lines {
			upper := strings.ToUpper(line)
			if !strings.HasPrefix(upper, "PHARMACIE") && !strings.HasPrefix(upper, "PHARMACY") {
				continue
			}

			if r, ok := ParseLine(line); ok {
				results = append(results, r)
			} else {
				results = append(results, Unrecognized{Raw: line, Reason: "empty name"})
			}
		}
	}

	return results
}

var (
	frenchNameRegex  = regexp.MustCompile(`(?i)(PHARMACIE\s+[A-Z\s'\-ÉÈÊËÀÂÄÙÛÜÔÎÏÇ]{3,50})(.*)`)
	englishNameRegex = regexp.MustCompile(`(?i)([A-Z\s'\-]{3,30}\s+PHARMACY)(.*)`)
	frenchPrefix     = regexp.MustCompile(`(?i)^\s*PHARMACIE\s+`)
	englishPrefix    = regexp.MustCompile(`(?i)^\s*PHARMACY\s+`)
	englishSuffix    = regexp.MustCompile(`(?i)\s+PHARMACY\s*$`)
	loosePhoneRegex  = regexp.MustCompile(`(\d{2,3}[\s.]?\d{2}[\s.]?\d{2}[\s.]?\d{2})`)
	separatorsRegex  = regexp.MustCompile(`[:,\-]`)
)

// headings and banners that look like pharmacy names.
var blacklist = []string{
	"PHARMACIE DE GARDE",
	"PHARMACIE DE NUIT",
	"PHARMACIES DE GARDE",
	"PAS SUR NOTRE LISTING",
	"NOTRE LISTING",
	"VOTRE PHARMACIE",
	"NOUVELLE PHARMACIE",
	"PHARMACY ON DUTY",
	"DUTY PHARMACY",
}

func blacklisted(s string) bool {
	upper := strings.ToUpper(s)
	for _, bad := range blacklist {
		if strings.Contains(upper, bad) {
			return true
		}
	}

	return false
}

// freeTextStrategy scans the page text for French and English pharmacy names.
type freeTextStrategy struct{}

func (freeTextStrategy) Name() string { return "free_text" }

func (freeTextStrategy) Extract(doc *html.Node, city City) []Result {
	lines, err := htmlutils.Lines(doc)
	if err != nil {
		return []Result{Unrecognized{Reason: err.Error()}}
	}

	var results []Result

	seen := make(map[string]bool)
	cityName := cityNameRegex(city)

	for _, line := range lines {
		m := frenchNameRegex.FindStringSubmatch(line)

		var bare string
		if m != nil {
			bare = frenchPrefix.ReplaceAllString(m[1], "")
		} else if m = englishNameRegex.FindStringSubmatch(line); m != nil {
			bare = englishSuffix.ReplaceAllString(m[1], "")
			bare = englishPrefix.ReplaceAllString(bare, "")
		} else {
			continue
		}

		raw := strings.Join(strings.Fields(m[1]), " ")
		bare = strings.TrimSpace(bare)

		switch {
		case blacklisted(raw) || blacklisted(bare):
			results = append(results, Unrecognized{Raw: line, Reason: "heading"})
		case utf8.RuneCountInString(bare) < 3:
			results = append(results, Unrecognized{Raw: line, Reason: "name too short"})
		case seen[raw]:
		default:
			seen[raw] = true
			results = append(results, Recognized{
				Name:    raw,
				Phone:   freeTextPhone(m[2]),
				Quarter: freeTextQuarter(m[2], cityName),
			})
		}
	}

	return results
}

func freeTextPhone(rest string) string {
	return loosePhoneRegex.FindString(rest)
}

func cityNameRegex(city City) *regexp.Regexp {
	return regexp.MustCompile("(?i)" + regexp.QuoteMeta(strings.ReplaceAll(city.Slug, "-", " ")))
}

func freeTextQuarter(rest string, cityName *regexp.Regexp) string {
	if phone := loosePhoneRegex.FindString(rest); phone != "" {
		rest = strings.Replace(rest, phone, "", 1)
	}

	rest = cityName.ReplaceAllString(rest, "")
	rest = separatorsRegex.ReplaceAllString(rest, " ")

	return strings.Join(strings.Fields(rest), " ")
}
