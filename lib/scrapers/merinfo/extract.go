package merinfo

import (
	"context"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"merinfo-backend/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

// result-container selectors, most specific first. the first selector
// yielding at least one match wins; results are never merged.
var personContainerSelectors = []string{
	`div.mi-text-sm.mi-bg-white.mi-shadow-dark-blue-20.mi-p-0.mi-mb-6.md\:mi-rounded-lg`,
	`div[class*="mi-text-sm"][class*="mi-bg-white"]`,
	`div[class*="result"]`,
	`.person-result`,
	`div:has(a[href*="/person/"])`,
}

var (
	wordChars       = regexp.MustCompile(`\w+`)
	postalCodeText  = regexp.MustCompile(`\d{3}\s*\d{2}\s+\w+`)
	nationalIDText  = regexp.MustCompile(`\d{8}-`)
	leadingNonDigit = regexp.MustCompile(`^([^\d]+)`)
	maleTooltip     = regexp.MustCompile(`(?i)är man`)
	femaleTooltip   = regexp.MustCompile(`(?i)är kvinna`)
	companyTooltip  = regexp.MustCompile(`(?i)bolagsengagemang`)
)

// two-digit birth years at or below the pivot land in the 2000s
const birthYearPivot = 25

func (c *Client) extractPersons(ctx context.Context, doc *goquery.Document) []Person {
	ctx, span := tracer.Start(ctx, "extractPersons")
	defer span.End()

	containers := htmlutil.SelectFirst(ctx, doc, personContainerSelectors)
	if containers == nil {
		slog.WarnContext(ctx, "no person containers found")
		return nil
	}

	var persons []Person
	containers.Each(func(i int, container *goquery.Selection) {
		person, ok := c.extractPerson(container)
		if !ok {
			slog.WarnContext(ctx, "container yielded no name link, skipping", "index", i)
			return
		}
		slog.DebugContext(ctx, "extracted person", "name", person.Name)
		persons = append(persons, person)
	})

	slog.InfoContext(ctx, "extracted persons", "count", len(persons))
	return persons
}

// extractPerson pulls one record out of a result container. A missing
// name link invalidates the container; everything else degrades to
// empty fields.
func (c *Client) extractPerson(container *goquery.Selection) (Person, bool) {
	link := findNameLink(container)
	if link == nil {
		return Person{}, false
	}

	person := Person{
		Name: htmlutil.CleanText(link),
	}

	href := link.AttrOr("href", "")
	if href != "" {
		person.ProfileURL = c.resolveURL(href)
	}

	person.Address, person.Street = extractAddress(container)
	person.NationalID = findSpanText(container, nationalIDText)

	if birthYear, ok := deriveBirthYear(person.NationalID, c.opts.ReferenceYear); ok {
		person.Age = c.opts.ReferenceYear - birthYear
	}

	switch {
	case hasTooltip(container, maleTooltip):
		person.Gender = GenderMale
	case hasTooltip(container, femaleTooltip):
		person.Gender = GenderFemale
	}
	person.HasCompanyLinks = hasTooltip(container, companyTooltip)

	return person, true
}

// findNameLink tries, in priority order: the exact styling class of a
// result card title, any link into a person profile, and finally the
// first link with word characters in its text.
func findNameLink(container *goquery.Selection) *goquery.Selection {
	link := container.Find(`a[class="mi-text-primary hover:mi-underline"]`).First()
	if link.Length() > 0 {
		return link
	}
	link = container.Find(`a[href*="/person/"]`).First()
	if link.Length() > 0 {
		return link
	}

	var found *goquery.Selection
	container.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if wordChars.MatchString(a.Text()) {
			found = a
			return false
		}
		return true
	})
	return found
}

func extractAddress(container *goquery.Selection) (address, street string) {
	addressBlock := container.Find("address.mi-not-italic.mi-flex.mi-flex-col").First()
	if addressBlock.Length() > 0 {
		var parts []string
		addressBlock.Find("span").Each(func(_ int, span *goquery.Selection) {
			text := strings.TrimSpace(span.Text())
			if text != "" {
				parts = append(parts, text)
			}
		})
		address = strings.Join(parts, ", ")
		if len(parts) > 0 {
			groups := leadingNonDigit.FindStringSubmatch(parts[0])
			if len(groups) > 1 {
				street = strings.TrimSpace(groups[1])
			}
		}
	}

	// fallback: any standalone span shaped like "123 45 City"
	if address == "" {
		address = findSpanText(container, postalCodeText)
	}
	return address, street
}

func findSpanText(container *goquery.Selection, pattern *regexp.Regexp) string {
	var found string
	container.Find("span").EachWithBreak(func(_ int, span *goquery.Selection) bool {
		text := strings.TrimSpace(span.Text())
		if pattern.MatchString(text) {
			found = text
			return false
		}
		return true
	})
	return found
}

func hasTooltip(container *goquery.Selection, pattern *regexp.Regexp) bool {
	matched := false
	container.Find("span[data-original-title]").EachWithBreak(func(_ int, span *goquery.Selection) bool {
		if pattern.MatchString(span.AttrOr("data-original-title", "")) {
			matched = true
			return false
		}
		return true
	})
	return matched
}

// deriveBirthYear reads the leading digits of a national id. Years are
// either written out in full (19xx/20xx) or as two digits, decided by
// the pivot. Implausible years (outside 1900..referenceYear) are
// rejected.
func deriveBirthYear(nationalID string, referenceYear int) (int, bool) {
	if len(nationalID) < 8 {
		return 0, false
	}

	var birthYear int
	if strings.HasPrefix(nationalID, "19") || strings.HasPrefix(nationalID, "20") {
		year, err := strconv.Atoi(nationalID[:4])
		if err != nil {
			return 0, false
		}
		birthYear = year
	} else {
		twoDigit, err := strconv.Atoi(nationalID[:2])
		if err != nil {
			return 0, false
		}
		if twoDigit <= birthYearPivot {
			birthYear = 2000 + twoDigit
		} else {
			birthYear = 1900 + twoDigit
		}
	}

	if birthYear < 1900 || birthYear > referenceYear {
		return 0, false
	}
	return birthYear, true
}
