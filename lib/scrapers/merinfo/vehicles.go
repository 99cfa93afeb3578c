package merinfo

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"merinfo-backend/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

var vehicleContainerSelectors = []string{
	`div.vue-vehicle-table`,
	`div[class*="vehicle"]`,
	`div:has(table:has(th:contains("Märke")))`,
	`.vehicle-info`,
}

var (
	parenthesizedYear = regexp.MustCompile(`\((\d{4})\)`)
	bareYear          = regexp.MustCompile(`^\d{4}$`)
)

// vehicle categories checked in order; keyword matching is
// case-insensitive substring matching against make/model
var vehicleCategories = []struct {
	vehicleType VehicleType
	keywords    []string
}{
	{VehicleMotorcycle, []string{"motorcykel", "mc", "moped", "yamaha", "honda", "kawasaki", "suzuki", "harley"}},
	{VehicleTruck, []string{"lastbil", "truck", "scania", "volvo fl", "volvo fh", "man tg", "mercedes actros"}},
	{VehicleTrailer, []string{"släpvagn", "trailer", "kärra", "släp"}},
	{VehicleMotorhome, []string{"husbil", "camping", "motorhome", "autocruiser", "dethleffs"}},
	{VehicleTractor, []string{"traktor", "john deere", "massey ferguson", "valtra"}},
	{VehicleBus, []string{"buss", "omnibus", "coach"}},
}

// ClassifyVehicleType buckets a make/model string into a vehicle type,
// defaulting to Car when no keyword matches.
func ClassifyVehicleType(makeModel string) VehicleType {
	lowered := strings.ToLower(makeModel)
	for _, category := range vehicleCategories {
		for _, keyword := range category.keywords {
			if strings.Contains(lowered, keyword) {
				return category.vehicleType
			}
		}
	}
	return VehicleCar
}

func extractVehicles(ctx context.Context, doc *goquery.Document) []Vehicle {
	ctx, span := tracer.Start(ctx, "extractVehicles")
	defer span.End()

	matches := htmlutil.SelectFirst(ctx, doc, vehicleContainerSelectors)
	if matches == nil {
		slog.WarnContext(ctx, "no vehicle container found")
		return nil
	}
	container := matches.First()

	table := container.Find("table").First()
	if table.Length() == 0 {
		slog.WarnContext(ctx, "no vehicle table found")
		return nil
	}
	tbody := table.Find("tbody").First()
	if tbody.Length() == 0 {
		slog.WarnContext(ctx, "vehicle table has no body")
		return nil
	}

	var vehicles []Vehicle
	tbody.Find("tr").Each(func(i int, row *goquery.Selection) {
		vehicle, ok := extractVehicleRow(row)
		if !ok {
			slog.DebugContext(ctx, "row yielded no make/model, skipping", "row", i)
			return
		}
		slog.DebugContext(
			ctx, "extracted vehicle",
			"make_model", vehicle.MakeModel,
			"year", vehicle.Year,
			"owner", vehicle.Owner,
		)
		vehicles = append(vehicles, vehicle)
	})

	slog.InfoContext(ctx, "extracted vehicles", "count", len(vehicles))
	return vehicles
}

func extractVehicleRow(row *goquery.Selection) (Vehicle, bool) {
	cells := row.Find("td")
	cellCount := cells.Length()
	if cellCount < 1 {
		return Vehicle{}, false
	}
	firstCell := cells.Eq(0)

	makeModel := strings.TrimSpace(firstCell.Find("span").First().Text())
	if makeModel == "" {
		return Vehicle{}, false
	}

	year := ""
	firstCell.Find("span").EachWithBreak(func(_ int, span *goquery.Selection) bool {
		groups := parenthesizedYear.FindStringSubmatch(span.Text())
		if len(groups) > 1 {
			year = groups[1]
			return false
		}
		return true
	})
	if year == "" && cellCount >= 2 {
		lastText := strings.TrimSpace(cells.Eq(cellCount - 1).Text())
		if bareYear.MatchString(lastText) {
			year = lastText
		}
	}

	owner := ""
	if cellCount >= 3 {
		owner = strings.TrimSpace(cells.Eq(cellCount - 2).Text())
	} else {
		owner = strings.TrimSpace(firstCell.Find("dd").First().Text())
	}

	return Vehicle{
		MakeModel: makeModel,
		Year:      year,
		Owner:     owner,
		Type:      ClassifyVehicleType(makeModel),
	}, true
}
