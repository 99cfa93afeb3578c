package merinfo

// Gender as displayed on a person's search-result card.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

type VehicleType string

const (
	VehicleMotorcycle VehicleType = "Motorcycle"
	VehicleTruck      VehicleType = "Truck"
	VehicleTrailer    VehicleType = "Trailer"
	VehicleMotorhome  VehicleType = "Motorhome"
	VehicleTractor    VehicleType = "Tractor"
	VehicleBus        VehicleType = "Bus"
	VehicleCar        VehicleType = "Car"
)

// Person is one extracted search-result record. Values are set once
// during extraction and never mutated afterwards.
type Person struct {
	Name       string `json:"name"`
	ProfileURL string `json:"profile_url"`
	Address    string `json:"address"`
	// leading non-digit portion of the first address segment
	Street     string `json:"street"`
	NationalID string `json:"national_id"`
	// 0 when the national id gave no plausible birth year
	Age             int    `json:"age,omitempty"`
	Gender          Gender `json:"gender,omitempty"`
	HasCompanyLinks bool   `json:"has_company_links"`
}

// Vehicle is one row of a profile page's vehicle table. Year stays a
// string since the site formats it inconsistently.
type Vehicle struct {
	MakeModel          string      `json:"make_model"`
	Year               string      `json:"year"`
	Owner              string      `json:"owner"`
	Type               VehicleType `json:"vehicle_type"`
	RegistrationNumber string      `json:"registration_number,omitempty"`
}

// Query is the partial identity input a search starts from. Zero-valued
// fields are treated as absent.
type Query struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	City      string `json:"city"`
	Street    string `json:"street"`
	Age       int    `json:"age"`
}

// Outcome is the final verdict of one SearchPerson call.
type Outcome struct {
	Success        bool      `json:"success"`
	Persons        []Person  `json:"persons"`
	Vehicles       []Vehicle `json:"vehicles"`
	QualityScore   float64   `json:"quality_score"`
	ErrorMessage   string    `json:"error_message"`
	SearchStrategy string    `json:"search_strategy"`
	ResponseTime   float64   `json:"response_time"`
	Suggestions    []string  `json:"suggestions"`
}
