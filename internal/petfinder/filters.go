package petfinder

// OrganizationFilter narrows an organization listing. At most one field is
// sent upstream; State wins over Location.
type OrganizationFilter struct {
	Location string
	State    string
}

// Active returns the single query parameter that will be applied.
func (f OrganizationFilter) Active() (key, value string, ok bool) {
	switch {
	case f.State != "":
		return "state", f.State, true
	case f.Location != "":
		return "location", f.Location, true
	}
	return "", "", false
}

// AnimalFilter narrows an animal listing. At most one field is sent upstream,
// in the order Gender, Name, Type.
type AnimalFilter struct {
	Name   string
	Type   string
	Gender string
}

func (f AnimalFilter) Active() (key, value string, ok bool) {
	switch {
	case f.Gender != "":
		return "gender", f.Gender, true
	case f.Name != "":
		return "name", f.Name, true
	case f.Type != "":
		return "type", f.Type, true
	}
	return "", "", false
}

// States lists the US state codes offered by the organization filter.
var States = []string{
	"AL", "AK", "AZ", "AR", "CA", "CO", "CT", "DC", "DE", "FL", "GA",
	"HI", "ID", "IL", "IN", "IA", "KS", "KY", "LA", "ME", "MD",
	"MA", "MI", "MN", "MS", "MO", "MT", "NE", "NV", "NH", "NJ",
	"NM", "NY", "NC", "ND", "OH", "OK", "OR", "PA", "RI", "SC",
	"SD", "TN", "TX", "UT", "VT", "VA", "WA", "WV", "WI", "WY",
}
