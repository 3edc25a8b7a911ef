package domain

// TripRequest holds the parameters of a trip-planning call.
type TripRequest struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	Days        int    `json:"days"`
}

// ForecastDay is the expected condition for one trip day (1-based).
type ForecastDay struct {
	Day     int    `json:"day"`
	Weather string `json:"weather"`
}

// Permits describes permit requirements for a trip.
type Permits struct {
	Required bool   `json:"required"`
	Details  string `json:"details"`
}

// TripPlan is the merged output of the four producers.
type TripPlan struct {
	Route    []string      `json:"route"`
	GearList []string      `json:"gear_list"`
	Forecast []ForecastDay `json:"forecast"`
	Permits  Permits       `json:"permits"`
}

// Producer names, as reported in errors, metrics and GET /agents.
const (
	ProducerRoute   = "route_planner"
	ProducerGear    = "gear_agent"
	ProducerWeather = "weather_agent"
	ProducerPermits = "permits_agent"
)

// Producers lists the producer names in a stable order.
var Producers = []string{ProducerRoute, ProducerGear, ProducerWeather, ProducerPermits}
