package models

import "time"

// RestaurantReport is one restaurant's assembled section of the daily message.
type RestaurantReport struct {
	Name   string
	Text   string
	Result MenuResult
}

// DailyReport is the output of one pipeline run.
type DailyReport struct {
	Day         string
	Date        time.Time
	Restaurants []RestaurantReport
}

// Restaurant returns the named section, if present.
func (r *DailyReport) Restaurant(name string) (RestaurantReport, bool) {
	for _, rr := range r.Restaurants {
		if rr.Name == name {
			return rr, true
		}
	}
	return RestaurantReport{}, false
}
