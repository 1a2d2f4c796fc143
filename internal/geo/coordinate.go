// Package geo parses GPS coordinates typed into the scheduling form.
package geo

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/starford/headstone/internal/apperr"
)

// Axis selects latitude or longitude bounds and wording.
type Axis int

const (
	Latitude Axis = iota
	Longitude
)

func (a Axis) noun() string {
	if a == Latitude {
		return "latitude"
	}
	return "longitude"
}

func (a Axis) limit() float64 {
	if a == Latitude {
		return 90
	}
	return 180
}

var numberPattern = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// ParseCoordinate accepts signed decimal degrees with an optional degree sign
// and hemisphere letter, e.g. "40.730610° N" or "73.9 W". S and W force the
// value negative; N and E force it positive. The result is rounded to six
// decimal places.
func ParseCoordinate(raw string, axis Axis) (float64, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return 0, apperr.Invalid(fmt.Sprintf("Missing %s.", axis.noun()))
	}

	m := numberPattern.FindString(s)
	if m == "" {
		return 0, apperr.Invalid(fmt.Sprintf("Invalid %s format.", axis.noun()))
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil || math.IsInf(v, 0) {
		return 0, apperr.Invalid(fmt.Sprintf("Invalid %s value.", axis.noun()))
	}

	if strings.ContainsAny(s, "SW") {
		v = -math.Abs(v)
	}
	if strings.ContainsAny(s, "NE") {
		v = math.Abs(v)
	}

	lim := axis.limit()
	if v < -lim || v > lim {
		noun := axis.noun()
		return 0, apperr.Invalid(fmt.Sprintf("%s must be between %g and %g.",
			strings.ToUpper(noun[:1])+noun[1:], -lim, lim))
	}
	return math.Round(v*1e6) / 1e6, nil
}

// Point is a validated latitude/longitude pair.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// ParsePoint parses both halves of a coordinate pair.
func ParsePoint(lat, lng string) (Point, error) {
	la, err := ParseCoordinate(lat, Latitude)
	if err != nil {
		return Point{}, err
	}
	lo, err := ParseCoordinate(lng, Longitude)
	if err != nil {
		return Point{}, err
	}
	return Point{Lat: la, Lng: lo}, nil
}
