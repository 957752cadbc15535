package handlers

import (
	"encoding/json"
	"net/http"
	"sg-explorer/geo"
	"sg-explorer/utils/errors"
	"sg-explorer/validation"
	"strconv"
	"strings"
)

const maxBodyBytes = 1 << 20

// decodeBody reads a JSON body into dst and validates it.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.ErrInvalidInput.WithDetails("malformed JSON body: %v", err)
	}
	return validation.Struct(dst)
}

func queryFloat(r *http.Request, name string) (float64, bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false, errors.ErrInvalidInput.WithDetails("%s must be a number", name)
	}
	return v, true, nil
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.ErrInvalidInput.WithDetails("%s must be an integer", name)
	}
	return v, nil
}

// queryPoint reads an optional lat/lon pair. Both or neither must be given.
func queryPoint(r *http.Request) (*geo.Point, error) {
	lat, hasLat, err := queryFloat(r, "lat")
	if err != nil {
		return nil, err
	}
	lon, hasLon, err := queryFloat(r, "lon")
	if err != nil {
		return nil, err
	}
	if !hasLat && !hasLon {
		return nil, nil
	}
	if hasLat != hasLon {
		return nil, errors.ErrInvalidInput.WithDetails("lat and lon must be given together")
	}
	if !geo.ValidCoordinates(lat, lon) {
		return nil, errors.ErrInvalidInput.WithDetails("invalid coordinates: lat=%f, lon=%f", lat, lon)
	}
	return &geo.Point{Lat: lat, Lon: lon}, nil
}

// queryList splits a comma separated parameter, dropping blanks.
func queryList(r *http.Request, name string) []string {
	var out []string
	for _, v := range r.URL.Query()[name] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
