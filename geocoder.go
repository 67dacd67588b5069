package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultNominatimBaseURL = "https://nominatim.openstreetmap.org"
	nominatimMinInterval    = time.Second
	geocodeTimeout          = 10 * time.Second
)

// GeocodeResult is the place found for a coordinate pair.
type GeocodeResult struct {
	Label    string
	State    string
	District string
	City     string
}

// Geocoder abstraction for reverse lookups
type Geocoder interface {
	Geocode(ctx context.Context, lat, lng float64) (*GeocodeResult, error)
}

// NominatimGeocoder implements Geocoder using OSM Nominatim
// CAUTION: Requires User-Agent and has strict rate limits (1 req/sec)
type NominatimGeocoder struct {
	BaseURL   string
	UserAgent string
	Client    *http.Client

	limiter *rate.Limiter
}

// newNominatimGeocoder returns a geocoder that spaces its calls by
// nominatimMinInterval.
func newNominatimGeocoder(baseURL, userAgent string, client *http.Client) *NominatimGeocoder {
	return &NominatimGeocoder{
		BaseURL:   baseURL,
		UserAgent: userAgent,
		Client:    client,
		limiter:   rate.NewLimiter(rate.Every(nominatimMinInterval), 1),
	}
}

func (g *NominatimGeocoder) Geocode(ctx context.Context, lat, lng float64) (*GeocodeResult, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	base := strings.TrimRight(g.BaseURL, "/")
	if base == "" {
		base = defaultNominatimBaseURL
	}
	query := url.Values{}
	query.Set("format", "jsonv2")
	query.Set("lat", fmt.Sprintf("%f", lat))
	query.Set("lon", fmt.Sprintf("%f", lng))
	query.Set("addressdetails", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/reverse?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", g.UserAgent)
	req.Header.Set("Accept-Language", "en")

	resp, err := g.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("nominatim error: %d", resp.StatusCode)
	}

	var data struct {
		DisplayName string `json:"display_name"`
		Error       string `json:"error"`
		Address     struct {
			City          string `json:"city"`
			Town          string `json:"town"`
			Village       string `json:"village"`
			County        string `json:"county"`
			StateDistrict string `json:"state_district"`
			State         string `json:"state"`
		} `json:"address"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, err
	}
	if data.Error != "" || strings.TrimSpace(data.DisplayName) == "" {
		return nil, nil
	}

	city := data.Address.City
	if city == "" {
		city = data.Address.Town
	}
	if city == "" {
		city = data.Address.Village
	}
	district := data.Address.StateDistrict
	if district == "" {
		district = data.Address.County
	}

	return &GeocodeResult{
		Label:    strings.TrimSpace(data.DisplayName),
		State:    data.Address.State,
		District: district,
		City:     city,
	}, nil
}

// coordinateLabel is the location string used when no place name is known.
func coordinateLabel(lat, lng float64) string {
	return "Lat: " + strconv.FormatFloat(lat, 'f', -1, 64) + ", Lon: " + strconv.FormatFloat(lng, 'f', -1, 64)
}
