package main

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

type locateResponse struct {
	Label    string `json:"label"`
	Province string `json:"province"`
	District string `json:"district"`
}

func (a *App) locateHandler(c *gin.Context) {
	lat, errLat := strconv.ParseFloat(strings.TrimSpace(c.Query("lat")), 64)
	lon, errLon := strconv.ParseFloat(strings.TrimSpace(c.Query("lon")), 64)
	if errLat != nil || errLon != nil || !validCoordinates(lat, lon) {
		writeAPIError(c, &apiError{Status: http.StatusBadRequest, Code: "invalid_location", Message: "lat and lon must be valid coordinates"})
		return
	}

	resp, err := a.locate(c.Request.Context(), lat, lon)
	if err != nil {
		writeAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// locate resolves a coordinate pair to a display label and the catalog
// province and district it falls in. Geocoder failures degrade to the
// coordinate label; only catalog errors are returned.
func (a *App) locate(ctx context.Context, lat, lon float64) (locateResponse, error) {
	resp := locateResponse{Label: coordinateLabel(lat, lon)}

	var text string
	if a.geocoder != nil {
		geoCtx, cancel := context.WithTimeout(ctx, geocodeTimeout)
		result, err := a.geocoder.Geocode(geoCtx, lat, lon)
		cancel()
		switch {
		case err != nil:
			a.log.Warn("reverse geocoding failed", "lat", lat, "lon", lon, "err", err)
		case result != nil && result.Label != "":
			resp.Label = result.Label
			text = strings.Join([]string{result.Label, result.District, result.City, result.State}, ", ")
		}
	}
	if text == "" {
		return resp, nil
	}

	locations, err := a.catalog.locations(ctx)
	if err != nil {
		return resp, err
	}
	class := classifyReport(ReportForm{CurrentLocation: text}, locations, nil)
	resp.Province, resp.District = class.Province, class.District
	return resp, nil
}
