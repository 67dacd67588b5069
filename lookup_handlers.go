package main

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	catalogLocations      = "locations"
	catalogViolationTypes = "violation_types"

	seedResultInserted = "inserted"
	seedResultExisting = "already_seeded"
	seedResultFailed   = "error"
)

type catalogSeed struct {
	name      string
	cacheKey  string
	savedMsg  string
	existsMsg string
	seed      func(ctx context.Context) (int, error)
}

func (a *App) locationSeed() catalogSeed {
	return catalogSeed{
		name:      catalogLocations,
		cacheKey:  locationsCacheKey,
		savedMsg:  "Data Saved to MongoDB Successfully!",
		existsMsg: "Data already exists inside Database!",
		seed: func(ctx context.Context) (int, error) {
			rows, err := locationsSeed()
			if err != nil {
				return 0, err
			}
			return a.store.SeedLocations(ctx, rows)
		},
	}
}

func (a *App) violationTypeSeed() catalogSeed {
	return catalogSeed{
		name:      catalogViolationTypes,
		cacheKey:  violationTypesCacheKey,
		savedMsg:  "Violation Rules Saved!",
		existsMsg: "Data already exists!",
		seed: func(ctx context.Context) (int, error) {
			rows, err := violationTypesSeed()
			if err != nil {
				return 0, err
			}
			return a.store.SeedViolationTypes(ctx, rows)
		},
	}
}

// runSeed inserts the fixed table of s when its collection is empty. It
// returns errAlreadySeeded untouched so callers can tell the cases apart.
func (a *App) runSeed(ctx context.Context, s catalogSeed) (int, error) {
	n, err := s.seed(ctx)
	switch {
	case errors.Is(err, errAlreadySeeded):
		a.metrics.seedRequests.WithLabelValues(s.name, seedResultExisting).Inc()
		return 0, err
	case err != nil:
		a.metrics.seedRequests.WithLabelValues(s.name, seedResultFailed).Inc()
		return 0, err
	}
	a.catalog.invalidate(s.cacheKey)
	a.metrics.seedRequests.WithLabelValues(s.name, seedResultInserted).Inc()
	a.log.Info("catalog seeded", "catalog", s.name, "rows", n, "store", a.store.Name())
	return n, nil
}

func (a *App) seedHandler(s func() catalogSeed) gin.HandlerFunc {
	return func(c *gin.Context) {
		seed := s()
		n, err := a.runSeed(c.Request.Context(), seed)
		if errors.Is(err, errAlreadySeeded) {
			writeAPIError(c, &apiError{Status: http.StatusBadRequest, Code: seedResultExisting, Message: seed.existsMsg})
			return
		}
		if err != nil {
			a.log.Error("catalog seed failed", "catalog", seed.name, "err", err)
			writeAPIError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": seed.savedMsg, "count": n})
	}
}

func (a *App) locationsHandler(c *gin.Context) {
	rows, err := a.catalog.locations(c.Request.Context())
	if err != nil {
		writeAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (a *App) districtsHandler(c *gin.Context) {
	province := strings.TrimSpace(c.Query("province"))
	if province == "" {
		writeAPIError(c, invalidPayload("province is required"))
		return
	}
	rows, err := a.catalog.locations(c.Request.Context())
	if err != nil {
		writeAPIError(c, err)
		return
	}
	districts, ok := districtsOf(rows, province)
	if !ok {
		writeAPIError(c, &apiError{Status: http.StatusNotFound, Code: "not_found", Message: "Unknown province " + province})
		return
	}
	c.JSON(http.StatusOK, gin.H{"province": province, "districts": districts})
}

func (a *App) violationTypesHandler(c *gin.Context) {
	rows, err := a.catalog.violationTypes(c.Request.Context())
	if err != nil {
		writeAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}
