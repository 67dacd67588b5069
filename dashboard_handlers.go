package main

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kavishka-rasanjana/Transit-Guard/internal/dashboard"
)

const (
	defaultTrendMonths = 7
	maxTrendMonths     = 24
	defaultRecentLimit = 5
	maxRecentLimit     = 50
)

// boundedIntQuery reads an integer query parameter, falling back to def when
// absent and rejecting values outside [1, upper].
func boundedIntQuery(c *gin.Context, key string, def, upper int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 || v > upper {
		return 0, invalidPayload(key + " must be an integer between 1 and " + strconv.Itoa(upper))
	}
	return v, nil
}

// bindScope reads the range, from and to query parameters.
func (a *App) bindScope(c *gin.Context) (complaintScope, error) {
	var w dashboard.Window
	if err := c.ShouldBindQuery(&w); err != nil {
		return complaintScope{}, invalidPayload(err.Error())
	}
	from, to, err := w.Bounds(a.now())
	if err != nil {
		return complaintScope{}, invalidPayload(err.Error())
	}
	return complaintScope{from: from, to: to}, nil
}

// scopedComplaints loads the data set narrowed by the request's date window.
func (a *App) scopedComplaints(c *gin.Context) ([]dashboard.Complaint, bool) {
	scope, err := a.bindScope(c)
	if err != nil {
		writeAPIError(c, err)
		return nil, false
	}
	complaints, err := a.complaints(c.Request.Context(), scope)
	if err != nil {
		writeAPIError(c, err)
		return nil, false
	}
	return complaints, true
}

func (a *App) dashboardStatsHandler(c *gin.Context) {
	complaints, ok := a.scopedComplaints(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, dashboard.ComputeStats(complaints))
}

func (a *App) dashboardProvincesHandler(c *gin.Context) {
	complaints, ok := a.scopedComplaints(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, dashboard.ComputeProvinceStats(complaints))
}

func (a *App) dashboardCategoriesHandler(c *gin.Context) {
	complaints, ok := a.scopedComplaints(c)
	if !ok {
		return
	}
	rows, err := a.categoryBreakdown(c.Request.Context(), complaints)
	if err != nil {
		writeAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// categoryBreakdown counts live complaints against the stored violation
// catalog and mock complaints against the dashboard's own category list.
func (a *App) categoryBreakdown(ctx context.Context, complaints []dashboard.Complaint) ([]dashboard.CategoryCount, error) {
	if a.cfg.DashboardSource == dashboardSourceMock {
		return dashboard.ComputeCategoryBreakdown(complaints), nil
	}
	types, err := a.catalog.violationTypes(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(types))
	priorities := make(map[string]string, len(types))
	for _, vt := range types {
		names = append(names, vt.Name)
		priorities[vt.Name] = dashboard.PriorityLabel(vt.PriorityScore)
	}
	return dashboard.ComputeCategoryBreakdownFor(complaints, names, priorities), nil
}

func (a *App) dashboardTrendHandler(c *gin.Context) {
	months, err := boundedIntQuery(c, "months", defaultTrendMonths, maxTrendMonths)
	if err != nil {
		writeAPIError(c, err)
		return
	}
	complaints, ok := a.scopedComplaints(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, dashboard.ComputeMonthlyTrend(complaints, months, a.now()))
}

func (a *App) dashboardRecentHandler(c *gin.Context) {
	limit, err := boundedIntQuery(c, "limit", defaultRecentLimit, maxRecentLimit)
	if err != nil {
		writeAPIError(c, err)
		return
	}
	complaints, ok := a.scopedComplaints(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, dashboard.Recent(complaints, limit))
}

// dashboardMapHandler applies the map filter itself so the GPS total still
// counts every complaint in the window.
func (a *App) dashboardMapHandler(c *gin.Context) {
	var f dashboard.Filter
	if err := c.ShouldBindQuery(&f); err != nil {
		writeAPIError(c, invalidPayload(err.Error()))
		return
	}
	complaints, ok := a.scopedComplaints(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, dashboard.BuildMapView(complaints, f))
}
