package main

import "fmt"

// buildReportFilters renders the ListReports filter keys as AND clauses over
// violation_reports with positional arguments.
func buildReportFilters(filters map[string]any) (string, []any) {
	whereClause := ""
	args := make([]any, 0)
	argIndex := 1

	if status := filterString(filters, "status"); status != "" {
		whereClause += fmt.Sprintf(" AND violation_reports.status = $%d", argIndex)
		args = append(args, status)
		argIndex++
	}
	if priority, ok := filterInt(filters, "priority"); ok {
		whereClause += fmt.Sprintf(" AND violation_reports.priority = $%d", argIndex)
		args = append(args, priority)
		argIndex++
	}
	if province := filterString(filters, "province"); province != "" {
		whereClause += fmt.Sprintf(" AND LOWER(violation_reports.province) = LOWER($%d)", argIndex)
		args = append(args, province)
		argIndex++
	}
	if district := filterString(filters, "district"); district != "" {
		whereClause += fmt.Sprintf(" AND LOWER(violation_reports.district) = LOWER($%d)", argIndex)
		args = append(args, district)
		argIndex++
	}
	if violationType := filterString(filters, "violation_type"); violationType != "" {
		whereClause += fmt.Sprintf(" AND violation_reports.violation_type = $%d", argIndex)
		args = append(args, violationType)
		argIndex++
	}
	if from, ok := filterTime(filters, "from"); ok {
		whereClause += fmt.Sprintf(" AND violation_reports.reported_at >= $%d", argIndex)
		args = append(args, from)
		argIndex++
	}
	if to, ok := filterTime(filters, "to"); ok {
		whereClause += fmt.Sprintf(" AND violation_reports.reported_at <= $%d", argIndex)
		args = append(args, to)
		argIndex++
	}

	return whereClause, args
}
