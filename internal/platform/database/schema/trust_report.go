// Copyright (c) 2026 Mirava. All rights reserved.
// Author: an.vubui.dev@gmail.com

package schema

// ReportTable represents the 'trust.report' table
type ReportTable struct {
	Table      string
	ID         string
	Type       string
	TargetID   string
	ReporterID string
	Reason     string
	Status     string
	ResolvedBy string
	ResolvedAt string
	Version    string
	CreatedAt  string
}

// Report is the schema definition for trust.report
var Report = ReportTable{
	Table:      "trust.report",
	ID:         "id",
	Type:       "type",
	TargetID:   "targetid",
	ReporterID: "reporterid",
	Reason:     "reason",
	Status:     "status",
	ResolvedBy: "resolvedby",
	ResolvedAt: "resolvedat",
	Version:    "version",
	CreatedAt:  "createdat",
}
