package main

// PaginatedResponse matches handlers.PaginatedResponse.
type PaginatedResponse[T any] struct {
	Items  []T `json:"items"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// ErrorResponse matches handlers.ErrorResponse.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse matches handlers.HealthResponse.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// DataResponse matches the /data payload.
type DataResponse struct {
	Status string         `json:"status"`
	Data   *DashboardData `json:"data"`
}

// DashboardData is the last successfully extracted dashboard reading.
type DashboardData struct {
	UpdateTime     string   `json:"update_time"`
	ComparisonDate string   `json:"comparison_date"`
	Metrics        []Metric `json:"metrics"`
}

// Metric is one dashboard figure.
type Metric struct {
	Name       string `json:"name"`
	Value      string `json:"value"`
	Comparison string `json:"comparison"`
	Status     string `json:"status"`
}

// DebugEntry matches artifact.Entry.
type DebugEntry struct {
	Path string `json:"path"`
	URL  string `json:"url"`
}
