// Package dto defines data transfer objects for the symbollist HTTP API.
package dto

// SymbolListRequest is the query of GET /symbols.
type SymbolListRequest struct {
	Limit int `form:"limit" binding:"omitempty,min=1"`
}

// SymbolListResponse is the body of GET /symbols.
type SymbolListResponse struct {
	Symbols   []string `json:"symbols"`
	Count     int      `json:"count"`
	FetchedAt string   `json:"fetched_at,omitempty"`
	Timestamp string   `json:"timestamp"`
}
