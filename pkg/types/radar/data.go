package radar

// HealthResponse is the body of GET /health. DataSources maps each backing
// source to its status: local stores report availability, path, and size;
// external APIs report their credential state ("configured",
// "not_configured", or "public_access").
type HealthResponse struct {
	Status      string                 `json:"status"`
	Timestamp   string                 `json:"timestamp"`
	DataSources map[string]interface{} `json:"data_sources"`
}

// StoreStatus describes one local SQLite store in the health response.
type StoreStatus struct {
	Available bool    `json:"available"`
	Path      string  `json:"path"`
	SizeMB    float64 `json:"size_mb"`
}

// MetadataResponse is the body of GET /api/v1/data/metadata.
type MetadataResponse struct {
	PatentsDBAvailable bool   `json:"patents_db_available"`
	CordisDBAvailable  bool   `json:"cordis_db_available"`
	OpenAIREAvailable  bool   `json:"openaire_available"`
	PatentsDBPath      string `json:"patents_db_path"`
	CordisDBPath       string `json:"cordis_db_path"`
}

// SuggestionsResponse is the body of GET /api/v1/suggestions.
type SuggestionsResponse struct {
	Suggestions []string `json:"suggestions"`
}
