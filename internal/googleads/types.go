package googleads

// searchStreamChunk is one element of the searchStream response array.
type searchStreamChunk struct {
	Results []searchResult `json:"results"`
}

type searchResult struct {
	Segments segments `json:"segments"`
	Metrics  metrics  `json:"metrics"`
}

type segments struct {
	Date string `json:"date"`
}

type metrics struct {
	// cost_micros is serialized as a string (int64 in micros).
	CostMicros       string  `json:"costMicros"`
	ConversionsValue float64 `json:"conversionsValue"`
}
