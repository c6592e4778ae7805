package meta

// insightRow is one daily row from the ad insights endpoint. Spend and
// action values arrive as decimal strings.
type insightRow struct {
	DateStart    string        `json:"date_start"`
	DateStop     string        `json:"date_stop"`
	Spend        string        `json:"spend"`
	ActionValues []actionValue `json:"action_values"`
}

type actionValue struct {
	ActionType string `json:"action_type"`
	Value      string `json:"value"`
}

type insightsResponse struct {
	Data   []insightRow `json:"data"`
	Paging *paging      `json:"paging"`
}

type paging struct {
	Next string `json:"next"`
}

// purchaseActionTypes are the action types counted as ad-attributed
// revenue. omni_purchase is the cross-channel rollup; purchase covers
// older accounts that only report the pixel event.
var purchaseActionTypes = map[string]bool{
	"omni_purchase": true,
	"purchase":      true,
}
