package models

// UsageRecord is written once per completed upstream AI call and is never
// mutated afterwards. Date is the UTC calendar day derived from Timestamp
// and doubles as the daily quota bucket; retention is an external concern.
type UsageRecord struct {
	UsageID    string `json:"usage_id" redis:"usage_id"`
	UserID     string `json:"user_id" redis:"user_id"`
	Endpoint   string `json:"endpoint" redis:"endpoint"`
	TokensUsed int    `json:"tokens_used" redis:"tokens_used"`
	Timestamp  string `json:"timestamp" redis:"timestamp"`
	Date       string `json:"date" redis:"date"`
}
