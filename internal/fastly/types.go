package fastly

import "encoding/json"

// Bill is the billing document for one month, kept as the raw object so every
// field reaches the output.
type Bill map[string]any

// EndTime returns the bill period's end_time field.
func (b Bill) EndTime() (string, bool) {
	v, ok := b["end_time"].(string)
	return v, ok
}

// StatsResult is the aggregate stats response: rows grouped by service id.
type StatsResult struct {
	Data map[string][]map[string]any `json:"data"`
	Meta StatsMeta                   `json:"meta"`
}

// StatsMeta describes the window the API actually answered for.
type StatsMeta struct {
	From string `json:"from"`
	To   string `json:"to"`
	By   string `json:"by,omitempty"`
}

// Service is the service metadata joined onto stats rows.
type Service struct {
	ID         string          `json:"id"`
	Name       *string         `json:"name"`
	Versions   json.RawMessage `json:"versions"`
	CustomerID *string         `json:"customer_id"`
	PublishKey *string         `json:"publish_key"`
	Comment    *string         `json:"comment"`
	DeletedAt  *string         `json:"deleted_at"`
	UpdatedAt  *string         `json:"updated_at"`
	CreatedAt  *string         `json:"created_at"`
}
