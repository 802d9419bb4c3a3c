package apiclient

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Page is a list response. The backend names the collection after the
// resource ("users", "devices") or uses "items"; both decode into Items.
type Page[T any] struct {
	Items  []T `json:"items"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// UnmarshalJSON accepts "items" or the single array-valued field of the
// object as the collection.
func (p *Page[T]) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	for _, key := range []string{"total", "limit", "offset"} {
		raw, ok := fields[key]
		if !ok || string(raw) == "null" {
			continue
		}
		var n int
		if err := json.Unmarshal(raw, &n); err != nil {
			return fmt.Errorf("page %s: %w", key, err)
		}
		switch key {
		case "total":
			p.Total = n
		case "limit":
			p.Limit = n
		case "offset":
			p.Offset = n
		}
	}

	raw, ok := fields["items"]
	if !ok {
		raw, ok = collectionField(fields)
	}
	if !ok {
		p.Items = []T{}
		return nil
	}
	if err := json.Unmarshal(raw, &p.Items); err != nil {
		return fmt.Errorf("page items: %w", err)
	}
	if p.Items == nil {
		p.Items = []T{}
	}
	return nil
}

// collectionField picks the array-valued field, preferring the
// alphabetically first when there are several.
func collectionField(fields map[string]json.RawMessage) (json.RawMessage, bool) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		raw := fields[k]
		if len(raw) > 0 && raw[0] == '[' {
			return raw, true
		}
	}
	return nil, false
}
