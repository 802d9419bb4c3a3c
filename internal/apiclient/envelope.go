package apiclient

import "encoding/json"

// Unwrap decodes {"<key>": {...}} or a bare object into T. The backend
// wraps single resources under their name but not consistently.
func Unwrap[T any](raw json.RawMessage, key string) (*T, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, InvalidBody(err)
	}
	body := raw
	if inner, ok := envelope[key]; ok && string(inner) != "null" {
		body = inner
	}
	var out T
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, InvalidBody(err)
	}
	return &out, nil
}

// InvalidBody classifies a success response that could not be decoded.
func InvalidBody(err error) error {
	return &Error{Kind: KindUnknown, Message: "invalid response body", Err: err}
}
