package encoding

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/RassulYunussov/ezapi/config"
)

// Body serialises payload for the given data type. A nil payload gives an empty body.
func Body(dataType config.DataType, payload any) ([]byte, error) {
	if payload == nil {
		return nil, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	switch dataType {
	case config.DataTypeJSON, "":
		return data, nil
	case config.DataTypeForm:
		form, err := FormFromJSON(data)
		if err != nil {
			return nil, err
		}
		return []byte(form.Encode()), nil
	default:
		return nil, fmt.Errorf("unsupported data type %q", dataType)
	}
}

// FormFromJSON flattens the top-level pairs of a JSON object into form fields.
// Strings are taken verbatim, null becomes empty and anything else keeps its compact JSON text.
func FormFromJSON(data []byte) (url.Values, error) {
	form := url.Values{}
	if len(bytes.TrimSpace(data)) == 0 || bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return form, nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("form payload must be a json object: %w", err)
	}
	for k, raw := range fields {
		form.Set(k, fieldValue(raw))
	}
	return form, nil
}

func fieldValue(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	trimmed := bytes.TrimSpace(raw)
	if bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, trimmed); err != nil {
		return string(trimmed)
	}
	return compact.String()
}
