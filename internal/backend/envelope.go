package backend

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/pkg/errors"
)

var listKeys = []string{"data", "items", "bookings", "users", "schedules", "results", "records"}

// decodeList accepts either a bare JSON array or an object envelope carrying the
// array under one of listKeys. The total is -1 when the response does not state it.
func decodeList[T any](data []byte) ([]T, int, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, -1, nil
	}
	if data[0] == '[' {
		var items []T
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, -1, errors.Wrap(err, "decode list")
		}
		return items, -1, nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, -1, errors.Wrap(err, "decode envelope")
	}
	total := envelopeTotal(obj)
	for _, key := range listKeys {
		raw, ok := obj[key]
		if !ok {
			continue
		}
		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
			return nil, total, nil
		}
		if raw[0] == '{' {
			items, inner, err := decodeList[T](raw)
			if total < 0 {
				total = inner
			}
			return items, total, err
		}
		var items []T
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, total, errors.Wrapf(err, "decode %s", key)
		}
		return items, total, nil
	}
	return nil, total, nil
}

func envelopeTotal(obj map[string]json.RawMessage) int {
	for _, key := range []string{"total", "totalCount", "count"} {
		if n, ok := rawInt(obj[key]); ok {
			return n
		}
	}
	for _, key := range []string{"pagination", "meta"} {
		raw, ok := obj[key]
		if !ok {
			continue
		}
		var inner map[string]json.RawMessage
		if err := json.Unmarshal(raw, &inner); err != nil {
			continue
		}
		for _, k := range []string{"total", "totalCount", "totalItems"} {
			if n, ok := rawInt(inner[k]); ok {
				return n
			}
		}
	}
	return -1
}

func rawInt(raw json.RawMessage) (int, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0, false
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, false
		}
		n, err := strconv.Atoi(s)
		return n, err == nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, false
	}
	return int(f), true
}

// decodeObject decodes a single document, unwrapping a {"data": {...}} envelope.
func decodeObject(data []byte, out any) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err == nil {
		if raw, ok := obj["data"]; ok {
			raw = bytes.TrimSpace(raw)
			if len(raw) > 0 && raw[0] == '{' {
				data = raw
			} else if bytes.Equal(raw, []byte("null")) {
				return nil
			}
		}
	}
	return errors.Wrap(json.Unmarshal(data, out), "decode object")
}
