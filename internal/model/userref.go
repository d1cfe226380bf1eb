package model

import (
	"bytes"
	"encoding/json"
	"strings"
)

// UserRef is the user reference carried by bookings. The backend sends it as a scalar
// (string, number or {_id} object) on some endpoints and as an array on others; both
// shapes are decoded here once and kept apart.
type UserRef struct {
	ids  []string
	many bool
}

func Single(id string) UserRef {
	id = strings.TrimSpace(id)
	if id == "" {
		return UserRef{}
	}
	return UserRef{ids: []string{id}}
}

func Many(ids ...string) UserRef {
	ref := UserRef{many: true}
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			ref.ids = append(ref.ids, id)
		}
	}
	return ref
}

func (r UserRef) IsMany() bool  { return r.many }
func (r UserRef) IsEmpty() bool { return len(r.ids) == 0 }

func (r UserRef) IDs() []string {
	out := make([]string, len(r.ids))
	copy(out, r.ids)
	return out
}

func (r UserRef) First() string {
	if len(r.ids) == 0 {
		return ""
	}
	return r.ids[0]
}

func (r UserRef) Contains(id string) bool {
	id = strings.TrimSpace(id)
	for _, v := range r.ids {
		if v == id {
			return true
		}
	}
	return false
}

func (r *UserRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = UserRef{}
		return nil
	}
	if data[0] == '[' {
		var raws []json.RawMessage
		if err := json.Unmarshal(data, &raws); err != nil {
			return err
		}
		ids := make([]string, 0, len(raws))
		for _, raw := range raws {
			ids = append(ids, ToID(raw))
		}
		*r = Many(ids...)
		return nil
	}
	*r = Single(ToID(data))
	return nil
}

func (r UserRef) MarshalJSON() ([]byte, error) {
	if r.many {
		if r.ids == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(r.ids)
	}
	if len(r.ids) == 0 {
		return []byte("null"), nil
	}
	return json.Marshal(r.ids[0])
}

// ToID extracts an identifier from a loosely typed JSON value: a string, a number,
// or an object carrying _id, id or $oid.
func ToID(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return strings.TrimSpace(s)
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return ""
		}
		for _, key := range []string{"_id", "id", "$oid"} {
			if v, ok := obj[key]; ok {
				if id := ToID(v); id != "" {
					return id
				}
			}
		}
		return ""
	case '[', 'n', 't', 'f':
		return ""
	default:
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return ""
		}
		return n.String()
	}
}
