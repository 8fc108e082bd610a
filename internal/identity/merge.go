package identity

import (
	"bytes"
	"errors"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/memohai/frontline/internal/customers"
)

// ErrInvalidAttributes is returned when participant attributes are not a JSON object.
var ErrInvalidAttributes = errors.New("participant attributes must be a JSON object")

// MergeAttributes fills avatar, customer_id and display_name from the customer
// record into the existing attribute object. Truthy existing values win; keys
// keep their position and missing keys are appended in that order.
func MergeAttributes(existing []byte, customer customers.Customer) ([]byte, error) {
	doc := normalize(existing)
	if !gjson.Valid(doc) || !gjson.Parse(doc).IsObject() {
		return nil, ErrInvalidAttributes
	}

	fields := [...]struct{ key, value string }{
		{"avatar", customer.Avatar},
		{"customer_id", customer.CustomerID},
		{"display_name", customer.DisplayName},
	}
	var err error
	for _, f := range fields {
		if f.value == "" || truthy(gjson.Get(doc, f.key)) {
			continue
		}
		doc, err = sjson.Set(doc, f.key, f.value)
		if err != nil {
			return nil, err
		}
	}
	return []byte(doc), nil
}

func normalize(raw []byte) string {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "{}"
	}
	return string(raw)
}

func truthy(r gjson.Result) bool {
	switch r.Type {
	case gjson.String:
		return r.Str != ""
	case gjson.Number:
		return r.Num != 0
	case gjson.True, gjson.JSON:
		return true
	default:
		return false
	}
}
