package extract

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVersionsJSON(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"empty", ``, `null`},
		{"null", `null`, `null`},
		{"keeps key order", `[ {"number":3,  "active":false,"locked":true} ]`, `[{"number": 3, "active": false, "locked": true}]`},
		{"separators inside strings untouched", `[{"comment":"a, b: \"c\""}]`, `[{"comment": "a, b: \"c\""}]`},
		{"non-ascii escaped", `["né", "😀"]`, `["n\u00e9", "\ud83d\ude00"]`},
		{"nested", `{"a":{"b":[1,2]}}`, `{"a": {"b": [1, 2]}}`},
		{"invalid kept verbatim", `[1,`, `[1,`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, versionsJSON(json.RawMessage(tc.in)))
		})
	}
}
