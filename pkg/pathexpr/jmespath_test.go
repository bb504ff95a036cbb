package pathexpr

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/jmespath/go-jmespath"
	"github.com/stretchr/testify/require"
)

const oracleDocument = `{
	"Users": [
		{"Name": "alice", "Groups": ["admin", "dev"], "Meta": {"id": 1}},
		{"Name": "bob", "Groups": [], "Meta": {"id": 2}},
		{"Name": "carol", "Meta": null}
	],
	"Page": {"Next": "tok-2", "Prev": null, "Empty": ""},
	"Matrix": [[1, 2], [3], 4, [[5]]],
	"Done": false,
	"Count": 3
}`

// TestAgainstJMESPath checks the evaluator against the reference JMESPath
// implementation for every construct the evaluator supports.
func TestAgainstJMESPath(t *testing.T) {
	var doc any
	require.NoError(t, json.Unmarshal([]byte(oracleDocument), &doc))

	expressions := []string{
		"Users",
		"Users[0].Name",
		"Users[-1].Name",
		"Users[5].Name",
		"Users[].Name",
		"Users[*].Name",
		"Users[].Groups",
		"Users[].Groups[]",
		"Users[].Meta.id",
		"Users[*].Meta",
		"Users[0].Groups[-1]",
		"Page.Next",
		"Page.Prev",
		"Page.Missing",
		"Page.Prev || Page.Next",
		"Page.Empty || Page.Next",
		"Done || Count",
		"Missing || Also.Missing",
		"Matrix[]",
		"Matrix[][]",
		"Matrix[0][1]",
		"Users[0].Meta.*",
		"Count.Nested",
		"Count[0]",
		"Users[].Name || Page",
	}
	for _, expr := range expressions {
		t.Run(expr, func(t *testing.T) {
			want, err := jmespath.Search(expr, doc)
			require.NoError(t, err)

			got, err := Search(expr, doc)
			require.NoError(t, err)

			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("%q differs from JMESPath (-jmespath +pathexpr):\n%s", expr, diff)
			}
		})
	}
}
