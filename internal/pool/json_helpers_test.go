package pool

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeJSONStats(t *testing.T) {
	data, err := EncodeJSON(Stats{Name: "a<b>", Idle: 2, Pulls: 3})
	require.NoError(t, err)
	require.Equal(t,
		`{"name":"a<b>","idle":2,"leased":0,"constructed":0,"pulls":3,"pushes":0,"rejected":0}`,
		string(data))
}

func TestWriteJSONNoTrailingNewline(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, []Stats{{Name: "x"}}))
	require.NotContains(t, buf.String(), "\n")
	require.Contains(t, buf.String(), `"name":"x"`)
}
