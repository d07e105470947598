package internal

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOutputFormat(t *testing.T) {
	for in, want := range map[string]OutputFormat{"": FormatText, "text": FormatText, "JSON": FormatJSON, " json ": FormatJSON} {
		got, err := ParseOutputFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseOutputFormat("yaml")
	assert.Error(t, err)
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, map[string]string{"query": "MATCH (n)<-[:AT]-(m) RETURN n"}))
	assert.Equal(t, "{\n  \"query\": \"MATCH (n)<-[:AT]-(m) RETURN n\"\n}\n", buf.String())
}
