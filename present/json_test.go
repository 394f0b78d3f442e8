package present

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/amenzhinsky/iothub-d2c/consumer"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	j := NewJSON(&buf, WithCompact(true), WithJSONLogger(zaptest.NewLogger(t).Sugar()))
	j.Present(testRecord("2"), true)
	j.Present(testRecord("3"), false)

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)

	var d map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &d))
	require.Equal(t, map[string]interface{}{
		"partitionId":  "2",
		"body":         `{"temperature":21.5}`,
		"enqueuedTime": "2024-05-06T07:08:09.123Z",
		"applicationProperties": []interface{}{
			map[string]interface{}{"name": "temp", "value": 21.5},
		},
		"systemProperties": []interface{}{
			map[string]interface{}{"name": "iothub-connection-device-id", "value": "dev-1"},
			map[string]interface{}{"name": "enqueuedTimeUtc", "value": "2024-05-06T07:08:09.123Z"},
		},
	}, d)

	d = nil
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &d))
	require.NotContains(t, d, "applicationProperties")
	require.NotContains(t, d, "systemProperties")
}

func TestJSONIndented(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	NewJSON(&buf).Present(testRecord("0"), false)
	require.Contains(t, buf.String(), "\n\t\"partitionId\": \"0\",\n")
}

func TestJSONValue(t *testing.T) {
	t.Parallel()

	type custom struct{ A map[interface{}]int }
	require.Equal(t, int32(5), jsonValue(int32(5)))
	require.Equal(t, "raw", jsonValue([]byte("raw")))
	require.IsType(t, "", jsonValue(custom{A: map[interface{}]int{1: 2}}))
}

func TestJSONKeepsPropertyOrder(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	NewJSON(&buf, WithCompact(true)).Present(consumer.NewEventRecord("0", &consumer.RawEvent{
		Body: []byte("x"),
		ApplicationProperties: consumer.Properties{
			{Name: "zeta", Value: 1},
			{Name: "alpha", Value: 2},
			{Name: "mid", Value: 3},
		},
	}), true)

	var d Document
	require.NoError(t, json.Unmarshal(buf.Bytes(), &d))
	names := make([]string, 0, len(d.ApplicationProperties))
	for _, p := range d.ApplicationProperties {
		names = append(names, p.Name)
	}
	require.Equal(t, []string{"zeta", "alpha", "mid"}, names)
}
