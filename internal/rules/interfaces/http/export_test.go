package http

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	ruleapp "outofbound/internal/rules/application"
)

func TestBuildTriggersXLSX(t *testing.T) {
	set, report := ruleapp.Compile([]byte(`{"rules": [
		{"asset": {"name": "flow"}, "datapoints": [
			{"name": "random", "trigger_value": 100},
			{"name": "sinusoid", "trigger_value": 0.5}
		]},
		{"asset": {"name": "temp"}, "datapoints": [{"name": "celsius", "trigger_value": 40}]}
	]}`))
	require.True(t, report.OK())

	data, err := BuildTriggersXLSX(ExportInput{
		Instance:    "flow-alarm",
		Reason:      "cleared",
		Set:         set,
		GeneratedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rule, err := f.GetCellValue("summary", "B3")
	require.NoError(t, err)
	assert.Equal(t, "flow-alarm", rule)

	rows, err := f.GetRows("triggers")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "sinusoid", rows[2][1])
	assert.Equal(t, "temp", rows[3][0])
}

func TestBuildExport_UnknownFormat(t *testing.T) {
	_, err := BuildExport("csv", ExportInput{})
	assert.Error(t, err)
}

func TestBuildTriggersPDF_EmptySet(t *testing.T) {
	data, err := BuildTriggersPDF(ExportInput{Instance: "empty", Reason: "cleared", GeneratedAt: time.Now()})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}
