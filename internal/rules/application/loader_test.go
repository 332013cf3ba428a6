package application

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadRuleConfigFile_JSON(t *testing.T) {
	doc, err := LoadRuleConfigFile(writeFile(t, "rules.json", flowConfig))
	require.NoError(t, err)
	assert.JSONEq(t, flowConfig, string(doc))
}

func TestLoadRuleConfigFile_YAML(t *testing.T) {
	content := `
rules:
  - asset:
      name: flow
    eval_all_datapoints: false
    datapoints:
      - name: random
        type: float
        trigger_value: 100
    evaluation_data:
      value: Window
    window_data:
      value: Maximum
    time_window: 15
`
	doc, err := LoadRuleConfigFile(writeFile(t, "rules.yaml", content))
	require.NoError(t, err)

	set, report := Compile(doc)
	require.True(t, report.OK())
	triggers := set.Triggers("flow")
	require.Len(t, triggers, 1)
	assert.Equal(t, 100.0, triggers[0].Limit())
	assert.False(t, triggers[0].EvalAllDatapoints())
	assert.Equal(t, "Maximum", triggers[0].Label())
	assert.Equal(t, uint(15), triggers[0].Interval())
}

func TestLoadRuleConfigFile_UnknownExtension(t *testing.T) {
	doc, err := LoadRuleConfigFile(writeFile(t, "rules.conf", "rules: []\n"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"rules":[]}`, string(doc))
}

func TestLoadRuleConfigFile_Errors(t *testing.T) {
	_, err := LoadRuleConfigFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = LoadRuleConfigFile(writeFile(t, "bad.json", `{"rules": [`))
	assert.Error(t, err)

	_, err = LoadRuleConfigFile(writeFile(t, "bad.yaml", "rules: [\n"))
	assert.Error(t, err)
}
