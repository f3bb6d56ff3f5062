package extract

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirTraceSink(t *testing.T) {
	root := t.TempDir()
	sink := NewDirTraceSink(root)

	sink.RecordPrompt("rid", StageAmounts, "the prompt")
	sink.RecordResponse("rid", StageAmounts, 1, "raw attempt one")
	sink.RecordResponse("rid", StageAmounts, 2, `{"total_amount": 119.0}`)
	sink.RecordParsed("rid", StageAmounts, map[string]any{"total_amount": 119.0})
	sink.RecordFinal("rid", map[string]any{"id": "rid"})

	dir := filepath.Join(root, "rid")

	prompt, err := os.ReadFile(filepath.Join(dir, "amounts_prompt.txt"))
	require.NoError(t, err)
	assert.Equal(t, "the prompt", string(prompt))

	_, err = os.Stat(filepath.Join(dir, "amounts_raw_1.txt"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "amounts_raw_2.txt"))
	assert.NoError(t, err)

	parsed, err := os.ReadFile(filepath.Join(dir, "amounts_parsed.json"))
	require.NoError(t, err)
	assert.Contains(t, string(parsed), "total_amount")

	_, err = os.Stat(filepath.Join(dir, "final.json"))
	assert.NoError(t, err)
}
