package questions

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFixture(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadJSONStrings(t *testing.T) {
	path := writeFixture(t, "questions.json", `["What is A?", "What is B?", ""]`)
	qs, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, []string{"What is A?", "What is B?"}, qs)
}

func TestLoadJSONObjects(t *testing.T) {
	path := writeFixture(t, "questions.json", `[{"question": "What is A?"}, "What is B?"]`)
	qs, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, []string{"What is A?", "What is B?"}, qs)
}

func TestLoadJSONObjectWithoutQuestionField(t *testing.T) {
	path := writeFixture(t, "questions.json", `[{"prompt": "wrong key"}]`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadJSONL(t *testing.T) {
	content := `"What is A?"
{"question": "What is B?"}

`
	path := writeFixture(t, "questions.jsonl", content)
	qs, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, []string{"What is A?", "What is B?"}, qs)
}

func TestLoadText(t *testing.T) {
	content := `# question set
What is A?

What is B?
`
	path := writeFixture(t, "questions.txt", content)
	qs, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, []string{"What is A?", "What is B?"}, qs)
}

func TestLoadSniffsUnknownExtension(t *testing.T) {
	jsonPath := writeFixture(t, "questions.dat", `  ["What is A?"]`)
	qs, err := Load(jsonPath)
	require.NoError(t, err)
	require.Equal(t, []string{"What is A?"}, qs)

	jsonlPath := writeFixture(t, "lines.dat", `"What is B?"`)
	qs, err = Load(jsonlPath)
	require.NoError(t, err)
	require.Equal(t, []string{"What is B?"}, qs)

	textPath := writeFixture(t, "plain.dat", "What is C?\n")
	qs, err = Load(textPath)
	require.NoError(t, err)
	require.Equal(t, []string{"What is C?"}, qs)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
}

func TestSample(t *testing.T) {
	require.Len(t, Sample(3), 3)
	require.Len(t, Sample(0), 20)
	require.Len(t, Sample(1000), 20)
	require.Equal(t, Sample(20)[0], Sample(1)[0])
}
