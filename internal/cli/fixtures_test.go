package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// introDoc resolves to [k1] [c1 k2] [k3].
const introDoc = `package timelines

timeline: intro: {
	title: "Intro"
	tracks: {
		circle: [{id: "k1"}, {id: "k2"}, {id: "k3"}]
		camera: [{id: "c1", index: 1, data: {zoom: 2}}]
	}
}
`

const outroDoc = `package timelines

timeline: outro: {
	title: "Outro"
	tracks: {
		text: [{id: "t1"}, {id: "t2"}]
	}
}
`

// writeTimelines writes name -> content files into a fresh directory.
func writeTimelines(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

// runCLI executes the root command and returns its stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

// importIntro imports introDoc into a new database and returns its path.
func importIntro(t *testing.T) string {
	t.Helper()
	dir := writeTimelines(t, map[string]string{"intro.cue": introDoc})
	db := filepath.Join(t.TempDir(), "slides.db")
	_, err := runCLI(t, "import", "--db", db, dir)
	require.NoError(t, err)
	return db
}

type rawResponse struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  *CLIError       `json:"error"`
}

// decodeResponse decodes a JSON envelope, unmarshalling data into v if
// v is non-nil.
func decodeResponse(t *testing.T, out string, v any) rawResponse {
	t.Helper()
	var resp rawResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	if v != nil && len(resp.Data) > 0 {
		require.NoError(t, json.Unmarshal(resp.Data, v))
	}
	return resp
}
