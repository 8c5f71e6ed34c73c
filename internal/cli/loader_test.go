package cli

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whitphx/tlanislide/internal/compiler"
)

func TestLoadTimelines(t *testing.T) {
	dir := writeTimelines(t, map[string]string{"intro.cue": introDoc, "outro.cue": outroDoc})

	result, errs := LoadTimelines(dir, LoadModeFailFast)
	require.Empty(t, errs)
	require.NotNil(t, result)
	assert.Equal(t, 2, result.FileCount)
	assert.Len(t, result.Timelines, 2)

	intro := result.Find("intro")
	require.NotNil(t, intro)
	assert.Equal(t, "Intro", intro.Title)
	assert.Len(t, intro.Cues, 4)
	assert.Nil(t, result.Find("missing"))
}

func TestLoadTimelinesNoTimelines(t *testing.T) {
	dir := writeTimelines(t, map[string]string{"other.cue": "package timelines\n\nsettings: fps: 60\n"})

	result, errs := LoadTimelines(dir, LoadModeCollectAll)
	require.NotNil(t, result)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "no timelines found")
}

func TestLoadTimelinesCompileErrorHasPosition(t *testing.T) {
	dir := writeTimelines(t, map[string]string{"bad.cue": `package timelines

timeline: bad: tracks: circle: [{id: "k1", data: {x: null}}]
`})

	result, errs := LoadTimelines(dir, LoadModeFailFast)
	require.NotNil(t, result)
	require.Len(t, errs, 1)

	var loadErr *LoadError
	require.True(t, errors.As(errs[0], &loadErr))
	assert.Equal(t, compiler.ErrNullForbidden, loadErr.Code)
	assert.Contains(t, loadErr.Message, "timeline.bad")
}

func TestMapCompileErrorToCode(t *testing.T) {
	tests := []struct {
		name string
		err  *compiler.CompileError
		want string
	}{
		{"float", &compiler.CompileError{Field: "data.x", Message: "float values are forbidden - use int instead"}, compiler.ErrFloatTypeForbidden},
		{"null", &compiler.CompileError{Field: "data.x", Message: "null values are forbidden in cue data"}, compiler.ErrNullForbidden},
		{"cue id", &compiler.CompileError{Field: "tracks.circle[0].id", Message: "required"}, compiler.ErrCueIDEmpty},
		{"other", &compiler.CompileError{Field: "tracks", Message: "must be a struct"}, ErrCodeGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MapCompileErrorToCode(tt.err))
		})
	}
}

func TestFindCUEFiles_SkipsModuleMetadata(t *testing.T) {
	dir := writeTimelines(t, map[string]string{"b.cue": outroDoc, "a.cue": introDoc})
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "cue.mod"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cue.mod", "module.cue"), []byte(`module: "example.com/slides"`+"\n"), 0o644))

	files, err := FindCUEFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.cue"), filepath.Join(dir, "b.cue")}, files)
}
