package detector_test

import (
	"errors"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umbrella-scan/umbrella/internal/detector"
	"github.com/umbrella-scan/umbrella/internal/specimen"
)

var fileSignatures = []string{
	"import vaccine",
	"cmds.evalDeferred.*leukocyte.+",
	"python(.*);.+exec.+(pyCode).+;",
}

func TestDetectImportVaccine(t *testing.T) {
	ok, err := detector.Detect(specimen.NewText("import vaccine;vaccine.fuck()"), []string{"import vaccine"})
	require.NoError(t, err)
	require.True(t, ok)
}

func TestDetectIsOrOverSignatures(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		patterns []string
		want     bool
	}{
		{"no signatures", "import vaccine", nil, false},
		{"single miss", "import os", []string{"import vaccine"}, false},
		{"second matches", `cmds.evalDeferred("leukocyte.occupation()")`, fileSignatures, true},
		{"third matches", `python("import base64; pyCode = x; exec (pyCode)");`, fileSignatures, true},
		{"none match", "import maya.cmds as cmds\ncmds.polyCube()\n", fileSignatures, false},
		{"search not anchored", "# header\nfoo import vaccine bar", []string{"import vaccine"}, true},
		{"caret anchors text start", "x = 1\n['payload']", []string{`^\['.+']`}, false},
		{"caret at start", "['payload']", []string{`^\['.+']`}, true},
		{"dot stops at newline", "cmds.evalDeferred(\nleukocyte", []string{"cmds.evalDeferred.*leukocyte.+"}, false},
		{"empty text", "", fileSignatures, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			for _, engine := range []detector.Engine{detector.EngineRE2, detector.EnginePCRE} {
				got, err := detector.Detect(specimen.NewText(tc.text), tc.patterns, detector.WithEngine(engine))
				require.NoError(t, err)
				assert.Equal(t, tc.want, got, "engine %s", engine)
			}
		})
	}
}

func TestDetectRawSpecimen(t *testing.T) {
	raw := specimen.NewRaw(0)
	ok, err := detector.Detect(raw, []string{".*"})
	require.NoError(t, err)
	require.True(t, ok)
}

func TestInvalidSignatureFailsCall(t *testing.T) {
	for _, engine := range []detector.Engine{detector.EngineRE2, detector.EnginePCRE} {
		_, err := detector.Detect(specimen.NewText("import vaccine"), []string{"import vaccine", "(unclosed"}, detector.WithEngine(engine))
		require.Error(t, err)
		require.ErrorIs(t, err, detector.ErrInvalidSignature)

		var ise *detector.InvalidSignatureError
		require.True(t, errors.As(err, &ise))
		require.Equal(t, 1, ise.Index)
		require.Equal(t, "(unclosed", ise.Pattern)
	}
}

func TestPCRELookaround(t *testing.T) {
	set, err := detector.Compile(detector.Patterns(`exec(?!ute)`), detector.WithEngine(detector.EnginePCRE))
	require.NoError(t, err)
	defer set.Close()

	require.True(t, set.Detect(specimen.NewText("exec(pyCode)")))
	require.False(t, set.Detect(specimen.NewText("execute()")))

	_, err = detector.Compile(detector.Patterns(`exec(?!ute)`))
	require.ErrorIs(t, err, detector.ErrInvalidSignature)
}

func TestPCRECloseThenGC(t *testing.T) {
	for i := 0; i < 5; i++ {
		ok, err := detector.Detect(specimen.NewText("import vaccine"), []string{"import (?=vaccine)"},
			detector.WithEngine(detector.EnginePCRE))
		require.NoError(t, err)
		require.True(t, ok)

		set, err := detector.Compile(detector.Patterns("exec"), detector.WithEngine(detector.EnginePCRE))
		require.NoError(t, err)
		set.Close()
		set.Close()
	}
	runtime.GC()
	runtime.GC()
	time.Sleep(50 * time.Millisecond)
}

func TestSetMatchAndFind(t *testing.T) {
	sigs := []detector.Signature{
		{Name: "FILE_IMPORT_VACCINE", Pattern: "import vaccine"},
		{Name: "FILE_LEUKOCYTE", Pattern: "cmds.evalDeferred.*leukocyte.+"},
	}
	set, err := detector.Compile(sigs)
	require.NoError(t, err)
	defer set.Close()

	text := specimen.NewText("import maya.cmds as cmds\n\ncmds.evalDeferred(\"leukocyte = vaccine.phage()\")\n")
	sig, ok := set.Match(text)
	require.True(t, ok)
	require.Equal(t, "FILE_LEUKOCYTE", sig.Name)

	hit, ok := set.Find(text)
	require.True(t, ok)
	require.Equal(t, 1, hit.Index)
	require.Equal(t, 3, hit.Line)
	require.Equal(t, `cmds.evalDeferred("leukocyte = vaccine.phage()")`, hit.Excerpt)

	_, ok = set.Find(specimen.NewText("print(1)"))
	require.False(t, ok)
}

func TestSetDigest(t *testing.T) {
	a, err := detector.Compile(detector.Patterns("a", "b"))
	require.NoError(t, err)
	b, err := detector.Compile([]detector.Signature{{Name: "x", Pattern: "a"}, {Name: "y", Pattern: "b"}})
	require.NoError(t, err)
	c, err := detector.Compile(detector.Patterns("b", "a"))
	require.NoError(t, err)
	d, err := detector.Compile(detector.Patterns("a", "b"), detector.WithEngine(detector.EnginePCRE))
	require.NoError(t, err)
	defer d.Close()

	require.Equal(t, a.Digest(), b.Digest())
	require.NotEqual(t, a.Digest(), c.Digest())
	require.NotEqual(t, a.Digest(), d.Digest())
	require.Equal(t, 2, a.Len())
	require.Equal(t, "a", a.Signatures()[0].Label())
	require.Equal(t, "x", b.Signatures()[0].Label())
}

func TestSetConcurrentUse(t *testing.T) {
	for _, engine := range []detector.Engine{detector.EngineRE2, detector.EnginePCRE} {
		set, err := detector.Compile(detector.Patterns(fileSignatures...), detector.WithEngine(engine))
		require.NoError(t, err)

		var wg sync.WaitGroup
		for range 16 {
			wg.Go(func() {
				assert.True(t, set.Detect(specimen.NewText("import vaccine")))
				assert.False(t, set.Detect(specimen.NewText("import os")))
			})
		}
		wg.Wait()
		require.NoError(t, set.Close())
		require.NoError(t, set.Close())
	}
}

func TestParseEngine(t *testing.T) {
	for in, want := range map[string]detector.Engine{
		"":     detector.EngineRE2,
		"re2":  detector.EngineRE2,
		"PCRE": detector.EnginePCRE,
	} {
		got, err := detector.ParseEngine(in)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	_, err := detector.ParseEngine("hyperscan")
	require.Error(t, err)
}
