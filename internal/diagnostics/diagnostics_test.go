package diagnostics_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ejrgilbert/whammc/internal/diagnostics"
)

func TestCollectorAccumulatesNonFatalDiagnostics(t *testing.T) {
	c := diagnostics.NewCollector()
	c.ParseError(diagnostics.Location{}, "unexpected token", []string{";"})
	c.TypeError(diagnostics.Location{}, "bad type")

	assert.True(t, c.HasErrors())
	assert.False(t, c.Fatal)
	require.Len(t, c.Diagnostics, 2)
	assert.Equal(t, diagnostics.KindParse, c.Diagnostics[0].Kind)
	assert.Equal(t, diagnostics.KindType, c.Diagnostics[1].Kind)
}

func TestInternalErrorFatalTrueSetsCollectorFatal(t *testing.T) {
	c := diagnostics.NewCollector()
	c.InternalError(true, "unreachable")
	assert.True(t, c.Fatal)
}

func TestInternalErrorFatalFalseDoesNotSetCollectorFatal(t *testing.T) {
	c := diagnostics.NewCollector()
	c.InternalError(false, "heads up")
	assert.False(t, c.Fatal)
	assert.True(t, c.HasErrors())
}

func TestDuplicateIdentifierCarriesOtherLoc(t *testing.T) {
	other := diagnostics.Location{Start: diagnostics.Position{Line: 1, Col: 1}}
	c := diagnostics.NewCollector()
	c.DuplicateIdentifier(diagnostics.Location{Start: diagnostics.Position{Line: 2, Col: 1}}, &other, "x")

	require.Len(t, c.Diagnostics, 1)
	d := c.Diagnostics[0]
	require.NotNil(t, d.OtherLoc)
	assert.Equal(t, other, *d.OtherLoc)
	assert.Contains(t, d.Error(), "also declared at")
}

func TestLocationStringOmitsPathWhenEmpty(t *testing.T) {
	loc := diagnostics.Location{Start: diagnostics.Position{Line: 3, Col: 4}}
	assert.Equal(t, "3:4", loc.String())
}

func TestLocationStringIncludesPath(t *testing.T) {
	loc := diagnostics.Location{Path: "script.mm", Start: diagnostics.Position{Line: 3, Col: 4}}
	assert.Equal(t, "script.mm:3:4", loc.String())
}

func TestLocationIsSyntheticForZeroValue(t *testing.T) {
	assert.True(t, diagnostics.Location{}.IsSynthetic())
	assert.False(t, diagnostics.Location{Start: diagnostics.Position{Line: 1, Col: 1}}.IsSynthetic())
}

func TestReporterForceColorOffProducesPlainOutput(t *testing.T) {
	var buf bytes.Buffer
	r := diagnostics.NewReporter(&buf)
	r.ForceColor(false)
	r.Report(&diagnostics.Diagnostic{Kind: diagnostics.KindType, Message: "bad type"})
	assert.NotContains(t, buf.String(), "\x1b[")
	assert.Contains(t, buf.String(), "error[type error]: bad type")
}

func TestReporterRendersCaretAtSourceSpan(t *testing.T) {
	var buf bytes.Buffer
	r := diagnostics.NewReporter(&buf)
	r.ForceColor(false)
	r.LoadSource("script.mm", "i32 x;\nx = bad;")
	r.Report(&diagnostics.Diagnostic{
		Kind:    diagnostics.KindUnresolvedIdentifier,
		Message: `unresolved identifier "bad"`,
		Loc: diagnostics.Location{
			Path:  "script.mm",
			Start: diagnostics.Position{Line: 2, Col: 5},
			End:   diagnostics.Position{Line: 2, Col: 8},
		},
	})
	out := buf.String()
	assert.Contains(t, out, "script.mm:2:5")
	assert.Contains(t, out, "x = bad;")
	assert.Contains(t, out, "^^^")
}

func TestReporterSkipsLocationRenderingForSyntheticLoc(t *testing.T) {
	var buf bytes.Buffer
	r := diagnostics.NewReporter(&buf)
	r.ForceColor(false)
	r.Report(&diagnostics.Diagnostic{Kind: diagnostics.KindInternal, Message: "oops"})
	assert.NotContains(t, buf.String(), "-->")
}
