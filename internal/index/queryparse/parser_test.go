package queryparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probehq/probe/internal/perr"
)

func defaultOpts() Options {
	return Options{
		DefaultFields: []string{"chunk_name", "declaration", "path_tokens", "body"},
		Weights: FieldWeights{
			"chunk_name":  3.0,
			"declaration": 2.0,
			"path_tokens": 2.0,
			"body":        1.0,
		},
		FieldAliases: map[string]string{"content": "body"},
	}
}

func TestParse_EmptyQueryIsInvalid(t *testing.T) {
	_, err := Parse("   ", defaultOpts())
	require.Error(t, err)
}

func TestParse_BareTermExpandsToDefaultFields(t *testing.T) {
	q, err := Parse("search", defaultOpts())
	require.NoError(t, err)
	assert.NotNil(t, q)
}

func TestParse_FieldPrefixTargetsOneField(t *testing.T) {
	q, err := Parse("path:engine.go", defaultOpts())
	require.NoError(t, err)
	assert.NotNil(t, q)
}

func TestParse_FieldAliasResolves(t *testing.T) {
	q, err := Parse("content:handler", defaultOpts())
	require.NoError(t, err)
	assert.NotNil(t, q)
}

func TestParse_QuotedPhraseExactMatch(t *testing.T) {
	q, err := Parse(`"get user by id"`, defaultOpts())
	require.NoError(t, err)
	assert.NotNil(t, q)
}

func TestParse_QuotedPhraseWithZeroProximityIsExact(t *testing.T) {
	q, err := Parse(`"get user by id"~0`, defaultOpts())
	require.NoError(t, err)
	assert.NotNil(t, q)
}

func TestParse_QuotedPhraseWithNonZeroProximityIsRejected(t *testing.T) {
	_, err := Parse(`"get user by id"~2`, defaultOpts())
	require.Error(t, err)
	kind, ok := perr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, perr.QueryInvalid, kind)
}

func TestParse_WildcardTerm(t *testing.T) {
	q, err := Parse("get*", defaultOpts())
	require.NoError(t, err)
	assert.NotNil(t, q)
}

func TestParse_BooleanOperators(t *testing.T) {
	q, err := Parse("search AND users OR data NOT legacy", defaultOpts())
	require.NoError(t, err)
	assert.NotNil(t, q)
}

func TestParse_BoostSuffixMultipliesWeight(t *testing.T) {
	q, err := Parse("chunk_name:getUser^5", defaultOpts())
	require.NoError(t, err)
	assert.NotNil(t, q)
}

func TestParse_UnterminatedQuoteIsInvalid(t *testing.T) {
	_, err := Parse(`"unterminated`, defaultOpts())
	require.Error(t, err)
}
