package versioning

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		token        string
		wantString   string
		wantWildcard bool
		wantMajor    Component
		wantMinor    Component
		wantPatch    Component
	}{
		{"1", "1", false, Exact(1), Component{}, Component{}},
		{"1.2", "1.2", false, Exact(1), Exact(2), Component{}},
		{"1.2.3", "1.2.3", false, Exact(1), Exact(2), Exact(3)},
		{"v1.2", "1.2", false, Exact(1), Exact(2), Component{}},
		{"V10.0.7", "10.0.7", false, Exact(10), Exact(0), Exact(7)},
		{"*", "*", true, Wildcard(), Component{}, Component{}},
		{"v*", "*", true, Wildcard(), Component{}, Component{}},
		{"1.*", "1.*", true, Exact(1), Wildcard(), Component{}},
		{"2.1.*", "2.1.*", true, Exact(2), Exact(1), Wildcard()},
		{"*.*.*", "*.*.*", true, Wildcard(), Wildcard(), Wildcard()},
		{"01.002", "1.2", false, Exact(1), Exact(2), Component{}},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			p, err := Parse(tt.token)
			require.NoError(t, err)

			assert.Equal(t, tt.wantString, p.String())
			assert.Equal(t, tt.wantWildcard, p.HasWildcard)
			assert.Equal(t, !tt.wantWildcard, p.IsExact())
			assert.Equal(t, tt.wantMajor, p.Major)
			assert.Equal(t, tt.wantMinor, p.Minor)
			assert.Equal(t, tt.wantPatch, p.Patch)
		})
	}
}

func TestParse_Malformed(t *testing.T) {
	tokens := []string{
		"",
		"v",
		"1.2.3.4",
		"v1.x",
		"**",
		"1..2",
		"1.",
		".1",
		"-1",
		"+1",
		" 1",
		"1.2 ",
		"1.2-rc1",
		"99999999999999999999999",
		"vv1",
	}

	for _, token := range tokens {
		t.Run(token, func(t *testing.T) {
			_, err := Parse(token)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedToken))

			var parseErr *ParseError
			require.ErrorAs(t, err, &parseErr)
			assert.Equal(t, token, parseErr.Token)
		})
	}
}

func TestPatternMatches(t *testing.T) {
	n := MustNumber(2, 1, 4)

	assert.True(t, MustParse("2").Matches(n))
	assert.True(t, MustParse("2.1").Matches(n))
	assert.True(t, MustParse("2.1.4").Matches(n))
	assert.True(t, MustParse("2.*").Matches(n))
	assert.True(t, MustParse("*").Matches(n))
	assert.True(t, MustParse("*.1").Matches(n))

	assert.False(t, MustParse("2.2").Matches(n))
	assert.False(t, MustParse("2.1.3").Matches(n))
	assert.False(t, MustParse("3.*").Matches(n))
}

func TestParseNumber(t *testing.T) {
	n, err := ParseNumber("v1.2")
	require.NoError(t, err)
	assert.Equal(t, MustNumber(1, 2, 0), n)

	n, err = ParseNumber("3.0.9")
	require.NoError(t, err)
	assert.Equal(t, "3.0.9", n.String())

	_, err = ParseNumber("1.*")
	assert.ErrorIs(t, err, ErrMalformedToken)

	_, err = ParseNumber("nope")
	assert.ErrorIs(t, err, ErrMalformedToken)
}

func TestNumberCompare(t *testing.T) {
	tests := []struct {
		a, b Number
		want int
	}{
		{MustNumber(1, 0, 0), MustNumber(2, 0, 0), -1},
		{MustNumber(2, 0, 0), MustNumber(1, 9, 9), 1},
		{MustNumber(1, 1, 0), MustNumber(1, 0, 5), 1},
		{MustNumber(1, 1, 1), MustNumber(1, 1, 2), -1},
		{MustNumber(4, 2, 0), MustNumber(4, 2, 0), 0},
	}

	for _, tt := range tests {
		t.Run(tt.a.String()+"_vs_"+tt.b.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Compare(tt.b))
		})
	}
}

func TestNewNumber_Negative(t *testing.T) {
	_, err := NewNumber(1, -1, 0)
	assert.Error(t, err)
}

func TestNumberNext(t *testing.T) {
	n := MustNumber(2, 3, 4)
	assert.Equal(t, MustNumber(3, 0, 0), n.NextMajor())
	assert.Equal(t, MustNumber(2, 4, 0), n.NextMinor())
}
