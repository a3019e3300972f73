package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNameMatcher(t *testing.T) {
	tests := []struct {
		name     string
		patterns []string
		accept   []string
		reject   []string
	}{
		{
			name:     "no_patterns",
			patterns: nil,
			accept:   []string{"a_metadata", "raw"},
		},
		{
			name:     "everything",
			patterns: []string{"..."},
			accept:   []string{"a_metadata", "raw"},
		},
		{
			name:     "suffix_glob",
			patterns: []string{"*_metadata"},
			accept:   []string{"a_metadata", "c_metadata"},
			reject:   []string{"b_other", "metadata_a"},
		},
		{
			name:     "literal",
			patterns: []string{"calexp"},
			accept:   []string{"calexp"},
			reject:   []string{"calexp_background"},
		},
		{
			name:     "mixed",
			patterns: []string{"raw", "deep?Coadd"},
			accept:   []string{"raw", "deepCCoadd"},
			reject:   []string{"deepCoadd"},
		},
		{
			name:     "alternation",
			patterns: []string{"{calexp,raw}_*"},
			accept:   []string{"calexp_background", "raw_metadata"},
			reject:   []string{"calexp", "deep_metadata"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewNameMatcher(tt.patterns...)
			require.NoError(t, err)
			for _, n := range tt.accept {
				assert.True(t, m.Match(n), "expected %q to match", n)
			}
			for _, n := range tt.reject {
				assert.False(t, m.Match(n), "expected %q not to match", n)
			}
		})
	}
}

func TestNameMatcher_BadPattern(t *testing.T) {
	for _, p := range []string{"raw[", "cal{exp,raw"} {
		_, err := NewNameMatcher(p)
		require.Error(t, err, p)
		assert.True(t, IsInvalidArgument(err), p)
	}
}

func TestNameMatcher_Literals(t *testing.T) {
	m, err := NewNameMatcher("b", "a")
	require.NoError(t, err)
	names, ok := m.Literals()
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, names)

	m, err = NewNameMatcher("a*")
	require.NoError(t, err)
	_, ok = m.Literals()
	assert.False(t, ok)
}
