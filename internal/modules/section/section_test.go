package section

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyKeyword(t *testing.T) {
	cases := []struct {
		name     string
		headings []string
		want     Name
	}{
		{"plain abstract", []string{"Abstract"}, "Abstract"},
		{"numbered intro", []string{"1 Introduction"}, "Introduction"},
		{"nested outline prefix", []string{"3.2 Experimental Setup"}, "Experiments"},
		{"related work", []string{"2 Related Work"}, "Background / Related Work"},
		{"case insensitive", []string{"CONCLUSION"}, "Conclusion"},
		{"limitations", []string{"7 Limitations"}, "Limitations"},
		{"future directions", []string{"Future Directions"}, "Future Work"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.headings, 0, 10))
		})
	}
}

func TestClassifyPrefersFinestHeading(t *testing.T) {
	// The last path component is the most specific one and wins.
	got := Classify([]string{"4 Experiments", "4.1 Results"}, 0, 10)
	assert.Equal(t, "Results / Evaluation", got)
}

func TestClassifyJoinedPath(t *testing.T) {
	// Neither component matches alone, but the joined path does.
	got := Classify([]string{"Related", "Work"}, 0, 10)
	assert.Equal(t, "Background / Related Work", got)
}

func TestClassifyPositionalFallback(t *testing.T) {
	cases := []struct {
		index int
		total int
		want  Name
	}{
		{0, 100, "Introduction"},
		{15, 100, "Introduction"}, // boundary, ratio == 0.15
		{16, 100, "Methodology"},
		{40, 100, "Architecture"},
		{60, 100, "Experiments"},
		{80, 100, "Results / Evaluation"},
		{90, 100, "Discussion"},
		{99, 100, Fallback},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Classify(nil, tc.index, tc.total), "index %d of %d", tc.index, tc.total)
	}
}

func TestClassifyEmptyDocument(t *testing.T) {
	assert.Equal(t, Fallback, Classify(nil, 0, 0))
	assert.Equal(t, Fallback, Classify([]string{"  ", "3."}, 0, 0))
}

func TestSortCanonicalOrder(t *testing.T) {
	names := []Name{Fallback, "Conclusion", "Zebra Notes", "Abstract", "Acknowledgements", "Introduction"}
	Sort(names)
	assert.Equal(t, []Name{
		"Abstract",
		"Introduction",
		"Conclusion",
		Fallback,
		"Acknowledgements",
		"Zebra Notes",
	}, names)
}

func TestKeywordMatchCaption(t *testing.T) {
	name, ok := KeywordMatch("Figure 3: The proposed model architecture")
	assert.True(t, ok)
	assert.Equal(t, "Architecture", name)

	_, ok = KeywordMatch("Figure 1: A photograph of a cat")
	assert.False(t, ok)
}
