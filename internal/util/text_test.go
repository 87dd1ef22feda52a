package util

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPrefix(t *testing.T) {
	require.Equal(t, "abc", Prefix("abcdef", 3))
	require.Equal(t, "ab", Prefix("ab", 10))
	require.Equal(t, "", Prefix("ab", 0))
	require.Equal(t, "ñü", Prefix("ñüé", 2))
}

func TestSplitSentences(t *testing.T) {
	got := SplitSentences("GAD requires six months of worry. Treatment is SSRIs! Really?")
	require.Equal(t, []string{"GAD requires six months of worry", " Treatment is SSRIs", " Really"}, got)
}

func TestAnswerTerms(t *testing.T) {
	require.Equal(t, []string{"anxiety"}, AnswerTerms("anxiety"))
	require.Equal(t, []string{"selective", "serotonin"}, AnswerTerms("A Selective serotonin of the"))
	require.Empty(t, AnswerTerms("is it a"))
}
