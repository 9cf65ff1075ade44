package search

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCleanText(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "strip tags", in: "<b>hi</b>", want: "hi"},
		{name: "nested highlight", in: "Go<em><!--red_beg-->语言<!--red_end--></em>入门", want: "Go语言入门"},
		{name: "collapse whitespace", in: "  a \n\t b   c  ", want: "a b c"},
		{name: "only whitespace", in: " \n\t ", want: ""},
		{name: "unterminated tag kept", in: "a < b", want: "a < b"},
		{name: "full width text", in: "微信　公众号", want: "微信 公众号"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, CleanText(tc.in))
		})
	}
}

func TestCleanTextIdempotent(t *testing.T) {
	inputs := []string{
		"",
		"<b>hi</b>",
		"<<b>a>",
		"<a<b>>",
		"<><b>>",
		"x <p class='y'>  para </p>\n\n tail",
		"< >",
		"plain text",
		"  <div>\t<span>多</span>  行\n</div> ",
	}

	for _, in := range inputs {
		once := CleanText(in)
		require.Equal(t, once, CleanText(once), "input %q", in)
		require.NotContains(t, once, "<b>")
	}
}

func TestClip(t *testing.T) {
	require.Equal(t, "", Clip("abc", 0))
	require.Equal(t, "abc", Clip("abc", 3))
	require.Equal(t, "ab...", Clip("abc", 2))

	long := strings.Repeat("文", 250)
	clipped := Clip(long, 200)
	require.Equal(t, 203, RuneLen(clipped))
	require.True(t, strings.HasSuffix(clipped, "..."))
}
