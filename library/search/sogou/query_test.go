package sogou

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Laisky/wechat-article-search/library/search"
)

func TestSanitizeQuery(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "golang", want: "golang"},
		{name: "trim", in: "  golang  ", want: "golang"},
		{name: "markup removed", in: `<script>alert("x")</script>`, want: "scriptalert(x)/script"},
		{name: "quotes removed", in: `it's "go"`, want: "its go"},
		{name: "only markup", in: `<>"'`, want: ""},
		{name: "empty", in: "", want: ""},
		{name: "chinese kept", in: "人工智能 大模型", want: "人工智能 大模型"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, SanitizeQuery(tc.in))
		})
	}
}

func TestSanitizeQueryTruncatesByCharacter(t *testing.T) {
	got := SanitizeQuery(strings.Repeat("字", 150))
	require.Equal(t, MaxQueryLength, len([]rune(got)))
}

func TestClampMaxResults(t *testing.T) {
	cases := map[int]int{
		-5:   1,
		0:    1,
		1:    1,
		5:    5,
		50:   50,
		51:   50,
		1000: 50,
	}
	for in, want := range cases {
		require.Equal(t, want, ClampMaxResults(in), "input %d", in)
	}
}

func TestFilterCode(t *testing.T) {
	require.Equal(t, "1", FilterCode(search.TimeFilterDay))
	require.Equal(t, "7", FilterCode(search.TimeFilterWeek))
	require.Equal(t, "30", FilterCode(search.TimeFilterMonth))
	require.Equal(t, "365", FilterCode(search.TimeFilterYear))
	require.Equal(t, "7", FilterCode("WEEK"))
	require.Empty(t, FilterCode("decade"))
	require.Empty(t, FilterCode(search.TimeFilterNone))
}

func TestBuildSearchURLWithoutFilter(t *testing.T) {
	for _, q := range []string{"golang", "人工智能 大模型", "a&b=c"} {
		raw := BuildSearchURL(BaseURL, q, search.TimeFilterNone)
		require.True(t, strings.HasPrefix(raw, "https://weixin.sogou.com/weixin?"))
		require.Contains(t, raw, "query="+url.QueryEscape(q))
		require.NotContains(t, raw, "tsn=")

		parsed, err := url.Parse(raw)
		require.NoError(t, err)
		require.Equal(t, q, parsed.Query().Get("query"))
		require.Equal(t, "2", parsed.Query().Get("type"))
		require.Equal(t, "utf8", parsed.Query().Get("ie"))
	}
}

func TestBuildSearchURLWithFilter(t *testing.T) {
	cases := map[search.TimeFilter]string{
		search.TimeFilterDay:   "1",
		search.TimeFilterWeek:  "7",
		search.TimeFilterMonth: "30",
		search.TimeFilterYear:  "365",
	}
	for filter, code := range cases {
		parsed, err := url.Parse(BuildSearchURL(BaseURL, "go", filter))
		require.NoError(t, err)
		require.Equal(t, code, parsed.Query().Get("tsn"), string(filter))
	}

	require.NotContains(t, BuildSearchURL(BaseURL, "go", "fortnight"), "tsn=")
}
