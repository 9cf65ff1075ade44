package sogou

import "github.com/Laisky/wechat-article-search/library/search"

// Selector tables in priority order. Site-specific patterns come first and
// generic list-item patterns last.
var (
	waitSelectors = []search.Selector{
		{Pattern: ".results", Role: search.RoleWait},
		{Pattern: ".news-list", Role: search.RoleWait},
		{Pattern: "[data-key='search_result']", Role: search.RoleWait},
		{Pattern: ".result-item", Role: search.RoleWait},
		{Pattern: "li[id]", Role: search.RoleWait},
	}

	titleSelectors = []search.Selector{
		{Pattern: ".news-list h3", Role: search.RoleTitle},
		{Pattern: ".results h3", Role: search.RoleTitle},
		{Pattern: ".news-box h3", Role: search.RoleTitle},
		{Pattern: ".result-item h3", Role: search.RoleTitle},
		{Pattern: "li h3", Role: search.RoleTitle},
		{Pattern: "h3 a[href*='mp.weixin.qq.com']", Role: search.RoleTitle},
	}

	containerSelectors = []search.Selector{
		{Pattern: "li", Role: search.RoleContainer},
		{Pattern: ".result-item", Role: search.RoleContainer},
		{Pattern: ".news-box", Role: search.RoleContainer},
		{Pattern: "div", Role: search.RoleContainer},
	}

	descriptionSelectors = []search.Selector{
		{Pattern: "p", Role: search.RoleDescription},
		{Pattern: ".txt-info", Role: search.RoleDescription},
		{Pattern: ".content-info", Role: search.RoleDescription},
		{Pattern: "span", Role: search.RoleDescription},
	}

	metaSelectors = []search.Selector{
		{Pattern: ".s-p", Role: search.RoleMeta},
		{Pattern: ".time", Role: search.RoleMeta},
		{Pattern: ".source", Role: search.RoleMeta},
		{Pattern: ".meta-info", Role: search.RoleMeta},
	}

	fallbackSelector = search.Selector{Pattern: "a[href*='mp.weixin.qq.com']", Role: search.RoleFallback}
)

// minDescriptionLen skips decorative or near-empty description nodes.
const minDescriptionLen = 10

// WaitSelectors returns the result-container selectors awaited after navigation.
func WaitSelectors() []search.Selector {
	return append([]search.Selector(nil), waitSelectors...)
}
