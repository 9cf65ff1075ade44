package search

import (
	"fmt"
	"strings"
)

// RenderText formats articles into the human-readable block returned to tool callers.
func RenderText(query string, articles []Article) string {
	if len(articles) == 0 {
		return fmt.Sprintf("未找到关于「%s」的微信文章。", query)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "找到 %d 篇关于「%s」的微信文章：\n\n", len(articles), query)
	for i, a := range articles {
		fmt.Fprintf(&sb, "%d. **%s**\n", i+1, a.Title)
		fmt.Fprintf(&sb, "   来源：%s\n", a.Source)
		fmt.Fprintf(&sb, "   时间：%s\n", a.Date)
		fmt.Fprintf(&sb, "   摘要：%s...\n", string(headRunes(a.Snippet, 100)))
		fmt.Fprintf(&sb, "   链接：%s\n\n", a.URL)
	}

	return sb.String()
}

func headRunes(s string, n int) []rune {
	runes := []rune(s)
	if len(runes) > n {
		runes = runes[:n]
	}
	return runes
}
