package main

import (
	"github.com/Laisky/wechat-article-search/cmd"
)

func main() {
	cmd.Execute()
}
