package template

import (
	"github.com/microcosm-cc/bluemonday"
	"github.com/russross/blackfriday/v2"
)

var htmlPolicy = bluemonday.UGCPolicy()

// RenderHTML - 보고서 markdown을 HTML로 변환 후 sanitize (UGC policy)
func RenderHTML(markdown string) string {
	unsafe := blackfriday.Run([]byte(markdown))
	return string(htmlPolicy.SanitizeBytes(unsafe))
}
