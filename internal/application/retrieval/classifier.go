package retrieval

import "strings"

// locationKeywords 子串匹配，"sometimes" 这类词也会命中 time
var locationKeywords = []string{
	"where", "which", "when", "timestamp",
	"time", "video", "covered", "discussed",
}

// Classify 判断问题类型，仅支持英文关键词
func Classify(query string) QuestionKind {
	q := strings.ToLower(query)
	for _, k := range locationKeywords {
		if strings.Contains(q, k) {
			return KindLocation
		}
	}
	return KindConceptual
}
