package security

import (
	"html"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer はユーザー入力をプレーンテキストに正規化する。
// 食材名は通知タイトルやプッシュ通知の本文にそのまま埋め込まれるため、
// 保存前にマークアップを除去する。
type TextSanitizer interface {
	// SanitizeText はHTMLタグと制御文字を除去し、連続する空白を1つにまとめる。
	// 同一入力に対して常に同一出力を返す。
	SanitizeText(raw string) string
}

// maxStripPasses はエスケープ済みタグを剥がす最大回数。
const maxStripPasses = 3

type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はbluemondayのStrictPolicyでTextSanitizerを生成する。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{policy: bluemonday.StrictPolicy()}
}

// SanitizeText はTextSanitizerを実装する。
func (s *textSanitizer) SanitizeText(raw string) string {
	text := raw
	// "&lt;b&gt;" のようにエスケープされたタグはアンエスケープ後に再度タグとして現れる。
	for i := 0; i < maxStripPasses; i++ {
		next := html.UnescapeString(s.policy.Sanitize(text))
		if next == text {
			break
		}
		text = next
	}
	if strings.ContainsAny(text, "<>") {
		text = strings.NewReplacer("<", "", ">", "").Replace(text)
	}

	text = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, text)
	return strings.Join(strings.Fields(text), " ")
}
