package sanitize

import "regexp"

// Rule is one boilerplate pattern. Prefix rules are anchored at the start
// of the text, suffix rules at the end.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
}

func rule(name, expr string) Rule {
	return Rule{Name: name, Pattern: regexp.MustCompile(expr)}
}

// PrefixRules are tried in order; the first match is removed.
var PrefixRules = []Rule{
	rule("zh-sure", `^当然可以[！!]\s*`),
	rule("zh-ok", `^好的[，,]\s*`),
	rule("zh-here-is", `^以下是[^：:\n]*[：:]\s*\n*`),
	rule("zh-formatted", `^格式优化后[：:]\s*\n*`),
	rule("zh-optimized", `^优化结果[：:]\s*\n*`),
	rule("zh-beautified", `^排版美化后[：:]\s*\n*`),
	rule("zh-polished", `^润色后[：:]\s*\n*`),
	rule("zh-summary", `^摘要[：:]\s*\n*`),
	rule("zh-expanded", `^扩写后[：:]\s*\n*`),
	rule("zh-continued", `^续写[：:]\s*\n*`),
	rule("zh-this-version", `^此版本[^。]*。[^\n]*\n+`),
	rule("zh-this-time", `^本次[^。]*。[^\n]*\n+`),
	rule("zh-this-is", `^这[是次][^。]*。[^\n]*\n+`),
	rule("zh-has-been", `^已[为对][^。]*。[^\n]*\n+`),
	rule("zh-kept", `^保持了[^。]*。[^\n]*\n+`),
	rule("en-sure", `^(?i:sure|certainly|of course)[!,.]\s*`),
	rule("en-here-is", `^(?i:here is|here's)[^:\n]*:\s*\n*`),
}

// SuffixRules are tried in order; everything from the first match to the end is removed.
var SuffixRules = []Rule{
	rule("divider-notes", `\n\n---\s*\n\s*(?:优化说明|说明|注|以上|希望|此版本|本次|(?i:note|notes|explanation))[\s\S]*$`),
	rule("zh-optimization-notes", `\n\n优化说明[：:][\s\S]*$`),
	rule("zh-notes", `\n\n说明[：:][\s\S]*$`),
	rule("zh-as-shown", `\n\n如图所示[\s\S]*$`),
	rule("zh-this-version", `\n\n此版本[\s\S]*$`),
	rule("zh-this-time", `\n\n本次[\s\S]*$`),
	rule("zh-above", `\n\n以上[\s\S]*$`),
	rule("zh-hope", `\n\n希望[\s\S]*$`),
	rule("en-hope", `\n\n(?i:i hope|hope this)[\s\S]*$`),
}

// leadingPunct is stripped from the head of a result after an echo is cut.
var leadingPunct = regexp.MustCompile(`^[，。、；：！？,.;:!?\s]+`)
