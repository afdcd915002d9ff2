package review

import (
	"regexp"
	"strings"
)

// Pattern tables shared by the reviewers. Agents submit artifacts in several
// languages, so the markers are intentionally loose and multi-language.

var errorHandlingPatterns = []*regexp.Regexp{
	regexp.MustCompile(`if\s+err\s*!=\s*nil`),
	regexp.MustCompile(`(?i)errors\.(New|Is|As|Wrap)`),
	regexp.MustCompile(`fmt\.Errorf`),
	regexp.MustCompile(`(?i)try\s*[:{]`),
	regexp.MustCompile(`(?i)except\s+\w+`),
	regexp.MustCompile(`(?i)catch\s*\(`),
	regexp.MustCompile(`(?i)\braise\s+\w`),
	regexp.MustCompile(`(?i)\bthrow\s+\w`),
}

var loggingPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\blogger\.`),
	regexp.MustCompile(`(?i)\blog\.`),
	regexp.MustCompile(`\bslog\.`),
	regexp.MustCompile(`console\.log`),
	regexp.MustCompile(`(?i)\blogging\.`),
}

var docPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?s)""".*?"""`),
	regexp.MustCompile(`(?s)/\*\*?.*?\*/`),
	regexp.MustCompile(`(?m)^\s*//`),
	regexp.MustCompile(`(?m)^\s*#\s+\S`),
}

var complexityPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bif\b`),
	regexp.MustCompile(`(?i)\belse\b`),
	regexp.MustCompile(`(?i)\belif\b`),
	regexp.MustCompile(`(?i)\bwhile\b`),
	regexp.MustCompile(`(?i)\bfor\b`),
	regexp.MustCompile(`(?i)\bcase\b`),
	regexp.MustCompile(`(?i)\bswitch\b`),
	regexp.MustCompile(`(?i)\bselect\b`),
	regexp.MustCompile(`&&`),
	regexp.MustCompile(`\|\|`),
}

// securityPattern pairs an anti-pattern signature with its issue key. A
// match always yields a critical-severity issue.
type securityPattern struct {
	re          *regexp.Regexp
	issueType   string
	description string
}

var securityPatterns = []securityPattern{
	{regexp.MustCompile(`(?i)\beval\s*\(`), "dangerous_eval", "Use of eval() is dangerous"},
	{regexp.MustCompile(`(?i)\bexec\s*\(`), "dangerous_exec", "Use of exec() is dangerous"},
	{regexp.MustCompile(`(?i)pickle\.loads`), "dangerous_pickle", "Pickle deserialization is dangerous"},
	{regexp.MustCompile(`(?i)shell\s*=\s*True`), "dangerous_shell", "Shell injection vulnerability"},
	{regexp.MustCompile(`(?i)password\s*[:=]\s*["'][^"']+["']`), "hardcoded_password", "Hardcoded password detected"},
	{regexp.MustCompile(`(?i)api_?key\s*[:=]\s*["'][^"']+["']`), "hardcoded_api_key", "Hardcoded API key detected"},
	{regexp.MustCompile(`(?i)secret\s*[:=]\s*["'][^"']+["']`), "hardcoded_secret", "Hardcoded secret detected"},
}

var performancePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)while\s+True\s*:`),
	regexp.MustCompile(`for\s*\{\s*\}`),
	regexp.MustCompile(`(?i)time\.[Ss]leep\s*\(\s*[1-9]\d*\s*(\*\s*time\.Second)?\s*\)`),
	regexp.MustCompile(`(?i)range\s*\(\s*\d{5,}`),
}

func matchesAny(content string, patterns []*regexp.Regexp) bool {
	for _, re := range patterns {
		if re.MatchString(content) {
			return true
		}
	}
	return false
}

func hasErrorHandling(content string) bool { return matchesAny(content, errorHandlingPatterns) }
func hasLogging(content string) bool       { return matchesAny(content, loggingPatterns) }
func hasDocumentation(content string) bool { return matchesAny(content, docPatterns) }

// complexity is a rough McCabe-style count of branch points.
func complexity(content string) int {
	c := 1
	for _, re := range complexityPatterns {
		c += len(re.FindAllStringIndex(content, -1))
	}
	return c
}

// maxComplexity is the branch-point budget before a high_complexity issue.
const maxComplexity = 10

// hasSection reports whether doc content contains the named section as a
// markdown heading, a "name:" label, or an underlined title.
func hasSection(content, section string) bool {
	patterns := []string{
		`(?im)^#{1,6}\s*` + regexp.QuoteMeta(section),
		`(?im)^` + regexp.QuoteMeta(section) + `\s*:`,
		`(?im)^` + regexp.QuoteMeta(section) + `\s*\n[=-]+`,
	}
	for _, p := range patterns {
		if regexp.MustCompile(p).MatchString(content) {
			return true
		}
	}
	return false
}

// requiredDocSections are the sections documentation must carry.
var requiredDocSections = []string{"overview", "usage", "examples"}

// allDocSections is the larger set used for the completeness score.
var allDocSections = []string{"overview", "usage", "examples", "installation", "configuration"}

var testTypePatterns = map[string][]*regexp.Regexp{
	"unit": {
		regexp.MustCompile(`func\s+Test\w+`),
		regexp.MustCompile(`(?i)test_\w+`),
		regexp.MustCompile(`(?i)\bdescribe\s*\(`),
		regexp.MustCompile(`(?i)\bit\s*\(`),
	},
	"integration": {
		regexp.MustCompile(`(?i)integration.{0,20}test`),
		regexp.MustCompile(`(?i)test.{0,20}integration`),
		regexp.MustCompile(`(?i)e2e.{0,10}test`),
	},
}

// requiredTestTypes are the categories every test artifact must include.
var requiredTestTypes = []string{"unit", "integration"}

func hasTestType(content, testType string) bool {
	return matchesAny(content, testTypePatterns[testType])
}

// architecturalPattern checks are crude structural heuristics, same spirit
// as the detection patterns above.
var requiredArchPatterns = []string{"separation_of_concerns", "single_responsibility"}

var concernWords = []string{"database", "ui", "business", "validation", "logging"}

var funcDeclRe = regexp.MustCompile(`(?m)^\s*(func|def)\s+\w+`)

func followsPattern(content, pattern string) bool {
	switch pattern {
	case "separation_of_concerns":
		found := 0
		lower := strings.ToLower(content)
		for _, w := range concernWords {
			if strings.Contains(lower, w) {
				found++
			}
		}
		// More than two concerns mixed in one artifact is a smell.
		return found <= 2
	case "single_responsibility":
		return len(funcDeclRe.FindAllStringIndex(content, -1)) <= 10
	default:
		return true
	}
}
