package review

import (
	"regexp"

	"github.com/mstanton/overseer/internal/models"
)

// scoreMetrics computes the six sub-scores for a work item. Every reviewer
// fills the full metric set; only the issues they raise differ by work type.
func scoreMetrics(item *models.WorkItem, cov CoverageEstimator) models.QualityMetrics {
	content := item.Content
	m := models.QualityMetrics{
		CodeQuality:    codeQualityScore(content),
		TestCoverage:   cov.Estimate(item.FilePath),
		Documentation:  docCompletenessScore(content, item.WorkType),
		Security:       securityScore(content),
		Performance:    performanceScore(content),
		ArchCompliance: archComplianceScore(content),
	}
	m.Recalculate()
	return m
}

func codeQualityScore(content string) float64 {
	score := 1.0
	if !hasErrorHandling(content) {
		score -= 0.2
	}
	if !hasLogging(content) {
		score -= 0.1
	}
	if !hasDocumentation(content) {
		score -= 0.1
	}
	switch c := complexity(content); {
	case c > maxComplexity:
		score -= 0.3
	case c > 5:
		score -= 0.1
	}
	return clamp01(score)
}

func securityScore(content string) float64 {
	matches := 0
	for _, sp := range securityPatterns {
		if sp.re.MatchString(content) {
			matches++
		}
	}
	return clamp01(1.0 - float64(matches)*0.2)
}

func performanceScore(content string) float64 {
	score := 1.0
	for _, re := range performancePatterns {
		if re.MatchString(content) {
			score -= 0.2
		}
	}
	return clamp01(score)
}

func archComplianceScore(content string) float64 {
	score := 1.0
	for _, p := range requiredArchPatterns {
		if !followsPattern(content, p) {
			score -= 0.2
		}
	}
	return clamp01(score)
}

func docCompletenessScore(content string, wt models.WorkType) float64 {
	if wt != models.WorkTypeDocumentation {
		return 0.8
	}
	found := 0
	for _, s := range allDocSections {
		if hasSection(content, s) {
			found++
		}
	}
	return float64(found) / float64(len(allDocSections))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

var sentenceRe = regexp.MustCompile(`[.!?]+`)
var wordSplitRe = regexp.MustCompile(`\s+`)

// readability returns a 0-10 score where higher means harder to read
// (inverted simplified Flesch Reading Ease).
func readability(content string) float64 {
	sentences := len(sentenceRe.FindAllStringIndex(content, -1))
	words := 0
	for _, w := range wordSplitRe.Split(content, -1) {
		if w != "" {
			words++
		}
	}
	if sentences == 0 || words == 0 {
		return 0
	}

	syllables := countSyllables(content)
	avgSentenceLen := float64(words) / float64(sentences)
	avgSyllables := float64(syllables) / float64(words)

	flesch := 206.835 - 1.015*avgSentenceLen - 84.6*avgSyllables
	score := (100 - flesch) / 10
	if score < 0 {
		return 0
	}
	if score > 10 {
		return 10
	}
	return score
}

// maxReadability is the worst acceptable readability score.
const maxReadability = 8.0

func countSyllables(text string) int {
	const vowels = "aeiouyAEIOUY"
	syllables := 0
	prevVowel := false
	for _, r := range text {
		isVowel := false
		for _, v := range vowels {
			if r == v {
				isVowel = true
				break
			}
		}
		if isVowel && !prevVowel {
			syllables++
		}
		prevVowel = isVowel
	}
	if syllables < 1 {
		return 1
	}
	return syllables
}
