// Package parser turns free-form model completions into quiz metadata and questions.
//
// Parsing never fails. Each candidate block yields a BlockResult that is either a
// question or a skip reason, and only the former reach ParsedQuiz.Questions.
package parser

import (
	"regexp"
	"strings"

	"openlet/internal/domain"
)

const (
	DefaultTitle = "Untitled Quiz"
	DefaultGenre = "General"
	DefaultTopic = "General"

	blockSeparator = "###"
)

var (
	titlePattern       = regexp.MustCompile(`(?m)^#[ \t]+(.+?)[ \t]*$`)
	descriptionPattern = regexp.MustCompile(`(?mi)^[ \t]*>[ \t]*Description:[ \t]*(.+?)[ \t]*$`)
	genrePattern       = regexp.MustCompile(`(?mi)^[ \t]*>[ \t]*Genre:[ \t]*(.+?)[ \t]*$`)
	topicsPattern      = regexp.MustCompile(`(?mi)^[ \t]*>[ \t]*Topics?:[ \t]*(.+?)[ \t]*$`)

	headingPattern      = regexp.MustCompile(`(?m)^#{2,4}[ \t]+`)
	answerPattern       = regexp.MustCompile(`^>\s*([A-Da-d])\s*$`)
	explanationPattern  = regexp.MustCompile(`(?i)^>\s*explanation:\s*(.+)$`)
	numberPrefixPattern = regexp.MustCompile(`^\d+\.\s+`)
	underscoresPattern  = regexp.MustCompile(`_{2,}`)
	optionPrefixPattern = regexp.MustCompile(`^[A-Da-d][.)/],?\s+`)
	ruleLinePattern     = regexp.MustCompile(`^-{3,}$`)
)

var answerIndex = map[string]int{"A": 0, "B": 1, "C": 2, "D": 3}

// SkipReason explains why a block did not become a question.
type SkipReason string

const (
	SkipNone            SkipReason = ""
	SkipNoOptions       SkipReason = "no option lines"
	SkipNoAnswer        SkipReason = "no answer line"
	SkipMultipleAnswers SkipReason = "more than one answer line"
	SkipEmptyContent    SkipReason = "empty question text"
	SkipAnswerRange     SkipReason = "answer points past the last option"
	SkipInvalid         SkipReason = "question failed validation"
)

// BlockResult is the outcome for one candidate block: Question is set when
// Reason is SkipNone.
type BlockResult struct {
	Index    int
	Question *domain.Question
	Reason   SkipReason
}

// Valid reports whether the block produced a question.
func (r BlockResult) Valid() bool {
	return r.Reason == SkipNone && r.Question != nil
}

// Parse extracts metadata and every qualifying question from raw. Question IDs are
// assigned 1..n in block order, independent of any numbering in the text.
func Parse(raw string) domain.ParsedQuiz {
	quiz, _ := ParseWithReport(raw)
	return quiz
}

// ParseWithReport is Parse plus the per-block results, skipped blocks included.
func ParseWithReport(raw string) (domain.ParsedQuiz, []BlockResult) {
	text := normalizeNewlines(raw)

	quiz := domain.ParsedQuiz{
		Title:       firstMatch(titlePattern, text, DefaultTitle),
		Description: firstMatch(descriptionPattern, text, ""),
		Genre:       firstMatch(genrePattern, text, DefaultGenre),
		Topics:      parseTopics(firstMatch(topicsPattern, text, "")),
		Questions:   []domain.Question{},
	}

	results := ParseBlocks(text)
	for _, res := range results {
		if !res.Valid() {
			continue
		}
		q := *res.Question
		q.ID = len(quiz.Questions) + 1
		quiz.Questions = append(quiz.Questions, q)
	}
	return quiz, results
}

// ParseBlocks normalises heading markers, splits the text into blocks and
// classifies each non-blank block.
func ParseBlocks(raw string) []BlockResult {
	normalized := headingPattern.ReplaceAllString(normalizeNewlines(raw), blockSeparator)

	var results []BlockResult
	for _, block := range strings.Split(strings.TrimSpace(normalized), blockSeparator) {
		lines := nonEmptyLines(block)
		if len(lines) == 0 {
			continue
		}
		res := parseBlock(lines)
		res.Index = len(results)
		results = append(results, res)
	}
	return results
}

func parseBlock(lines []string) BlockResult {
	hasOption := false
	answerLines := 0
	for _, line := range lines {
		switch {
		case isOptionLine(line):
			hasOption = true
		case answerPattern.MatchString(line):
			answerLines++
		}
	}
	if !hasOption {
		return BlockResult{Reason: SkipNoOptions}
	}
	if answerLines == 0 {
		return BlockResult{Reason: SkipNoAnswer}
	}
	if answerLines > 1 {
		return BlockResult{Reason: SkipMultipleAnswers}
	}

	content := numberPrefixPattern.ReplaceAllString(lines[0], "")
	content = strings.TrimSpace(underscoresPattern.ReplaceAllString(content, "_"))
	if content == "" {
		return BlockResult{Reason: SkipEmptyContent}
	}

	var options []string
	letter := ""
	answerAt := -1
	for i, line := range lines[1:] {
		if m := answerPattern.FindStringSubmatch(line); m != nil {
			letter = strings.ToUpper(m[1])
			answerAt = i + 1
			break
		}
		if !isOptionLine(line) || len(options) == domain.MaxOptions {
			continue
		}
		option := strings.TrimSpace(line[1:])
		option = strings.TrimSpace(optionPrefixPattern.ReplaceAllString(option, ""))
		if option != "" {
			options = append(options, option)
		}
	}

	if answerAt < 0 {
		// The only answer line was the content line itself.
		return BlockResult{Reason: SkipNoAnswer}
	}
	if len(options) == 0 {
		return BlockResult{Reason: SkipNoOptions}
	}
	correct := answerIndex[letter]
	if correct >= len(options) {
		return BlockResult{Reason: SkipAnswerRange}
	}

	q := &domain.Question{
		Content:      content,
		Options:      options,
		CorrectIndex: correct,
		Explanation:  findExplanation(lines[answerAt+1:]),
		Type:         domain.DefaultQuestionType,
	}
	if err := q.Validate(); err != nil {
		return BlockResult{Reason: SkipInvalid}
	}
	return BlockResult{Question: q}
}

func findExplanation(lines []string) string {
	for _, line := range lines {
		if !strings.HasPrefix(line, ">") {
			continue
		}
		if m := explanationPattern.FindStringSubmatch(line); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

func isOptionLine(line string) bool {
	return strings.HasPrefix(line, "-") && !ruleLinePattern.MatchString(line)
}

func parseTopics(raw string) []string {
	seen := make(map[string]bool)
	var topics []string
	for _, t := range strings.Split(raw, ",") {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		topics = append(topics, t)
	}
	if len(topics) == 0 {
		return []string{DefaultTopic}
	}
	return topics
}

func firstMatch(re *regexp.Regexp, text, fallback string) string {
	if m := re.FindStringSubmatch(text); m != nil {
		if v := strings.TrimSpace(m[1]); v != "" {
			return v
		}
	}
	return fallback
}

func nonEmptyLines(block string) []string {
	var lines []string
	for _, line := range strings.Split(block, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func normalizeNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}
