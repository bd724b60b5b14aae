package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullOutput = `# Climate Change Impact on Agriculture

> Genre: Informational

> Topics: Environment, Climate Change, Agriculture

### 1. The passage is most probably taken from ___ .
- a textbook on biology
- a daily newspaper
- a travel guide
- a science fiction novel
> B
> Explanation: The style matches news reporting.

## 2. Which of the following is NOT mentioned as a reason for crop failure?
- A. Rising temperatures
- B) Unpredictable rainfall
- c/ Soil degradation
- D. Lack of farmers
> d

---
`

func TestParse_SingleQuestion(t *testing.T) {
	quiz := Parse("### What is 2+2?\n- 3\n- 4\n- 5\n- 6\n> B")

	require.Len(t, quiz.Questions, 1)
	q := quiz.Questions[0]
	assert.Equal(t, 1, q.ID)
	assert.Equal(t, "What is 2+2?", q.Content)
	assert.Equal(t, []string{"3", "4", "5", "6"}, q.Options)
	assert.Equal(t, 1, q.CorrectIndex)
	assert.Equal(t, "General", q.Type)
}

func TestParse_Metadata(t *testing.T) {
	quiz := Parse("# History Quiz\n> Genre: History\n\n### Who was the first Roman emperor?\n- Augustus\n- Nero\n> A")

	assert.Equal(t, "History Quiz", quiz.Title)
	assert.Equal(t, "History", quiz.Genre)
	assert.Equal(t, []string{"General"}, quiz.Topics)
	require.Len(t, quiz.Questions, 1)
	assert.Equal(t, "Who was the first Roman emperor?", quiz.Questions[0].Content)
}

func TestParse_MetadataDefaults(t *testing.T) {
	quiz := Parse("### Q?\n- a\n> A")

	assert.Equal(t, DefaultTitle, quiz.Title)
	assert.Equal(t, "General", quiz.Genre)
	assert.Equal(t, []string{"General"}, quiz.Topics)
	assert.Empty(t, quiz.Description)
}

func TestParse_FullOutput(t *testing.T) {
	quiz := Parse(fullOutput)

	assert.Equal(t, "Climate Change Impact on Agriculture", quiz.Title)
	assert.Equal(t, "Informational", quiz.Genre)
	assert.Equal(t, []string{"Environment", "Climate Change", "Agriculture"}, quiz.Topics)
	require.Len(t, quiz.Questions, 2)

	first := quiz.Questions[0]
	assert.Equal(t, "The passage is most probably taken from _ .", first.Content)
	assert.Equal(t, "a textbook on biology", first.Options[0], "plain leading article must survive")
	assert.Equal(t, 1, first.CorrectIndex)
	assert.Equal(t, "The style matches news reporting.", first.Explanation)

	second := quiz.Questions[1]
	assert.Equal(t, 2, second.ID)
	assert.Equal(t, "Which of the following is NOT mentioned as a reason for crop failure?", second.Content)
	assert.Equal(t, []string{"Rising temperatures", "Unpredictable rainfall", "Soil degradation", "Lack of farmers"}, second.Options)
	assert.Equal(t, 3, second.CorrectIndex)
	assert.Empty(t, second.Explanation)
}

func TestParse_DropsMalformedBlocks(t *testing.T) {
	input := strings.Join([]string{
		"Here are your questions:",
		"### Well formed?",
		"- yes",
		"- no",
		"> A",
		"### Missing options",
		"> B",
		"### Missing answer",
		"- one",
		"- two",
		"### Letter outside A-D is not an answer",
		"- one",
		"- two",
		"> E",
		"### Two answers",
		"- one",
		"- two",
		"> A",
		"> B",
		"### Answer past the options",
		"- one",
		"- two",
		"> D",
		"### Also fine",
		"- x",
		"> a",
	}, "\n")

	quiz, report := ParseWithReport(input)

	require.Len(t, quiz.Questions, 2)
	assert.Equal(t, "Well formed?", quiz.Questions[0].Content)
	assert.Equal(t, 1, quiz.Questions[0].ID)
	assert.Equal(t, "Also fine", quiz.Questions[1].Content)
	assert.Equal(t, 2, quiz.Questions[1].ID)

	var reasons []SkipReason
	for _, res := range report {
		if !res.Valid() {
			reasons = append(reasons, res.Reason)
		}
	}
	assert.Equal(t, []SkipReason{
		SkipNoOptions, // preamble
		SkipNoOptions,
		SkipNoAnswer,
		SkipNoAnswer,
		SkipMultipleAnswers,
		SkipAnswerRange,
	}, reasons)
}

func TestParse_IgnoresMarkerLinesOutsideAD(t *testing.T) {
	quiz, report := ParseWithReport("### Q?\n- a\n- b\n> B\n> X")

	require.Len(t, quiz.Questions, 1)
	assert.Equal(t, 1, quiz.Questions[0].CorrectIndex)
	assert.Equal(t, []string{"a", "b"}, quiz.Questions[0].Options)
	require.Len(t, report, 1)
	assert.True(t, report[0].Valid())
}

func TestParse_WellFormedAndMissingOptions(t *testing.T) {
	quiz := Parse("### Valid?\n- a\n- b\n> B\n\n### Invalid\n> A")

	require.Len(t, quiz.Questions, 1)
	assert.Equal(t, 1, quiz.Questions[0].ID)
	assert.Equal(t, "Valid?", quiz.Questions[0].Content)
}

func TestParse_OptionCap(t *testing.T) {
	quiz := Parse("### Pick one\n- 1\n- 2\n- 3\n- 4\n- 5\n- 6\n> C")

	require.Len(t, quiz.Questions, 1)
	assert.Equal(t, []string{"1", "2", "3", "4"}, quiz.Questions[0].Options)
	assert.Equal(t, 2, quiz.Questions[0].CorrectIndex)
}

func TestParse_OptionsStopAtAnswerLine(t *testing.T) {
	quiz := Parse("### Q\n- a\n- b\n> A\n- late option")

	require.Len(t, quiz.Questions, 1)
	assert.Equal(t, []string{"a", "b"}, quiz.Questions[0].Options)
}

func TestParse_HeadingVariantsAreNormalized(t *testing.T) {
	quiz := Parse("## One\n- a\n> A\n#### Two\n- b\n> A\n### Three\n- c\n> A")

	require.Len(t, quiz.Questions, 3)
	assert.Equal(t, "One", quiz.Questions[0].Content)
	assert.Equal(t, "Two", quiz.Questions[1].Content)
	assert.Equal(t, "Three", quiz.Questions[2].Content)
}

func TestParse_TopicsAreTrimmedAndDeduplicated(t *testing.T) {
	quiz := Parse("> Topics: AI,  , Healthcare , AI\n### Q\n- a\n> A")
	assert.Equal(t, []string{"AI", "Healthcare"}, quiz.Topics)

	empty := Parse("> Topics:  , \n### Q\n- a\n> A")
	assert.Equal(t, []string{"General"}, empty.Topics)
}

func TestParse_WindowsNewlines(t *testing.T) {
	quiz := Parse("# Title\r\n### Q?\r\n- a\r\n- b\r\n> b\r\n")

	assert.Equal(t, "Title", quiz.Title)
	require.Len(t, quiz.Questions, 1)
	assert.Equal(t, 1, quiz.Questions[0].CorrectIndex)
}

func TestParse_RuleLinesAreNotOptions(t *testing.T) {
	quiz := Parse("### Q\n- a\n---\n- b\n> B")

	require.Len(t, quiz.Questions, 1)
	assert.Equal(t, []string{"a", "b"}, quiz.Questions[0].Options)
}

func TestParse_Deterministic(t *testing.T) {
	first := Parse(fullOutput)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Parse(fullOutput))
	}
}

func TestParse_NeverPanicsOnJunk(t *testing.T) {
	inputs := []string{
		"",
		"###",
		"### \n-\n>",
		"-\n> A",
		"# \n> Genre:\n> Topics:",
		"######## deep\n- x\n> A",
		"### 1. \n- x\n> A",
	}
	for _, in := range inputs {
		assert.NotPanics(t, func() {
			quiz := Parse(in)
			for _, q := range quiz.Questions {
				assert.NoError(t, q.Validate())
			}
		}, in)
	}
}
