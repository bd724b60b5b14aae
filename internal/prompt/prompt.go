// Package prompt holds the instructions sent to the inference provider.
package prompt

import "strings"

// TextPlaceholder marks where the extracted text goes in GenerationTemplate.
const TextPlaceholder = "{text}"

// OCRSystemPrompt is sent as the system message of every extraction call.
const OCRSystemPrompt = `You are a text extraction engine. Transcribe the text visible in the supplied page images.

Rules:
1. Reply with the transcribed text only. No greetings, no notes about the image, no code fences. Begin with the first word on the page.
2. Where characters are blurred, cut off or covered, restore them from the surrounding words and sentence structure so the result reads coherently.
3. Ignore the visual line breaks and column widths of the page. Join broken lines into full sentences and group them into natural paragraphs.
4. Do not add bold, italics or any other markdown unless it is part of the printed text.
5. When several pages are supplied, transcribe them in the order given.`

// GenerationTemplate is the single-turn prompt for question generation.
// Its output grammar is the one understood by the parser package.
const GenerationTemplate = `You write reading-comprehension exams. Build a set of multiple-choice questions from the INPUT TEXT below that test whether a reader understood it, from locating stated facts to reasoning across several sentences.

# STEP 1: READ THE TEXT
Decide on:
- Title: a short descriptive title of 3 to 8 words.
- Genre: for example Narrative, Argumentative, Informational, Scientific, Historical.
- Topics: 2 to 5 subject tags such as Technology, Environment, History, Education, Healthcare.
- Description: one sentence saying what the passage is about.

# STEP 2: WRITE QUESTIONS
Write at least one question of each kind:
1. Detail retrieval: the answer is stated word for word in the text.
2. Paraphrase: the answer is in the text but expressed with different wording.
3. Inference: the answer is not stated and must be deduced, possibly across sentences.
4. Main idea: best title, central claim or purpose of the passage.
5. Attitude or vocabulary: the author's tone, a character's feeling, or a word's meaning in context.
Then keep adding questions until every significant point of the passage is covered. Write no fewer than 5 questions in total.

Every question has exactly 4 options. Wrong options must be plausible, for instance reusing words from the text in the wrong sense. Avoid "All of the above" and "None of the above". Mix direct questions with fill-in-the-blank sentences that use _ for the blank.

# STEP 3: OUTPUT FORMAT
Reply with nothing but the quiz, in exactly this shape:

# <title>

> Genre: <genre>

> Topics: <topic 1>, <topic 2>, <topic 3>

> Description: <one sentence>

### 1. <question or sentence with _>
- <option>
- <option>
- <option>
- <option>
> <letter of the correct option: A, B, C or D>
> Explanation: <one sentence citing the text>

### 2. <question>
- <option>
- <option>
- <option>
- <option>
> <letter>
> Explanation: <one sentence>

Do not put letters in front of the options. Put exactly one answer letter line after the options of each question.

# INPUT TEXT:
{text}`

// BuildGenerationPrompt substitutes text into GenerationTemplate.
func BuildGenerationPrompt(text string) string {
	return strings.Replace(GenerationTemplate, TextPlaceholder, text, 1)
}
