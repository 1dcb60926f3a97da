package propose

import (
	"fmt"
	"strings"
)

const countPrompt = `You are an expert in transcript chunking and topic boundary detection for long videos.
Given text transcribed from the audio of a video:
1. Decide how many distinct semantic chunks it contains.
2. Give each chunk a short title of a few words naming its main theme.

Guidelines:
- A chunk is a coherent theme, explanation, or dialogue unit.
- Avoid chunks that are very short or very long.
- Chunks are meant to be self-contained units for captioning and retrieval, not strict topic shifts.
- Titles are concise and descriptive.

Output format (follow it exactly):
Chunk count: <integer>
Titles:
1. <title of chunk 1>
2. <title of chunk 2>
...
N. <title of chunk N>

Text:
%s
`

const borderPrompt = `You are an expert in transcript segmentation for long videos.

Find EXACTLY %[1]d semantic boundaries in the transcript, following the %[2]d chunks and titles below.
Write each boundary as:
<last few words of the previous sentence>[BORDER]<first few words of the next sentence>

Rules:
1. One boundary per line. No numbering, no explanations, nothing else.
2. The words on both sides of [BORDER] must appear verbatim in the transcript.
3. The left side ends a sentence; the right side starts the next sentence.
4. Boundaries follow the given titles in order.
5. Output exactly %[1]d lines.

Transcript:
%[3]s

Topic count: %[2]d
Chunk titles:
%[4]s

Output:
`

// buildCountPrompt renders the stage-one prompt.
func buildCountPrompt(text string) string {
	return fmt.Sprintf(countPrompt, text)
}

// buildBorderPrompt renders the stage-two prompt for topicCount chunks.
func buildBorderPrompt(text string, topicCount int, titles []string) string {
	var b strings.Builder
	for i, t := range titles {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d. %s", i+1, t)
	}
	return fmt.Sprintf(borderPrompt, topicCount-1, topicCount, text, b.String())
}
