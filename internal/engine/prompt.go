package engine

// LLM prompt templates: data only, no logic.

// cleanupPrompt asks the model to tidy caption paragraphs while keeping their index tags.
// Args: tagged paragraphs, one per line as "[P<index>] text".
const cleanupPrompt = `You are editing an automatically generated video transcript.
Each paragraph below starts with an index tag like [P0], [P1], ...

Rules:
- Keep the meaning of every paragraph exactly. Do not summarize, merge, split or reorder paragraphs.
- Fix punctuation and capitalization.
- Remove filler artifacts: [Music], [Applause], um, uh, repeated words, stray ">>" markers.
- Echo back EVERY index tag, once, in the same order, followed by the cleaned text.
- Output only the tagged paragraphs. No commentary, no markdown.

Paragraphs:
%s`
