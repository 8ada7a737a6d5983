package session

import (
	"fmt"

	"github.com/codebuddy-labs/codebuddy/internal/curriculum"
)

const fallbackTopicLabel = "the current topic"

const finalProjectLabel = "the final project"

func evaluationPrompt(topic, code string) string {
	return fmt.Sprintf(`You are an AI code evaluator for "Code Buddy". A student has submitted code for the topic: %q.

Student's code:
`+"```"+`
%s
`+"```"+`

**Your Task:**
Analyze the code for correctness based on the challenge for the given topic.
- If the code is correct and solves the challenge, your entire response MUST start with the string "CODE_CORRECT" followed by a single line of encouraging text (e.g., "Excellent! Here's what your code produced:") and then the code's output.
- If the code has errors or is incorrect, your entire response MUST start with the string "CODE_INCORRECT" followed by a helpful, Socratic-style hint to guide the student. Do not give the direct answer. Be specific about the error.`, topic, code)
}

func transitionPrompt(completedTopic, nextTopic string) string {
	return fmt.Sprintf(`The student successfully completed the challenge for %q. Your task is to transition to the next lesson.
1. Start with a warm, celebratory message like "Shabash!" or "Well done!".
2. On a new line, output the special command: %s
3. On another new line, start teaching the next topic: %q. If there are no more topics, congratulate them on finishing the curriculum.`,
		completedTopic, TokenCurriculumMap, nextTopic)
}

func bootstrapPrompt(grade curriculum.GradeLevel, firstTopic string) string {
	return fmt.Sprintf("The student chose grade %s. Start by teaching the first topic: %s.", grade, firstTopic)
}

func welcomeText(title, firstTopic string) string {
	return fmt.Sprintf(`Great choice! We'll start with the %s.
%s
Let's begin our journey with our first topic: **%s**.`, title, TokenCurriculumMap, firstTopic)
}
