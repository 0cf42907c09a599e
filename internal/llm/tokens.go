package llm

// charsPerToken is the average number of characters per token for English text.
const charsPerToken = 4

// EstimateTokens returns a rough token count for a string.
func EstimateTokens(s string) int {
	if len(s) == 0 {
		return 0
	}
	return (len(s) + charsPerToken - 1) / charsPerToken // round up
}

// EstimateMessageTokens adds per-message framing to the content estimate.
func EstimateMessageTokens(m Message) int {
	return 4 + EstimateTokens(m.Content)
}

// EstimateRequestTokens estimates the input side of a Chat call.
func EstimateRequestTokens(systemPrompt string, messages []Message) int {
	total := EstimateTokens(systemPrompt)
	for _, m := range messages {
		total += EstimateMessageTokens(m)
	}
	return total
}
