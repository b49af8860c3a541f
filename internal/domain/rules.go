package domain

// DefaultContentRules is the rule block used until the user saves their own.
const DefaultContentRules = `# Writing requirements
- Accurate, objective and valuable content
- Fluent language with clear logic
- Suitable for the target audience

# Formatting
- Standard Markdown
- Clear heading hierarchy
- Paragraphs of moderate length

# Quality
- Avoid repetition and redundancy
- Keep information timely and accurate`

// ContentRules is the free-text instruction block appended to every prompt.
type ContentRules struct {
	Rules   string `json:"rules"`
	Enabled bool   `json:"enabled"`
}

// DefaultRules returns the enabled default rule block.
func DefaultRules() ContentRules {
	return ContentRules{Rules: DefaultContentRules, Enabled: true}
}
