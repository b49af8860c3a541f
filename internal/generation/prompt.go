package generation

import (
	"fmt"
	"strings"
)

// Placeholders substituted into the prompt template.
const (
	CompanyPlaceholder = "{company_info}"
	ProductPlaceholder = "{product_info}"
)

// DefaultPromptTemplate is used when no template has been stored.
const DefaultPromptTemplate = `You are an experienced marketing copywriter.

Company information:
{company_info}

Product information:
{product_info}

Write one original article that introduces the product to potential customers.
Requirements:
- Write in Markdown and start with a single level-1 heading as the title
- Use subheadings to structure the article
- Highlight the product's benefits and the company's strengths
- Keep a professional, engaging tone
- Do not invent facts that contradict the information above`

// BuildPrompt fills the template with company and product info and appends
// the length instruction when targetWordCount is set. Only the first
// occurrence of each placeholder is replaced.
func BuildPrompt(template, companyInfo, productInfo string, targetWordCount *int) string {
	prompt := strings.Replace(template, CompanyPlaceholder, companyInfo, 1)
	prompt = strings.Replace(prompt, ProductPlaceholder, productInfo, 1)

	if targetWordCount != nil && *targetWordCount > 0 {
		prompt += fmt.Sprintf("\n\nThe article should be about %d words long.", *targetWordCount)
	}

	return prompt
}

// ValidateTemplate checks that a custom template contains both placeholders.
func ValidateTemplate(template string) error {
	if strings.TrimSpace(template) == "" {
		return fmt.Errorf("%w: template cannot be empty", ErrInvalidTemplate)
	}
	for _, p := range []string{CompanyPlaceholder, ProductPlaceholder} {
		if !strings.Contains(template, p) {
			return fmt.Errorf("%w: missing placeholder %s", ErrInvalidTemplate, p)
		}
	}
	return nil
}
