package export

import (
	"strconv"
	"time"
)

// Metadata describes where exported articles came from.
type Metadata struct {
	TaskID       string     `json:"taskId" yaml:"taskId"`
	CompanyInfo  string     `json:"companyInfo" yaml:"companyInfo"`
	ProductInfo  string     `json:"productInfo" yaml:"productInfo"`
	ArticleCount int        `json:"articleCount" yaml:"articleCount"`
	GeneratedAt  *time.Time `json:"generatedAt,omitempty" yaml:"generatedAt,omitempty"`
}

// pairs returns the metadata as ordered key/value pairs.
func (m *Metadata) pairs() [][2]string {
	if m == nil {
		return nil
	}
	out := [][2]string{
		{"taskId", m.TaskID},
		{"companyInfo", m.CompanyInfo},
		{"productInfo", m.ProductInfo},
		{"articleCount", strconv.Itoa(m.ArticleCount)},
	}
	if m.GeneratedAt != nil {
		out = append(out, [2]string{"generatedAt", m.GeneratedAt.UTC().Format(time.RFC3339)})
	}
	return out
}

func (m *Metadata) tags() []metaTag {
	pairs := m.pairs()
	tags := make([]metaTag, 0, len(pairs))
	for _, p := range pairs {
		tags = append(tags, metaTag{Name: p[0], Content: p[1]})
	}
	return tags
}
