package domain

import "encoding/json"

// Evidence is the structured fact bundle the scoring engine attaches to a
// scan. Validators read it to re-check previously completed recommendations.
type Evidence struct {
	Content   ContentEvidence   `json:"content"`
	Technical TechnicalEvidence `json:"technical"`
	Media     MediaEvidence     `json:"media"`
}

type ContentEvidence struct {
	FAQCount              int  `json:"faq_count"`
	HasFAQSchema          bool `json:"has_faq_schema"`
	HeadingCount          int  `json:"heading_count"`
	H1Count               int  `json:"h1_count"`
	WordCount             int  `json:"word_count"`
	MetaDescriptionLength int  `json:"meta_description_length"`
	TitleLength           int  `json:"title_length"`
}

type TechnicalEvidence struct {
	HasSchema    bool     `json:"has_schema"`
	SchemaTypes  []string `json:"schema_types,omitempty"`
	HasSitemap   bool     `json:"has_sitemap"`
	HasRobotsTxt bool     `json:"has_robots_txt"`
	HTTPSEnabled bool     `json:"https_enabled"`
}

type MediaEvidence struct {
	ImageCount    int `json:"image_count"`
	ImagesWithAlt int `json:"images_with_alt"`
}

// ParseEvidence decodes the jsonb evidence column of a scan. A nil or empty
// column yields a zero bundle, which validators treat as "nothing found".
func ParseEvidence(raw []byte) (Evidence, error) {
	var ev Evidence
	if len(raw) == 0 {
		return ev, nil
	}
	if err := json.Unmarshal(raw, &ev); err != nil {
		return Evidence{}, err
	}
	return ev, nil
}
