package services

import (
	"fmt"
	"strings"

	types "github.com/visiblelabs/aivis-backend/internal/domain"
)

// ValidationResult is one validator's verdict against a fresh evidence
// bundle. RemainingTitle, set only for requeueable partials, states exactly
// what is left to do and becomes the follow-up recommendation's title.
type ValidationResult struct {
	Subfactor      string
	Outcome        string
	CompletionPct  int
	Found          []string
	Missing        []string
	Requeueable    bool
	RemainingTitle string
	Notes          string
}

// Validator re-checks one subfactor against scan evidence.
type Validator interface {
	Subfactor() string
	Validate(ev types.Evidence) ValidationResult
}

// Subfactor keys.
const (
	SubfactorFAQ             = "faq"
	SubfactorMetaDescription = "meta_description"
	SubfactorTitleTag        = "title_tag"
	SubfactorAltText         = "alt_text"
	SubfactorHeadings        = "heading_structure"
	SubfactorSchemaMarkup    = "schema_markup"
	SubfactorSitemap         = "sitemap"
	SubfactorRobotsTxt       = "robots_txt"
	SubfactorContentDepth    = "content_depth"
	SubfactorGeneric         = "generic"
)

// validatorRegistry resolves the validator for a recommendation. Unknown
// subfactors fall back to the generic validator, which never claims success.
type validatorRegistry struct {
	byKey map[string]Validator
}

func newValidatorRegistry() *validatorRegistry {
	r := &validatorRegistry{byKey: map[string]Validator{}}
	for _, v := range []Validator{
		faqValidator{},
		metaDescriptionValidator{},
		titleTagValidator{},
		altTextValidator{},
		headingValidator{},
		schemaMarkupValidator{},
		sitemapValidator{},
		robotsTxtValidator{},
		contentDepthValidator{},
	} {
		r.byKey[v.Subfactor()] = v
	}
	return r
}

// subfactor keyword hints, checked against the recommendation title in order.
var subfactorHints = []struct {
	keyword   string
	subfactor string
}{
	{"faq", SubfactorFAQ},
	{"meta description", SubfactorMetaDescription},
	{"title tag", SubfactorTitleTag},
	{"alt text", SubfactorAltText},
	{"alt-text", SubfactorAltText},
	{"heading", SubfactorHeadings},
	{"sitemap", SubfactorSitemap},
	{"robots.txt", SubfactorRobotsTxt},
	{"schema", SubfactorSchemaMarkup},
	{"word count", SubfactorContentDepth},
	{"content depth", SubfactorContentDepth},
}

func (r *validatorRegistry) For(rec *types.Recommendation) Validator {
	key := strings.ToLower(strings.TrimSpace(rec.Category))
	if v, ok := r.byKey[key]; ok {
		return v
	}
	title := strings.ToLower(rec.Title)
	for _, h := range subfactorHints {
		if strings.Contains(title, h.keyword) {
			return r.byKey[h.subfactor]
		}
	}
	return genericValidator{}
}

// faqValidator requires 5 FAQs, or 3 FAQs plus FAQ schema markup.
type faqValidator struct{}

func (faqValidator) Subfactor() string { return SubfactorFAQ }

func (faqValidator) Validate(ev types.Evidence) ValidationResult {
	const fullCount, schemaCount = 5, 3
	c := ev.Content.FAQCount
	hasSchema := ev.Content.HasFAQSchema

	res := ValidationResult{Subfactor: SubfactorFAQ, Requeueable: true}
	if c >= fullCount || (c >= schemaCount && hasSchema) {
		res.Outcome = types.OutcomeVerifiedComplete
		res.CompletionPct = 100
		res.Found = append(res.Found, fmt.Sprintf("%d FAQs", c))
		if hasSchema {
			res.Found = append(res.Found, "FAQ schema")
		}
		return res
	}
	if c == 0 {
		res.Outcome = types.OutcomeNotImplemented
		res.Missing = []string{fmt.Sprintf("%d FAQs", fullCount), "FAQ schema"}
		return res
	}

	res.Outcome = types.OutcomePartialProgress
	res.CompletionPct = c * 100 / fullCount
	res.Found = append(res.Found, fmt.Sprintf("%d FAQs", c))
	if hasSchema {
		res.Found = append(res.Found, "FAQ schema")
		res.Missing = []string{fmt.Sprintf("%d more FAQs", schemaCount-c)}
		res.RemainingTitle = fmt.Sprintf("Add %d more FAQs", schemaCount-c)
	} else {
		res.Missing = []string{fmt.Sprintf("%d more FAQs", fullCount-c), "FAQ schema"}
		res.RemainingTitle = fmt.Sprintf("Add %d more FAQs and Schema", fullCount-c)
	}
	return res
}

type metaDescriptionValidator struct{}

func (metaDescriptionValidator) Subfactor() string { return SubfactorMetaDescription }

func (metaDescriptionValidator) Validate(ev types.Evidence) ValidationResult {
	l := ev.Content.MetaDescriptionLength
	res := ValidationResult{Subfactor: SubfactorMetaDescription, Requeueable: true}
	switch {
	case l >= 120 && l <= 160:
		res.Outcome = types.OutcomeVerifiedComplete
		res.CompletionPct = 100
		res.Found = []string{fmt.Sprintf("meta description (%d chars)", l)}
	case l > 0:
		res.Outcome = types.OutcomePartialProgress
		res.CompletionPct = 50
		res.Found = []string{fmt.Sprintf("meta description (%d chars)", l)}
		res.Missing = []string{"meta description between 120 and 160 characters"}
		res.RemainingTitle = "Rewrite meta description to 120-160 characters"
	default:
		res.Outcome = types.OutcomeNotImplemented
		res.Missing = []string{"meta description"}
	}
	return res
}

type titleTagValidator struct{}

func (titleTagValidator) Subfactor() string { return SubfactorTitleTag }

func (titleTagValidator) Validate(ev types.Evidence) ValidationResult {
	l := ev.Content.TitleLength
	res := ValidationResult{Subfactor: SubfactorTitleTag, Requeueable: true}
	switch {
	case l >= 30 && l <= 60:
		res.Outcome = types.OutcomeVerifiedComplete
		res.CompletionPct = 100
		res.Found = []string{fmt.Sprintf("title tag (%d chars)", l)}
	case l > 0:
		res.Outcome = types.OutcomePartialProgress
		res.CompletionPct = 50
		res.Found = []string{fmt.Sprintf("title tag (%d chars)", l)}
		res.Missing = []string{"title between 30 and 60 characters"}
		res.RemainingTitle = "Rewrite title tag to 30-60 characters"
	default:
		res.Outcome = types.OutcomeNotImplemented
		res.Missing = []string{"title tag"}
	}
	return res
}

type altTextValidator struct{}

func (altTextValidator) Subfactor() string { return SubfactorAltText }

func (altTextValidator) Validate(ev types.Evidence) ValidationResult {
	res := ValidationResult{Subfactor: SubfactorAltText, Requeueable: true}
	total, with := ev.Media.ImageCount, ev.Media.ImagesWithAlt
	if total == 0 {
		res.Outcome = types.OutcomeNotImplemented
		res.Notes = "no images found in evidence"
		return res
	}
	pct := with * 100 / total
	switch {
	case pct >= 90:
		res.Outcome = types.OutcomeVerifiedComplete
		res.CompletionPct = 100
		res.Found = []string{fmt.Sprintf("%d of %d images with alt text", with, total)}
	case with > 0:
		res.Outcome = types.OutcomePartialProgress
		res.CompletionPct = pct
		res.Found = []string{fmt.Sprintf("%d of %d images with alt text", with, total)}
		res.Missing = []string{fmt.Sprintf("alt text on %d images", total-with)}
		res.RemainingTitle = fmt.Sprintf("Add alt text to %d more images", total-with)
	default:
		res.Outcome = types.OutcomeNotImplemented
		res.Missing = []string{fmt.Sprintf("alt text on %d images", total)}
	}
	return res
}

type headingValidator struct{}

func (headingValidator) Subfactor() string { return SubfactorHeadings }

func (headingValidator) Validate(ev types.Evidence) ValidationResult {
	res := ValidationResult{Subfactor: SubfactorHeadings, Requeueable: true}
	h1, total := ev.Content.H1Count, ev.Content.HeadingCount
	switch {
	case h1 == 1 && total >= 3:
		res.Outcome = types.OutcomeVerifiedComplete
		res.CompletionPct = 100
		res.Found = []string{"single H1", fmt.Sprintf("%d headings", total)}
	case total > 0:
		res.Outcome = types.OutcomePartialProgress
		res.CompletionPct = 50
		res.Found = []string{fmt.Sprintf("%d headings", total)}
		if h1 != 1 {
			res.Missing = append(res.Missing, "exactly one H1")
		}
		if total < 3 {
			res.Missing = append(res.Missing, fmt.Sprintf("%d more headings", 3-total))
		}
		res.RemainingTitle = "Fix heading structure: " + strings.Join(res.Missing, ", ")
	default:
		res.Outcome = types.OutcomeNotImplemented
		res.Missing = []string{"heading structure"}
	}
	return res
}

type schemaMarkupValidator struct{}

func (schemaMarkupValidator) Subfactor() string { return SubfactorSchemaMarkup }

func (schemaMarkupValidator) Validate(ev types.Evidence) ValidationResult {
	res := ValidationResult{Subfactor: SubfactorSchemaMarkup, Requeueable: true}
	switch {
	case ev.Technical.HasSchema && len(ev.Technical.SchemaTypes) > 0:
		res.Outcome = types.OutcomeVerifiedComplete
		res.CompletionPct = 100
		res.Found = ev.Technical.SchemaTypes
	case ev.Technical.HasSchema:
		res.Outcome = types.OutcomePartialProgress
		res.CompletionPct = 50
		res.Found = []string{"schema markup"}
		res.Missing = []string{"typed schema blocks"}
		res.RemainingTitle = "Add typed Schema.org blocks"
	default:
		res.Outcome = types.OutcomeNotImplemented
		res.Missing = []string{"schema markup"}
	}
	return res
}

// sitemapValidator is binary: the file either exists or it does not, so a
// partial outcome is impossible and the validator is never requeueable.
type sitemapValidator struct{}

func (sitemapValidator) Subfactor() string { return SubfactorSitemap }

func (sitemapValidator) Validate(ev types.Evidence) ValidationResult {
	res := ValidationResult{Subfactor: SubfactorSitemap}
	if ev.Technical.HasSitemap {
		res.Outcome = types.OutcomeVerifiedComplete
		res.CompletionPct = 100
		res.Found = []string{"sitemap.xml"}
	} else {
		res.Outcome = types.OutcomeNotImplemented
		res.Missing = []string{"sitemap.xml"}
	}
	return res
}

type robotsTxtValidator struct{}

func (robotsTxtValidator) Subfactor() string { return SubfactorRobotsTxt }

func (robotsTxtValidator) Validate(ev types.Evidence) ValidationResult {
	res := ValidationResult{Subfactor: SubfactorRobotsTxt}
	if ev.Technical.HasRobotsTxt {
		res.Outcome = types.OutcomeVerifiedComplete
		res.CompletionPct = 100
		res.Found = []string{"robots.txt"}
	} else {
		res.Outcome = types.OutcomeNotImplemented
		res.Missing = []string{"robots.txt"}
	}
	return res
}

type contentDepthValidator struct{}

func (contentDepthValidator) Subfactor() string { return SubfactorContentDepth }

func (contentDepthValidator) Validate(ev types.Evidence) ValidationResult {
	const target = 800
	res := ValidationResult{Subfactor: SubfactorContentDepth, Requeueable: true}
	wc := ev.Content.WordCount
	switch {
	case wc >= target:
		res.Outcome = types.OutcomeVerifiedComplete
		res.CompletionPct = 100
		res.Found = []string{fmt.Sprintf("%d words", wc)}
	case wc >= 300:
		res.Outcome = types.OutcomePartialProgress
		res.CompletionPct = wc * 100 / target
		res.Found = []string{fmt.Sprintf("%d words", wc)}
		res.Missing = []string{fmt.Sprintf("%d more words", target-wc)}
		res.RemainingTitle = fmt.Sprintf("Expand content by %d words", target-wc)
	default:
		res.Outcome = types.OutcomeNotImplemented
		res.Missing = []string{fmt.Sprintf("at least %d words", target)}
	}
	return res
}

// genericValidator handles subfactors without a dedicated validator. It
// never claims success: the outcome is always not_implemented with a manual
// review note.
type genericValidator struct{}

func (genericValidator) Subfactor() string { return SubfactorGeneric }

func (genericValidator) Validate(types.Evidence) ValidationResult {
	return ValidationResult{
		Subfactor: SubfactorGeneric,
		Outcome:   types.OutcomeNotImplemented,
		Notes:     "no automated validator for this subfactor; manual review required",
	}
}
