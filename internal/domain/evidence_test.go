package domain

import "testing"

func TestParseEvidence(t *testing.T) {
	raw := []byte(`{
		"content": {"faq_count": 4, "has_faq_schema": true, "word_count": 950},
		"technical": {"has_schema": true, "schema_types": ["Organization", "FAQPage"], "has_sitemap": true},
		"media": {"image_count": 12, "images_with_alt": 11}
	}`)

	ev, err := ParseEvidence(raw)
	if err != nil {
		t.Fatalf("ParseEvidence: %v", err)
	}
	if ev.Content.FAQCount != 4 || !ev.Content.HasFAQSchema || ev.Content.WordCount != 950 {
		t.Fatalf("content evidence wrong: %+v", ev.Content)
	}
	if !ev.Technical.HasSchema || len(ev.Technical.SchemaTypes) != 2 || !ev.Technical.HasSitemap {
		t.Fatalf("technical evidence wrong: %+v", ev.Technical)
	}
	if ev.Media.ImageCount != 12 || ev.Media.ImagesWithAlt != 11 {
		t.Fatalf("media evidence wrong: %+v", ev.Media)
	}
}

func TestParseEvidenceEmpty(t *testing.T) {
	for _, raw := range [][]byte{nil, {}} {
		ev, err := ParseEvidence(raw)
		if err != nil {
			t.Fatalf("ParseEvidence(empty): %v", err)
		}
		if ev.Content.FAQCount != 0 || ev.Technical.HasSitemap || ev.Media.ImageCount != 0 {
			t.Fatalf("empty evidence should be zero: %+v", ev)
		}
	}
}

func TestParseEvidenceMalformed(t *testing.T) {
	if _, err := ParseEvidence([]byte(`{"content":`)); err == nil {
		t.Fatal("expected error for malformed json")
	}
}
