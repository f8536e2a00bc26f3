package services

import (
	"testing"
	"time"

	"github.com/visiblelabs/aivis-backend/internal/config"
	types "github.com/visiblelabs/aivis-backend/internal/domain"
)

func TestIsSiteWide(t *testing.T) {
	rules := config.DefaultRuleTable()

	cases := []struct {
		name string
		rr   RawRecommendation
		want bool
	}{
		{
			name: "technical_seo_category",
			rr:   RawRecommendation{Category: "technical_seo", Title: "Fix canonical tags"},
			want: true,
		},
		{
			name: "category_case_insensitive",
			rr:   RawRecommendation{Category: "Technical_SEO", Title: "Fix canonical tags"},
			want: true,
		},
		{
			name: "robots_txt_keyword_in_title",
			rr:   RawRecommendation{Category: "content", Title: "Update robots.txt disallow rules"},
			want: true,
		},
		{
			name: "sitemap_keyword_in_text",
			rr:   RawRecommendation{Category: "content", Title: "Improve discoverability", Text: "Submit an XML sitemap to search engines"},
			want: true,
		},
		{
			name: "https_keyword_uppercase",
			rr:   RawRecommendation{Category: "content", Title: "Serve everything over HTTPS"},
			want: true,
		},
		{
			name: "organization_schema_keyword",
			rr:   RawRecommendation{Category: "content", Title: "Add Organization schema to the homepage"},
			want: true,
		},
		{
			name: "plain_content_fix",
			rr:   RawRecommendation{Category: "content", Title: "Expand the FAQ section", Text: "Answer the top customer questions"},
			want: false,
		},
		{
			name: "media_fix",
			rr:   RawRecommendation{Category: "media", Title: "Add alt text to product images"},
			want: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := isSiteWide(rules, tc.rr)
			if got != tc.want {
				t.Fatalf("isSiteWide(%q/%q)=%v, want %v", tc.rr.Category, tc.rr.Title, got, tc.want)
			}
		})
	}
}

func TestDistributeAcrossPages(t *testing.T) {
	pages := func(urls ...string) []*types.SelectedPage {
		out := make([]*types.SelectedPage, len(urls))
		for i, u := range urls {
			out[i] = &types.SelectedPage{URL: u}
		}
		return out
	}

	t.Run("single_page_takes_all", func(t *testing.T) {
		got := distributeAcrossPages(4, pages("https://a.com/"))
		if len(got) != 4 {
			t.Fatalf("len=%d, want 4", len(got))
		}
		for i, u := range got {
			if u == nil || *u != "https://a.com/" {
				t.Fatalf("index %d: got %v, want https://a.com/", i, u)
			}
		}
	})

	t.Run("even_split_across_pages", func(t *testing.T) {
		got := distributeAcrossPages(6, pages("a", "b", "c"))
		want := []string{"a", "a", "b", "b", "c", "c"}
		for i := range want {
			if got[i] == nil || *got[i] != want[i] {
				t.Fatalf("index %d: got %v, want %s", i, got[i], want[i])
			}
		}
	})

	t.Run("remainder_fills_earlier_pages", func(t *testing.T) {
		got := distributeAcrossPages(5, pages("a", "b", "c"))
		want := []string{"a", "a", "b", "b", "c"}
		for i := range want {
			if got[i] == nil || *got[i] != want[i] {
				t.Fatalf("index %d: got %v, want %s", i, got[i], want[i])
			}
		}
	})

	t.Run("no_pages_leaves_urls_nil", func(t *testing.T) {
		got := distributeAcrossPages(3, nil)
		if len(got) != 3 {
			t.Fatalf("len=%d, want 3", len(got))
		}
		for i, u := range got {
			if u != nil {
				t.Fatalf("index %d: got %q, want nil", i, *u)
			}
		}
	})
}

func TestSeedInitialStates(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rows := make([]*types.Recommendation, 7)
	for i := range rows {
		rows[i] = &types.Recommendation{}
	}

	seedInitialStates(rows, 5, now, 5*24*time.Hour)

	for i, row := range rows {
		if row.BatchNumber != 1 {
			t.Fatalf("row %d: batch=%d, want 1", i, row.BatchNumber)
		}
		if i < 5 {
			if row.UnlockState != types.RecStateActive {
				t.Fatalf("row %d: state=%s, want active", i, row.UnlockState)
			}
			if row.UnlockedAt == nil || !row.UnlockedAt.Equal(now) {
				t.Fatalf("row %d: unlocked_at=%v, want %v", i, row.UnlockedAt, now)
			}
			wantSkip := now.Add(5 * 24 * time.Hour)
			if row.SkipEnabledAt == nil || !row.SkipEnabledAt.Equal(wantSkip) {
				t.Fatalf("row %d: skip_enabled_at=%v, want %v", i, row.SkipEnabledAt, wantSkip)
			}
		} else {
			if row.UnlockState != types.RecStateLocked {
				t.Fatalf("row %d: state=%s, want locked", i, row.UnlockState)
			}
			if row.UnlockedAt != nil || row.SkipEnabledAt != nil {
				t.Fatalf("row %d: locked row should carry no unlock timestamps", i)
			}
		}
	}
}

func TestSeedInitialStatesZeroActive(t *testing.T) {
	rows := []*types.Recommendation{{}, {}}
	seedInitialStates(rows, 0, time.Now(), time.Hour)
	for i, row := range rows {
		if row.UnlockState != types.RecStateLocked {
			t.Fatalf("row %d: state=%s, want locked", i, row.UnlockState)
		}
	}
}
