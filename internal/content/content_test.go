package content

import "testing"

func TestDefault(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}
	if len(c.Recommendations) != 8 {
		t.Fatalf("recommendations = %d, want 8", len(c.Recommendations))
	}
	if c.Recommendations[0].Title != "Prioritize High-Value Donors" || c.Recommendations[7].Title != "Analyze Giving Gaps" {
		t.Fatalf("unexpected order: %+v", c.Recommendations)
	}
	if c.Page.Title == "" || c.Page.Description == "" {
		t.Fatalf("page header missing: %+v", c.Page)
	}
}

func TestParseRejectsIncomplete(t *testing.T) {
	cases := map[string]string{
		"no title":     "recommendations: []",
		"missing body": "page: {title: x}\nrecommendations:\n  - title: only title\n",
		"not yaml":     "page: [",
	}
	for name, doc := range cases {
		if _, err := Parse([]byte(doc)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}
