package knowledge

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDefaultLoadsEmbeddedDomains(t *testing.T) {
	base, err := Default()
	if err != nil {
		t.Fatalf("default: %v", err)
	}
	var names []string
	for _, d := range base.Domains {
		names = append(names, d.Name)
		if len(d.Options) < 2 {
			t.Fatalf("domain %s has %d template options", d.Name, len(d.Options))
		}
		for _, opt := range d.Options {
			if opt.ValidPros() == 0 || opt.ValidCons() == 0 {
				t.Fatalf("domain %s option %q lacks pros or cons", d.Name, opt.Name)
			}
		}
	}
	want := []string{"career", "financial", "education", "personal", "health"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Fatalf("domains mismatch (-want +got):\n%s", diff)
	}
}

func TestMatch(t *testing.T) {
	base := MustDefault()
	tests := []struct {
		text   string
		domain string
		found  bool
	}{
		{"Should I accept this job offer?", "career", true},
		{"Should I invest my savings in stocks?", "financial", true},
		{"Is a coding bootcamp better than a degree?", "education", true},
		{"Should I move to a new city?", "personal", true},
		{"Should I join a gym or exercise at home?", "health", true},
		{"Pineapple on pizza?", "", false},
	}
	for _, tc := range tests {
		t.Run(tc.text, func(t *testing.T) {
			got, ok := base.Match(tc.text)
			if ok != tc.found {
				t.Fatalf("expected found=%v got %v", tc.found, ok)
			}
			if got.Name != tc.domain {
				t.Fatalf("expected domain %q got %q", tc.domain, got.Name)
			}
		})
	}
}

func TestIsStatusQuo(t *testing.T) {
	base := MustDefault()
	if !base.IsStatusQuo("stay where I am") {
		t.Fatalf("expected stay to be status quo")
	}
	if !base.IsStatusQuo("don't go") {
		t.Fatalf("expected don't to be status quo")
	}
	if base.IsStatusQuo("move to Berlin") {
		t.Fatalf("did not expect move to be status quo")
	}
}

func TestParseRejectsEmpty(t *testing.T) {
	if _, err := Parse([]byte("domains: []")); err == nil {
		t.Fatalf("expected error for empty knowledge base")
	}
	if _, err := Parse([]byte("domains: [")); err == nil {
		t.Fatalf("expected error for malformed yaml")
	}
}
