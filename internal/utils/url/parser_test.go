package urlutil

import "testing"

func TestValidate(t *testing.T) {
	valid := []string{
		"http://example.com",
		"https://www.99acres.com/project-npxid-r1",
	}
	for _, u := range valid {
		if err := ValidateURL(u); err != nil {
			t.Fatalf("expected valid, got error: %v", err)
		}
	}

	invalid := []string{"ftp://example.com", "//example.com", "http:///", "/relative/path"}
	for _, u := range invalid {
		if err := ValidateURL(u); err == nil {
			t.Fatalf("expected invalid for %s", u)
		}
	}
}

func TestResolveURL(t *testing.T) {
	base := "https://www.99acres.com"
	cases := map[string]string{
		"/2-bhk-flat-for-rent-spid-R1": "https://www.99acres.com/2-bhk-flat-for-rent-spid-R1",
		"flat-spid-R2":                 "https://www.99acres.com/flat-spid-R2",
		"https://other.example/x":      "https://other.example/x",
		" /padded ":                    "https://www.99acres.com/padded",
	}
	for in, want := range cases {
		if got := ResolveURL(base, in); got != want {
			t.Errorf("ResolveURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestWithPage(t *testing.T) {
	if got := WithPage("https://s/rent?x=1", 1); got != "https://s/rent?x=1" {
		t.Errorf("page 1 should be unchanged, got %s", got)
	}
	if got := WithPage("https://s/rent?x=1", 3); got != "https://s/rent?page=3&x=1" {
		t.Errorf("unexpected paged URL %s", got)
	}
}

func TestKey(t *testing.T) {
	if Key("  HTTPS://Site/P1 ") != "https://site/p1" {
		t.Error("Key should trim and lower-case")
	}
}
