package sanitize

import "testing"

func TestText(t *testing.T) {
	cases := map[string]string{
		"  hola  ":                           "hola",
		"<b>canilla</b> rota":                "canilla rota",
		"&lt;script&gt;alert(1)&lt;/script&gt;": "alert(1)",
	}
	for in, want := range cases {
		if got := Text(in); got != want {
			t.Fatalf("Text(%q): expected %q, got %q", in, want, got)
		}
	}
}

func TestCollapseSpaces(t *testing.T) {
	if got := CollapseSpaces("  a \n\t b   c "); got != "a b c" {
		t.Fatalf("expected %q, got %q", "a b c", got)
	}
}
