package domain

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"marketplace_backend/platform/apperr"
)

func TestBuildTitleFromDescription(t *testing.T) {
	desc := "se rompió la canilla de la cocina y pierde mucha agua todos los dias"

	cases := []struct {
		typ  RequestType
		want string
	}{
		{TypeFast, "[FAST] se rompió la canilla de la cocina y"},
		{TypeLicitacion, "[LIC] se rompió la canilla de la cocina y"},
		{TypeRecontratacion, "se rompió la canilla de la cocina y"},
	}
	for _, tc := range cases {
		if got := BuildTitle(desc, tc.typ); got != tc.want {
			t.Fatalf("%s: expected %q, got %q", tc.typ, tc.want, got)
		}
	}
}

func TestBuildTitleCollapsesWhitespace(t *testing.T) {
	got := BuildTitle("  pintar \n\n la   pared ", TypeFast)
	if got != "[FAST] pintar la pared" {
		t.Fatalf("unexpected title %q", got)
	}
}

func TestResolveTitleTruncatesLongTitles(t *testing.T) {
	long := strings.Repeat("a", 200)
	got := ResolveTitle(&long, "ignored", TypeFast)
	if utf8.RuneCountInString(got) != TitleMaxLength {
		t.Fatalf("expected %d runes, got %d", TitleMaxLength, utf8.RuneCountInString(got))
	}
	if !strings.HasSuffix(got, "…") {
		t.Fatalf("expected ellipsis, got %q", got)
	}

	exact := strings.Repeat("b", TitleMaxLength)
	if got := ResolveTitle(&exact, "", TypeFast); got != exact {
		t.Fatalf("expected title at the limit to be kept intact")
	}

	blank := "   "
	if got := ResolveTitle(&blank, "arreglar enchufe", TypeLicitacion); got != "[LIC] arreglar enchufe" {
		t.Fatalf("expected derived title for blank input, got %q", got)
	}
}

func TestResolveBiddingDeadline(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	d, err := ResolveBiddingDeadline(now, TypeLicitacion, nil)
	if err != nil || d == nil || !d.Equal(now.Add(72*time.Hour)) {
		t.Fatalf("expected default deadline now+72h, got %v %v", d, err)
	}

	for _, typ := range []RequestType{TypeFast, TypeRecontratacion} {
		future := now.Add(time.Hour)
		if d, err := ResolveBiddingDeadline(now, typ, &future); err != nil || d != nil {
			t.Fatalf("%s: expected nil deadline, got %v %v", typ, d, err)
		}
	}

	past := now
	if _, err := ResolveBiddingDeadline(now, TypeLicitacion, &past); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for deadline == now, got %v", err)
	}

	edge := now.Add(72 * time.Hour)
	if _, err := ResolveBiddingDeadline(now, TypeLicitacion, &edge); err != nil {
		t.Fatalf("expected deadline at exactly 72h to pass, got %v", err)
	}

	tooFar := edge.Add(time.Second)
	if _, err := ResolveBiddingDeadline(now, TypeLicitacion, &tooFar); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error beyond 72h, got %v", err)
	}
}

func TestValidateWindow(t *testing.T) {
	start := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(-time.Minute)
	if err := ValidateWindow(&start, &end); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err := ValidateWindow(&start, &start); err != nil {
		t.Fatalf("expected equal start/end to pass, got %v", err)
	}
	if err := ValidateWindow(nil, &end); err != nil {
		t.Fatalf("expected open window to pass, got %v", err)
	}
}

func TestValidateAttachments(t *testing.T) {
	if err := ValidateAttachments([]string{"a", "b", "c", "d", "e"}); err != nil {
		t.Fatalf("expected 5 attachments to pass, got %v", err)
	}
	if err := ValidateAttachments([]string{"a", "b", "c", "d", "e", "f"}); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected too many attachments error, got %v", err)
	}
	if err := ValidateAttachments([]string{"a", "b", "a"}); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected duplicate key error, got %v", err)
	}
}
