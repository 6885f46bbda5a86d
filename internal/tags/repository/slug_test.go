package repository

import (
	"sync"
	"testing"
)

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Técnico en Aire Acondicionado": "tecnico-en-aire-acondicionado",
		"  Plomero  ":                   "plomero",
		"Albañil / Constructor":         "albanil-constructor",
		"Cerrajería 24h":                "cerrajeria-24h",
	}
	for in, want := range cases {
		if got := Slugify(in); got != want {
			t.Fatalf("Slugify(%q): expected %q, got %q", in, want, got)
		}
	}
}

func TestSlugifyConcurrentCallers(t *testing.T) {
	const workers = 16
	errs := make(chan string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				if got := Slugify("Técnico en Aire Acondicionado"); got != "tecnico-en-aire-acondicionado" {
					errs <- got
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for got := range errs {
		t.Fatalf("concurrent Slugify produced %q", got)
	}
}
