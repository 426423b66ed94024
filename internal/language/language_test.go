package language

import (
	"testing"
)

type fakeRecognizer struct {
	langs []string
}

func (f *fakeRecognizer) SetLanguage(code string) {
	f.langs = append(f.langs, code)
}

type fakeStore struct {
	clears int
}

func (f *fakeStore) Clear() {
	f.clears++
}

func TestCoordinator_SetLanguagePropagates(t *testing.T) {
	rec := &fakeRecognizer{}
	store := &fakeStore{}
	c := NewCoordinator("en", rec, store)

	c.SetLanguage("es")

	if c.Language() != "es" {
		t.Errorf("expected es, got %s", c.Language())
	}
	if len(rec.langs) != 1 || rec.langs[0] != "es" {
		t.Errorf("expected recognizer reconfigured to es, got %v", rec.langs)
	}
	if store.clears != 1 {
		t.Errorf("expected subtitle store cleared once, got %d", store.clears)
	}
}

func TestCoordinator_SameLanguageIsNoOp(t *testing.T) {
	rec := &fakeRecognizer{}
	store := &fakeStore{}
	c := NewCoordinator("en", rec, store)

	c.SetLanguage("en")

	if len(rec.langs) != 0 {
		t.Errorf("expected no recognizer calls, got %v", rec.langs)
	}
	if store.clears != 0 {
		t.Errorf("expected no store clears, got %d", store.clears)
	}
}

func TestCoordinator_DefaultsToEnglish(t *testing.T) {
	c := NewCoordinator("", nil, nil)
	if c.Language() != "en" {
		t.Errorf("expected en default, got %s", c.Language())
	}
}

func TestAll_CommonLanguagesFirst(t *testing.T) {
	langs := All()
	if len(langs) < len(commonCodes) {
		t.Fatalf("catalog too small: %d", len(langs))
	}
	for i, code := range commonCodes {
		if langs[i].Code != code {
			t.Errorf("position %d: expected %s, got %s", i, code, langs[i].Code)
		}
	}

	// Remainder alphabetical by display name.
	rest := langs[len(commonCodes):]
	for i := 1; i < len(rest); i++ {
		if rest[i].Name < rest[i-1].Name {
			t.Errorf("catalog tail out of order: %q before %q", rest[i-1].Name, rest[i].Name)
		}
	}
}

func TestFilter(t *testing.T) {
	byCode := Filter("ja")
	found := false
	for _, l := range byCode {
		if l.Code == "ja" {
			found = true
		}
	}
	if !found {
		t.Error("expected filter by code to include ja")
	}

	byName := Filter("spanish")
	if len(byName) == 0 || byName[0].Code != "es" {
		t.Errorf("expected filter by name to find Spanish, got %v", byName)
	}

	if got := len(Filter("")); got != len(All()) {
		t.Errorf("expected empty query to return full catalog, got %d", got)
	}
}

func TestName(t *testing.T) {
	tests := []struct {
		code, want string
	}{
		{"en", "English"},
		{"es", "Spanish"},
		{"zh", "Chinese"},
		{"not-a-code", "not-a-code"},
	}
	for _, tt := range tests {
		if got := Name(tt.code); got != tt.want {
			t.Errorf("Name(%q) = %q, want %q", tt.code, got, tt.want)
		}
	}
}
