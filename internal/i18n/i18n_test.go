package i18n

import (
	"errors"
	"testing"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		header string
		want   Locale
	}{
		{"", English},
		{"ru-RU,ru;q=0.9,en;q=0.8", Russian},
		{"de-CH", German},
		{"fr-FR,es;q=0.5", Spanish},
		{"ja", English},
		{"not a header;;;", English},
	}
	for _, tt := range tests {
		if got := Detect(tt.header, English); got != tt.want {
			t.Errorf("Detect(%q): expected %q, got %q", tt.header, tt.want, got)
		}
	}
}

func TestDetect_Fallback(t *testing.T) {
	if got := Detect("ja", Russian); got != Russian {
		t.Errorf("expected fallback %q, got %q", Russian, got)
	}
}

func TestParse(t *testing.T) {
	l, err := Parse("ru")
	if err != nil || l != Russian {
		t.Fatalf("expected %q, got %q (%v)", Russian, l, err)
	}
	if _, err := Parse("xx"); !errors.Is(err, ErrUnsupportedLocale) {
		t.Errorf("expected ErrUnsupportedLocale, got %v", err)
	}
}

func TestCatalogComplete(t *testing.T) {
	keys := []Key{SidebarHeader, NoHeadings, ToggleLabel, LanguageLabel, StoreReadFailed, StoreWriteFailed}
	for _, l := range Supported {
		for _, k := range keys {
			if catalog[l][k] == "" {
				t.Errorf("locale %q: missing message %d", l, k)
			}
		}
	}
}

func TestText(t *testing.T) {
	if got := Russian.Text(SidebarHeader); got != "Содержание" {
		t.Errorf("expected Russian header, got %q", got)
	}
	if got := Locale("xx").Text(SidebarHeader); got != "Contents" {
		t.Errorf("expected English fallback, got %q", got)
	}
}
