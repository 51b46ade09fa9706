package mineralogy

import (
	"strings"
	"testing"
)

func TestDefaultLibrarySpectra(t *testing.T) {
	lib := DefaultLibrary()
	if lib.Bands() != 6 {
		t.Fatalf("Bands = %d, want 6", lib.Bands())
	}
	for _, name := range []string{"kaolinite", "alunite", "sericite", "hematite", "goethite", "quartz"} {
		s, err := lib.Spectrum(name)
		if err != nil {
			t.Errorf("Spectrum(%q): %v", name, err)
			continue
		}
		if len(s) != 6 {
			t.Errorf("Spectrum(%q) length = %d, want 6", name, len(s))
		}
	}
}

func TestSpectrumUnknownListsValidNames(t *testing.T) {
	_, err := DefaultLibrary().Spectrum("mithril")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "kaolinite") {
		t.Errorf("error %q should list valid mineral names", err)
	}
}

func TestSpectrumReturnsCopy(t *testing.T) {
	lib := DefaultLibrary()
	s1, _ := lib.Spectrum("quartz")
	s1[0] = -1
	s2, _ := lib.Spectrum("quartz")
	if s2[0] == -1 {
		t.Error("Spectrum exposes shared backing storage")
	}
}

func TestNewLibraryValidation(t *testing.T) {
	if _, err := NewLibrary(nil); err == nil {
		t.Error("expected error for empty library")
	}
	_, err := NewLibrary(map[string][]float64{
		"a": {1, 2, 3},
		"b": {1, 2},
	})
	if err == nil {
		t.Error("expected error for inconsistent spectrum lengths")
	}
}

func TestEndmembersBandCheck(t *testing.T) {
	lib := DefaultLibrary()
	if _, err := lib.Endmembers([]string{"kaolinite"}, 4); err == nil {
		t.Error("expected band count mismatch error")
	}
	ems, err := lib.Endmembers([]string{"kaolinite", "Hematite"}, 6)
	if err != nil {
		t.Fatalf("Endmembers: %v", err)
	}
	if ems[1].Name != "hematite" {
		t.Errorf("name = %q, want lowercased", ems[1].Name)
	}
}
