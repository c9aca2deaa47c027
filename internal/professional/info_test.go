package professional

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sample = `{
  "professional_name": "Dr. Demo",
  "specialty": "Physiotherapy",
  "location": "Rua Augusta 10, Lisboa",
  "services": [
    {"name": "Initial consultation", "price": "60 EUR", "duration_minutes": 60, "description": "Assessment"},
    {"price": "40 EUR"}
  ]
}`

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "info.json")
	if err := os.WriteFile(path, []byte(sample), 0o600); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}

	info, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if info.ProfessionalName != "Dr. Demo" || len(info.Services) != 2 {
		t.Fatalf("info = %+v", info)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); !errors.Is(err, ErrInfoNotFound) {
		t.Fatalf("Load missing = %v, want %v", err, ErrInfoNotFound)
	}
	if _, err := Parse([]byte("{")); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestInfo_Summary(t *testing.T) {
	info, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	got := info.Summary()

	for _, want := range []string{
		"--- Information about Dr. Demo ---",
		"Specialty: Physiotherapy",
		"Contact (non-booking): N/A",
		"  - Initial consultation\n    - Price: 60 EUR - Duration: approx. 60 min\n    - Desc: Assessment\n",
		"  - Unnamed Service\n    - Price: 40 EUR\n",
		"Payment Info: Please inquire.",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("Summary missing %q:\n%s", want, got)
		}
	}

	if !strings.Contains(Info{}.Summary(), "about the professional") {
		t.Fatalf("empty Summary = %q", Info{}.Summary())
	}
}
