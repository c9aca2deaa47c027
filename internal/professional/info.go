package professional

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

var ErrInfoNotFound = errors.New("professional info not found")

type Service struct {
	Name            string `json:"name"`
	Price           string `json:"price,omitempty"`
	DurationMinutes int    `json:"duration_minutes,omitempty"`
	Description     string `json:"description,omitempty"`
}

// Info is the practice description published to clients. It is read-only reference data.
type Info struct {
	ProfessionalName string    `json:"professional_name"`
	Specialty        string    `json:"specialty,omitempty"`
	Location         string    `json:"location,omitempty"`
	ContactInfo      string    `json:"contact_info,omitempty"`
	Services         []Service `json:"services,omitempty"`
	PaymentInfo      string    `json:"payment_info,omitempty"`
}

func Load(path string) (Info, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Info{}, fmt.Errorf("%w: %s", ErrInfoNotFound, path)
	}
	if err != nil {
		return Info{}, err
	}
	return Parse(raw)
}

func Parse(raw []byte) (Info, error) {
	var info Info
	if err := json.Unmarshal(raw, &info); err != nil {
		return Info{}, fmt.Errorf("decode professional info: %w", err)
	}
	return info, nil
}

// Summary renders info as the human-readable text returned to clients.
func (i Info) Summary() string {
	name := i.ProfessionalName
	if name == "" {
		name = "the professional"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "--- Information about %s ---\n", name)
	fmt.Fprintf(&b, "Specialty: %s\n", orNA(i.Specialty))
	fmt.Fprintf(&b, "Location: %s\n", orNA(i.Location))
	fmt.Fprintf(&b, "Contact (non-booking): %s\n", orNA(i.ContactInfo))

	if len(i.Services) > 0 {
		b.WriteString("\nServices Offered:\n")
		for _, s := range i.Services {
			svc := s.Name
			if svc == "" {
				svc = "Unnamed Service"
			}
			fmt.Fprintf(&b, "  - %s\n    - Price: %s", svc, orNA(s.Price))
			if s.DurationMinutes > 0 {
				fmt.Fprintf(&b, " - Duration: approx. %d min", s.DurationMinutes)
			}
			b.WriteString("\n")
			if s.Description != "" {
				fmt.Fprintf(&b, "    - Desc: %s\n", s.Description)
			}
		}
	}

	payment := i.PaymentInfo
	if payment == "" {
		payment = "Please inquire."
	}
	fmt.Fprintf(&b, "\nPayment Info: %s\n", payment)
	b.WriteString("\nNote: For exact appointment times, please check availability.")
	return b.String()
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
