package middleware

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"unicode/utf8"
)

// MaxRequestBodySize caps request bodies (1MB).
const MaxRequestBodySize = 1 << 20

// Patient field limits.
const (
	MaxPatientNameLength = 60
	MaxPatientAge        = 150
	MaxRiskFactors       = 50
)

// Genders accepted for a patient record.
var Genders = []string{"male", "female", "other"}

// ValidateRequestBody limits the body size of POST, PUT and PATCH requests.
func ValidateRequestBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
			r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)
		}
		next.ServeHTTP(w, r)
	})
}

// SanitizeInput groups the field checks applied to patient input.
type SanitizeInput struct{}

// SanitizeString trims, truncates to maxLength runes and drops invalid UTF-8.
func (s *SanitizeInput) SanitizeString(input string, maxLength int) string {
	input = strings.ToValidUTF8(strings.TrimSpace(input), "")
	if utf8.RuneCountInString(input) > maxLength {
		input = string([]rune(input)[:maxLength])
	}
	return input
}

// ValidatePatientName requires a non-empty name of at most MaxPatientNameLength characters.
func (s *SanitizeInput) ValidatePatientName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("please provide a name")
	}
	if utf8.RuneCountInString(name) > MaxPatientNameLength {
		return fmt.Errorf("name cannot be more than %d characters", MaxPatientNameLength)
	}
	return nil
}

// ValidateAge accepts ages from 0 to MaxPatientAge.
func (s *SanitizeInput) ValidateAge(age int) error {
	if age < 0 {
		return fmt.Errorf("age cannot be negative")
	}
	if age > MaxPatientAge {
		return fmt.Errorf("age cannot be more than %d", MaxPatientAge)
	}
	return nil
}

// ValidateGender accepts one of Genders, case-sensitively.
func (s *SanitizeInput) ValidateGender(gender string) error {
	for _, g := range Genders {
		if gender == g {
			return nil
		}
	}
	return fmt.Errorf("gender must be one of %s", strings.Join(Genders, ", "))
}

// ValidateRiskFactors bounds the list and rejects blank entries.
func (s *SanitizeInput) ValidateRiskFactors(factors []string) error {
	if len(factors) > MaxRiskFactors {
		return fmt.Errorf("at most %d risk factors allowed", MaxRiskFactors)
	}
	for i, f := range factors {
		if strings.TrimSpace(f) == "" {
			return fmt.Errorf("risk factor %d is empty", i)
		}
	}
	return nil
}

// ValidateJSON checks the content type and that the body is well-formed
// JSON, then restores the body for the handler.
func ValidateJSON(r *http.Request) error {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return fmt.Errorf("Content-Type must be application/json")
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return fmt.Errorf("failed to read request body: %w", err)
	}
	r.Body.Close()

	if !json.Valid(body) {
		return fmt.Errorf("invalid JSON")
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	return nil
}
