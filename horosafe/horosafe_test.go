package horosafe

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func TestSafePath(t *testing.T) {
	base := filepath.Join(string(filepath.Separator), "data", "empresas")
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"07556271000177", false},
		{"07556271000177/07556271000177_alvara.pdf", false},
		{"../etc/passwd", true},
		{"abc/../def", true},
		{"abc/../../outside", true},
		{"", true},
	}
	for _, tt := range tests {
		got, err := SafePath(base, tt.name)
		if (err != nil) != tt.wantErr {
			t.Errorf("SafePath(%q, %q) error=%v, wantErr=%v", base, tt.name, err, tt.wantErr)
			continue
		}
		if err == nil && !strings.HasPrefix(got, base) {
			t.Errorf("SafePath(%q, %q) = %q escapes base", base, tt.name, got)
		}
	}
}

func TestValidateEntityID(t *testing.T) {
	valid := []string{"07556271000177", "12345678000100", "1"}
	for _, id := range valid {
		if err := ValidateEntityID(id); err != nil {
			t.Errorf("ValidateEntityID(%q): unexpected error %v", id, err)
		}
	}
	invalid := []string{"", "07.556.271/0001-77", "../1", "12a", strings.Repeat("1", MaxIdentifierLen+1)}
	for _, id := range invalid {
		err := ValidateEntityID(id)
		if !errors.Is(err, ErrInvalidEntityID) {
			t.Errorf("ValidateEntityID(%q) = %v, want ErrInvalidEntityID", id, err)
		}
	}
}

func TestValidateIdentifier(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"alvara", false},
		{"isencao_licenciamento", false},
		{"licenca-sanitaria.v2", false},
		{"", true},
		{"..", true},
		{"has space", true},
		{"slash/inside", true},
		{strings.Repeat("a", MaxIdentifierLen+1), true},
	}
	for _, tt := range tests {
		err := ValidateIdentifier(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateIdentifier(%q) error=%v, wantErr=%v", tt.input, err, tt.wantErr)
		}
	}
}

func TestValidateHTTPURL(t *testing.T) {
	tests := []struct {
		url     string
		wantErr bool
	}{
		{"https://portal.seuma.fortaleza.ce.gov.br/fortalezaonline/portal/portaltransparencia.jsf", false},
		{"http://localhost:8080/portal", false},
		{"ftp://example.com/data", true},
		{"javascript:alert(1)", true},
		{"https:///nohost", true},
	}
	for _, tt := range tests {
		err := ValidateHTTPURL(tt.url)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateHTTPURL(%q) error=%v, wantErr=%v", tt.url, err, tt.wantErr)
		}
	}
}
