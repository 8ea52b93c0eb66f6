// Package catalog maps document-type identifiers to the UI locators that
// select and download them on the transparency portal, and to the file-name
// prefix their artifacts are filed under.
package catalog

import (
	"errors"
	"fmt"

	"github.com/hazyhaar/licfetch/horosafe"
)

// ErrUnknownDocumentType is returned by Lookup for ids outside the catalog.
var ErrUnknownDocumentType = errors.New("catalog: unknown document type")

// Document type identifiers. The set is closed; New rejects anything else.
const (
	Permit             = "permit"
	LicensingExemption = "licensing_exemption"
	PlanExemption      = "plan_exemption"
	SanitaryLicense    = "sanitary_license"
)

var known = map[string]bool{
	Permit:             true,
	LicensingExemption: true,
	PlanExemption:      true,
	SanitaryLicense:    true,
}

// DocumentType is one catalog entry.
type DocumentType struct {
	ID       string `yaml:"id" json:"id"`
	Select   string `yaml:"select" json:"select"`     // locator of the tab that selects the document
	Download string `yaml:"download" json:"download"` // locator of the download control
	Prefix   string `yaml:"prefix" json:"prefix"`
}

// Catalog is an ordered, read-only set of document types.
type Catalog struct {
	types []DocumentType
	byID  map[string]int
}

// New validates types and builds a Catalog that preserves their order.
func New(types []DocumentType) (*Catalog, error) {
	if len(types) == 0 {
		return nil, fmt.Errorf("catalog: no document types")
	}
	c := &Catalog{
		types: make([]DocumentType, len(types)),
		byID:  make(map[string]int, len(types)),
	}
	prefixes := make(map[string]string, len(types))
	for i, dt := range types {
		if !known[dt.ID] {
			return nil, fmt.Errorf("%w: %q", ErrUnknownDocumentType, dt.ID)
		}
		if _, dup := c.byID[dt.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate document type %q", dt.ID)
		}
		if dt.Select == "" || dt.Download == "" {
			return nil, fmt.Errorf("catalog: %s: select and download locators are required", dt.ID)
		}
		if err := horosafe.ValidateIdentifier(dt.Prefix); err != nil {
			return nil, fmt.Errorf("catalog: %s: prefix: %w", dt.ID, err)
		}
		if other, dup := prefixes[dt.Prefix]; dup {
			return nil, fmt.Errorf("catalog: %s and %s share prefix %q", other, dt.ID, dt.Prefix)
		}
		prefixes[dt.Prefix] = dt.ID
		c.types[i] = dt
		c.byID[dt.ID] = i
	}
	return c, nil
}

// Lookup returns the entry for id.
func (c *Catalog) Lookup(id string) (DocumentType, error) {
	i, ok := c.byID[id]
	if !ok {
		return DocumentType{}, fmt.Errorf("%w: %q", ErrUnknownDocumentType, id)
	}
	return c.types[i], nil
}

// Types returns the entries in catalog order. The slice is a copy.
func (c *Catalog) Types() []DocumentType {
	out := make([]DocumentType, len(c.types))
	copy(out, c.types)
	return out
}

// Len returns the number of entries.
func (c *Catalog) Len() int { return len(c.types) }

const (
	selectorList = `//*[@id="formDetalhePortalTransparencia:codigoTipoServicoPortalEmpresaLocalizar"]/div[2]/ul`
)

// DefaultTypes returns the portal's current document types in download order.
func DefaultTypes() []DocumentType {
	return []DocumentType{
		{
			ID:       Permit,
			Select:   selectorList + `/li[2]`,
			Download: `//*[@id="formDetalhePortalTransparencia:dtAlvarasFuncionamento:0:j_idt171"]`,
			Prefix:   "alvara",
		},
		{
			ID:       LicensingExemption,
			Select:   selectorList + `/li[3]`,
			Download: `//*[@id="formDetalhePortalTransparencia:dtLicenciamentos:0:j_idt218"]`,
			Prefix:   "isencao_licenciamento",
		},
		{
			ID:       PlanExemption,
			Select:   selectorList + `/li[4]`,
			Download: `//*[@id="formDetalhePortalTransparencia:dtIsencoesPlanos:0:j_idt428"]`,
			Prefix:   "isencao_plano",
		},
		{
			ID:       SanitaryLicense,
			Select:   selectorList + `/li[5]`,
			Download: `//*[@id="formDetalhePortalTransparencia:dtLicencasSanitarias:0:j_idt306"]`,
			Prefix:   "licenca_sanitaria",
		},
	}
}

// Default returns the catalog built from DefaultTypes.
func Default() *Catalog {
	c, err := New(DefaultTypes())
	if err != nil {
		panic("catalog: default types invalid: " + err.Error())
	}
	return c
}
