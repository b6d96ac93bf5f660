package edc

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
)

// Attribute associates a canonical target attribute with its source
// counterpart inside a visit.
type Attribute struct {
	IMPACTAttributeID string `xml:"IMPACTAttributeID,attr"`
	EDCAttributeID    string `xml:"EDCAttributeID,attr"`
}

// Visit groups the attribute associations of one source visit and carries
// its canonical visit label.
type Visit struct {
	IMPACTVisitID string      `xml:"IMPACTVisitID,attr"`
	EDCVisitID    string      `xml:"EDCVisitID,attr"`
	Attributes    []Attribute `xml:"Attribute"`
}

// VisitDesign is the ViewMapping document root. It is the durable record
// of the original ground truth and of every human correction.
type VisitDesign struct {
	XMLName xml.Name `xml:"VisitDesign"`
	Visits  []Visit  `xml:"visit"`
}

// Mapping is one flattened visit-to-attribute association.
type Mapping struct {
	EDCVisitID     string
	IMPACTVisitID  string
	EDCAttributeID string
}

// NewVisitDesign returns an empty mapping document.
func NewVisitDesign() *VisitDesign {
	return &VisitDesign{XMLName: xml.Name{Local: "VisitDesign"}}
}

// ParseViewMapping decodes a ViewMapping document.
func ParseViewMapping(data []byte) (*VisitDesign, error) {
	var doc VisitDesign
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: decoding ViewMapping: %v", ErrParse, err)
	}
	return &doc, nil
}

// LoadViewMapping reads the mapping document from disk. A missing file is
// the bootstrap case and yields an empty document rather than an error.
func LoadViewMapping(path string) (*VisitDesign, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewVisitDesign(), nil
		}
		return nil, fmt.Errorf("reading mapping document: %w", err)
	}
	return ParseViewMapping(data)
}

// Mappings flattens the document into one record per attribute association.
func (d *VisitDesign) Mappings() []Mapping {
	var out []Mapping
	for _, v := range d.Visits {
		for _, a := range v.Attributes {
			out = append(out, Mapping{
				EDCVisitID:     v.EDCVisitID,
				IMPACTVisitID:  v.IMPACTVisitID,
				EDCAttributeID: a.EDCAttributeID,
			})
		}
	}
	return out
}

// EnsureMapping records a human-supplied canonical label for the given
// visit. The visit is created when absent, with the label as its canonical
// counterpart; the attribute association is attached unless an identical
// one already exists. Returns true when the document changed.
//
// The operation is idempotent: repeating it with the same arguments leaves
// the document untouched.
func (d *VisitDesign) EnsureMapping(edcVisitID, label string) bool {
	var visit *Visit
	for i := range d.Visits {
		if d.Visits[i].EDCVisitID == edcVisitID {
			visit = &d.Visits[i]
			break
		}
	}

	changed := false
	if visit == nil {
		d.Visits = append(d.Visits, Visit{
			IMPACTVisitID: label,
			EDCVisitID:    edcVisitID,
		})
		visit = &d.Visits[len(d.Visits)-1]
		changed = true
	}

	for _, a := range visit.Attributes {
		if a.IMPACTAttributeID == label {
			return changed
		}
	}
	visit.Attributes = append(visit.Attributes, Attribute{
		IMPACTAttributeID: label,
		EDCAttributeID:    edcVisitID,
	})
	return true
}

// Encode writes the document as XML with a declaration header.
func (d *VisitDesign) Encode(w io.Writer) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(d); err != nil {
		return err
	}
	return enc.Close()
}

// WriteFile persists the document with an atomic write-then-rename so a
// crash mid-update cannot leave a half-written mapping document.
func (d *VisitDesign) WriteFile(path string) error {
	var buf bytes.Buffer
	if err := d.Encode(&buf); err != nil {
		return fmt.Errorf("encoding mapping document: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing temp mapping document: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("renaming mapping document: %w", err)
	}
	return nil
}
