// Package edc holds the typed records and document codecs for the two EDC
// document formats: the StudyData export produced by the capture system and
// the ViewMapping document that associates source visits with canonical
// target attributes.
package edc

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// Item is a single captured field inside a study event: the field
// identifier and the observed value (possibly empty).
type Item struct {
	ItemOID string `xml:"ItemOID,attr"`
	Value   string `xml:"Value,attr"`
}

// SourceEvent is one StudyEventData element from a StudyData export.
// Events are immutable once parsed and are never persisted by the core.
type SourceEvent struct {
	StudyEventOID string `xml:"StudyEventOID,attr"`
	PatientID     string `xml:"PatientID"`
	SiteID        string `xml:"SiteID"`
	Date          string `xml:"Date"`
	Items         []Item `xml:"ItemData"`
}

// QueryText builds the textual representation of the event used for
// candidate retrieval: the non-empty item identifiers joined by spaces,
// falling back to the event identifier when the event carries no items.
func (e SourceEvent) QueryText() string {
	oids := make([]string, 0, len(e.Items))
	for _, it := range e.Items {
		if it.ItemOID != "" {
			oids = append(oids, it.ItemOID)
		}
	}
	if len(oids) == 0 {
		return e.StudyEventOID
	}
	return strings.Join(oids, " ")
}

// ItemOIDs returns every item identifier of the event, including empty
// ones, joined by spaces. This is the string the feature extractor
// compares against candidate target names.
func (e SourceEvent) ItemOIDs() string {
	oids := make([]string, len(e.Items))
	for i, it := range e.Items {
		oids[i] = it.ItemOID
	}
	return strings.Join(oids, " ")
}

// ItemValues returns the observed value of every item, in item order.
func (e SourceEvent) ItemValues() []string {
	vals := make([]string, len(e.Items))
	for i, it := range e.Items {
		vals[i] = it.Value
	}
	return vals
}

// ParseSource decodes a StudyData export. StudyEventData elements are
// collected at any nesting depth, mirroring the layout flexibility of
// real exports.
func ParseSource(data []byte) ([]SourceEvent, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))

	var events []SourceEvent
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrParse, err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "StudyEventData" {
			continue
		}

		var ev SourceEvent
		if err := dec.DecodeElement(&ev, &start); err != nil {
			return nil, fmt.Errorf("%w: decoding StudyEventData: %v", ErrParse, err)
		}
		events = append(events, ev)
	}

	return events, nil
}
