package edc_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/clinforge/fieldmap/pkg/edc"
)

const sampleStudyData = `<?xml version="1.0" encoding="UTF-8"?>
<StudyData>
  <ClinicalData>
    <StudyEventData StudyEventOID="VISIT1">
      <PatientID>P001</PatientID>
      <SiteID>S01</SiteID>
      <Date>2024-03-01</Date>
      <ItemData ItemOID="HEIGHT" Value="172"/>
      <ItemData ItemOID="WEIGHT" Value="68.5"/>
      <ItemData ItemOID="" Value="orphan"/>
    </StudyEventData>
    <StudyEventData StudyEventOID="VISIT2">
      <PatientID>P002</PatientID>
      <SiteID>S01</SiteID>
      <Date>2024-03-08</Date>
    </StudyEventData>
  </ClinicalData>
</StudyData>`

var _ = Describe("ParseSource", func() {
	It("collects StudyEventData elements at any depth", func() {
		events, err := edc.ParseSource([]byte(sampleStudyData))
		Expect(err).NotTo(HaveOccurred())
		Expect(events).To(HaveLen(2))

		Expect(events[0].StudyEventOID).To(Equal("VISIT1"))
		Expect(events[0].PatientID).To(Equal("P001"))
		Expect(events[0].SiteID).To(Equal("S01"))
		Expect(events[0].Date).To(Equal("2024-03-01"))
		Expect(events[0].Items).To(HaveLen(3))
		Expect(events[0].Items[0]).To(Equal(edc.Item{ItemOID: "HEIGHT", Value: "172"}))

		Expect(events[1].StudyEventOID).To(Equal("VISIT2"))
		Expect(events[1].Items).To(BeEmpty())
	})

	It("surfaces malformed documents as ErrParse", func() {
		_, err := edc.ParseSource([]byte("<StudyData><StudyEventData"))
		Expect(err).To(MatchError(edc.ErrParse))
	})

	It("returns no events for an empty document", func() {
		events, err := edc.ParseSource([]byte("<StudyData/>"))
		Expect(err).NotTo(HaveOccurred())
		Expect(events).To(BeEmpty())
	})
})

var _ = Describe("SourceEvent", func() {
	Describe("QueryText", func() {
		It("joins non-empty item identifiers", func() {
			ev := edc.SourceEvent{
				StudyEventOID: "VISIT1",
				Items: []edc.Item{
					{ItemOID: "HEIGHT"},
					{ItemOID: ""},
					{ItemOID: "WEIGHT"},
				},
			}
			Expect(ev.QueryText()).To(Equal("HEIGHT WEIGHT"))
		})

		It("falls back to the event identifier when no items carry one", func() {
			ev := edc.SourceEvent{StudyEventOID: "VISIT9"}
			Expect(ev.QueryText()).To(Equal("VISIT9"))
		})
	})

	Describe("ItemOIDs", func() {
		It("keeps empty identifiers so the result aligns with the item order", func() {
			ev := edc.SourceEvent{Items: []edc.Item{{ItemOID: "A"}, {ItemOID: ""}, {ItemOID: "B"}}}
			Expect(ev.ItemOIDs()).To(Equal("A  B"))
		})
	})
})
