package api

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/clinforge/fieldmap/pkg/engine"
	"github.com/clinforge/fieldmap/pkg/reranker"
	testutils "github.com/clinforge/fieldmap/pkg/utils/test"
	"github.com/clinforge/fieldmap/pkg/vector"
	"github.com/clinforge/fieldmap/pkg/vocab"
)

const testSourceDoc = `<?xml version="1.0"?>
<ODM><ClinicalData>
  <StudyEventData StudyEventOID="VISIT1">
    <ItemData ItemOID="HEIGHT" Value="172"/>
    <ItemData ItemOID="WEIGHT" Value="70"/>
  </StudyEventData>
</ClinicalData></ODM>`

const testMappingDoc = `<?xml version="1.0"?>
<VisitDesign>
  <visit IMPACTVisitID="Baseline" EDCVisitID="VISIT1">
    <Attribute IMPACTAttributeID="Height" EDCAttributeID="HEIGHT"/>
    <Attribute IMPACTAttributeID="Weight" EDCAttributeID="WEIGHT"/>
  </visit>
</VisitDesign>`

var _ = Describe("Server", func() {
	var server *Server

	trainRequest := func() *http.Request {
		var body bytes.Buffer
		writer := multipart.NewWriter(&body)

		part, err := writer.CreateFormFile("source", "StudyData.xml")
		Expect(err).NotTo(HaveOccurred())
		_, err = io.WriteString(part, testSourceDoc)
		Expect(err).NotTo(HaveOccurred())

		part, err = writer.CreateFormFile("mapping", "ViewMapping.xml")
		Expect(err).NotTo(HaveOccurred())
		_, err = io.WriteString(part, testMappingDoc)
		Expect(err).NotTo(HaveOccurred())

		Expect(writer.Close()).To(Succeed())

		req, err := http.NewRequest(http.MethodPost, "/v1/train", &body)
		Expect(err).NotTo(HaveOccurred())
		req.Header.Set("Content-Type", writer.FormDataContentType())
		return req
	}

	train := func() {
		resp, err := server.app.Test(trainRequest())
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
	}

	BeforeEach(func() {
		tmpDir := GinkgoT().TempDir()

		store := vocab.NewStore(vocab.Paths{
			Vocabulary: filepath.Join(tmpDir, "targets.json"),
			Embeddings: filepath.Join(tmpDir, "target_embs.bin"),
			Index:      filepath.Join(tmpDir, "targets.index.db"),
		}, func(_ uint) (vector.Driver, error) {
			return testutils.NewMockVectorDriver(), nil
		}, zap.NewNop())

		svc := engine.NewService(engine.Options{
			Embedder:       testutils.NewMockEmbedder(),
			Store:          store,
			Reranker:       reranker.New(filepath.Join(tmpDir, "reranker.json"), zap.NewNop()),
			RerankerParams: reranker.Params{Estimators: 20, LearningRate: 0.1},
			TopK:           5,
			MappingPath:    filepath.Join(tmpDir, "ViewMapping.xml"),
			Logger:         zap.NewNop(),
		})

		server = NewServer(Config{ListenAddr: ":0"}, svc, zap.NewNop())
	})

	Describe("GET /ping", func() {
		It("returns pong", func() {
			req, err := http.NewRequest(http.MethodGet, "/ping", nil)
			Expect(err).NotTo(HaveOccurred())

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})
	})

	Describe("POST /v1/train", func() {
		It("trains and reports sample counts", func() {
			resp, err := server.app.Test(trainRequest())
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var body TrainResponse
			Expect(json.NewDecoder(resp.Body).Decode(&body)).To(Succeed())
			Expect(body.Samples).To(Equal(2))
			Expect(body.Positives).To(Equal(2))
		})

		It("rejects requests without the mapping file", func() {
			var body bytes.Buffer
			writer := multipart.NewWriter(&body)
			part, err := writer.CreateFormFile("source", "StudyData.xml")
			Expect(err).NotTo(HaveOccurred())
			_, err = io.WriteString(part, testSourceDoc)
			Expect(err).NotTo(HaveOccurred())
			Expect(writer.Close()).To(Succeed())

			req, err := http.NewRequest(http.MethodPost, "/v1/train", &body)
			Expect(err).NotTo(HaveOccurred())
			req.Header.Set("Content-Type", writer.FormDataContentType())

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("POST /v1/predict", func() {
		It("returns 409 before any vocabulary is trained", func() {
			req, err := http.NewRequest(http.MethodPost, "/v1/predict", strings.NewReader(testSourceDoc))
			Expect(err).NotTo(HaveOccurred())

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusConflict))
		})

		It("classifies events after training", func() {
			train()

			req, err := http.NewRequest(http.MethodPost, "/v1/predict", strings.NewReader(testSourceDoc))
			Expect(err).NotTo(HaveOccurred())

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var body PredictResponse
			Expect(json.NewDecoder(resp.Body).Decode(&body)).To(Succeed())
			Expect(body.Results).To(HaveLen(1))
			Expect(body.Results[0].NeedsReview).To(BeFalse())
			Expect(body.Results[0].Matches).To(HaveLen(2))
		})

		It("serializes review events with an empty matches array", func() {
			train()

			unmapped := `<?xml version="1.0"?>
<ODM><ClinicalData>
  <StudyEventData StudyEventOID="VISIT9">
    <ItemData ItemOID="BODYHEIGHT" Value="170"/>
  </StudyEventData>
</ClinicalData></ODM>`

			req, err := http.NewRequest(http.MethodPost, "/v1/predict", strings.NewReader(unmapped))
			Expect(err).NotTo(HaveOccurred())

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			raw, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(raw)).To(ContainSubstring(`"matches":[]`))
			Expect(string(raw)).NotTo(ContainSubstring(`"matches":null`))
		})

		It("returns 400 for a malformed document", func() {
			train()

			req, err := http.NewRequest(http.MethodPost, "/v1/predict", strings.NewReader("<not-xml"))
			Expect(err).NotTo(HaveOccurred())

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("returns 400 for an empty body", func() {
			req, err := http.NewRequest(http.MethodPost, "/v1/predict", nil)
			Expect(err).NotTo(HaveOccurred())

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("attaches suggestions for review events when asked", func() {
			train()

			unmapped := `<?xml version="1.0"?>
<ODM><ClinicalData>
  <StudyEventData StudyEventOID="VISIT9">
    <ItemData ItemOID="BODYHEIGHT" Value="170"/>
  </StudyEventData>
</ClinicalData></ODM>`

			req, err := http.NewRequest(http.MethodPost, "/v1/predict?suggest=true", strings.NewReader(unmapped))
			Expect(err).NotTo(HaveOccurred())

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var body PredictResponse
			Expect(json.NewDecoder(resp.Body).Decode(&body)).To(Succeed())
			Expect(body.Suggestions).To(HaveKey("VISIT9"))
		})
	})

	Describe("POST /v1/feedback", func() {
		It("records a correction and returns 204", func() {
			payload, err := json.Marshal(FeedbackRequest{EventOID: "VISIT2", Label: "AGE"})
			Expect(err).NotTo(HaveOccurred())

			req, err := http.NewRequest(http.MethodPost, "/v1/feedback", bytes.NewReader(payload))
			Expect(err).NotTo(HaveOccurred())
			req.Header.Set("Content-Type", "application/json")

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
		})

		It("rejects a body without a label", func() {
			payload := []byte(`{"eventOid":"VISIT2"}`)

			req, err := http.NewRequest(http.MethodPost, "/v1/feedback", bytes.NewReader(payload))
			Expect(err).NotTo(HaveOccurred())
			req.Header.Set("Content-Type", "application/json")

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})
})
