// Package fakebackend simulates the job backend: work completes out-of-band
// and can only be observed by polling.
package fakebackend

import (
	"fmt"
	"sync"
)

// Seed describes the jobs created for one student
type Seed struct {
	// Files are the uploaded documents; they finish OCR one by one
	Files []string `json:"files"`

	// OCRPolls is the number of polls between two documents finishing
	OCRPolls int `json:"ocr_polls"`

	// Paged delivers the OCR list as a {"content": [...]} page
	Paged bool `json:"paged"`

	// AdmissionPolls is the number of polls before recommendations appear
	AdmissionPolls int `json:"admission_polls"`

	// Programs are the recommendations returned once ready
	Programs []string `json:"programs"`

	// PredictionPolls is the number of status polls before the prediction settles
	PredictionPolls int `json:"prediction_polls"`

	// PredictionFails settles the prediction as failed instead of completed
	PredictionFails bool `json:"prediction_fails"`

	// TransientErrors makes the first N requests of every endpoint fail with 503
	TransientErrors int `json:"transient_errors"`
}

// DefaultSeed returns a three-document submission that completes within a few polls
func DefaultSeed() Seed {
	return Seed{
		Files:           []string{"transcript.pdf", "diploma.pdf", "grades.png"},
		OCRPolls:        1,
		AdmissionPolls:  3,
		Programs:        []string{"Computer Science", "Applied Mathematics"},
		PredictionPolls: 2,
	}
}

func (s Seed) withDefaults() Seed {
	d := DefaultSeed()
	if len(s.Files) == 0 {
		s.Files = d.Files
	}
	if s.OCRPolls <= 0 {
		s.OCRPolls = d.OCRPolls
	}
	if s.AdmissionPolls <= 0 {
		s.AdmissionPolls = d.AdmissionPolls
	}
	if len(s.Programs) == 0 {
		s.Programs = d.Programs
	}
	if s.PredictionPolls <= 0 {
		s.PredictionPolls = d.PredictionPolls
	}
	return s
}

// endpoint counts polls and pending injected failures of one endpoint
type endpoint struct {
	polls    int
	failures int
}

// hit records one request and reports whether it must fail
func (e *endpoint) hit() bool {
	if e.failures > 0 {
		e.failures--
		return true
	}
	e.polls++
	return false
}

type student struct {
	seed       Seed
	ocr        endpoint
	admission  endpoint
	prediction endpoint
}

// Backend holds the simulated jobs
type Backend struct {
	mu          sync.Mutex
	students    map[string]*student
	predictions map[string]string // prediction job id -> student id
}

// New creates an empty Backend
func New() *Backend {
	return &Backend{
		students:    make(map[string]*student),
		predictions: make(map[string]string),
	}
}

// Seed creates or resets the jobs of a student and returns the prediction job id
func (b *Backend) Seed(studentID string, seed Seed) string {
	seed = seed.withDefaults()
	jobID := PredictionJobID(studentID)

	b.mu.Lock()
	defer b.mu.Unlock()

	b.students[studentID] = &student{
		seed:       seed,
		ocr:        endpoint{failures: seed.TransientErrors},
		admission:  endpoint{failures: seed.TransientErrors},
		prediction: endpoint{failures: seed.TransientErrors},
	}
	b.predictions[jobID] = studentID
	return jobID
}

// PredictionJobID returns the prediction job id assigned to a student
func PredictionJobID(studentID string) string {
	return fmt.Sprintf("pred-%s", studentID)
}

// Document is one OCR list entry as served
type Document struct {
	FileID   string  `json:"file_id"`
	FileName string  `json:"file_name"`
	Scores   []Score `json:"scores"`
}

// Score is one extracted grade as served
type Score struct {
	Subject string  `json:"subject"`
	Score   float64 `json:"score"`
}

var subjects = []string{"math", "physics", "literature", "history"}

// pollOCR advances the OCR job; documents finish every OCRPolls polls
func (b *Backend) pollOCR(studentID string) (docs []Document, paged, failed, found bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.students[studentID]
	if !ok {
		return nil, false, false, false
	}
	if s.ocr.hit() {
		return nil, false, true, true
	}

	finished := s.ocr.polls / s.seed.OCRPolls
	docs = make([]Document, 0, len(s.seed.Files))
	for i, name := range s.seed.Files {
		doc := Document{FileID: name, FileName: name, Scores: []Score{}}
		if i < finished {
			doc.Scores = append(doc.Scores, Score{
				Subject: subjects[i%len(subjects)],
				Score:   float64(12 + i%8),
			})
		}
		docs = append(docs, doc)
	}
	return docs, s.seed.Paged, false, true
}

// pollAdmission advances the admission job
func (b *Backend) pollAdmission(studentID string) (programs []string, failed, found bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.students[studentID]
	if !ok {
		return nil, false, false
	}
	if s.admission.hit() {
		return nil, true, true
	}
	if s.admission.polls < s.seed.AdmissionPolls {
		return []string{}, false, true
	}
	return s.seed.Programs, false, true
}

// pollPrediction advances the prediction job
func (b *Backend) pollPrediction(jobID string) (status string, failed, found bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	studentID, ok := b.predictions[jobID]
	if !ok {
		return "", false, false
	}
	s := b.students[studentID]
	if s.prediction.hit() {
		return "", true, true
	}

	switch {
	case s.prediction.polls < s.seed.PredictionPolls:
		return "processing", false, true
	case s.seed.PredictionFails:
		return "failed", false, true
	default:
		return "completed", false, true
	}
}
