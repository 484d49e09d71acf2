package jobs

import (
	"context"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/jzx17/jobpoll/pkg/poll"
)

// pendingShown is how many pending file ids the progress status lists
const pendingShown = 3

// SubjectScore is one extracted grade
type SubjectScore struct {
	Subject string
	Score   float64
}

// OCRDocument is one uploaded file and the scores extracted from it so far
type OCRDocument struct {
	FileID   string
	FileName string
	Scores   []SubjectScore
}

// Extracted reports whether OCR produced at least one score for the document
func (d OCRDocument) Extracted() bool {
	return len(d.Scores) > 0
}

// OCRResult is one poll of the OCR endpoint
type OCRResult struct {
	Kind      Kind
	Documents []OCRDocument
}

// Processed counts documents with extracted scores
func (r OCRResult) Processed() int {
	n := 0
	for _, doc := range r.Documents {
		if doc.Extracted() {
			n++
		}
	}
	return n
}

// Pending returns the ids of documents still waiting for extraction
func (r OCRResult) Pending() []string {
	var ids []string
	for _, doc := range r.Documents {
		if !doc.Extracted() {
			ids = append(ids, doc.FileID)
		}
	}
	return ids
}

// OCRDone is all-or-nothing: a non-empty list where every document has scores
func OCRDone(r OCRResult) bool {
	if len(r.Documents) == 0 {
		return false
	}
	for _, doc := range r.Documents {
		if !doc.Extracted() {
			return false
		}
	}
	return true
}

// OCRProgress reports processed/total documents and the first pending ids
func OCRProgress(r OCRResult) poll.ItemProgress {
	progress := poll.ItemProgress{
		Processed: r.Processed(),
		Total:     len(r.Documents),
	}

	pending := r.Pending()
	switch {
	case progress.Total == 0:
		progress.Status = "waiting for documents"
	case len(pending) == 0:
		progress.Status = fmt.Sprintf("all %d files processed", progress.Total)
	case len(pending) > pendingShown:
		progress.Status = fmt.Sprintf("pending: %s and %d more",
			strings.Join(pending[:pendingShown], ", "), len(pending)-pendingShown)
	default:
		progress.Status = "pending: " + strings.Join(pending, ", ")
	}
	return progress
}

// OCRJob polls GET /ocr/{studentID} until every uploaded document has scores
func OCRJob(t Transport, studentID string) poll.Job[OCRResult] {
	path := "/ocr/" + escape(studentID)

	return poll.Job[OCRResult]{
		Fetch: func(ctx context.Context) (OCRResult, error) {
			body, err := t.Get(ctx, path)
			if err != nil {
				return OCRResult{}, err
			}
			return parseOCR(body)
		},
		IsDone:          OCRDone,
		ExtractProgress: OCRProgress,
	}
}

func parseOCR(body []byte) (OCRResult, error) {
	root, err := parseBody(body)
	if err != nil {
		return OCRResult{}, err
	}

	coll, err := NormalizeCollection(root)
	if err != nil {
		return OCRResult{}, err
	}

	result := OCRResult{
		Kind:      coll.Kind,
		Documents: make([]OCRDocument, 0, coll.Len()),
	}
	for _, item := range coll.Items {
		result.Documents = append(result.Documents, parseDocument(item))
	}
	return result, nil
}

func parseDocument(item gjson.Result) OCRDocument {
	doc := OCRDocument{
		FileID:   firstString(item, "file_id", "fileId", "id"),
		FileName: firstString(item, "file_name", "fileName", "name"),
	}

	// only a score array counts; any other shape leaves the document pending
	scores := item.Get("scores")
	if !scores.IsArray() {
		return doc
	}
	for _, s := range scores.Array() {
		if s.IsObject() {
			doc.Scores = append(doc.Scores, SubjectScore{
				Subject: firstString(s, "subject", "name"),
				Score:   s.Get("score").Float(),
			})
			continue
		}
		doc.Scores = append(doc.Scores, SubjectScore{Score: s.Float()})
	}
	return doc
}

// firstString returns the first non-empty string among keys
func firstString(item gjson.Result, keys ...string) string {
	for _, key := range keys {
		if v := item.Get(key); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	return ""
}
