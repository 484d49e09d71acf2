package jobs

import (
	"context"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/jzx17/jobpoll/pkg/poll"
)

// Program is one recommended study program
type Program struct {
	Name        string
	University  string
	Probability float64
}

// AdmissionResult is one poll of the admission prediction endpoint
type AdmissionResult struct {
	Kind     Kind
	Programs []Program
	Page     Page
}

// AdmissionDone reports whether at least one recommendation was produced
func AdmissionDone(r AdmissionResult) bool {
	return len(r.Programs) > 0
}

// AdmissionProgress is binary, the backend exposes no finer signal
func AdmissionProgress(r AdmissionResult) poll.ItemProgress {
	if !AdmissionDone(r) {
		return poll.ItemProgress{Processed: 0, Total: 1, Status: "processing in progress..."}
	}
	return poll.ItemProgress{
		Processed: 1,
		Total:     1,
		Status:    fmt.Sprintf("retrieved %d programs", len(r.Programs)),
	}
}

// AdmissionJob polls GET /admission/{studentID} until recommendations appear
func AdmissionJob(t Transport, studentID string) poll.Job[AdmissionResult] {
	path := "/admission/" + escape(studentID)

	return poll.Job[AdmissionResult]{
		Fetch: func(ctx context.Context) (AdmissionResult, error) {
			body, err := t.Get(ctx, path)
			if err != nil {
				return AdmissionResult{}, err
			}
			return parseAdmission(body)
		},
		IsDone:          AdmissionDone,
		ExtractProgress: AdmissionProgress,
	}
}

func parseAdmission(body []byte) (AdmissionResult, error) {
	root, err := parseBody(body)
	if err != nil {
		return AdmissionResult{}, err
	}

	data := root.Get("data")
	if data.Type != gjson.JSON {
		// a scalar such as "processing" means nothing is ready yet
		data = gjson.Result{}
	}

	coll, err := NormalizeCollection(data)
	if err != nil {
		return AdmissionResult{}, err
	}

	result := AdmissionResult{Kind: coll.Kind, Page: coll.Page}
	for _, item := range coll.Items {
		result.Programs = append(result.Programs, parseProgram(item))
	}
	return result, nil
}

func parseProgram(item gjson.Result) Program {
	if !item.IsObject() {
		return Program{Name: item.String()}
	}
	return Program{
		Name:        firstString(item, "program_name", "programName", "name"),
		University:  firstString(item, "university", "university_name"),
		Probability: item.Get("probability").Float(),
	}
}
