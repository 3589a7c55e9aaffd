// Package tasks persists compliance results and serves them back for
// display. Rows are keyed by work item id and are only ever upserted.
package tasks

import "time"

// Task is a persisted compliance result.
type Task struct {
	ID                    int       `json:"id"`
	Title                 string    `json:"title"`
	AssignedTo            string    `json:"assigned_to"`
	State                 string    `json:"state"`
	Tags                  string    `json:"tags"`
	IterationPath         string    `json:"iteration_path"`
	HasDocumentationLink  bool      `json:"has_documentation_link"`
	HasComplexDescription bool      `json:"has_complex_description"`
	HasAttachment         bool      `json:"has_attachment"`
	Compliance            string    `json:"compliance"`
	LastUpdatedAt         time.Time `json:"last_updated_at"`
	ParentID              *int      `json:"parent_id"`
}

// Summary counts stored tasks by verdict.
type Summary struct {
	Total int `json:"total"`
	OK    int `json:"ok"`
	NOK   int `json:"nok"`
}

// Summarize counts the verdicts in tasks.
func Summarize(tasks []Task) Summary {
	s := Summary{Total: len(tasks)}
	for _, t := range tasks {
		if t.Compliance == "OK" {
			s.OK++
		} else {
			s.NOK++
		}
	}
	return s
}
