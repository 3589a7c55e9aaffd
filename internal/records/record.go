// Package records turns raw Azure DevOps work items into canonical
// records with every field typed and defaulted.
package records

// Defaults applied when a field is absent or has the wrong type.
const (
	DefaultTitle      = "Untitled"
	DefaultAssignedTo = "Unassigned"
)

// Record is the canonical form of a work item used by the compliance rules.
type Record struct {
	ID                int    `json:"id"`
	Type              string `json:"type"`
	Title             string `json:"title"`
	State             string `json:"state"`
	Tags              string `json:"tags"`
	AssignedTo        string `json:"assigned_to"`
	IterationPath     string `json:"iteration_path"`
	ParentID          *int   `json:"parent_id"`
	RawDescription    string `json:"raw_description"`
	CleanDescription  string `json:"clean_description"`
	DescriptionLength int    `json:"description_length"`
	AttachmentCount   int    `json:"attachment_count"`
	CommentsText      string `json:"comments_text"`
}
