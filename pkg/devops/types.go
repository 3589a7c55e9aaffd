package devops

// Field reference names read from a work item's field bag.
const (
	FieldWorkItemType    = "System.WorkItemType"
	FieldTitle           = "System.Title"
	FieldState           = "System.State"
	FieldTags            = "System.Tags"
	FieldAssignedTo      = "System.AssignedTo"
	FieldIterationPath   = "System.IterationPath"
	FieldDescription     = "System.Description"
	FieldAttachmentCount = "System.AttachedFileCount"
)

// RelParent is the relation type linking a work item to its parent.
const RelParent = "System.LinkTypes.Hierarchy-Reverse"

// WorkItem is a work item as returned by the batch details call.
// Fields is the untyped field bag keyed by reference name.
type WorkItem struct {
	ID        int            `json:"id"`
	Fields    map[string]any `json:"fields"`
	Relations []Relation     `json:"relations"`
	URL       string         `json:"url"`
}

// Relation links a work item to another resource.
type Relation struct {
	Rel        string         `json:"rel"`
	URL        string         `json:"url"`
	Attributes map[string]any `json:"attributes"`
}

type wiqlRequest struct {
	Query string `json:"query"`
}

type workItemReference struct {
	ID  int    `json:"id"`
	URL string `json:"url"`
}

type wiqlResponse struct {
	QueryType string              `json:"queryType"`
	WorkItems []workItemReference `json:"workItems"`
}

type workItemsResponse struct {
	Count int        `json:"count"`
	Value []WorkItem `json:"value"`
}

type comment struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

type commentsResponse struct {
	TotalCount int       `json:"totalCount"`
	Comments   []comment `json:"comments"`
}
