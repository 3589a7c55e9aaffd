package records

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/JaimeStill/warden/pkg/devops"
)

// Normalize builds a Record from a work item and its joined comment text.
// It never fails: absent or mistyped fields take their documented default.
func Normalize(item devops.WorkItem, comments string) Record {
	f := item.Fields

	desc := stringField(f, devops.FieldDescription, "")
	clean := StripHTML(desc)

	return Record{
		ID:                item.ID,
		Type:              stringField(f, devops.FieldWorkItemType, ""),
		Title:             stringField(f, devops.FieldTitle, DefaultTitle),
		State:             stringField(f, devops.FieldState, ""),
		Tags:              stringField(f, devops.FieldTags, ""),
		AssignedTo:        assignedTo(f[devops.FieldAssignedTo]),
		IterationPath:     stringField(f, devops.FieldIterationPath, ""),
		ParentID:          ParentID(item.Relations),
		RawDescription:    desc,
		CleanDescription:  clean,
		DescriptionLength: utf8.RuneCountInString(clean),
		AttachmentCount:   count(f[devops.FieldAttachmentCount]),
		CommentsText:      comments,
	}
}

func stringField(fields map[string]any, key, fallback string) string {
	if s, ok := fields[key].(string); ok {
		return s
	}
	return fallback
}

func assignedTo(v any) string {
	identity, ok := v.(map[string]any)
	if !ok {
		return DefaultAssignedTo
	}
	if name, ok := identity["displayName"].(string); ok && name != "" {
		return name
	}
	return DefaultAssignedTo
}

// count coerces a JSON number or numeric string to a non-negative int.
func count(v any) int {
	var n float64

	switch x := v.(type) {
	case float64:
		n = x
	case int:
		n = float64(x)
	case int64:
		n = float64(x)
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0
		}
		n = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0
		}
		n = f
	default:
		return 0
	}

	if math.IsNaN(n) || n <= 0 {
		return 0
	}
	if n > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(n)
}
