package records

import (
	"strconv"
	"strings"

	"github.com/JaimeStill/warden/pkg/devops"
)

// ParentID returns the id of the parent work item, taken from the last
// path segment of the first well-formed hierarchy-reverse relation.
// Malformed relations are skipped; nil means no usable parent.
func ParentID(relations []devops.Relation) *int {
	for _, rel := range relations {
		if rel.Rel != devops.RelParent || rel.URL == "" {
			continue
		}

		segment := rel.URL[strings.LastIndex(rel.URL, "/")+1:]
		id, err := strconv.Atoi(segment)
		if err != nil {
			continue
		}
		return &id
	}
	return nil
}

// HasParentLink reports whether any relation claims to be a parent link,
// whether or not its url is usable.
func HasParentLink(relations []devops.Relation) bool {
	for _, rel := range relations {
		if rel.Rel == devops.RelParent {
			return true
		}
	}
	return false
}
