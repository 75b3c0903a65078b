package metacard

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Suffixes reserved for in-flight backup artifacts. An ID ending in one of
// these would collide with the temp or staged file of another ID.
const (
	TempSuffix  = ".tmp"
	StageSuffix = ".del"
)

// Metacard is a catalog metadata record. The backup engine treats it as an
// opaque blob keyed by ID.
type Metacard struct {
	ID         string                 `json:"id" yaml:"id"`
	Attributes map[string]interface{} `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// Update pairs the previous and current versions of a metacard.
type Update struct {
	Old Metacard `json:"old" yaml:"old"`
	New Metacard `json:"new" yaml:"new"`
}

// New creates a metacard with the given ID and attributes.
func New(id string, attributes map[string]interface{}) Metacard {
	if attributes == nil {
		attributes = make(map[string]interface{})
	}
	return Metacard{ID: id, Attributes: attributes}
}

// Attribute returns the named attribute and whether it is set.
func (m Metacard) Attribute(name string) (interface{}, bool) {
	v, ok := m.Attributes[name]
	return v, ok
}

// AttributeNames returns the attribute names in sorted order.
func (m Metacard) AttributeNames() []string {
	names := make([]string, 0, len(m.Attributes))
	for name := range m.Attributes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Equal reports whether two metacards carry the same ID and attributes.
// Attributes are compared through their JSON form so that values decoded
// from a backup (float64 numbers, []interface{} lists) match the originals.
func (m Metacard) Equal(other Metacard) bool {
	if m.ID != other.ID {
		return false
	}
	a, err := json.Marshal(m.Attributes)
	if err != nil {
		return false
	}
	b, err := json.Marshal(other.Attributes)
	if err != nil {
		return false
	}
	return string(a) == string(b)
}

// ID returns the ID shared by both sides of the update.
func (u Update) ID() string {
	return u.New.ID
}

// Validate checks that both sides of the update refer to the same record.
func (u Update) Validate() error {
	if u.Old.ID != u.New.ID {
		return fmt.Errorf("update pairs different metacards: old %q, new %q", u.Old.ID, u.New.ID)
	}
	return ValidateID(u.New.ID)
}

// InvalidIDError reports an ID that cannot be used as a file name.
type InvalidIDError struct {
	ID     string
	Reason string
}

func (e *InvalidIDError) Error() string {
	return fmt.Sprintf("invalid metacard id %q: %s", e.ID, e.Reason)
}

// ValidateID checks that id is safe to use as a single path segment.
func ValidateID(id string) error {
	switch {
	case id == "":
		return &InvalidIDError{ID: id, Reason: "id is empty"}
	case strings.TrimSpace(id) == "":
		return &InvalidIDError{ID: id, Reason: "id is blank"}
	case id == "." || id == "..":
		return &InvalidIDError{ID: id, Reason: "id is a reserved name"}
	case strings.ContainsAny(id, `/\`):
		return &InvalidIDError{ID: id, Reason: "id contains a path separator"}
	case strings.ContainsRune(id, 0):
		return &InvalidIDError{ID: id, Reason: "id contains a NUL byte"}
	case strings.HasSuffix(id, TempSuffix), strings.HasSuffix(id, StageSuffix):
		return &InvalidIDError{ID: id, Reason: "id ends with a reserved suffix"}
	}
	return nil
}

// IDs returns the IDs of the given metacards in order.
func IDs(metacards []Metacard) []string {
	ids := make([]string, len(metacards))
	for i, m := range metacards {
		ids[i] = m.ID
	}
	return ids
}
