package movies

import (
	"fmt"

	"github.com/segmentio/ksuid"
)

// IDField is the document key holding the store-assigned identifier.
const IDField = "_id"

// Document is a movie record. Apart from IDField and "name" it has no fixed shape.
type Document map[string]any

func NewID() string {
	return ksuid.New().String()
}

// ParseID reports whether s is an identifier produced by NewID.
func ParseID(s string) (string, error) {
	id, err := ksuid.Parse(s)
	if err != nil {
		return "", err
	}

	return id.String(), nil
}

// Name returns the movie's name as a string, or "" when unset.
func (d Document) Name() string {
	v, ok := d["name"]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}

	return fmt.Sprint(v)
}

// WithoutID returns a shallow copy of d with IDField removed.
func (d Document) WithoutID() Document {
	out := make(Document, len(d))
	for k, v := range d {
		if k == IDField {
			continue
		}
		out[k] = v
	}

	return out
}
