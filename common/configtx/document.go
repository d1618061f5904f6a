package configtx

import (
	"strings"

	"github.com/pkg/errors"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// ErrMalformedConfig is returned when a configuration document lacks an expected
// section or a section does not have the expected shape.
var ErrMalformedConfig = errors.New("malformed config")

// Path addresses a node of the document by its chain of object keys.
type Path []string

func (p Path) String() string {
	return strings.Join(p, ".")
}

// Child returns a new path extended by keys. The receiver is not modified.
func (p Path) Child(keys ...string) Path {
	child := make(Path, 0, len(p)+len(keys))
	child = append(child, p...)
	return append(child, keys...)
}

// Document is a channel configuration document: the protolator JSON form of a
// common.Config, held as a tree of protobuf Struct values so that copies and
// comparisons are exact. A Document handed to a caller is never mutated by this
// package; edits go through Clone.
type Document struct {
	root *structpb.Struct
}

// NewDocument builds a document from a decoded JSON or YAML object.
func NewDocument(m map[string]interface{}) (*Document, error) {
	root, err := structpb.NewStruct(m)
	if err != nil {
		return nil, errors.Wrapf(ErrMalformedConfig, "unsupported value in document: %s", err)
	}
	return &Document{root: root}, nil
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	return &Document{root: proto.Clone(d.root).(*structpb.Struct)}
}

// Equal reports whether both documents hold the same tree.
func (d *Document) Equal(other *Document) bool {
	if d == nil || other == nil {
		return d == other
	}
	return proto.Equal(d.root, other.root)
}

// AsMap converts the document back to plain Go values.
func (d *Document) AsMap() map[string]interface{} {
	return d.root.AsMap()
}

// Lookup returns the value found at path.
func (d *Document) Lookup(path Path) (*structpb.Value, error) {
	cur := structpb.NewStructValue(d.root)
	for i, key := range path {
		obj := cur.GetStructValue()
		if obj == nil {
			return nil, errors.Wrapf(ErrMalformedConfig, "%s is not an object", path[:i])
		}
		next, ok := obj.Fields[key]
		if !ok || next == nil {
			return nil, errors.Wrapf(ErrMalformedConfig, "%s not found", path[:i+1])
		}
		cur = next
	}
	return cur, nil
}

// LookupStruct returns the object found at path.
func (d *Document) LookupStruct(path Path) (*structpb.Struct, error) {
	v, err := d.Lookup(path)
	if err != nil {
		return nil, err
	}
	s := v.GetStructValue()
	if s == nil {
		return nil, errors.Wrapf(ErrMalformedConfig, "%s is not an object", path)
	}
	return s, nil
}

// LookupList returns the elements of the list found at path.
func (d *Document) LookupList(path Path) ([]*structpb.Value, error) {
	v, err := d.Lookup(path)
	if err != nil {
		return nil, err
	}
	l := v.GetListValue()
	if l == nil {
		return nil, errors.Wrapf(ErrMalformedConfig, "%s is not a list", path)
	}
	return l.Values, nil
}

// Set replaces the value at path. The parent object must already exist.
func (d *Document) Set(path Path, v *structpb.Value) error {
	if len(path) == 0 {
		return errors.New("cannot replace the document root")
	}
	parent, err := d.LookupStruct(path[:len(path)-1])
	if err != nil {
		return err
	}
	if parent.Fields == nil {
		parent.Fields = map[string]*structpb.Value{}
	}
	parent.Fields[path[len(path)-1]] = v
	return nil
}
