package core

import (
	"github.com/ajitpratap0/idbridge/pkg/errors"
)

// AttributeType names the value type of an attribute
type AttributeType string

const (
	TypeString  AttributeType = "string"
	TypeInt     AttributeType = "int"
	TypeBool    AttributeType = "bool"
	TypeTime    AttributeType = "time"
	TypeGuarded AttributeType = "guarded_string"
)

// AttributeInfo describes one attribute of an object class. The zero value
// of every flag means the usual case: optional, single valued, creatable,
// updateable, readable and returned by default.
type AttributeInfo struct {
	Name                 string        `json:"name"`
	Type                 AttributeType `json:"type"`
	Required             bool          `json:"required,omitempty"`
	MultiValued          bool          `json:"multi_valued,omitempty"`
	NotCreatable         bool          `json:"not_creatable,omitempty"`
	NotUpdateable        bool          `json:"not_updateable,omitempty"`
	NotReadable          bool          `json:"not_readable,omitempty"`
	NotReturnedByDefault bool          `json:"not_returned_by_default,omitempty"`
}

// ObjectClassInfo describes an object class
type ObjectClassInfo struct {
	Type       ObjectClass     `json:"type"`
	Attributes []AttributeInfo `json:"attributes"`
}

// Find looks up an attribute by name, ignoring case
func (oci *ObjectClassInfo) Find(name string) (AttributeInfo, bool) {
	for _, a := range oci.Attributes {
		if equalFold(a.Name, name) {
			return a, true
		}
	}
	return AttributeInfo{}, false
}

// ReturnedByDefault lists readable attributes returned when no explicit
// list is requested
func (oci *ObjectClassInfo) ReturnedByDefault() []string {
	var names []string
	for _, a := range oci.Attributes {
		if !a.NotReadable && !a.NotReturnedByDefault {
			names = append(names, a.Name)
		}
	}
	return names
}

// AttributesToReturn resolves the attribute names a search should return
func (oci *ObjectClassInfo) AttributesToReturn(opts *OperationOptions) []string {
	if opts != nil && len(opts.AttributesToGet) > 0 {
		return opts.AttributesToGet
	}
	return oci.ReturnedByDefault()
}

// ValidateCreate checks attrs against the object class for a create
func (oci *ObjectClassInfo) ValidateCreate(attrs AttributeSet) error {
	for _, info := range oci.Attributes {
		if !info.Required {
			continue
		}
		a, ok := attrs.Find(info.Name)
		if !ok || a.IsEmpty() {
			return errors.Newf(errors.ErrorTypeInvalidAttribute, "attribute %s is required", info.Name)
		}
	}
	for _, a := range attrs {
		info, ok := oci.Find(a.Name)
		if !ok {
			return errors.Newf(errors.ErrorTypeInvalidAttribute, "attribute %s is not supported by %s", a.Name, oci.Type)
		}
		if info.NotCreatable {
			return errors.Newf(errors.ErrorTypeInvalidAttribute, "attribute %s is not creatable", a.Name)
		}
		if !info.MultiValued && len(a.Values) > 1 {
			return errors.Newf(errors.ErrorTypeInvalidAttribute, "attribute %s must be single valued", a.Name)
		}
	}
	return nil
}

// ValidateUpdate checks attrs against the object class for an update
func (oci *ObjectClassInfo) ValidateUpdate(attrs AttributeSet) error {
	if attrs.Has(AttrUid) {
		return errors.New(errors.ErrorTypeInvalidAttribute, "attribute __UID__ cannot be updated")
	}
	for _, a := range attrs {
		info, ok := oci.Find(a.Name)
		if !ok {
			return errors.Newf(errors.ErrorTypeInvalidAttribute, "attribute %s is not supported by %s", a.Name, oci.Type)
		}
		if info.NotUpdateable {
			return errors.Newf(errors.ErrorTypeInvalidAttribute, "attribute %s is not updateable", a.Name)
		}
		if !info.MultiValued && len(a.Values) > 1 {
			return errors.Newf(errors.ErrorTypeInvalidAttribute, "attribute %s must be single valued", a.Name)
		}
		if info.Required && a.IsEmpty() {
			return errors.Newf(errors.ErrorTypeInvalidAttribute, "attribute %s cannot be cleared", a.Name)
		}
	}
	return nil
}

// Schema lists the object classes a connector supports
type Schema struct {
	ObjectClasses []ObjectClassInfo `json:"object_classes"`
}

// FindObjectClass looks an object class up
func (s *Schema) FindObjectClass(oc ObjectClass) (*ObjectClassInfo, bool) {
	for i := range s.ObjectClasses {
		if equalFold(string(s.ObjectClasses[i].Type), string(oc)) {
			return &s.ObjectClasses[i], true
		}
	}
	return nil, false
}

// RequireObjectClass returns the object class or an Unsupported error
func (s *Schema) RequireObjectClass(oc ObjectClass) (*ObjectClassInfo, error) {
	oci, ok := s.FindObjectClass(oc)
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeUnsupported, "object class %s is not supported", oc)
	}
	return oci, nil
}
