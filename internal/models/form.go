package models

// FormField is a single named input with its pre-filled value.
type FormField struct {
	Name  string
	Value string
}

// FormDescriptor is the normalized representation of a discovered login or MFA
// form: an absolute action URL plus the form's fields in document order.
// Field names are unique; the first occurrence wins.
type FormDescriptor struct {
	ActionURL string
	fields    []FormField
	index     map[string]int
}

// NewFormDescriptor creates an empty descriptor for the given action URL.
func NewFormDescriptor(actionURL string) *FormDescriptor {
	return &FormDescriptor{
		ActionURL: actionURL,
		index:     make(map[string]int),
	}
}

// Add appends a field, keeping the first value seen for a duplicate name.
func (f *FormDescriptor) Add(name, value string) {
	if name == "" {
		return
	}
	if _, exists := f.index[name]; exists {
		return
	}
	f.index[name] = len(f.fields)
	f.fields = append(f.fields, FormField{Name: name, Value: value})
}

// Set overwrites the value of an existing field, or appends the field when it
// is not present.
func (f *FormDescriptor) Set(name, value string) {
	if i, ok := f.index[name]; ok {
		f.fields[i].Value = value
		return
	}
	f.index[name] = len(f.fields)
	f.fields = append(f.fields, FormField{Name: name, Value: value})
}

// Has reports whether a field with the given name exists.
func (f *FormDescriptor) Has(name string) bool {
	_, ok := f.index[name]
	return ok
}

// Get returns the current value of a field.
func (f *FormDescriptor) Get(name string) (string, bool) {
	i, ok := f.index[name]
	if !ok {
		return "", false
	}
	return f.fields[i].Value, true
}

// Fields returns the fields in document order.
func (f *FormDescriptor) Fields() []FormField {
	return f.fields
}

// Values returns the fields as a flat map for form submission.
func (f *FormDescriptor) Values() map[string]string {
	out := make(map[string]string, len(f.fields))
	for _, field := range f.fields {
		out[field.Name] = field.Value
	}
	return out
}

// Len returns the number of fields.
func (f *FormDescriptor) Len() int {
	return len(f.fields)
}
