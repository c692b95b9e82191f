package model

// Label is one member of the configured category label set,
// for example "News" or "Entertainment".
type Label string

// String returns the label as a plain string.
func (l Label) String() string {
	return string(l)
}

// CategoryRule maps URL path substrings to a label.
// Substrings within one rule are OR'd; an ordered list of rules forms a
// source's taxonomy table and the first matching rule wins.
type CategoryRule struct {
	// PathSubstrings are matched against the lower-cased URL path.
	PathSubstrings []string `json:"paths" yaml:"paths"`

	// Category is the label returned when any substring matches.
	Category Label `json:"category" yaml:"category"`
}
