package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FlexStringList unmarshals either a JSON array of strings or a single
// comma-separated string into a []string. Vision providers are asked for
// arrays but occasionally return "a, b, c" instead; both forms are accepted.
type FlexStringList []string

func (f *FlexStringList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*f = cleanList(list)
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*f = cleanList(strings.Split(single, ","))
		return nil
	}

	return fmt.Errorf("value %s is neither a string array nor a string", string(data))
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// ExtractionResult is the parsed payload a vision provider returns for one
// record. Exactly one of the metadata fields or Prompt is populated,
// depending on the batch mode.
type ExtractionResult struct {
	Title       string         `json:"title,omitempty"`
	Keywords    FlexStringList `json:"keywords,omitempty"`
	Categories  FlexStringList `json:"categories,omitempty"`
	Description string         `json:"description,omitempty"`
	Prompt      string         `json:"prompt,omitempty"`
}
