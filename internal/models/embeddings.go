package models

import (
	"bytes"
	"encoding/json"
	"errors"
)

// EmbeddingInput is the input of an embedding request: either a single string or an ordered list of strings.
// It decodes from a JSON string or a JSON array of strings and encodes back to the same shape.
type EmbeddingInput struct {
	text   string
	texts  []string
	isList bool
	set    bool
}

// NewTextInput creates an input holding a single string.
func NewTextInput(text string) EmbeddingInput {
	return EmbeddingInput{text: text, set: true}
}

// NewTextsInput creates an input holding an ordered list of strings.
func NewTextsInput(texts []string) EmbeddingInput {
	if texts == nil {
		texts = []string{}
	}

	return EmbeddingInput{texts: texts, isList: true, set: true}
}

// IsList reports whether the input is a list of strings.
func (in EmbeddingInput) IsList() bool {
	return in.isList
}

// IsSet reports whether the input was provided at all.
func (in EmbeddingInput) IsSet() bool {
	return in.set
}

// Text returns the single string input. Empty for list inputs.
func (in EmbeddingInput) Text() string {
	return in.text
}

// Texts returns the list input. Nil for single string inputs.
func (in EmbeddingInput) Texts() []string {
	return in.texts
}

// Values returns the input as a slice: the list itself, or a one-element slice for a single string.
// Returns nil when the input was never set.
func (in EmbeddingInput) Values() []string {
	if !in.set {
		return nil
	}

	if in.isList {
		return in.texts
	}

	return []string{in.text}
}

// MarshalJSON encodes the input as a JSON string or array of strings.
func (in EmbeddingInput) MarshalJSON() ([]byte, error) {
	if !in.set {
		return []byte("null"), nil
	}

	if in.isList {
		return json.Marshal(in.texts)
	}

	return json.Marshal(in.text)
}

// UnmarshalJSON decodes a JSON string or an array of strings.
func (in *EmbeddingInput) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*in = EmbeddingInput{}

		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}

		*in = NewTextInput(s)

		return nil
	case '[':
		var ss []string
		if err := json.Unmarshal(data, &ss); err != nil {
			return errors.New("input must be a string or an array of strings")
		}

		*in = NewTextsInput(ss)

		return nil
	default:
		return errors.New("input must be a string or an array of strings")
	}
}

// CreateEmbeddingRequest is the body of POST /v1/embeddings (OpenAI-compatible).
type CreateEmbeddingRequest struct {
	Input EmbeddingInput `json:"input" validate:"required,min=1"`
	Model string         `json:"model" validate:"required,min=1,max=255,no_null_bytes"`
}

// InputPreview is the truncated copy of an embedding input kept with error logs for debugging.
type InputPreview struct {
	InputTruncated EmbeddingInput `json:"input_truncated"`
}
