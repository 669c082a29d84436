package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	json "github.com/json-iterator/go"

	"github.com/entrhq/surfer/pkg/types"
)

// ErrMalformedResponse is returned when a structured completion cannot be
// decoded into the requested shape.
var ErrMalformedResponse = errors.New("malformed structured response")

var (
	fencePattern    = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")
	thinkingPattern = regexp.MustCompile(`(?s)^\s*<(think|thinking)>.*?</(think|thinking)>`)
)

// DecodeFunc decodes a raw JSON payload. It returns an error for payloads
// that do not satisfy the expected contract.
type DecodeFunc func(raw []byte) error

// StructuredCompletion requests a JSON object from provider and decodes it
// into target with json-iterator.
func StructuredCompletion(ctx context.Context, provider Provider, messages []*types.Message, target interface{}, opts ...CompletionOption) (*types.Message, error) {
	return StructuredCompletionWith(ctx, provider, messages, func(raw []byte) error {
		return json.Unmarshal(raw, target)
	}, opts...)
}

// StructuredCompletionWith requests a JSON object from provider and hands the
// extracted payload to decode. Empty or undecodable payloads are reported as
// ErrMalformedResponse; a decode error is never silently replaced by a
// default value.
func StructuredCompletionWith(ctx context.Context, provider Provider, messages []*types.Message, decode DecodeFunc, opts ...CompletionOption) (*types.Message, error) {
	opts = append([]CompletionOption{WithJSONResponse()}, opts...)
	resp, err := provider.Complete(ctx, messages, opts...)
	if err != nil {
		return nil, err
	}

	raw := ExtractJSON(resp.Content)
	if len(raw) == 0 {
		return resp, fmt.Errorf("%w: empty payload", ErrMalformedResponse)
	}
	if err := decode(raw); err != nil {
		return resp, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return resp, nil
}

// ExtractJSON pulls the JSON object out of a model reply, dropping a leading
// reasoning block and surrounding markdown code fences.
func ExtractJSON(content string) []byte {
	s := thinkingPattern.ReplaceAllString(content, "")
	s = strings.TrimSpace(s)
	if m := fencePattern.FindStringSubmatch(s); m != nil {
		s = m[1]
	}

	b := []byte(strings.TrimSpace(s))
	if len(b) == 0 {
		return nil
	}
	if b[0] != '{' && b[0] != '[' {
		// Prose around the object: take the outermost braces.
		start := bytes.IndexByte(b, '{')
		end := bytes.LastIndexByte(b, '}')
		if start < 0 || end <= start {
			return b
		}
		b = b[start : end+1]
	}
	return b
}
