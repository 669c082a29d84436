package actions

import (
	"bytes"
	"fmt"

	json "github.com/json-iterator/go"
)

// DecodeAction decodes one action object, dispatching on its "type" field.
func DecodeAction(raw []byte) (Action, error) {
	var head struct {
		Type ActionType `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAction, err)
	}

	var a Action
	switch head.Type {
	case TypeGoto:
		a = &GotoAction{}
	case TypeClick:
		a = &ClickAction{}
	case TypeFill:
		a = &FillAction{}
	case TypePressKey:
		a = &PressKeyAction{}
	case TypeScroll:
		a = &ScrollAction{}
	case TypeGoBack:
		a = &GoBackAction{}
	case TypeWait:
		a = &WaitAction{}
	case TypeScrape:
		a = &ScrapeAction{}
	case TypeCompletion:
		a = &CompletionAction{}
	case "":
		return nil, fmt.Errorf("%w: missing \"type\"", ErrInvalidAction)
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidAction, head.Type)
	}

	if err := json.Unmarshal(raw, a); err != nil {
		return nil, fmt.Errorf("%w '%s': %v", ErrInvalidAction, head.Type, err)
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

// EncodeAction encodes a with its "type" discriminator first.
func EncodeAction(a Action) ([]byte, error) {
	body, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString(`{"type":`)
	typ, err := json.Marshal(string(a.Type()))
	if err != nil {
		return nil, err
	}
	buf.Write(typ)

	body = bytes.TrimSpace(body)
	if len(body) > 2 {
		buf.WriteByte(',')
		buf.Write(body[1:])
	} else {
		buf.WriteByte('}')
	}
	return buf.Bytes(), nil
}
