package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math/big"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	xerrors "github.com/jaycoolh/hedera-agent-kit/internal/errors"
)

// Definition is one entry of the tool table: a name, a description for the
// agent, the input schema and a typed handler hidden behind run.
type Definition struct {
	Name        string
	Description string
	Schema      *jsonschema.Schema

	resolved *jsonschema.Resolved
	run      func(ctx context.Context, input []byte) (any, error)
}

// define derives the schema of In, then builds the Parse and Invoke steps
// around handler.
func define[In, Out any](name, description string, handler func(ctx context.Context, in In) (Out, error)) (*Definition, error) {
	schema, err := jsonschema.For[In](nil)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeInitializationFailure, err, "生成工具 "+name+" 的输入 schema 失败")
	}
	resolved, err := schema.Resolve(nil)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeInitializationFailure, err, "解析工具 "+name+" 的输入 schema 失败")
	}

	def := &Definition{
		Name:        name,
		Description: description,
		Schema:      schema,
		resolved:    resolved,
	}
	def.run = func(ctx context.Context, input []byte) (any, error) {
		var in In
		if err := def.decode(input, &in); err != nil {
			return nil, err
		}
		return handler(ctx, in)
	}
	return def, nil
}

// decode validates the payload against the schema, then strictly decodes it.
// Blank input is treated as an empty object. Optional fields sent as null
// are treated as absent and integral numbers such as 2.0 are read as 2.
func (d *Definition) decode(input []byte, target any) error {
	canonical, err := d.normalise(input)
	if err != nil {
		return err
	}

	var instance any
	if err := json.Unmarshal(canonical, &instance); err != nil {
		return xerrors.Wrap(xerrors.CodeInvalidInput, err, "输入不是合法的 JSON")
	}
	if err := d.resolved.Validate(instance); err != nil {
		return xerrors.Wrap(xerrors.CodeInvalidInput, err, "输入未通过校验")
	}

	dec := json.NewDecoder(bytes.NewReader(canonical))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		return xerrors.Wrap(xerrors.CodeInvalidInput, err, "解析输入失败")
	}
	return nil
}

// normalise re-encodes the payload so that schema validation and the strict
// decode see the same document.
func (d *Definition) normalise(input []byte) ([]byte, error) {
	input = bytes.TrimSpace(input)
	if len(input) == 0 {
		return []byte("{}"), nil
	}

	dec := json.NewDecoder(bytes.NewReader(input))
	dec.UseNumber()
	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeInvalidInput, err, "输入不是合法的 JSON")
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, xerrors.New(xerrors.CodeInvalidInput, "输入不是合法的 JSON: 对象之后存在多余内容")
	}
	fields, ok := value.(map[string]any)
	if !ok {
		return nil, xerrors.New(xerrors.CodeInvalidInput, "输入必须是 JSON 对象")
	}

	required := make(map[string]bool, len(d.Schema.Required))
	for _, name := range d.Schema.Required {
		required[name] = true
	}
	for name, v := range fields {
		if v == nil && !required[name] {
			delete(fields, name)
		}
	}

	canonical, err := json.Marshal(integralNumbers(fields))
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeInvalidInput, err, "输入不是合法的 JSON")
	}
	return canonical, nil
}

// integralNumbers rewrites numbers with no fractional part in integer form.
func integralNumbers(v any) any {
	switch x := v.(type) {
	case map[string]any:
		for k, item := range x {
			x[k] = integralNumbers(item)
		}
		return x
	case []any:
		for i, item := range x {
			x[i] = integralNumbers(item)
		}
		return x
	case json.Number:
		text := x.String()
		if !strings.ContainsAny(text, ".eE") {
			return x
		}
		f, ok := new(big.Float).SetPrec(256).SetString(text)
		if !ok || !f.IsInt() {
			return x
		}
		return json.Number(f.Text('f', 0))
	default:
		return v
	}
}

// SchemaJSON renders the input schema for listings.
func (d *Definition) SchemaJSON() json.RawMessage {
	encoded, err := json.Marshal(d.Schema)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return encoded
}

// Summary is the listing form of a definition.
type Summary struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
}

func (d *Definition) summary() Summary {
	return Summary{
		Name:        d.Name,
		Description: strings.TrimSpace(d.Description),
		InputSchema: d.SchemaJSON(),
	}
}
