package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

// Every node kind and relationship type is compiled to one JSON Schema
// document. Property bags are normalized first and then validated against it.

var (
	compileOnce sync.Once
	compiled    map[string]*jsonschema.Schema
	compileErr  error
)

func nodeSchemaURL(kind NodeKind) string { return "catalog://node/" + string(kind) + ".json" }
func relSchemaURL(t RelType) string      { return "catalog://relationship/" + string(t) + ".json" }

func jsonType(t AttrType) map[string]any {
	switch t {
	case TypeString:
		return map[string]any{"type": "string"}
	case TypeInt:
		return map[string]any{"type": "integer"}
	case TypeBool:
		return map[string]any{"type": "boolean"}
	case TypeFloat:
		return map[string]any{"type": "number"}
	case TypeStringList:
		return map[string]any{"type": "array", "items": map[string]any{"type": "string"}}
	}
	return map[string]any{}
}

// document renders spec as a closed object schema.
func (s Spec) document(title string) ([]byte, error) {
	props := make(map[string]any, len(s.Attrs))
	requiredNames := []string{}
	for _, a := range s.Attrs {
		props[a.Name] = jsonType(a.Type)
		if a.Required {
			requiredNames = append(requiredNames, a.Name)
		}
	}
	return json.Marshal(map[string]any{
		"title":                title,
		"type":                 "object",
		"properties":           props,
		"required":             requiredNames,
		"additionalProperties": false,
	})
}

func compileCatalog() (map[string]*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	urls := make([]string, 0, len(nodeSpecs)+len(relSpecs))
	add := func(url, title string, spec Spec) error {
		doc, err := spec.document(title)
		if err != nil {
			return err
		}
		if err := compiler.AddResource(url, bytes.NewReader(doc)); err != nil {
			return err
		}
		urls = append(urls, url)
		return nil
	}
	for kind, spec := range nodeSpecs {
		if err := add(nodeSchemaURL(kind), string(kind), spec); err != nil {
			return nil, err
		}
	}
	for t, spec := range relSpecs {
		if err := add(relSchemaURL(t), string(t), spec); err != nil {
			return nil, err
		}
	}

	out := make(map[string]*jsonschema.Schema, len(urls))
	for _, url := range urls {
		sch, err := compiler.Compile(url)
		if err != nil {
			return nil, fmt.Errorf("compile %s: %w", url, err)
		}
		out[url] = sch
	}
	return out, nil
}

func catalogSchema(url string) (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiled, compileErr = compileCatalog()
	})
	if compileErr != nil {
		return nil, compileErr
	}
	sch, ok := compiled[url]
	if !ok {
		return nil, fmt.Errorf("no schema at %s", url)
	}
	return sch, nil
}

// instance converts props into the value model the validator accepts.
// Values with no JSON form become null and fail the type check.
func instance(props Properties) map[string]any {
	out := make(map[string]any, len(props))
	for name, v := range props {
		switch val := v.(type) {
		case string, bool, int, int32, int64, float32, float64, []any:
			out[name] = val
		case []string:
			items := make([]any, len(val))
			for i, s := range val {
				items[i] = s
			}
			out[name] = items
		default:
			out[name] = nil
		}
	}
	return out
}

func validateProperties(owner, url string, spec Spec, props Properties) error {
	for name, v := range props {
		if attr, ok := spec.lookup(name); ok {
			if nv, err := normalize(attr.Type, v); err == nil {
				props[name] = nv
			}
		}
	}

	sch, err := catalogSchema(url)
	if err != nil {
		return err
	}
	err = sch.Validate(instance(props))
	if err == nil {
		return nil
	}
	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return fmt.Errorf("%s: %w: %v", owner, ErrAttributeType, err)
	}
	return violations(owner, spec, props, verr)
}

// violations maps the leaf errors of verr onto the catalog sentinels.
func violations(owner string, spec Spec, props Properties, verr *jsonschema.ValidationError) error {
	var errs []error
	for _, leaf := range leaves(verr) {
		keyword := leaf.KeywordLocation[strings.LastIndexByte(leaf.KeywordLocation, '/')+1:]
		switch keyword {
		case "additionalProperties":
			for _, name := range props.Keys() {
				if _, ok := spec.lookup(name); ok {
					continue
				}
				sentinel := ErrUnknownAttribute
				if reserved[name] {
					sentinel = ErrReserved
				}
				errs = append(errs, fmt.Errorf("%s.%s: %w", owner, name, sentinel))
			}
		case "required":
			for _, a := range spec.Attrs {
				if _, ok := props[a.Name]; a.Required && !ok {
					errs = append(errs, fmt.Errorf("%s.%s: %w", owner, a.Name, ErrMissingAttribute))
				}
			}
		default:
			name := strings.SplitN(strings.TrimPrefix(leaf.InstanceLocation, "/"), "/", 2)[0]
			errs = append(errs, fmt.Errorf("%s.%s: %w: %s", owner, name, ErrAttributeType, leaf.Message))
		}
	}
	if len(errs) == 0 {
		return fmt.Errorf("%s: %w", owner, verr)
	}
	sort.Slice(errs, func(i, j int) bool { return errs[i].Error() < errs[j].Error() })
	return errors.Join(errs...)
}

func leaves(ve *jsonschema.ValidationError) []*jsonschema.ValidationError {
	if len(ve.Causes) == 0 {
		return []*jsonschema.ValidationError{ve}
	}
	var out []*jsonschema.ValidationError
	for _, c := range ve.Causes {
		out = append(out, leaves(c)...)
	}
	return out
}
