package tools

import (
	"fmt"

	"github.com/invopop/jsonschema"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// GenerateSchema derives a JSON schema for T's fields, using json tags for
// names and jsonschema_description tags for descriptions. It panics if the
// schema cannot be represented as a map, which only happens for types that
// are not structs.
func GenerateSchema[T any]() map[string]any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	schema := reflector.Reflect(v)

	data, err := json.Marshal(schema)
	if err != nil {
		panic(fmt.Sprintf("marshal schema for %T: %v", v, err))
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		panic(fmt.Sprintf("decode schema for %T: %v", v, err))
	}
	delete(out, "$schema")
	delete(out, "$id")
	if _, ok := out["properties"]; !ok {
		out["properties"] = map[string]any{}
	}
	return out
}

// decodeArgs converts the agent's argument map into T.
func decodeArgs[T any](args map[string]any) (T, error) {
	var out T
	data, err := json.Marshal(args)
	if err != nil {
		return out, NewToolErrorf(ErrInvalidParams, "encode arguments: %v", err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, NewToolErrorf(ErrInvalidParams, "invalid arguments: %v", err)
	}
	return out, nil
}
