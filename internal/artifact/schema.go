package artifact

import (
	"embed"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schemas/*.json
var schemaFiles embed.FS

// Schema returns the JSON schema for a JSON artifact.
func Schema(name string) (string, bool) {
	data, err := schemaFiles.ReadFile("schemas/" + name)
	if err != nil {
		return "", false
	}
	return string(data), true
}

// Validate checks a JSON artifact against its schema. Artifacts without a schema
// are accepted as long as they are non-empty.
func Validate(name string, data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("%s is empty", name)
	}
	schema, ok := Schema(name)
	if !ok {
		return nil
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return fmt.Errorf("validating %s: %w", name, err)
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return fmt.Errorf("%s does not match schema: %s", name, strings.Join(errs, "; "))
	}
	return nil
}
