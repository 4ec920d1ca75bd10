// Command generate-schema writes the JSON schema of the stonify
// configuration file, for editor completion and CI checks.
//
//	generate-schema [-o config.schema.json]
//
// "-o -" prints the schema to stdout.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/invopop/jsonschema"
	flag "github.com/spf13/pflag"

	"github.com/marmos91/stonify/pkg/config"
)

var output = flag.StringP("output", "o", "config.schema.json", "schema file to write, - for stdout")

func main() {
	flag.Parse()

	if err := run(*output); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(path string) error {
	// Property names follow the YAML keys users write, not the Go fields.
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
		FieldNameTag:              "yaml",
	}

	schema := reflector.Reflect(&config.Config{})
	schema.Title = "Stonify Configuration"
	schema.Description = "Configuration file of the stonify and wtbrowse commands"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal schema: %w", err)
	}
	data = append(data, '\n')

	if path == "-" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write schema: %w", err)
	}
	fmt.Printf("JSON schema written to %s\n", path)
	return nil
}
