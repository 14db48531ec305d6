package api

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"mediasolver/internal/services"
)

//go:embed start_request.schema.json
var startRequestSchema []byte

const startSchemaURL = "start_request.schema.json"

func compileStartSchema() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(startSchemaURL, bytes.NewReader(startRequestSchema)); err != nil {
		return nil, fmt.Errorf("add start schema: %w", err)
	}
	schema, err := compiler.Compile(startSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile start schema: %w", err)
	}
	return schema, nil
}

// decodeStart validates body against the start schema before decoding it.
func decodeStart(schema *jsonschema.Schema, body []byte) (StartRequest, error) {
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return StartRequest{}, services.Wrap(services.ErrValidation, "api", "start", "request body is not valid JSON", err)
	}
	if err := schema.Validate(doc); err != nil {
		return StartRequest{}, services.Wrap(services.ErrValidation, "api", "start", schemaMessage(err), nil)
	}
	var req StartRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return StartRequest{}, services.Wrap(services.ErrValidation, "api", "start", "request body does not match", err)
	}
	return req, nil
}

// schemaMessage flattens a validation error to its innermost causes.
func schemaMessage(err error) string {
	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return err.Error()
	}
	var msgs []string
	var walk func(*jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			loc := e.InstanceLocation
			if loc == "" {
				loc = "/"
			}
			msgs = append(msgs, loc+": "+e.Message)
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(verr)
	if len(msgs) == 0 {
		return verr.Message
	}
	return strings.Join(msgs, "; ")
}
