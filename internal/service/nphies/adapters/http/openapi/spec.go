package openapi

import (
	_ "embed"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed nphies.yaml
var rawSpec []byte

// GetSwagger returns the parsed and validated OpenAPI document.
func GetSwagger() (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	swagger, err := loader.LoadFromData(rawSpec)
	if err != nil {
		return nil, fmt.Errorf("error loading Swagger: %w", err)
	}
	if err := swagger.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("error validating Swagger: %w", err)
	}
	return swagger, nil
}
