package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/dafibh/qist/qist-backend/docs"
	"github.com/labstack/echo/v4"
	"github.com/swaggo/swag"
)

// OpenAPI3Spec represents an OpenAPI 3.0 spec structure
type OpenAPI3Spec struct {
	OpenAPI    string                 `json:"openapi"`
	Info       map[string]interface{} `json:"info"`
	Servers    []Server               `json:"servers"`
	Paths      map[string]interface{} `json:"paths"`
	Components map[string]interface{} `json:"components,omitempty"`
}

// Server represents an OpenAPI 3.0 server
type Server struct {
	URL         string `json:"url"`
	Description string `json:"description"`
}

// DefaultServers is used when no public base URL is configured
var DefaultServers = []Server{{URL: "http://localhost:8080/api/v1", Description: "Local Development"}}

// transformRefs rewrites #/definitions/ refs to #/components/schemas/ and
// converts non-body Swagger 2.0 parameters to OpenAPI 3.0 form
func transformRefs(data interface{}) interface{} {
	switch v := data.(type) {
	case map[string]interface{}:
		if _, hasIn := v["in"]; hasIn {
			if _, hasName := v["name"]; hasName {
				return transformParameter(v)
			}
		}

		result := make(map[string]interface{}, len(v))
		for key, value := range v {
			if ref, ok := value.(string); ok && key == "$ref" {
				result[key] = strings.Replace(ref, "#/definitions/", "#/components/schemas/", 1)
				continue
			}
			result[key] = transformRefs(value)
		}
		return result
	case []interface{}:
		result := make([]interface{}, len(v))
		for i, item := range v {
			result[i] = transformRefs(item)
		}
		return result
	default:
		return data
	}
}

// transformParameter converts a Swagger 2.0 parameter to OpenAPI 3.0 format.
// Body parameters are lifted into requestBody by transformOperation.
func transformParameter(param map[string]interface{}) map[string]interface{} {
	if param["in"] == "body" {
		return param
	}

	result := make(map[string]interface{})
	for _, field := range []string{"name", "in", "description", "required"} {
		if val, ok := param[field]; ok {
			result[field] = val
		}
	}

	schema := make(map[string]interface{})
	for _, field := range []string{"type", "format", "enum", "default", "minimum", "maximum", "items"} {
		if val, ok := param[field]; ok {
			if field == "items" {
				schema[field] = transformRefs(val)
			} else {
				schema[field] = val
			}
		}
	}
	if len(schema) > 0 {
		result["schema"] = schema
	}
	return result
}

// transformOperation moves a body parameter into an OpenAPI 3.0 requestBody
func transformOperation(op map[string]interface{}) {
	params, ok := op["parameters"].([]interface{})
	if !ok {
		return
	}
	kept := params[:0]
	for _, p := range params {
		param, ok := p.(map[string]interface{})
		if !ok || param["in"] != "body" {
			kept = append(kept, p)
			continue
		}
		op["requestBody"] = map[string]interface{}{
			"description": param["description"],
			"required":    param["required"],
			"content": map[string]interface{}{
				"application/json": map[string]interface{}{"schema": transformRefs(param["schema"])},
			},
		}
	}
	op["parameters"] = kept
}

// convertToOpenAPI3 converts a swag Swagger 2.0 document
func convertToOpenAPI3(doc string, servers []Server) (*OpenAPI3Spec, error) {
	var swagger2 map[string]interface{}
	if err := json.Unmarshal([]byte(doc), &swagger2); err != nil {
		return nil, fmt.Errorf("failed to parse swagger doc: %w", err)
	}

	info, _ := swagger2["info"].(map[string]interface{})
	paths, _ := swagger2["paths"].(map[string]interface{})
	for _, item := range paths {
		methods, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		for _, op := range methods {
			if operation, ok := op.(map[string]interface{}); ok {
				transformOperation(operation)
			}
		}
	}
	transformedPaths, _ := transformRefs(paths).(map[string]interface{})

	components := make(map[string]interface{})
	if secDefs, ok := swagger2["securityDefinitions"].(map[string]interface{}); ok {
		components["securitySchemes"] = secDefs
	}
	if definitions, ok := swagger2["definitions"].(map[string]interface{}); ok {
		components["schemas"] = transformRefs(definitions)
	}

	return &OpenAPI3Spec{
		OpenAPI:    "3.0.3",
		Info:       info,
		Servers:    servers,
		Paths:      transformedPaths,
		Components: components,
	}, nil
}

// ServeOpenAPI3Spec serves the swagger spec converted to OpenAPI 3.0
func ServeOpenAPI3Spec(c echo.Context) error {
	doc, err := swag.ReadDoc(docs.SwaggerInfo.InstanceName())
	if err != nil {
		return NewInternalError(c, "Failed to read swagger doc")
	}

	spec, err := convertToOpenAPI3(doc, DefaultServers)
	if err != nil {
		return NewInternalError(c, "Failed to convert swagger doc")
	}
	return c.JSON(http.StatusOK, spec)
}
