package foundry

import (
	"encoding/json"
	"strings"
	"testing"
)

const weatherSpec = `{
  "openapi": "3.0.3",
  "info": {"title": "Weather", "version": "1.0"},
  "servers": [{"url": "https://wttr.in"}],
  "paths": {
    "/{location}": {
      "get": {
        "operationId": "GetCurrentWeather",
        "parameters": [{"name": "location", "in": "path", "required": true, "schema": {"type": "string"}}],
        "responses": {"200": {"description": "ok"}}
      }
    },
    "/forecast": {
      "post": {
        "operationId": "GetForecast",
        "responses": {"200": {"description": "ok"}}
      }
    }
  }
}`

func TestNewOpenAPIToolDefinitions(t *testing.T) {
	tool, err := NewOpenAPITool(OpenAPIToolParams{
		Name:        "weather",
		Description: "Retrieve weather information",
		Spec:        []byte(weatherSpec),
		Auth:        OpenAPIConnectionAuth("/subscriptions/s/connections/wttr"),
	})
	if err != nil {
		t.Fatalf("new tool: %v", err)
	}
	if tool.Title() != "Weather" {
		t.Fatalf("unexpected title %q", tool.Title())
	}
	ops := tool.Operations()
	if strings.Join(ops, ",") != "GetCurrentWeather,GetForecast" {
		t.Fatalf("unexpected operations %v", ops)
	}

	defs := tool.Definitions()
	if len(defs) != 1 || defs[0].Type != ToolTypeOpenAPI || defs[0].OpenAPI == nil {
		t.Fatalf("unexpected definitions %+v", defs)
	}
	raw, err := json.Marshal(defs[0])
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var wire map[string]any
	if err := json.Unmarshal(raw, &wire); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	openapi := wire["openapi"].(map[string]any)
	if openapi["name"] != "weather" || openapi["description"] != "Retrieve weather information" {
		t.Fatalf("unexpected tool %v", openapi)
	}
	auth := openapi["auth"].(map[string]any)
	if auth["type"] != "connection" || auth["security_scheme"].(map[string]any)["connection_id"] != "/subscriptions/s/connections/wttr" {
		t.Fatalf("unexpected auth %v", auth)
	}
	if openapi["spec"].(map[string]any)["openapi"] != "3.0.3" {
		t.Fatalf("spec must be sent as a JSON object, got %v", openapi["spec"])
	}
}

func TestNewOpenAPIToolDefaultsToAnonymous(t *testing.T) {
	tool, err := NewOpenAPITool(OpenAPIToolParams{Name: "weather", Spec: []byte(weatherSpec)})
	if err != nil {
		t.Fatalf("new tool: %v", err)
	}
	def := tool.Definitions()[0].OpenAPI
	if def.Auth.Type != OpenAPIAuthAnonymous || def.Auth.SecurityScheme != nil {
		t.Fatalf("expected anonymous auth, got %+v", def.Auth)
	}
}

func TestNewOpenAPIToolDefinitionsAreCopies(t *testing.T) {
	tool, err := NewOpenAPITool(OpenAPIToolParams{Name: "weather", Spec: []byte(weatherSpec)})
	if err != nil {
		t.Fatalf("new tool: %v", err)
	}
	tool.Definitions()[0].OpenAPI.Name = "changed"
	if tool.Definitions()[0].OpenAPI.Name != "weather" {
		t.Fatalf("definitions must not alias the tool")
	}
}

func TestNewOpenAPIToolErrors(t *testing.T) {
	cases := []struct {
		name   string
		params OpenAPIToolParams
		want   string
	}{
		{"no name", OpenAPIToolParams{Spec: []byte(weatherSpec)}, "name cannot be empty"},
		{"no spec", OpenAPIToolParams{Name: "t"}, "spec cannot be empty"},
		{"connection without id", OpenAPIToolParams{Name: "t", Spec: []byte(weatherSpec), Auth: OpenAPIConnectionAuth("")}, "connection id"},
		{"not json", OpenAPIToolParams{Name: "t", Spec: []byte(`{"openapi": `)}, "JSON object"},
		{"json array", OpenAPIToolParams{Name: "t", Spec: []byte(`[1, 2]`)}, "JSON object"},
		{"json null", OpenAPIToolParams{Name: "t", Spec: []byte(`null`)}, "JSON object"},
		{"strict invalid document", OpenAPIToolParams{Name: "t", Spec: []byte(`{"openapi":"3.0.3","paths":{}}`), Strict: true}, "invalid spec"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewOpenAPITool(tc.params)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

// Documents the service accepts but kin-openapi rejects are passed through.
func TestNewOpenAPIToolKeepsDocumentsThatDoNotValidate(t *testing.T) {
	cases := map[string]string{
		"no info":           `{"openapi":"3.0.3","paths":{"/t":{"get":{"operationId":"t","responses":{"200":{"description":"ok"}}}}}}`,
		"openapi 3.1":       `{"openapi":"3.1.0","info":{"title":"T","version":"1"},"paths":{"/t":{"get":{"operationId":"t","parameters":[{"name":"to","in":"query","schema":{"type":["string","null"]}}],"responses":{"200":{"description":"ok"}}}}}}`,
		"unbound server":    `{"openapi":"3.0.3","info":{"title":"T","version":"1"},"servers":[{"url":"${translator_endpoint}"}],"paths":{"/t":{"get":{"operationId":"t","responses":{"200":{"description":"ok"}}}}}}`,
		"missing responses": `{"openapi":"3.0.3","info":{"title":"T","version":"1"},"paths":{"/t":{"get":{"operationId":"t"}}}}`,
	}
	for name, spec := range cases {
		t.Run(name, func(t *testing.T) {
			tool, err := NewOpenAPITool(OpenAPIToolParams{Name: "t", Spec: []byte(spec)})
			if err != nil {
				t.Fatalf("expected tool, got %v", err)
			}
			defs := tool.Definitions()
			if len(defs) != 1 || defs[0].OpenAPI.Spec["paths"] == nil {
				t.Fatalf("expected spec passed through, got %+v", defs)
			}
			if tool.ValidationError() == nil {
				t.Fatalf("expected a validation error to be reported")
			}

			if _, err := NewOpenAPITool(OpenAPIToolParams{Name: "t", Spec: []byte(spec), Strict: true}); err == nil {
				t.Fatalf("strict mode must reject the document")
			}
		})
	}
}

func TestNewOpenAPIToolValidDocumentHasNoValidationError(t *testing.T) {
	tool, err := NewOpenAPITool(OpenAPIToolParams{Name: "weather", Spec: []byte(weatherSpec), Strict: true})
	if err != nil {
		t.Fatalf("new tool: %v", err)
	}
	if err := tool.ValidationError(); err != nil {
		t.Fatalf("unexpected validation error %v", err)
	}
}
