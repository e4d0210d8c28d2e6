// Package openapi publishes the API contract. The surface is small and
// fixed, so the document is assembled once at startup rather than generated
// per request.
package openapi

import (
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
)

// Spec builds the OpenAPI 3.1 document for the query API.
func Spec(baseURL, version string) *openapi3.T {
	doc := &openapi3.T{
		OpenAPI: "3.1.0",
		Info: &openapi3.Info{
			Title:       "Talk2Data API",
			Description: "Ask analytics questions in natural language; get grounded SQL, results, summaries, and chart recommendations.",
			Version:     version,
		},
		Servers: openapi3.Servers{{URL: baseURL}},
		Paths:   openapi3.NewPaths(),
	}

	components := openapi3.NewComponents()
	components.SecuritySchemes = openapi3.SecuritySchemes{
		"apiKey": &openapi3.SecuritySchemeRef{
			Value: &openapi3.SecurityScheme{Type: "apiKey", In: "header", Name: "X-API-Key"},
		},
	}
	doc.Components = &components
	doc.Security = openapi3.SecurityRequirements{{"apiKey": {}}}

	queryBody := openapi3.NewRequestBody().
		WithRequired(true).
		WithJSONSchema(openapi3.NewObjectSchema().
			WithProperty("question", openapi3.NewStringSchema()).
			WithProperty("execute", openapi3.NewBoolSchema()).
			WithProperty("include_summary", openapi3.NewBoolSchema()).
			WithProperty("include_visualization", openapi3.NewBoolSchema()))

	doc.Paths.Set("/api/v1/query", &openapi3.PathItem{
		Post: &openapi3.Operation{
			OperationID: "submitQuery",
			Summary:     "Run the pipeline for a question and return the session id",
			RequestBody: &openapi3.RequestBodyRef{Value: queryBody},
			Responses:   jsonResponses("session id and final status"),
		},
	})
	doc.Paths.Set("/api/v1/complete", &openapi3.PathItem{
		Post: &openapi3.Operation{
			OperationID: "completeQuery",
			Summary:     "Run the pipeline and return the full result bundle",
			RequestBody: &openapi3.RequestBodyRef{Value: queryBody},
			Responses:   jsonResponses("complete pipeline result"),
		},
	})
	doc.Paths.Set("/api/v1/sessions", &openapi3.PathItem{
		Get: &openapi3.Operation{
			OperationID: "listSessions",
			Summary:     "List sessions, newest first",
			Responses:   jsonResponses("session listing"),
		},
	})

	sessionParam := &openapi3.ParameterRef{
		Value: openapi3.NewPathParameter("sessionID").WithSchema(openapi3.NewStringSchema()),
	}
	doc.Paths.Set("/api/v1/sessions/{sessionID}", &openapi3.PathItem{
		Parameters: openapi3.Parameters{sessionParam},
		Get: &openapi3.Operation{
			OperationID: "getSession",
			Summary:     "Complete stored result for a session",
			Responses:   jsonResponses("complete pipeline result"),
		},
		Delete: &openapi3.Operation{
			OperationID: "deleteSession",
			Summary:     "Delete a session",
			Responses:   jsonResponses("deletion acknowledgement"),
		},
	})

	for _, stage := range []string{"metadata", "sql", "results", "summary", "visualization"} {
		doc.Paths.Set(fmt.Sprintf("/api/v1/sessions/{sessionID}/%s", stage), &openapi3.PathItem{
			Parameters: openapi3.Parameters{sessionParam},
			Get: &openapi3.Operation{
				OperationID: "getSession" + titleCase(stage),
				Summary:     fmt.Sprintf("Stored %s result; 409 if the stage has not run", stage),
				Responses:   jsonResponses("stage result"),
			},
		})
	}

	return doc
}

func jsonResponses(description string) *openapi3.Responses {
	desc := description
	responses := openapi3.NewResponses()
	responses.Set("200", &openapi3.ResponseRef{
		Value: &openapi3.Response{
			Description: &desc,
			Content:     openapi3.NewContentWithJSONSchema(openapi3.NewObjectSchema()),
		},
	})
	return responses
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
