package api

import (
	"github.com/JaimeStill/cerebra/internal/predictions"
	"github.com/JaimeStill/cerebra/pkg/openapi"
	"github.com/JaimeStill/cerebra/pkg/routes"
)

var pageParams = []*openapi.Parameter{
	openapi.QueryParam("page", "integer", "Page number (1-indexed)"),
	openapi.QueryParam("page_size", "integer", "Results per page"),
	openapi.QueryParam("search", "string", "Matches original filename, predicted class, or token"),
	openapi.QueryParam("sort", "string", "Comma-separated sort fields; prefix with - for descending"),
	openapi.QueryParam("class", "string", "Predicted class; repeat or comma-separate to match any of several"),
	openapi.QueryParam("status", "string", "completed or model_missing"),
	openapi.QueryParam("since", "string", "RFC 3339 lower bound on created_at"),
}

func operations() map[string]*openapi.Operation {
	notFound := openapi.ResponseRef("NotFound")
	badRequest := openapi.ResponseRef("BadRequest")

	return map[string]*openapi.Operation{
		"GET /predictions": {
			Summary:    "List recorded predictions",
			Tags:       []string{"predictions"},
			Parameters: pageParams,
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseJSON("Page of predictions", "PredictionPage"),
			},
		},
		"GET /predictions/{id}": {
			Summary:    "Find a prediction by id or request token",
			Tags:       []string{"predictions"},
			Parameters: []*openapi.Parameter{openapi.PathParam("id", "Prediction UUID or request token")},
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseJSON("Prediction", "Prediction"),
				400: badRequest,
				404: notFound,
			},
		},
		"GET /reports/{token}": {
			Summary:    "Download the PDF report for a completed prediction",
			Tags:       []string{"reports"},
			Parameters: []*openapi.Parameter{openapi.PathParam("token", "Request token, YYYYMMDD_HHMMSS_ffffff")},
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseBinary("PDF report", "application/pdf"),
				400: badRequest,
				404: notFound,
				409: openapi.ResponseRef("Conflict"),
			},
		},
		"GET /model": {
			Summary: "Report model availability",
			Tags:    []string{"model"},
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseJSON("Model status", "ModelStatus"),
			},
		},
		"GET /archive/{key...}": {
			Summary:    "Download a mirrored artifact",
			Tags:       []string{"archive"},
			Parameters: []*openapi.Parameter{openapi.PathParam("key", "uploads/<name> or predictions/<name>")},
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseBinary("Archived image", "application/octet-stream"),
				400: badRequest,
				404: notFound,
			},
		},
	}
}

func schemas() map[string]*openapi.Schema {
	str := func(desc string) *openapi.Schema { return &openapi.Schema{Type: "string", Description: desc} }

	return map[string]*openapi.Schema{
		"Prediction": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"id":              {Type: "string", Format: "uuid"},
				"token":           str("Request token shared by the stored image and chart"),
				"original_name":   str("Filename as submitted"),
				"image_name":      str("Stored image filename"),
				"chart_name":      {Type: "string", Nullable: true},
				"predicted_class": {Type: "string", Nullable: true},
				"confidence":      {Type: "number", Nullable: true},
				"probabilities": {
					Type:                 "object",
					AdditionalProperties: &openapi.Schema{Type: "number"},
				},
				"status": {
					Type: "string",
					Enum: []any{predictions.StatusCompleted, predictions.StatusModelMissing},
				},
				"created_at": {Type: "string", Format: "date-time"},
			},
		},
		"PredictionPage": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"data":        {Type: "array", Items: openapi.SchemaRef("Prediction")},
				"total":       {Type: "integer"},
				"page":        {Type: "integer"},
				"page_size":   {Type: "integer"},
				"total_pages": {Type: "integer"},
			},
		},
		"ModelStatus": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"model_ready": {Type: "boolean"},
				"path":        str("Artifact path checked by the gate"),
				"files":       {Type: "array", Items: &openapi.Schema{Type: "string"}, Description: "Every file the gate requires"},
				"classes":     {Type: "array", Items: &openapi.Schema{Type: "string"}},
			},
		},
	}
}

// newSpecRoutes builds the API description for the registered groups and
// returns the group that serves it.
func newSpecRoutes(version string, groups []routes.Group) (routes.Group, error) {
	spec := openapi.NewSpec("Cerebra API", version)
	spec.SetDescription("Prediction history, reports, and model status for the Alzheimer MRI classifier.")
	spec.AddServer(BasePath)
	spec.Components.AddSchemas(schemas())

	ops := operations()
	for _, pattern := range routes.Patterns(groups...) {
		op, ok := ops[pattern]
		if !ok {
			continue
		}
		if err := spec.Operation(pattern, op); err != nil {
			return routes.Group{}, err
		}
	}

	handler, err := spec.Handler()
	if err != nil {
		return routes.Group{}, err
	}

	return routes.Group{
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/openapi.json", Handler: handler},
		},
	}, nil
}
