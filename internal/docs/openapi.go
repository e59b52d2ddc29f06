// Package docs serves the machine-readable API documentation at /docs.
//
// The Express ancestor of this service generated its Swagger document at
// runtime by scanning JSDoc comments. Here the document is the other way
// round: a static route table below IS the source of truth, assembled into
// an OpenAPI 3.0 document once at startup and served as plain JSON. No
// reflection, no comment parsing, and the table is unit-testable.
package docs

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// route is one row of the route-definition table.
type route struct {
	Method    string
	Path      string
	Summary   string
	Auth      bool   // requires a bearer token
	Request   string // component schema name for the request body ("" = none)
	Multipart bool   // request body is multipart/form-data instead of JSON
	Status    int    // primary success status
	Response  string // component schema name inside the data envelope
	Array     bool   // response data is an array of Response
}

// table lists every operation the API exposes. Adding an endpoint without a
// row here is the documentation bug this layout exists to prevent.
var table = []route{
	{Method: "post", Path: "/register", Summary: "Register a new user.",
		Request: "Register", Status: http.StatusCreated, Response: "User"},
	{Method: "post", Path: "/login", Summary: "Log in and receive a session token.",
		Request: "Login", Status: http.StatusCreated, Response: "Session"},
	{Method: "get", Path: "/users", Summary: "Retrieve the list of users.",
		Status: http.StatusOK, Response: "User", Array: true},
	{Method: "get", Path: "/user/{id}", Summary: "Retrieve a single user.",
		Status: http.StatusOK, Response: "User"},
	{Method: "patch", Path: "/user/{id}", Summary: "Update a user's name and/or avatar.",
		Auth: true, Multipart: true, Status: http.StatusOK, Response: "User"},
	{Method: "delete", Path: "/user/{id}", Summary: "Delete a user.",
		Auth: true, Status: http.StatusOK, Response: "Deleted"},
}

// schemas are the reusable component schemas referenced by the table.
// Note the User schema has no password property — the API never returns one.
var schemas = map[string]any{
	"Register": map[string]any{
		"type":     "object",
		"required": []string{"name", "email", "password"},
		"properties": map[string]any{
			"name":     map[string]any{"type": "string", "example": "Nuril Firdaus"},
			"email":    map[string]any{"type": "string", "example": "nuril@example.com"},
			"password": map[string]any{"type": "string", "format": "password"},
		},
	},
	"Login": map[string]any{
		"type":     "object",
		"required": []string{"email", "password"},
		"properties": map[string]any{
			"email":    map[string]any{"type": "string", "example": "nuril@example.com"},
			"password": map[string]any{"type": "string", "format": "password"},
		},
	},
	"User": map[string]any{
		"type": "object",
		"properties": map[string]any{
			"id":        map[string]any{"type": "integer", "format": "int64", "example": 1},
			"name":      map[string]any{"type": "string", "example": "Nuril Firdaus"},
			"email":     map[string]any{"type": "string", "example": "nuril@example.com"},
			"avatar":    map[string]any{"type": "string", "example": "Images/cnb2qkq3oq1c.png"},
			"role":      map[string]any{"type": "string", "enum": []string{"user", "admin"}},
			"createdAt": map[string]any{"type": "string", "format": "date-time"},
			"updatedAt": map[string]any{"type": "string", "format": "date-time"},
		},
	},
	"Session": map[string]any{
		"type": "object",
		"properties": map[string]any{
			"token": map[string]any{"type": "string"},
			"user":  map[string]any{"$ref": "#/components/schemas/User"},
		},
	},
	"Deleted": map[string]any{
		"type": "object",
		"properties": map[string]any{
			"deleted": map[string]any{"type": "integer", "format": "int64"},
		},
	},
}

// Build assembles the OpenAPI 3.0 document for the given API base URL
// (e.g. "http://localhost:4000/api/v1").
func Build(serverURL string) map[string]any {
	paths := map[string]any{}
	for _, r := range table {
		item, _ := paths[r.Path].(map[string]any)
		if item == nil {
			item = map[string]any{}
			paths[r.Path] = item
		}
		item[r.Method] = operation(r)
	}

	return map[string]any{
		"openapi": "3.0.0",
		"info": map[string]any{
			"title":       "User Finder API",
			"version":     "1.0.0",
			"description": "REST API for the user finder app: registration, login, and user CRUD.",
			"license": map[string]any{
				"name": "Licensed Under MIT",
				"url":  "https://spdx.org/licenses/MIT.html",
			},
		},
		"servers": []any{
			map[string]any{"url": serverURL, "description": "Development server"},
		},
		"paths": paths,
		"components": map[string]any{
			"schemas": schemas,
			"securitySchemes": map[string]any{
				"bearerAuth": map[string]any{
					"type":         "http",
					"scheme":       "bearer",
					"bearerFormat": "JWT",
				},
			},
		},
	}
}

// operation renders one table row as an OpenAPI operation object.
func operation(r route) map[string]any {
	op := map[string]any{
		"summary": r.Summary,
		"responses": map[string]any{
			fmt.Sprintf("%d", r.Status): map[string]any{
				"description": http.StatusText(r.Status),
				"content": map[string]any{
					"application/json": map[string]any{
						"schema": envelope(r),
					},
				},
			},
		},
	}

	if strings.Contains(r.Path, "{id}") {
		op["parameters"] = []any{
			map[string]any{
				"in":          "path",
				"name":        "id",
				"required":    true,
				"description": "Numeric ID of the user.",
				"schema":      map[string]any{"type": "integer"},
			},
		}
	}

	if r.Request != "" {
		op["requestBody"] = map[string]any{
			"required": true,
			"content": map[string]any{
				"application/json": map[string]any{
					"schema": ref(r.Request),
				},
			},
		}
	} else if r.Multipart {
		op["requestBody"] = map[string]any{
			"content": map[string]any{
				"multipart/form-data": map[string]any{
					"schema": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"name":   map[string]any{"type": "string"},
							"avatar": map[string]any{"type": "string", "format": "binary"},
						},
					},
				},
			},
		}
	}

	if r.Auth {
		op["security"] = []any{map[string]any{"bearerAuth": []any{}}}
	}

	return op
}

// envelope wraps a schema reference in the {data: ...} response shape.
func envelope(r route) map[string]any {
	var inner any = ref(r.Response)
	if r.Array {
		inner = map[string]any{"type": "array", "items": ref(r.Response)}
	}
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{"data": inner},
	}
}

func ref(name string) map[string]any {
	return map[string]any{"$ref": "#/components/schemas/" + name}
}

// Handler returns an http.HandlerFunc serving the document, marshalled once
// up front so request handling is a plain byte copy.
func Handler(serverURL string) (http.HandlerFunc, error) {
	body, err := json.MarshalIndent(Build(serverURL), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("docs: marshalling OpenAPI document: %w", err)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(body)
	}, nil
}
