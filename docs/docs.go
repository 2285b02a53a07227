// Package docs registers the OpenAPI document served at /swagger. Regenerate
// with `swag init -g cmd/growthops/main.go -o docs`.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/executeStrategy": {
            "post": {
                "tags": ["strategies"],
                "summary": "Execute a strategy",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Invalid input"},
                    "404": {"description": "Strategy not found or access denied"},
                    "409": {"description": "Strategy not executable or already running"},
                    "500": {"description": "Strategy execution failed"},
                    "503": {"description": "Strategy execution disabled"}
                }
            }
        },
        "/api/v1/executions": {
            "get": {
                "tags": ["executions"],
                "summary": "List executions",
                "parameters": [
                    {"in": "query", "name": "tenant_id", "type": "string", "required": true},
                    {"in": "query", "name": "strategy_id", "type": "string"},
                    {"in": "query", "name": "status", "type": "string"},
                    {"in": "query", "name": "limit", "type": "integer"},
                    {"in": "query", "name": "offset", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/executions/{id}": {
            "get": {
                "tags": ["executions"],
                "summary": "Get execution",
                "parameters": [
                    {"in": "path", "name": "id", "type": "string", "required": true},
                    {"in": "query", "name": "tenant_id", "type": "string", "required": true}
                ],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}
            }
        },
        "/api/v1/executions/{id}/plugins": {
            "get": {
                "tags": ["executions"],
                "summary": "List plugin logs of an execution",
                "parameters": [
                    {"in": "path", "name": "id", "type": "string", "required": true},
                    {"in": "query", "name": "tenant_id", "type": "string", "required": true}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/executions/stream": {
            "get": {
                "tags": ["executions"],
                "summary": "Stream execution events (websocket)",
                "parameters": [
                    {"in": "query", "name": "tenant_id", "type": "string", "required": true}
                ],
                "responses": {"101": {"description": "Switching Protocols"}}
            }
        },
        "/api/v1/strategies": {
            "get": {
                "tags": ["strategies"],
                "summary": "List strategies",
                "parameters": [
                    {"in": "query", "name": "tenant_id", "type": "string", "required": true}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/plugins": {
            "get": {
                "tags": ["plugins"],
                "summary": "List plugins",
                "parameters": [
                    {"in": "query", "name": "tenant_id", "type": "string", "required": true},
                    {"in": "query", "name": "active", "type": "boolean"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/system-logs": {
            "get": {
                "tags": ["system-logs"],
                "summary": "List system logs",
                "parameters": [
                    {"in": "query", "name": "tenant_id", "type": "string", "required": true},
                    {"in": "query", "name": "event", "type": "string"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/healthz": {
            "get": {"tags": ["health"], "summary": "Health check", "responses": {"200": {"description": "OK"}}}
        },
        "/readyz": {
            "get": {"tags": ["health"], "summary": "Readiness check", "responses": {"200": {"description": "OK"}, "503": {"description": "Not ready"}}}
        }
    }
}`

var SwaggerInfo = &swag.Spec{
	Version:          "0.1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "GrowthOps Strategy Runner API",
	Description:      "Strategy execution, execution history and feature switches.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
