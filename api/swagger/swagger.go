package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Classroom Sync API",
        "description": "Snapshot ingestion, normalization and diff pipeline for classroom exports",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Snapshots", "description": "Snapshot validation, diff and import"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "Database unreachable"}
                }
            }
        },
        "/snapshots/validate": {
            "post": {
                "tags": ["Snapshots"],
                "summary": "Validate a snapshot against both schema generations",
                "consumes": ["application/json"],
                "responses": {
                    "200": {"description": "Payload matched a schema", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Payload matched neither schema; both issue lists returned"}
                }
            }
        },
        "/snapshots/diff": {
            "post": {
                "tags": ["Snapshots"],
                "summary": "Compare a snapshot against the archived baseline",
                "consumes": ["application/json"],
                "responses": {
                    "200": {"description": "Diff result", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Snapshot teacher does not match the authenticated owner"},
                    "422": {"description": "Payload matched neither schema"}
                }
            }
        },
        "/snapshots/import": {
            "post": {
                "tags": ["Snapshots"],
                "summary": "Import a snapshot",
                "consumes": ["application/json"],
                "responses": {
                    "200": {"description": "Import finished", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Snapshot teacher does not match the authenticated owner"},
                    "409": {"description": "An import for this owner is already running"},
                    "422": {"description": "Payload matched neither schema"},
                    "500": {"description": "Persistence failed"}
                }
            }
        },
        "/snapshots/status": {
            "get": {
                "tags": ["Snapshots"],
                "summary": "Last import result for the authenticated owner",
                "responses": {
                    "200": {"description": "Cached result or empty marker", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/snapshots/imports": {
            "get": {
                "tags": ["Snapshots"],
                "summary": "Recent import runs",
                "parameters": [
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "Run history", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/snapshots/imports/export": {
            "get": {
                "tags": ["Snapshots"],
                "summary": "Export recent import runs as CSV or PDF",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "Rendered file"},
                    "400": {"description": "Unsupported format"}
                }
            }
        }
    },
    "definitions": {
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
