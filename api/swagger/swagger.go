package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "TalentFlow Offer API",
        "description": "Offer acceptance, exclusivity and audit subsystem for the candidate pipeline",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Acceptance", "description": "Offer acceptance transaction and exclusivity"},
        {"name": "Audit", "description": "Append-only compliance trail"},
        {"name": "Validation", "description": "Rule engine and consistency checks"}
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
                    "503": {"description": "Degraded"}
                }
            }
        },
        "/applications/{id}/accept": {
            "post": {
                "tags": ["Acceptance"],
                "summary": "Accept a pending offer",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AcceptProposalRequest"}}
                ],
                "responses": {
                    "200": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Rejected", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/applications/{id}/exclusive": {
            "post": {
                "tags": ["Acceptance"],
                "summary": "Flag an application as exclusive",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Marked"},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/candidates/{id}/exclusivity": {
            "get": {
                "tags": ["Acceptance"],
                "summary": "Candidate exclusivity snapshot",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/applications/{id}/validate": {
            "post": {
                "tags": ["Validation"],
                "summary": "Run validation rules against an application payload",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/applications/{id}/validate-acceptance": {
            "post": {
                "tags": ["Validation"],
                "summary": "Dry-run the acceptance checks",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ValidateAcceptanceRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/applications/{id}/inconsistencies": {
            "get": {
                "tags": ["Validation"],
                "summary": "List state/history inconsistencies",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/applications/{id}/integrity-report": {
            "get": {
                "tags": ["Validation"],
                "summary": "Full consistency report",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/applications/{id}/audit": {
            "get": {
                "tags": ["Audit"],
                "summary": "Audit trail, newest first",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/applications/{id}/audit/export": {
            "get": {
                "tags": ["Audit"],
                "summary": "Export the audit trail",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["json", "csv", "pdf"]},
                    {"name": "archive", "in": "query", "type": "boolean"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "201": {"description": "Archived", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/audit/exports/download": {
            "get": {
                "tags": ["Audit"],
                "summary": "Download an archived export",
                "parameters": [
                    {"name": "token", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Invalid token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/applications/{id}/audit/integrity": {
            "get": {
                "tags": ["Audit"],
                "summary": "Verify trail integrity against live state",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/audit/search": {
            "get": {
                "tags": ["Audit"],
                "summary": "Search audit entries",
                "parameters": [
                    {"name": "applicationId", "in": "query", "type": "string"},
                    {"name": "eventTypes", "in": "query", "type": "string"},
                    {"name": "from", "in": "query", "type": "string"},
                    {"name": "to", "in": "query", "type": "string"},
                    {"name": "limit", "in": "query", "type": "integer"},
                    {"name": "offset", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/audit/summary": {
            "get": {
                "tags": ["Audit"],
                "summary": "Aggregate audit counts",
                "parameters": [
                    {"name": "applicationId", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "AcceptProposalRequest": {
            "type": "object",
            "required": ["candidateId", "acceptedAt"],
            "properties": {
                "candidateId": {"type": "string"},
                "acceptedAt": {"type": "string", "format": "date-time"},
                "candidateNotes": {"type": "string"},
                "negotiatedTerms": {"$ref": "#/definitions/NegotiatedTerms"}
            }
        },
        "ValidateAcceptanceRequest": {
            "type": "object",
            "required": ["acceptedAt"],
            "properties": {
                "acceptedAt": {"type": "string", "format": "date-time"},
                "candidateNotes": {"type": "string"},
                "negotiatedTerms": {"$ref": "#/definitions/NegotiatedTerms"}
            }
        },
        "NegotiatedTerms": {
            "type": "object",
            "properties": {
                "salary": {"type": "number"},
                "startDate": {"type": "string", "format": "date-time"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
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
                "pagination": {"$ref": "#/definitions/Pagination"},
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
