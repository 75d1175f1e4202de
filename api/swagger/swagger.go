package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "What-If Grades API",
        "description": "Reconstructs a course gradebook from host fields, fills missing scores from the gradebook API and recomputes grades for hypothetical scores.",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "tags": [
        {"name": "Gradebook", "description": "Course models and what-if edits"},
        {"name": "Grading Scale", "description": "Letter grade thresholds per course"}
    ],
    "paths": {
        "/courses": {
            "post": {
                "tags": ["Gradebook"],
                "summary": "Load a course snapshot",
                "parameters": [
                    {"name": "wait", "in": "query", "type": "boolean"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CourseSnapshot"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid snapshot", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/courses/{courseId}": {
            "get": {
                "tags": ["Gradebook"],
                "summary": "Render a loaded course",
                "parameters": [
                    {"name": "courseId", "in": "path", "required": true, "type": "string"},
                    {"name": "whatIf", "in": "query", "type": "boolean"},
                    {"name": "wait", "in": "query", "type": "boolean"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Course not loaded", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "504": {"description": "Timed out waiting", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Gradebook"],
                "summary": "Tear down a loaded course",
                "parameters": [
                    {"name": "courseId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Deleted"}
                }
            }
        },
        "/courses/{courseId}/detail": {
            "get": {
                "tags": ["Gradebook"],
                "summary": "Detailed text dump of a course",
                "produces": ["text/plain"],
                "parameters": [
                    {"name": "courseId", "in": "path", "required": true, "type": "string"},
                    {"name": "whatIf", "in": "query", "type": "boolean"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "string"}}
                }
            }
        },
        "/courses/{courseId}/export": {
            "get": {
                "tags": ["Gradebook"],
                "summary": "Export a course as CSV or PDF",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "courseId", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]},
                    {"name": "whatIf", "in": "query", "type": "boolean"}
                ],
                "responses": {
                    "200": {"description": "File", "schema": {"type": "file"}}
                }
            }
        },
        "/courses/{courseId}/assignments/{assignmentId}/what-if": {
            "put": {
                "tags": ["Gradebook"],
                "summary": "Set a hypothetical score",
                "parameters": [
                    {"name": "courseId", "in": "path", "required": true, "type": "string"},
                    {"name": "assignmentId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/WhatIfRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Gradebook"],
                "summary": "Clear a hypothetical score",
                "parameters": [
                    {"name": "courseId", "in": "path", "required": true, "type": "string"},
                    {"name": "assignmentId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/courses/{courseId}/assignments/{assignmentId}/wait": {
            "get": {
                "tags": ["Gradebook"],
                "summary": "Wait for an assignment's real score",
                "parameters": [
                    {"name": "courseId", "in": "path", "required": true, "type": "string"},
                    {"name": "assignmentId", "in": "path", "required": true, "type": "string"},
                    {"name": "timeout", "in": "query", "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Points available"},
                    "502": {"description": "Resolution failed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "504": {"description": "Timed out", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/courses/{courseId}/categories/{categoryId}/method-override": {
            "put": {
                "tags": ["Gradebook"],
                "summary": "Flip a category's assumed grading method in what-if mode",
                "parameters": [
                    {"name": "courseId", "in": "path", "required": true, "type": "string"},
                    {"name": "categoryId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/MethodOverrideRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/grading-scales/{courseId}": {
            "get": {
                "tags": ["Grading Scale"],
                "summary": "Effective grading scale of a course",
                "parameters": [
                    {"name": "courseId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Grading Scale"],
                "summary": "Store a custom grading scale",
                "parameters": [
                    {"name": "courseId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpsertGradingScaleRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Grading Scale"],
                "summary": "Revert to the default grading scale",
                "parameters": [
                    {"name": "courseId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "CourseSnapshot": {
            "type": "object",
            "required": ["course"],
            "properties": {
                "course": {
                    "type": "object",
                    "properties": {
                        "id": {"type": "string"},
                        "name": {"type": "string"},
                        "displayed_grade_text": {"type": "string"}
                    }
                },
                "periods": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "id": {"type": "string"},
                            "name": {"type": "string"},
                            "weight_text": {"type": "string"},
                            "displayed_grade_text": {"type": "string"}
                        }
                    }
                },
                "categories": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "id": {"type": "string"},
                            "parent_id": {"type": "string"},
                            "name": {"type": "string"},
                            "weight_text": {"type": "string"},
                            "displayed_grade_text": {"type": "string"}
                        }
                    }
                },
                "assignments": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "id": {"type": "string"},
                            "parent_id": {"type": "string"},
                            "name": {"type": "string"},
                            "points_text": {"type": "string"},
                            "max_points_text": {"type": "string"},
                            "comment": {"type": "string"},
                            "exception_text": {"type": "string"},
                            "missing": {"type": "boolean"},
                            "dropped": {"type": "boolean"}
                        }
                    }
                }
            }
        },
        "WhatIfRequest": {
            "type": "object",
            "properties": {
                "points": {"type": "number"},
                "max_points": {"type": "number"},
                "dropped": {"type": "boolean"}
            }
        },
        "MethodOverrideRequest": {
            "type": "object",
            "properties": {
                "enabled": {"type": "boolean"}
            }
        },
        "UpsertGradingScaleRequest": {
            "type": "object",
            "required": ["thresholds"],
            "properties": {
                "thresholds": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "min": {"type": "number"},
                            "letter": {"type": "string"}
                        }
                    }
                }
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
