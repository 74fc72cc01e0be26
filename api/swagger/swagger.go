package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "HSE API",
        "description": "Multi-tenant health, safety and environment management: risk assessments, incidents, investigations, trainings and reports.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http",
        "https"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Auth", "description": "Login, token rotation and password changes"},
        {"name": "Companies", "description": "Tenant back-office (super admin)"},
        {"name": "Users", "description": "Users of the current company"},
        {"name": "Departments", "description": "Organisational units"},
        {"name": "Employees", "description": "Employee directory"},
        {"name": "Risk Assessments", "description": "Hazards, risk scores and mitigation measures"},
        {"name": "Incidents", "description": "Accidents and near misses"},
        {"name": "Investigations", "description": "Incident investigations (add-on)"},
        {"name": "Trainings", "description": "Training records (add-on)"},
        {"name": "Reports", "description": "Grouped JSON reports"},
        {"name": "Exports", "description": "Asynchronous CSV and PDF exports"},
        {"name": "Dashboard", "description": "Cached company overview"},
        {"name": "Layouts", "description": "Stored UI layouts"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Login",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "402": {"description": "Subscription inactive", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Auth"],
                "summary": "Refresh token",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RefreshTokenRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Auth"],
                "summary": "Current user",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/companies": {
            "get": {
                "tags": ["Companies"],
                "summary": "List companies",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string", "enum": ["trial", "active", "suspended", "cancelled"]},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Companies"],
                "summary": "Create company",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateCompanyRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Slug taken", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/risk-assessments": {
            "get": {
                "tags": ["Risk Assessments"],
                "summary": "List risk assessments",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "from", "in": "query", "type": "string", "format": "date"},
                    {"name": "to", "in": "query", "type": "string", "format": "date"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "department", "in": "query", "type": "string"},
                    {"name": "hazard_type", "in": "query", "type": "string"},
                    {"name": "risk_level", "in": "query", "type": "string", "enum": ["low", "medium", "high", "critical"]},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Risk Assessments"],
                "summary": "Create risk assessment",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RiskAssessmentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/risk-assessments/matrix": {
            "get": {
                "tags": ["Risk Assessments"],
                "summary": "5x5 risk matrix",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/risk-assessments/{id}/approve": {
            "post": {
                "tags": ["Risk Assessments"],
                "summary": "Approve risk assessment",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/ApproveRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already approved", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/risk-assessments/{id}/measures/status": {
            "patch": {
                "tags": ["Risk Assessments"],
                "summary": "Bulk update measure status",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/MeasureStatusRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/incidents": {
            "get": {
                "tags": ["Incidents"],
                "summary": "List incidents",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string", "enum": ["open", "investigating", "closed"]},
                    {"name": "type", "in": "query", "type": "string"},
                    {"name": "severity", "in": "query", "type": "string"},
                    {"name": "from", "in": "query", "type": "string", "format": "date"},
                    {"name": "to", "in": "query", "type": "string", "format": "date"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/incidents/{id}/close": {
            "post": {
                "tags": ["Incidents"],
                "summary": "Close incident",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports/risks-by-department": {
            "get": {
                "tags": ["Reports"],
                "summary": "Risk assessments grouped by department",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports/trainings-by-employee": {
            "get": {
                "tags": ["Reports"],
                "summary": "Trainings grouped by employee",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports/incidents-by-status": {
            "get": {
                "tags": ["Reports"],
                "summary": "Incidents grouped by status",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exports": {
            "post": {
                "tags": ["Exports"],
                "summary": "Request export",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReportRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exports/jobs/{id}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Export job status",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exports/{token}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download export",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File", "schema": {"type": "file"}},
                    "403": {"description": "Invalid or expired token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/dashboard": {
            "get": {
                "tags": ["Dashboard"],
                "summary": "Company HSE dashboard",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/layouts/{key}": {
            "get": {
                "tags": ["Layouts"],
                "summary": "Get layout",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "key", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Layouts"],
                "summary": "Save layout",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "key", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["email", "password"]
        },
        "RefreshTokenRequest": {
            "type": "object",
            "properties": {
                "refresh_token": {"type": "string"}
            },
            "required": ["refresh_token"]
        },
        "CreateCompanyRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "slug": {"type": "string"},
                "subscription_plan": {"type": "string", "enum": ["basic", "professional", "enterprise"]},
                "addons": {"type": "array", "items": {"type": "string", "enum": ["investigations", "trainings", "exports"]}}
            },
            "required": ["name", "slug"]
        },
        "MeasureRequest": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "category": {"type": "string", "enum": ["elimination", "substitution", "engineering_controls", "administrative_controls", "ppe"]},
                "description": {"type": "string"},
                "responsible_id": {"type": "string"},
                "due_on": {"type": "string", "format": "date"},
                "notes": {"type": "string"},
                "status": {"type": "string", "enum": ["not_started", "open", "pending", "in_progress", "blocked", "completed"]}
            },
            "required": ["category", "description"]
        },
        "RiskAssessmentRequest": {
            "type": "object",
            "properties": {
                "title": {"type": "string"},
                "description": {"type": "string"},
                "hazard_type": {"type": "string"},
                "department_id": {"type": "string"},
                "location": {"type": "string"},
                "exposure_group": {"type": "string"},
                "line_manager_id": {"type": "string"},
                "probability_before": {"type": "integer", "minimum": 1, "maximum": 5},
                "severity_before": {"type": "integer", "minimum": 1, "maximum": 5},
                "probability_after": {"type": "integer", "minimum": 1, "maximum": 5},
                "severity_after": {"type": "integer", "minimum": 1, "maximum": 5},
                "notes": {"type": "string"},
                "assessed_on": {"type": "string", "format": "date"},
                "measures": {"type": "array", "items": {"$ref": "#/definitions/MeasureRequest"}}
            },
            "required": ["title", "hazard_type", "probability_before", "severity_before", "probability_after", "severity_after"]
        },
        "ApproveRequest": {
            "type": "object",
            "properties": {
                "comment": {"type": "string"}
            }
        },
        "MeasureStatusRequest": {
            "type": "object",
            "properties": {
                "measure_ids": {"type": "array", "items": {"type": "string"}},
                "status": {"type": "string"}
            },
            "required": ["measure_ids", "status"]
        },
        "ReportRequest": {
            "type": "object",
            "properties": {
                "type": {"type": "string", "enum": ["risk_assessments", "incidents", "trainings_by_employee", "risks_by_department"]},
                "format": {"type": "string", "enum": ["csv", "pdf"]},
                "query": {"$ref": "#/definitions/ListQuery"}
            },
            "required": ["type", "format"]
        },
        "ListQuery": {
            "type": "object",
            "properties": {
                "search": {"type": "string"},
                "selections": {"type": "object", "additionalProperties": {"type": "string"}},
                "from": {"type": "string", "format": "date"},
                "to": {"type": "string", "format": "date"}
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
