package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Whistle API",
        "description": "Whistleblowing report intake and triage",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": ["http", "https"],
    "tags": [
        {"name": "Home", "description": "Landing page and post-login dispatch"},
        {"name": "Authentication", "description": "Sessions and profile"},
        {"name": "Reports", "description": "Submission, detail, resolution and deletion"},
        {"name": "Attachments", "description": "Signed attachment downloads"},
        {"name": "Dashboard", "description": "Admin and user report listings"}
    ],
    "paths": {
        "/health": {"get": {"summary": "Liveness", "responses": {"200": {"description": "OK"}}}},
        "/ready": {"get": {"summary": "Readiness of database and cache", "responses": {"200": {"description": "OK"}, "503": {"description": "A dependency is unavailable"}}}},
        "/metrics": {"get": {"summary": "Prometheus metrics", "produces": ["text/plain"], "responses": {"200": {"description": "OK"}}}},
        "/": {"get": {"tags": ["Home"], "summary": "Landing page", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}}},
        "/custom_redirect/": {"get": {"tags": ["Home"], "summary": "Route a signed-in user to the admin site, the admin dashboard or the user dashboard", "responses": {"302": {"description": "Redirect"}, "401": {"description": "Not signed in"}}}},
        "/accounts/login/": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate by email and password",
                "consumes": ["application/json", "application/x-www-form-urlencoded"],
                "parameters": [{"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}],
                "responses": {"200": {"description": "Tokens issued; redirect_to names the landing dashboard", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}, "401": {"description": "Invalid credentials"}}
            }
        },
        "/accounts/refresh/": {"post": {"tags": ["Authentication"], "summary": "Rotate the refresh token", "responses": {"200": {"description": "OK"}, "401": {"description": "Unknown, expired or revoked token"}}}},
        "/logout/": {
            "get": {"tags": ["Authentication"], "summary": "End the session", "responses": {"302": {"description": "Redirect to /"}}},
            "post": {"tags": ["Authentication"], "summary": "End the session", "responses": {"302": {"description": "Redirect to /"}}}
        },
        "/profile/": {"get": {"tags": ["Authentication"], "summary": "Current user's name and email", "responses": {"200": {"description": "OK"}, "401": {"description": "Not signed in"}}}},
        "/admin_dashboard/": {"get": {"tags": ["Dashboard"], "summary": "All reports: New, In Progress, Resolved; newest first within a status", "responses": {"200": {"description": "OK"}, "403": {"description": "Not a site admin"}}}},
        "/admin_dashboard/export": {
            "get": {
                "tags": ["Dashboard"],
                "summary": "Export the admin dashboard",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [{"in": "query", "name": "format", "type": "string", "enum": ["csv", "pdf"]}],
                "responses": {"200": {"description": "File download"}, "403": {"description": "Not a site admin"}}
            }
        },
        "/user_dashboard/": {"get": {"tags": ["Dashboard"], "summary": "Own reports: Resolved, In Progress, New; newest first within a status", "responses": {"200": {"description": "OK"}, "401": {"description": "Not signed in"}}}},
        "/report/": {
            "get": {"tags": ["Reports"], "summary": "Blank submission form", "responses": {"200": {"description": "Form"}}},
            "post": {
                "tags": ["Reports"],
                "summary": "Submit a report, anonymously or signed in",
                "consumes": ["multipart/form-data", "application/x-www-form-urlencoded"],
                "parameters": [
                    {"in": "formData", "name": "name_reported", "type": "string", "required": true, "maxLength": 100},
                    {"in": "formData", "name": "description", "type": "string", "required": true},
                    {"in": "formData", "name": "file", "type": "file"}
                ],
                "responses": {"201": {"description": "Submission confirmation"}, "200": {"description": "Form redisplayed with field errors"}}
            }
        },
        "/report/submitted/": {"get": {"tags": ["Reports"], "summary": "Submission confirmation", "responses": {"200": {"description": "OK"}}}},
        "/report/{id}/": {
            "get": {
                "tags": ["Reports"],
                "summary": "Report detail; a site admin opening a New report moves it to In Progress",
                "parameters": [{"in": "path", "name": "id", "type": "integer", "required": true}],
                "responses": {"200": {"description": "OK"}, "401": {"description": "Not signed in"}, "404": {"description": "Unknown report"}}
            }
        },
        "/report/{id}/resolve/": {
            "get": {
                "tags": ["Reports"],
                "summary": "Resolution form pre-filled with existing notes",
                "parameters": [{"in": "path", "name": "id", "type": "integer", "required": true}],
                "responses": {"200": {"description": "Form"}, "403": {"description": "Not a site admin"}}
            },
            "post": {
                "tags": ["Reports"],
                "summary": "Resolve with notes (empty allowed)",
                "consumes": ["application/x-www-form-urlencoded", "application/json"],
                "parameters": [
                    {"in": "path", "name": "id", "type": "integer", "required": true},
                    {"in": "formData", "name": "resolved_notes", "type": "string"}
                ],
                "responses": {"200": {"description": "Updated detail"}, "403": {"description": "Not a site admin"}}
            }
        },
        "/report/{id}/delete/": {
            "post": {
                "tags": ["Reports"],
                "summary": "Delete a report and its attachments",
                "parameters": [{"in": "path", "name": "id", "type": "integer", "required": true}],
                "responses": {"302": {"description": "Redirect to /user_dashboard/"}, "404": {"description": "Unknown report"}}
            }
        },
        "/report/{id}/files/{fileId}/": {
            "get": {
                "tags": ["Attachments"],
                "summary": "Signed download link for one attachment",
                "parameters": [
                    {"in": "path", "name": "id", "type": "integer", "required": true},
                    {"in": "path", "name": "fileId", "type": "integer", "required": true}
                ],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Unknown attachment"}}
            }
        },
        "/attachments/download": {
            "get": {
                "tags": ["Attachments"],
                "summary": "Stream an attachment",
                "produces": ["application/octet-stream"],
                "parameters": [{"in": "query", "name": "token", "type": "string", "required": true}],
                "responses": {"200": {"description": "File"}, "403": {"description": "Invalid or expired link"}}
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"},
                "fields": {"type": "object", "additionalProperties": {"type": "string"}}
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
