package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Shared Todo API",
        "description": "Multi-user shared todo backend with JWT session lifecycle",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "tags": [
        {"name": "Authentication", "description": "Signup, login, token reissue, logout"},
        {"name": "Users", "description": "Profile management"},
        {"name": "Boards", "description": "Shared board CRUD and export"},
        {"name": "Tasks", "description": "Tasks on shared boards"},
        {"name": "Invitations", "description": "Board membership invitations"},
        {"name": "Attachments", "description": "Task file attachments and signed downloads"}
    ],
    "paths": {
        "/auth/signup": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Register a new account",
                "responses": {
                    "201": {"description": "Created"},
                    "409": {"description": "Login id already in use"}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate by login id and password",
                "responses": {
                    "200": {"description": "Access token in body, refresh token cookie set"},
                    "401": {"description": "Unknown account or wrong password"}
                }
            }
        },
        "/auth/reissue": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Rotate the refresh token",
                "responses": {
                    "200": {"description": "New token pair issued"},
                    "401": {"description": "Invalid, stale, or missing refresh token"}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["Authentication"],
                "summary": "End the current session",
                "responses": {
                    "204": {"description": "Session ended"}
                }
            }
        },
        "/auth/check-login-id": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Check login id availability",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/auth/oauth/{provider}/callback": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Federated login callback",
                "responses": {
                    "200": {"description": "Token pair issued"},
                    "400": {"description": "Unsupported provider or malformed payload"}
                }
            }
        },
        "/users/me": {
            "get": {
                "tags": ["Users"],
                "summary": "Current user's profile",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/boards": {
            "get": {
                "tags": ["Boards"],
                "summary": "List boards the user belongs to",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK"}
                }
            },
            "post": {
                "tags": ["Boards"],
                "summary": "Create a board",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "201": {"description": "Created"}
                }
            }
        },
        "/boards/{id}/export": {
            "get": {
                "tags": ["Boards"],
                "summary": "Export board tasks as CSV or PDF",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Rendered file"}
                }
            }
        },
        "/invitations": {
            "post": {
                "tags": ["Invitations"],
                "summary": "Invite a user to a board by user code",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "201": {"description": "Created"}
                }
            }
        },
        "/public/attachments/{token}": {
            "get": {
                "tags": ["Attachments"],
                "summary": "Download a file via a signed link",
                "responses": {
                    "200": {"description": "File stream"},
                    "401": {"description": "Invalid or expired link"}
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
                "pagination": {"type": "object"},
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
