// Package auth holds the OpenAPI document served under /swagger/.
package auth

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/api/auth/register": {
            "post": {
                "tags": ["Auth"],
                "summary": "Register",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [{"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/authsdk.RegisterRequest"}}],
                "responses": {
                    "201": {"description": "Account and profile created", "schema": {"$ref": "#/definitions/authsdk.RegisterResponse"}},
                    "202": {"description": "Account created, profile pending", "schema": {"$ref": "#/definitions/authsdk.RegisterResponse"}},
                    "400": {"description": "Validation failed", "schema": {"$ref": "#/definitions/authsdk.ValidationErrorResponse"}},
                    "409": {"description": "Email already registered", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}},
                    "502": {"description": "User service unavailable", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}}
                }
            }
        },
        "/api/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Login",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [{"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/authsdk.LoginRequest"}}],
                "responses": {
                    "200": {"description": "Tokens", "schema": {"$ref": "#/definitions/authsdk.AuthResponse"}},
                    "401": {"description": "Invalid email or password", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}},
                    "403": {"description": "Account disabled", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}},
                    "423": {"description": "Account locked", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}}
                }
            }
        },
        "/api/auth/refresh": {
            "post": {
                "tags": ["Auth"],
                "summary": "Refresh",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [{"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/authsdk.RefreshRequest"}}],
                "responses": {
                    "200": {"description": "Tokens", "schema": {"$ref": "#/definitions/authsdk.AuthResponse"}},
                    "401": {"description": "Invalid, revoked or expired refresh token", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}},
                    "403": {"description": "Account disabled", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}}
                }
            }
        },
        "/api/auth/logout": {
            "post": {
                "tags": ["Auth"],
                "summary": "Logout",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [{"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/authsdk.RefreshRequest"}}],
                "responses": {
                    "200": {"description": "Logged out", "schema": {"$ref": "#/definitions/authsdk.MessageResponse"}},
                    "401": {"description": "Unknown or already revoked token", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}}
                }
            }
        },
        "/api/auth/forgot-password": {
            "post": {
                "tags": ["Password"],
                "summary": "Forgot password",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [{"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/authsdk.ForgotPasswordRequest"}}],
                "responses": {
                    "200": {"description": "Request accepted", "schema": {"$ref": "#/definitions/authsdk.MessageResponse"}}
                }
            }
        },
        "/api/auth/validate-reset-token": {
            "get": {
                "tags": ["Password"],
                "summary": "Validate reset token",
                "produces": ["application/json"],
                "parameters": [{"name": "token", "in": "query", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "Token is valid", "schema": {"$ref": "#/definitions/authsdk.MessageResponse"}},
                    "400": {"description": "Invalid, used or expired token", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}}
                }
            }
        },
        "/api/auth/reset-password": {
            "post": {
                "tags": ["Password"],
                "summary": "Reset password",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [{"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/authsdk.ResetPasswordRequest"}}],
                "responses": {
                    "200": {"description": "Password changed", "schema": {"$ref": "#/definitions/authsdk.MessageResponse"}},
                    "400": {"description": "Invalid, used or expired token", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}}
                }
            }
        },
        "/api/auth/me": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["Auth"],
                "summary": "Current account",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "Account", "schema": {"$ref": "#/definitions/authsdk.MeResponse"}},
                    "401": {"description": "Invalid or missing access token", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}}
                }
            }
        },
        "/livez": {
            "get": {
                "tags": ["Health"],
                "summary": "Liveness probe",
                "produces": ["application/json"],
                "responses": {"200": {"description": "status", "schema": {"$ref": "#/definitions/authsdk.HealthResponse"}}}
            }
        },
        "/readyz": {
            "get": {
                "tags": ["Health"],
                "summary": "Readiness probe",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "status, checks", "schema": {"$ref": "#/definitions/authsdk.HealthResponse"}},
                    "503": {"description": "not ready", "schema": {"$ref": "#/definitions/authsdk.HealthResponse"}}
                }
            }
        }
    },
    "definitions": {
        "authsdk.ErrorResponse": {"type": "object", "properties": {"error": {"type": "string"}, "error_description": {"type": "string"}}},
        "authsdk.ValidationErrorResponse": {"type": "object", "properties": {"code": {"type": "string"}, "message": {"type": "string"}, "details": {"type": "object", "additionalProperties": {"type": "string"}}}},
        "authsdk.RegisterRequest": {"type": "object", "properties": {"email": {"type": "string"}, "password": {"type": "string"}, "firstName": {"type": "string"}, "lastName": {"type": "string"}}},
        "authsdk.RegisterResponse": {"type": "object", "properties": {"message": {"type": "string"}, "userId": {"type": "string"}, "profileStatus": {"type": "string"}}},
        "authsdk.LoginRequest": {"type": "object", "properties": {"email": {"type": "string"}, "password": {"type": "string"}}},
        "authsdk.RefreshRequest": {"type": "object", "properties": {"refreshToken": {"type": "string"}}},
        "authsdk.AuthResponse": {"type": "object", "properties": {"accessToken": {"type": "string"}, "refreshToken": {"type": "string"}, "tokenType": {"type": "string"}, "expiresIn": {"type": "integer"}, "role": {"type": "string"}, "userId": {"type": "string"}, "email": {"type": "string"}}},
        "authsdk.ForgotPasswordRequest": {"type": "object", "properties": {"email": {"type": "string"}}},
        "authsdk.ResetPasswordRequest": {"type": "object", "properties": {"token": {"type": "string"}, "newPassword": {"type": "string"}}},
        "authsdk.MessageResponse": {"type": "object", "properties": {"message": {"type": "string"}, "success": {"type": "boolean"}}},
        "authsdk.MeResponse": {"type": "object", "properties": {"userId": {"type": "string"}, "email": {"type": "string"}, "role": {"type": "string"}, "active": {"type": "boolean"}, "profileStatus": {"type": "string"}, "createdAt": {"type": "string"}}},
        "authsdk.HealthResponse": {"type": "object", "properties": {"status": {"type": "string"}, "checks": {"type": "object", "additionalProperties": {"type": "string"}}}}
    },
    "securityDefinitions": {
        "BearerAuth": {"description": "JWT access token. Format: \"Bearer {token}\".", "type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "localhost:8081",
	BasePath:         "/",
	Schemes:          []string{"http", "https"},
	Title:            "Shop Authentication Service API",
	Description:      "Credential lifecycle for the shop: registration, login, token refresh and password reset.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
