// Package docs registers the OpenAPI description of the story backend with
// swag, which gin-swagger serves under /swagger/. Regenerate with
// `swag init -g cmd/server/main.go` after changing handler annotations.
package docs

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
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "paths": {
        "/ai-assistant": {
            "get": {
                "tags": ["Assistant"],
                "summary": "List a story's assistant conversations",
                "operationId": "listConversations",
                "parameters": [
                    {"type": "string", "name": "story_id", "in": "query", "required": true},
                    {"type": "string", "name": "If-None-Match", "in": "header"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ListConversationsResponse"}},
                    "304": {"description": "Not Modified"},
                    "400": {"description": "Missing story_id parameter", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            },
            "post": {
                "tags": ["Assistant"],
                "summary": "Analyze a story passage",
                "operationId": "analyzeStory",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "name": "Idempotency-Key", "in": "header"},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.AnalyzeRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/services.AnalyzeResult"}},
                    "400": {"description": "Missing or invalid fields", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "403": {"description": "Story is private", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Story or conversation not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "429": {"description": "Rate limited", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Provider failure or not configured", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/auth/register": {
            "post": {
                "tags": ["Auth"], "summary": "Create an account", "operationId": "register",
                "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.RegisterRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.User"}},
                    "400": {"description": "Bad request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "409": {"description": "Username taken", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Auth"], "summary": "Sign in", "operationId": "login",
                "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.LoginRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/services.LoginResult"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/me": {
            "get": {
                "tags": ["Auth"], "summary": "Current account", "operationId": "me",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.User"}}}
            },
            "patch": {
                "tags": ["Auth"], "summary": "Update the current account's profile", "operationId": "updateMe",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.UpdateProfileRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.User"}}}
            }
        },
        "/stories": {
            "get": {
                "tags": ["Stories"], "summary": "List or search public stories", "operationId": "listStories",
                "parameters": [
                    {"type": "string", "name": "q", "in": "query"},
                    {"type": "integer", "name": "page", "in": "query", "default": 1},
                    {"type": "integer", "name": "page_size", "in": "query", "default": 20, "maximum": 100}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ListStoriesResponse"}}}
            },
            "post": {
                "tags": ["Stories"], "summary": "Create a story", "operationId": "createStory",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.CreateStoryRequest"}}],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.Story"}}}
            }
        },
        "/stories/mine": {
            "get": {
                "tags": ["Stories"], "summary": "List the caller's stories", "operationId": "listMyStories",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.MyStoriesResponse"}}}
            }
        },
        "/stories/{id}": {
            "get": {
                "tags": ["Stories"], "summary": "Get a story", "operationId": "getStory",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Story"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            },
            "put": {
                "tags": ["Stories"], "summary": "Update a story", "operationId": "updateStory",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.UpdateStoryRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Story"}},
                    "403": {"description": "Not the author", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            },
            "delete": {
                "tags": ["Stories"], "summary": "Delete a story with its comments and conversations", "operationId": "deleteStory",
                "security": [{"BearerAuth": []}],
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/stories/{id}/comments": {
            "get": {
                "tags": ["Comments"], "summary": "List a public story's comments", "operationId": "listComments",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ListCommentsResponse"}},
                    "304": {"description": "Not Modified"}
                }
            },
            "post": {
                "tags": ["Comments"], "summary": "Comment on a public story", "operationId": "createComment",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.CreateCommentRequest"}}
                ],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.Comment"}}}
            }
        },
        "/comments/{id}": {
            "delete": {
                "tags": ["Comments"], "summary": "Delete a comment", "operationId": "deleteComment",
                "security": [{"BearerAuth": []}],
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/admin/comments": {
            "get": {
                "tags": ["Admin"], "summary": "Moderation list of all comments", "operationId": "adminListComments",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.AdminCommentsResponse"}}}
            }
        }
    },
    "definitions": {
        "handlers.ErrorResponse": {
            "type": "object",
            "properties": {
                "request_id": {"type": "string"},
                "code": {"type": "string", "example": "not_found"},
                "message": {"type": "string", "example": "Story not found"}
            }
        },
        "handlers.Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"}, "page_size": {"type": "integer"}, "total": {"type": "integer"},
                "total_pages": {"type": "integer"}, "has_next": {"type": "boolean"}
            }
        },
        "handlers.AnalyzeRequest": {
            "type": "object",
            "properties": {
                "story_id": {"type": "string"},
                "content": {"type": "string"},
                "prompt_type": {"type": "string", "enum": ["grammar", "structure", "custom"]},
                "custom_prompt": {"type": "string"},
                "conversation_id": {"type": "string"}
            }
        },
        "handlers.RegisterRequest": {
            "type": "object",
            "required": ["username", "password"],
            "properties": {
                "username": {"type": "string"}, "password": {"type": "string"},
                "first_name": {"type": "string"}, "last_name": {"type": "string"}
            }
        },
        "handlers.LoginRequest": {
            "type": "object",
            "required": ["username", "password"],
            "properties": {"username": {"type": "string"}, "password": {"type": "string"}}
        },
        "handlers.UpdateProfileRequest": {
            "type": "object",
            "properties": {
                "username": {"type": "string"}, "first_name": {"type": "string"},
                "last_name": {"type": "string"}, "profile_image_url": {"type": "string"}
            }
        },
        "handlers.CreateStoryRequest": {
            "type": "object",
            "properties": {"title": {"type": "string"}, "content": {"type": "string"}, "is_public": {"type": "boolean"}}
        },
        "handlers.UpdateStoryRequest": {
            "type": "object",
            "properties": {"title": {"type": "string"}, "content": {"type": "string"}, "is_public": {"type": "boolean"}}
        },
        "handlers.CreateCommentRequest": {
            "type": "object",
            "properties": {"content": {"type": "string"}}
        },
        "handlers.ListStoriesResponse": {
            "type": "object",
            "properties": {
                "stories": {"type": "array", "items": {"$ref": "#/definitions/domain.Story"}},
                "pagination": {"$ref": "#/definitions/handlers.Pagination"}
            }
        },
        "handlers.MyStoriesResponse": {
            "type": "object",
            "properties": {"stories": {"type": "array", "items": {"$ref": "#/definitions/domain.Story"}}}
        },
        "handlers.ListCommentsResponse": {
            "type": "object",
            "properties": {"comments": {"type": "array", "items": {"$ref": "#/definitions/domain.Comment"}}}
        },
        "handlers.AdminCommentsResponse": {
            "type": "object",
            "properties": {
                "comments": {"type": "array", "items": {"$ref": "#/definitions/domain.Comment"}},
                "pagination": {"$ref": "#/definitions/handlers.Pagination"}
            }
        },
        "handlers.ListConversationsResponse": {
            "type": "object",
            "properties": {"conversations": {"type": "array", "items": {"$ref": "#/definitions/domain.Conversation"}}}
        },
        "services.AnalyzeResult": {
            "type": "object",
            "properties": {
                "message": {"$ref": "#/definitions/domain.Message"},
                "conversation_id": {"type": "string"},
                "detected_genre": {"type": "string"}
            }
        },
        "services.LoginResult": {
            "type": "object",
            "properties": {
                "token": {"type": "string"},
                "expires_at": {"type": "string", "format": "date-time"},
                "user": {"$ref": "#/definitions/domain.User"}
            }
        },
        "domain.User": {
            "type": "object",
            "properties": {
                "id": {"type": "string"}, "username": {"type": "string"}, "role": {"type": "string"},
                "first_name": {"type": "string"}, "last_name": {"type": "string"},
                "profile_image_url": {"type": "string"},
                "created_at": {"type": "string", "format": "date-time"},
                "updated_at": {"type": "string", "format": "date-time"}
            }
        },
        "domain.Story": {
            "type": "object",
            "properties": {
                "id": {"type": "string"}, "title": {"type": "string"}, "content": {"type": "string"},
                "is_public": {"type": "boolean"}, "author_id": {"type": "string"},
                "created_at": {"type": "string", "format": "date-time"},
                "updated_at": {"type": "string", "format": "date-time"}
            }
        },
        "domain.Comment": {
            "type": "object",
            "properties": {
                "id": {"type": "string"}, "story_id": {"type": "string"}, "author_id": {"type": "string"},
                "author_name": {"type": "string"}, "content": {"type": "string"},
                "story_title": {"type": "string"},
                "created_at": {"type": "string", "format": "date-time"}
            }
        },
        "domain.Conversation": {
            "type": "object",
            "properties": {
                "id": {"type": "string"}, "story_id": {"type": "string"}, "user_id": {"type": "string"},
                "detected_genre": {"type": "string"}, "title": {"type": "string"}, "summary": {"type": "string"},
                "created_at": {"type": "string", "format": "date-time"},
                "updated_at": {"type": "string", "format": "date-time"},
                "messages": {"type": "array", "items": {"$ref": "#/definitions/domain.Message"}}
            }
        },
        "domain.Message": {
            "type": "object",
            "properties": {
                "id": {"type": "string"}, "conversation_id": {"type": "string"}, "is_user": {"type": "boolean"},
                "content": {"type": "string"}, "prompt_type": {"type": "string"},
                "created_at": {"type": "string", "format": "date-time"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Story Backend API",
	Description:      "Story sharing with comments and an AI writing assistant.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
