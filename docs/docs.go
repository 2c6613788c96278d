// Package docs holds the OpenAPI document served under /swagger and
// /openapi.json. Kept in swag output format; regenerate with
// swag init -g cmd/api/main.go.
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
        "/installments": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Staff see every plan; customers only their own",
                "produces": ["application/json"],
                "tags": ["installments"],
                "summary": "List installment plans",
                "parameters": [
                    {"type": "string", "description": "Filter by customer", "name": "customerId", "in": "query"},
                    {"type": "string", "description": "active, overdue or completed", "name": "status", "in": "query"},
                    {"type": "string", "description": "Product or customer name", "name": "search", "in": "query"},
                    {"type": "integer", "description": "Page size (default 50, max 200)", "name": "limit", "in": "query"},
                    {"type": "integer", "description": "Page offset", "name": "offset", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.PlanListResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.ProblemDetails"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.ProblemDetails"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Generate the installment schedule for a customer purchase and store the plan",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["installments"],
                "summary": "Create an installment plan",
                "parameters": [
                    {"description": "Plan creation request", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.CreatePlanRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/service.PlanDetails"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.ProblemDetails"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.ProblemDetails"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.ProblemDetails"}}
                }
            }
        },
        "/installments/preview": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Compute the schedule a plan would get without storing anything",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["installments"],
                "summary": "Preview an installment schedule",
                "parameters": [
                    {"description": "Schedule inputs", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.PreviewPlanRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/service.ScheduleResult"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.ProblemDetails"}}
                }
            }
        },
        "/installments/customer/{customerId}": {
            "get": {
                "description": "Unauthenticated overview of a customer's plans without payment details",
                "produces": ["application/json"],
                "tags": ["public"],
                "summary": "Public customer summary",
                "parameters": [
                    {"type": "string", "description": "Customer ID", "name": "customerId", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/service.PublicPlanSummary"}}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.ProblemDetails"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/handler.ProblemDetails"}}
                }
            }
        },
        "/installments/details/{planId}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Full plan with the derived status of every installment",
                "produces": ["application/json"],
                "tags": ["installments"],
                "summary": "Get plan details",
                "parameters": [
                    {"type": "string", "description": "Plan ID", "name": "planId", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/service.PlanDetails"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.ProblemDetails"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.ProblemDetails"}}
                }
            }
        },
        "/installments/{planId}": {
            "delete": {
                "security": [{"BearerAuth": []}],
                "description": "Removes the plan and all its installments. Admin only.",
                "tags": ["installments"],
                "summary": "Delete a plan",
                "parameters": [
                    {"type": "string", "description": "Plan ID", "name": "planId", "in": "path", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.ProblemDetails"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.ProblemDetails"}}
                }
            }
        },
        "/installments/{planId}/pay": {
            "put": {
                "security": [{"BearerAuth": []}],
                "description": "Records a payment on a pending installment, redistributing any difference over the later pending installments. On an already paid installment the payment details are replaced instead.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["installments"],
                "summary": "Record or edit an installment payment",
                "parameters": [
                    {"type": "string", "description": "Plan ID", "name": "planId", "in": "path", "required": true},
                    {"description": "Payment", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.PayInstallmentRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/service.PaymentResult"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.ProblemDetails"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.ProblemDetails"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.ProblemDetails"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/handler.ProblemDetails"}}
                }
            }
        },
        "/installments/{planId}/unpay": {
            "put": {
                "security": [{"BearerAuth": []}],
                "description": "Returns a paid installment to pending with its scheduled amount. Other installments are not changed.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["installments"],
                "summary": "Revert an installment payment",
                "parameters": [
                    {"type": "string", "description": "Plan ID", "name": "planId", "in": "path", "required": true},
                    {"description": "Installment to revert", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.UnpayInstallmentRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/service.PaymentResult"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.ProblemDetails"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.ProblemDetails"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/handler.ProblemDetails"}}
                }
            }
        },
        "/installments/{planId}/installments/{number}/receipt": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Returns a short-lived presigned URL for the installment's receipt",
                "produces": ["application/json"],
                "tags": ["receipts"],
                "summary": "Get a receipt download URL",
                "parameters": [
                    {"type": "string", "description": "Plan ID", "name": "planId", "in": "path", "required": true},
                    {"type": "integer", "description": "Installment number", "name": "number", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/service.ReceiptInfo"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.ProblemDetails"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.ProblemDetails"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Upload a JPEG or PNG receipt for a paid installment. Replaces any previous receipt.",
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["receipts"],
                "summary": "Attach a payment receipt",
                "parameters": [
                    {"type": "string", "description": "Plan ID", "name": "planId", "in": "path", "required": true},
                    {"type": "integer", "description": "Installment number", "name": "number", "in": "path", "required": true},
                    {"type": "file", "description": "Receipt image", "name": "file", "in": "formData", "required": true}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/service.ReceiptInfo"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.ProblemDetails"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/handler.ProblemDetails"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/handler.ProblemDetails"}}
                }
            }
        }
    },
    "definitions": {
        "domain.Distribution": {
            "type": "object",
            "properties": {
                "amountPerInstallment": {"type": "integer"},
                "difference": {"type": "integer"},
                "isExcess": {"type": "boolean"},
                "remainingCount": {"type": "integer"},
                "unabsorbed": {"type": "integer"}
            }
        },
        "domain.UnabsorbedShortfall": {
            "type": "object",
            "properties": {
                "amount": {"type": "integer"},
                "message": {"type": "string"}
            }
        },
        "domain.PlanSummary": {
            "type": "object",
            "properties": {
                "nextDueStatus": {"type": "string"},
                "nextInstallment": {"$ref": "#/definitions/service.InstallmentView"},
                "overdueAmount": {"type": "integer"},
                "overdueCount": {"type": "integer"},
                "paidAmount": {"type": "integer"},
                "paidCount": {"type": "integer"},
                "pendingCount": {"type": "integer"},
                "remainingAmount": {"type": "integer"},
                "status": {"type": "string", "enum": ["active", "overdue", "completed"]}
            }
        },
        "handler.CreatePlanRequest": {
            "type": "object",
            "properties": {
                "address": {"type": "string"},
                "advanceAmount": {"type": "integer"},
                "customerId": {"type": "string"},
                "dueDate": {"type": "integer"},
                "dueDay": {"type": "integer"},
                "email": {"type": "string"},
                "installmentCount": {"type": "integer"},
                "installmentUnit": {"type": "string", "enum": ["days", "weeks", "months"]},
                "monthlyInstallment": {"type": "integer"},
                "name": {"type": "string"},
                "phone": {"type": "string"},
                "productDescription": {"type": "string"},
                "productName": {"type": "string"},
                "startDate": {"type": "string"},
                "totalAmount": {"type": "integer"}
            }
        },
        "handler.PreviewPlanRequest": {
            "type": "object",
            "properties": {
                "advanceAmount": {"type": "integer"},
                "dueDay": {"type": "integer"},
                "installmentCount": {"type": "integer"},
                "installmentUnit": {"type": "string"},
                "startDate": {"type": "string"},
                "totalAmount": {"type": "integer"}
            }
        },
        "handler.PayInstallmentRequest": {
            "type": "object",
            "properties": {
                "customAmount": {"type": "integer"},
                "dueDate": {"type": "string"},
                "installmentNumber": {"type": "integer"},
                "notes": {"type": "string"},
                "paymentMethod": {"type": "string", "enum": ["cash", "bank_transfer", "wallet", "cheque", "other"]}
            }
        },
        "handler.UnpayInstallmentRequest": {
            "type": "object",
            "properties": {
                "installmentNumber": {"type": "integer"}
            }
        },
        "handler.PlanListResponse": {
            "type": "object",
            "properties": {
                "limit": {"type": "integer"},
                "offset": {"type": "integer"},
                "plans": {"type": "array", "items": {"$ref": "#/definitions/service.PlanListItem"}}
            }
        },
        "handler.ProblemDetails": {
            "type": "object",
            "properties": {
                "detail": {"type": "string"},
                "errors": {"type": "array", "items": {"$ref": "#/definitions/handler.ValidationError"}},
                "instance": {"type": "string"},
                "status": {"type": "integer"},
                "title": {"type": "string"},
                "type": {"type": "string"}
            }
        },
        "handler.ValidationError": {
            "type": "object",
            "properties": {
                "field": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "service.InstallmentView": {
            "type": "object",
            "properties": {
                "actualPaidAmount": {"type": "integer"},
                "amount": {"type": "integer"},
                "dueDate": {"type": "string"},
                "installmentNumber": {"type": "integer"},
                "notes": {"type": "string"},
                "paidDate": {"type": "string"},
                "paymentMethod": {"type": "string"},
                "receiptPath": {"type": "string"},
                "state": {"type": "string", "enum": ["pending", "paid"]},
                "status": {"type": "string", "enum": ["Pending", "Overdue", "Paid"]},
                "updatedAt": {"type": "string"}
            }
        },
        "service.PaymentResult": {
            "type": "object",
            "properties": {
                "distribution": {"$ref": "#/definitions/domain.Distribution"},
                "installment": {"$ref": "#/definitions/service.InstallmentView"},
                "operation": {"type": "string", "enum": ["record", "edit", "unpay"]},
                "success": {"type": "boolean"},
                "warning": {"$ref": "#/definitions/domain.UnabsorbedShortfall"}
            }
        },
        "service.PlanDetails": {
            "type": "object",
            "properties": {
                "advanceAmount": {"type": "integer"},
                "createdAt": {"type": "string"},
                "createdBy": {"type": "string"},
                "customerAddress": {"type": "string"},
                "customerEmail": {"type": "string"},
                "customerId": {"type": "string"},
                "customerName": {"type": "string"},
                "customerPhone": {"type": "string"},
                "dueDay": {"type": "integer"},
                "id": {"type": "string"},
                "installmentCount": {"type": "integer"},
                "installmentUnit": {"type": "string"},
                "installments": {"type": "array", "items": {"$ref": "#/definitions/service.InstallmentView"}},
                "productDescription": {"type": "string"},
                "productName": {"type": "string"},
                "startDate": {"type": "string"},
                "summary": {"$ref": "#/definitions/domain.PlanSummary"},
                "totalAmount": {"type": "integer"},
                "updatedAt": {"type": "string"},
                "version": {"type": "integer"}
            }
        },
        "service.PlanListItem": {
            "type": "object",
            "properties": {
                "advanceAmount": {"type": "integer"},
                "createdAt": {"type": "string"},
                "customerId": {"type": "string"},
                "customerName": {"type": "string"},
                "id": {"type": "string"},
                "installmentCount": {"type": "integer"},
                "installmentUnit": {"type": "string"},
                "productName": {"type": "string"},
                "startDate": {"type": "string"},
                "summary": {"$ref": "#/definitions/domain.PlanSummary"},
                "totalAmount": {"type": "integer"}
            }
        },
        "service.PublicNextInstallment": {
            "type": "object",
            "properties": {
                "amount": {"type": "integer"},
                "dueDate": {"type": "string"},
                "installmentNumber": {"type": "integer"},
                "status": {"type": "string"}
            }
        },
        "service.PublicPlanSummary": {
            "type": "object",
            "properties": {
                "advanceAmount": {"type": "integer"},
                "installmentCount": {"type": "integer"},
                "nextInstallment": {"$ref": "#/definitions/service.PublicNextInstallment"},
                "overdueCount": {"type": "integer"},
                "paidAmount": {"type": "integer"},
                "paidCount": {"type": "integer"},
                "planId": {"type": "string"},
                "productName": {"type": "string"},
                "remainingAmount": {"type": "integer"},
                "status": {"type": "string"},
                "totalAmount": {"type": "integer"}
            }
        },
        "service.ReceiptInfo": {
            "type": "object",
            "properties": {
                "expiresAt": {"type": "string"},
                "installmentNumber": {"type": "integer"},
                "path": {"type": "string"},
                "planId": {"type": "string"},
                "url": {"type": "string"}
            }
        },
        "service.ScheduleResult": {
            "type": "object",
            "properties": {
                "dueDay": {"type": "integer"},
                "installments": {"type": "array", "items": {"$ref": "#/definitions/service.InstallmentView"}},
                "lastAmount": {"type": "integer"},
                "perInstallment": {"type": "integer"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Type \"Bearer\" followed by a space and the Auth0 access token.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Qist API",
	Description:      "Installment plan scheduling and payment reconciliation",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
