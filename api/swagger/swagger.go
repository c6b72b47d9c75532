package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "CampusHub Enrollment API",
        "description": "Multi-tenant enrollment lifecycle, promotion and student import service",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Authentication", "description": "Login and identity"},
        {"name": "Enrollments", "description": "Enrollment lifecycle and state machine"},
        {"name": "Promotions", "description": "Year-over-year student promotion"},
        {"name": "Student Import", "description": "All-or-nothing bulk student import"},
        {"name": "Students", "description": "Student roster"},
        {"name": "Academic Years", "description": "School year catalog"},
        {"name": "Classes", "description": "Class sections per academic year"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}],
                "responses": {
                    "200": {"description": "Token issued", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Current user info",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/schools/{schoolId}/enrollments": {
            "get": {
                "tags": ["Enrollments"],
                "summary": "List enrollments",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "schoolId", "in": "path", "required": true, "type": "string"},
                    {"name": "studentId", "in": "query", "type": "string"},
                    {"name": "classId", "in": "query", "type": "string"},
                    {"name": "academicYearId", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Enrollments"],
                "summary": "Enroll a student",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "schoolId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateEnrollmentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Student, class or academic year not found"},
                    "409": {"description": "Student already enrolled for academic year"}
                }
            }
        },
        "/schools/{schoolId}/enrollments/stats": {
            "get": {
                "tags": ["Enrollments"],
                "summary": "Enrollment counts per status",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "schoolId", "in": "path", "required": true, "type": "string"},
                    {"name": "academicYearId", "in": "query", "type": "string"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/schools/{schoolId}/enrollments/{id}": {
            "get": {
                "tags": ["Enrollments"],
                "summary": "Get one enrollment",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "schoolId", "in": "path", "required": true, "type": "string"},
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Enrollment not found"}
                }
            }
        },
        "/schools/{schoolId}/enrollments/{id}/certificate": {
            "get": {
                "tags": ["Enrollments"],
                "summary": "Download a proof-of-enrollment PDF",
                "security": [{"BearerAuth": []}],
                "produces": ["application/pdf"],
                "parameters": [
                    {"name": "schoolId", "in": "path", "required": true, "type": "string"},
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {"200": {"description": "PDF document"}}
            }
        },
        "/schools/{schoolId}/enrollments/{id}/activate": {
            "post": {
                "tags": ["Enrollments"],
                "summary": "Activate a pending or suspended enrollment",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "schoolId", "in": "path", "required": true, "type": "string"},
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Illegal status transition"}
                }
            }
        },
        "/schools/{schoolId}/enrollments/{id}/complete": {
            "post": {
                "tags": ["Enrollments"],
                "summary": "Complete an active enrollment",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "schoolId", "in": "path", "required": true, "type": "string"},
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Illegal status transition"}
                }
            }
        },
        "/schools/{schoolId}/enrollments/{id}/drop": {
            "post": {
                "tags": ["Enrollments"],
                "summary": "Drop an enrollment",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "schoolId", "in": "path", "required": true, "type": "string"},
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Illegal status transition"}
                }
            }
        },
        "/schools/{schoolId}/enrollments/{id}/repeat": {
            "post": {
                "tags": ["Enrollments"],
                "summary": "Mark an enrollment as repeated",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "schoolId", "in": "path", "required": true, "type": "string"},
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Illegal status transition"}
                }
            }
        },
        "/schools/{schoolId}/enrollments/{id}/suspend": {
            "post": {
                "tags": ["Enrollments"],
                "summary": "Suspend an active enrollment",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "schoolId", "in": "path", "required": true, "type": "string"},
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Illegal status transition"}
                }
            }
        },
        "/schools/{schoolId}/promotions": {
            "post": {
                "tags": ["Promotions"],
                "summary": "Promote one student into a new academic year",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "schoolId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/PromoteStudentRequest"}}
                ],
                "responses": {
                    "201": {"description": "New enrollment created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Cannot auto-detect next class"},
                    "404": {"description": "No active enrollment or next grade class"},
                    "409": {"description": "Already enrolled for target year"}
                }
            }
        },
        "/schools/{schoolId}/promotions/bulk": {
            "post": {
                "tags": ["Promotions"],
                "summary": "Promote many students with per-student failure isolation",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "schoolId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BulkPromoteRequest"}}
                ],
                "responses": {"200": {"description": "Per-student outcomes", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/students/import": {
            "post": {
                "tags": ["Student Import"],
                "summary": "Import students in bulk (all-or-nothing)",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ImportStudentsRequest"}}],
                "responses": {
                    "200": {"description": "Import result", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Importing user cannot import students"}
                }
            }
        },
        "/students/import/validate": {
            "post": {
                "tags": ["Student Import"],
                "summary": "Dry-run an import batch",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "description": "csv for a downloadable error report"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ImportStudentsRequest"}}
                ],
                "responses": {"200": {"description": "Validation result", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/schools/{schoolId}/students": {
            "get": {
                "tags": ["Students"],
                "summary": "List students",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "schoolId", "in": "path", "required": true, "type": "string"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "active", "in": "query", "type": "boolean"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/schools/{schoolId}/students/{id}": {
            "get": {
                "tags": ["Students"],
                "summary": "Get one student with guardians",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "schoolId", "in": "path", "required": true, "type": "string"},
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Student not found"}
                }
            }
        },
        "/schools/{schoolId}/academic-years": {
            "get": {
                "tags": ["Academic Years"],
                "summary": "List academic years",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "schoolId", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Academic Years"],
                "summary": "Open a new academic year",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "schoolId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateAcademicYearRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Name already exists"}
                }
            }
        },
        "/schools/{schoolId}/academic-years/current": {
            "get": {
                "tags": ["Academic Years"],
                "summary": "Get the current academic year",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "schoolId", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "No current academic year"}
                }
            }
        },
        "/schools/{schoolId}/academic-years/{id}/current": {
            "post": {
                "tags": ["Academic Years"],
                "summary": "Mark an academic year as current",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "schoolId", "in": "path", "required": true, "type": "string"},
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/schools/{schoolId}/classes": {
            "get": {
                "tags": ["Classes"],
                "summary": "List classes",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "schoolId", "in": "path", "required": true, "type": "string"},
                    {"name": "academicYearId", "in": "query", "type": "string"},
                    {"name": "grade", "in": "query", "type": "string"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Classes"],
                "summary": "Open a class section",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "schoolId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateClassRequest"}}
                ],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
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
        "CreateEnrollmentRequest": {
            "type": "object",
            "required": ["studentId", "classId", "academicYearId"],
            "properties": {
                "studentId": {"type": "string"},
                "classId": {"type": "string"},
                "academicYearId": {"type": "string"},
                "status": {"type": "string", "enum": ["PENDING", "ACTIVE"]},
                "enrollmentDate": {"type": "string", "format": "date-time"},
                "previousSchool": {"type": "string"},
                "transferCertificateNo": {"type": "string"}
            }
        },
        "PromoteStudentRequest": {
            "type": "object",
            "required": ["studentId", "targetAcademicYearId"],
            "properties": {
                "studentId": {"type": "string"},
                "targetAcademicYearId": {"type": "string"},
                "targetClassId": {"type": "string"}
            }
        },
        "BulkPromoteRequest": {
            "type": "object",
            "required": ["studentIds", "targetAcademicYearId"],
            "properties": {
                "studentIds": {"type": "array", "items": {"type": "string"}},
                "targetAcademicYearId": {"type": "string"},
                "targetClassId": {"type": "string"}
            }
        },
        "StudentImportRow": {
            "type": "object",
            "properties": {
                "firstName": {"type": "string"},
                "lastName": {"type": "string"},
                "admissionNumber": {"type": "string"},
                "className": {"type": "string"},
                "gender": {"type": "string"},
                "dateOfBirth": {"type": "string", "example": "2015-04-20"},
                "previousSchool": {"type": "string"},
                "guardianName": {"type": "string"},
                "guardianPhone": {"type": "string"},
                "guardianEmail": {"type": "string"},
                "guardianRelationship": {"type": "string"}
            }
        },
        "ImportStudentsRequest": {
            "type": "object",
            "required": ["academicYearId", "rows"],
            "properties": {
                "academicYearId": {"type": "string"},
                "rows": {"type": "array", "items": {"$ref": "#/definitions/StudentImportRow"}}
            }
        },
        "CreateAcademicYearRequest": {
            "type": "object",
            "required": ["name", "startDate", "endDate"],
            "properties": {
                "name": {"type": "string"},
                "startDate": {"type": "string", "example": "2026-07-01"},
                "endDate": {"type": "string", "example": "2027-06-30"},
                "isCurrent": {"type": "boolean"}
            }
        },
        "CreateClassRequest": {
            "type": "object",
            "required": ["academicYearId", "name", "grade"],
            "properties": {
                "academicYearId": {"type": "string"},
                "name": {"type": "string"},
                "grade": {"type": "string"},
                "classTeacherId": {"type": "string"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"},
                "total_pages": {"type": "integer"}
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
