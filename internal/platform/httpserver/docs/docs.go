// Package docs holds the swagger document served under /swagger/.
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
		"/v1/registry/initialize": {
			"post": {
				"produces": [
					"application/json"
				],
				"tags": [
					"registry"
				],
				"summary": "Initialize the registry",
				"parameters": [
					{
						"type": "string",
						"description": "Caller principal",
						"name": "X-User-Id",
						"in": "header",
						"required": true
					},
					{
						"description": "payload",
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/InitializeRegistryRequest"
						}
					}
				],
				"responses": {
					"201": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/RegistryResponse"
						}
					},
					"400": {
						"description": "error",
						"schema": {
							"$ref": "#/definitions/ErrorResponse"
						}
					},
					"409": {
						"description": "error",
						"schema": {
							"$ref": "#/definitions/ErrorResponse"
						}
					}
				}
			}
		},
		"/v1/registry": {
			"get": {
				"produces": [
					"application/json"
				],
				"tags": [
					"registry"
				],
				"summary": "Registry details",
				"parameters": [],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/RegistryResponse"
						}
					},
					"409": {
						"description": "error",
						"schema": {
							"$ref": "#/definitions/ErrorResponse"
						}
					}
				}
			}
		},
		"/v1/elections": {
			"post": {
				"produces": [
					"application/json"
				],
				"tags": [
					"elections"
				],
				"summary": "Create an election",
				"parameters": [
					{
						"type": "string",
						"description": "Caller principal",
						"name": "X-User-Id",
						"in": "header",
						"required": true
					},
					{
						"type": "string",
						"description": "Replay key",
						"name": "Idempotency-Key",
						"in": "header"
					},
					{
						"description": "payload",
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/CreateElectionRequest"
						}
					}
				],
				"responses": {
					"201": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/ElectionResponse"
						}
					},
					"400": {
						"description": "error",
						"schema": {
							"$ref": "#/definitions/ErrorResponse"
						}
					},
					"409": {
						"description": "error",
						"schema": {
							"$ref": "#/definitions/ErrorResponse"
						}
					}
				}
			},
			"get": {
				"produces": [
					"application/json"
				],
				"tags": [
					"elections"
				],
				"summary": "List elections",
				"parameters": [],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/ListElectionsResponse"
						}
					}
				}
			}
		},
		"/v1/elections/{election_id}": {
			"get": {
				"produces": [
					"application/json"
				],
				"tags": [
					"elections"
				],
				"summary": "Election details",
				"parameters": [
					{
						"type": "integer",
						"description": "Election id",
						"name": "election_id",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/ElectionResponse"
						}
					},
					"404": {
						"description": "error",
						"schema": {
							"$ref": "#/definitions/ErrorResponse"
						}
					}
				}
			}
		},
		"/v1/elections/{election_id}/close": {
			"post": {
				"produces": [
					"application/json"
				],
				"tags": [
					"elections"
				],
				"summary": "Close an election",
				"parameters": [
					{
						"type": "string",
						"description": "Caller principal",
						"name": "X-User-Id",
						"in": "header",
						"required": true
					},
					{
						"type": "integer",
						"description": "Election id",
						"name": "election_id",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/ElectionResponse"
						}
					},
					"403": {
						"description": "error",
						"schema": {
							"$ref": "#/definitions/ErrorResponse"
						}
					},
					"404": {
						"description": "error",
						"schema": {
							"$ref": "#/definitions/ErrorResponse"
						}
					}
				}
			}
		},
		"/v1/elections/{election_id}/candidates": {
			"get": {
				"produces": [
					"application/json"
				],
				"tags": [
					"candidates"
				],
				"summary": "List candidates",
				"parameters": [
					{
						"type": "integer",
						"description": "Election id",
						"name": "election_id",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/ListCandidatesResponse"
						}
					},
					"404": {
						"description": "error",
						"schema": {
							"$ref": "#/definitions/ErrorResponse"
						}
					}
				}
			},
			"post": {
				"produces": [
					"application/json"
				],
				"tags": [
					"candidates"
				],
				"summary": "Add a candidate",
				"parameters": [
					{
						"type": "string",
						"description": "Caller principal",
						"name": "X-User-Id",
						"in": "header",
						"required": true
					},
					{
						"type": "string",
						"description": "Replay key",
						"name": "Idempotency-Key",
						"in": "header"
					},
					{
						"type": "integer",
						"description": "Election id",
						"name": "election_id",
						"in": "path",
						"required": true
					},
					{
						"description": "payload",
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/AddCandidateRequest"
						}
					}
				],
				"responses": {
					"201": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/CandidateResponse"
						}
					},
					"400": {
						"description": "error",
						"schema": {
							"$ref": "#/definitions/ErrorResponse"
						}
					},
					"403": {
						"description": "error",
						"schema": {
							"$ref": "#/definitions/ErrorResponse"
						}
					},
					"404": {
						"description": "error",
						"schema": {
							"$ref": "#/definitions/ErrorResponse"
						}
					}
				}
			}
		},
		"/v1/elections/{election_id}/voters": {
			"post": {
				"produces": [
					"application/json"
				],
				"tags": [
					"voters"
				],
				"summary": "Authorize a voter",
				"parameters": [
					{
						"type": "string",
						"description": "Caller principal",
						"name": "X-User-Id",
						"in": "header",
						"required": true
					},
					{
						"type": "integer",
						"description": "Election id",
						"name": "election_id",
						"in": "path",
						"required": true
					},
					{
						"description": "payload",
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/AuthorizeVoterRequest"
						}
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/VoterResponse"
						}
					},
					"400": {
						"description": "error",
						"schema": {
							"$ref": "#/definitions/ErrorResponse"
						}
					},
					"403": {
						"description": "error",
						"schema": {
							"$ref": "#/definitions/ErrorResponse"
						}
					},
					"404": {
						"description": "error",
						"schema": {
							"$ref": "#/definitions/ErrorResponse"
						}
					}
				}
			}
		},
		"/v1/elections/{election_id}/voters/{principal}": {
			"get": {
				"produces": [
					"application/json"
				],
				"tags": [
					"voters"
				],
				"summary": "Voter details",
				"parameters": [
					{
						"type": "integer",
						"description": "Election id",
						"name": "election_id",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"description": "Voter principal",
						"name": "principal",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/VoterResponse"
						}
					},
					"404": {
						"description": "error",
						"schema": {
							"$ref": "#/definitions/ErrorResponse"
						}
					}
				}
			}
		},
		"/v1/elections/{election_id}/votes": {
			"post": {
				"produces": [
					"application/json"
				],
				"tags": [
					"votes"
				],
				"summary": "Cast a vote",
				"parameters": [
					{
						"type": "string",
						"description": "Caller principal",
						"name": "X-User-Id",
						"in": "header",
						"required": true
					},
					{
						"type": "integer",
						"description": "Election id",
						"name": "election_id",
						"in": "path",
						"required": true
					},
					{
						"description": "payload",
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/CastVoteRequest"
						}
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/CastVoteResponse"
						}
					},
					"403": {
						"description": "error",
						"schema": {
							"$ref": "#/definitions/ErrorResponse"
						}
					},
					"404": {
						"description": "error",
						"schema": {
							"$ref": "#/definitions/ErrorResponse"
						}
					},
					"409": {
						"description": "error",
						"schema": {
							"$ref": "#/definitions/ErrorResponse"
						}
					},
					"422": {
						"description": "error",
						"schema": {
							"$ref": "#/definitions/ErrorResponse"
						}
					},
					"429": {
						"description": "error",
						"schema": {
							"$ref": "#/definitions/ErrorResponse"
						}
					}
				}
			}
		},
		"/v1/elections/{election_id}/results": {
			"get": {
				"produces": [
					"application/json"
				],
				"tags": [
					"elections"
				],
				"summary": "Ranked results",
				"parameters": [
					{
						"type": "integer",
						"description": "Election id",
						"name": "election_id",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/ResultsResponse"
						}
					},
					"404": {
						"description": "error",
						"schema": {
							"$ref": "#/definitions/ErrorResponse"
						}
					}
				}
			}
		},
		"/v1/elections/{election_id}/rewards": {
			"get": {
				"produces": [
					"application/json"
				],
				"tags": [
					"rewards"
				],
				"summary": "Reward ledger for an election",
				"parameters": [
					{
						"type": "integer",
						"description": "Election id",
						"name": "election_id",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/ListRewardsResponse"
						}
					},
					"404": {
						"description": "error",
						"schema": {
							"$ref": "#/definitions/ErrorResponse"
						}
					}
				}
			}
		}
	},
	"definitions": {
		"ErrorResponse": {
			"type": "object",
			"properties": {
				"code": {
					"type": "string"
				},
				"message": {
					"type": "string"
				}
			}
		},
		"InitializeRegistryRequest": {
			"type": "object",
			"properties": {
				"token_reward": {
					"type": "string"
				}
			}
		},
		"RegistryResponse": {
			"type": "object",
			"properties": {
				"platform_owner": {
					"type": "string"
				},
				"token_reward": {
					"type": "string"
				},
				"initialized_at": {
					"type": "string",
					"format": "date-time"
				}
			}
		},
		"CreateElectionRequest": {
			"type": "object",
			"properties": {
				"name": {
					"type": "string"
				},
				"duration_seconds": {
					"type": "integer"
				}
			}
		},
		"ElectionResponse": {
			"type": "object",
			"properties": {
				"election_id": {
					"type": "integer"
				},
				"name": {
					"type": "string"
				},
				"election_official": {
					"type": "string"
				},
				"start_time": {
					"type": "string",
					"format": "date-time"
				},
				"end_time": {
					"type": "string",
					"format": "date-time"
				},
				"duration_seconds": {
					"type": "integer"
				},
				"is_active": {
					"type": "boolean"
				},
				"is_open": {
					"type": "boolean"
				},
				"closed_at": {
					"type": "string",
					"format": "date-time"
				},
				"candidate_count": {
					"type": "integer"
				},
				"total_votes": {
					"type": "integer"
				},
				"replayed": {
					"type": "boolean"
				}
			}
		},
		"ListElectionsResponse": {
			"type": "object",
			"properties": {
				"items": {
					"type": "array",
					"items": {
						"$ref": "#/definitions/ElectionResponse"
					}
				}
			}
		},
		"AddCandidateRequest": {
			"type": "object",
			"properties": {
				"name": {
					"type": "string"
				}
			}
		},
		"CandidateResponse": {
			"type": "object",
			"properties": {
				"candidate_id": {
					"type": "integer"
				},
				"name": {
					"type": "string"
				},
				"vote_count": {
					"type": "integer"
				},
				"replayed": {
					"type": "boolean"
				}
			}
		},
		"ListCandidatesResponse": {
			"type": "object",
			"properties": {
				"election_id": {
					"type": "integer"
				},
				"items": {
					"type": "array",
					"items": {
						"$ref": "#/definitions/CandidateResponse"
					}
				}
			}
		},
		"AuthorizeVoterRequest": {
			"type": "object",
			"properties": {
				"voter": {
					"type": "string"
				}
			}
		},
		"VoterResponse": {
			"type": "object",
			"properties": {
				"election_id": {
					"type": "integer"
				},
				"voter": {
					"type": "string"
				},
				"is_authorized": {
					"type": "boolean"
				},
				"has_voted": {
					"type": "boolean"
				},
				"changed": {
					"type": "boolean"
				}
			}
		},
		"CastVoteRequest": {
			"type": "object",
			"properties": {
				"candidate_id": {
					"type": "integer"
				}
			}
		},
		"CastVoteResponse": {
			"type": "object",
			"properties": {
				"election_id": {
					"type": "integer"
				},
				"candidate_id": {
					"type": "integer"
				},
				"vote_count": {
					"type": "integer"
				},
				"voter": {
					"type": "string"
				},
				"reward": {
					"$ref": "#/definitions/RewardResponse"
				}
			}
		},
		"RewardResponse": {
			"type": "object",
			"properties": {
				"reward_id": {
					"type": "string"
				},
				"election_id": {
					"type": "integer"
				},
				"voter": {
					"type": "string"
				},
				"candidate_id": {
					"type": "integer"
				},
				"amount": {
					"type": "string"
				},
				"status": {
					"type": "string"
				},
				"attempts": {
					"type": "integer"
				},
				"last_error": {
					"type": "string"
				},
				"settlement_ref": {
					"type": "string"
				},
				"created_at": {
					"type": "string",
					"format": "date-time"
				},
				"settled_at": {
					"type": "string",
					"format": "date-time"
				}
			}
		},
		"ListRewardsResponse": {
			"type": "object",
			"properties": {
				"election_id": {
					"type": "integer"
				},
				"items": {
					"type": "array",
					"items": {
						"$ref": "#/definitions/RewardResponse"
					}
				}
			}
		},
		"StandingResponse": {
			"type": "object",
			"properties": {
				"rank": {
					"type": "integer"
				},
				"candidate_id": {
					"type": "integer"
				},
				"name": {
					"type": "string"
				},
				"vote_count": {
					"type": "integer"
				}
			}
		},
		"ResultsResponse": {
			"type": "object",
			"properties": {
				"election_id": {
					"type": "integer"
				},
				"is_open": {
					"type": "boolean"
				},
				"total_votes": {
					"type": "integer"
				},
				"items": {
					"type": "array",
					"items": {
						"$ref": "#/definitions/StandingResponse"
					}
				}
			}
		}
	}
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Election Ledger API",
	Description:      "Election registry: elections, candidates, voter authorization, votes and rewards.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
