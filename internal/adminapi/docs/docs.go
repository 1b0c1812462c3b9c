// Package docs holds the swagger metadata for the admin API, in the shape
// `swag init` emits from the annotations on the handlers in
// internal/adminapi/server.go. Hand-authored here since this repo's build
// never runs the swag CLI, but registered through the same
// swag.Register/swag.Spec path a generated docs.go would use so
// ginSwagger.WrapHandler serves it identically.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "{{.Title}}",
        "description": "{{.Description}}",
        "version": "{{.Version}}"
    },
    "paths": {
        "/v1/init": {
            "post": {
                "summary": "Bootstrap a pristine node",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/v1/learners": {
            "post": {
                "summary": "Add a learner",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/v1/membership": {
            "post": {
                "summary": "Change cluster membership",
                "responses": {"200": {"description": "OK"}, "202": {"description": "Accepted"}}
            }
        }
    }
}`

// SwaggerInfo holds exported swagger spec metadata, read by
// ginSwagger.WrapHandler through swag.GetSwagger(swag.Name).
var SwaggerInfo = &swag.Spec{
	Version:     "1.0",
	Host:        "",
	BasePath:    "/",
	Schemes:     []string{},
	Title:       "leifraft admin API",
	Description: "Cluster membership administration for a leifraft node.",
}

func init() {
	SwaggerInfo.InfoInstanceName = "swagger"
	SwaggerInfo.SwaggerTemplate = docTemplate
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
