package fhirproxy

import (
	"carebridge/controllers"
	"carebridge/pkg/fhir"

	"github.com/gin-gonic/gin"
)

// Register wires the read-only FHIR proxy (protected group).
func Register(g *gin.RouterGroup, client *fhir.Client) {
	g.GET("/fhir", controllers.FHIRRoot())
	g.GET("/fhir/:resource", controllers.FHIRProxy(client))
}
