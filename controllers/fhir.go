package controllers

import (
	"log"
	"net/http"

	"carebridge/pkg/fhir"

	"github.com/gin-gonic/gin"
)

const fhirContentType = "application/fhir+json"

// FHIRRoot lists the proxy's entry points.
func FHIRRoot() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"msg": "FHIR R4 proxy",
			"examples": gin.H{
				"patients":     "/fhir/Patient?name=john",
				"doctors":      "/fhir/Practitioner",
				"appointments": "/fhir/Appointment",
				"observations": "/fhir/Observation",
			},
		})
	}
}

// FHIRProxy forwards a read query for one allowlisted resource type to the
// upstream server and dedups repeated bundle entries before answering.
func FHIRProxy(client *fhir.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		resource := c.Param("resource")
		if !fhir.Allowed(resource) {
			c.Data(http.StatusNotFound, fhirContentType,
				fhir.OperationOutcome("not-supported", "Resource type not supported"))
			return
		}

		body, err := client.Fetch(c.Request.Context(), resource, c.Request.URL.Query())
		if err != nil {
			log.Printf("[fhir] upstream fetch failed: %v", err)
			c.Data(http.StatusBadGateway, fhirContentType,
				fhir.OperationOutcome("transient", "Upstream FHIR server unavailable"))
			return
		}

		deduped, err := fhir.DedupBundle(body)
		if err != nil {
			log.Printf("[fhir] bundle parse failed: %v", err)
			deduped = body
		}
		c.Data(http.StatusOK, fhirContentType, deduped)
	}
}
