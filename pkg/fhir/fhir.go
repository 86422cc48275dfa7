package fhir

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client proxies read-only queries to an upstream FHIR R4 server (HAPI by
// default). Only allowlisted resource types are forwarded.
type Client struct {
	base  string
	httpc *http.Client
}

func NewClient(base string) *Client {
	return &Client{
		base:  base,
		httpc: &http.Client{Timeout: 15 * time.Second},
	}
}

var allowedResources = map[string]bool{
	"Patient":             true,
	"Person":              true,
	"Practitioner":        true,
	"PractitionerRole":    true,
	"RelatedPerson":       true,
	"Group":               true,
	"Encounter":           true,
	"EpisodeOfCare":       true,
	"Appointment":         true,
	"AppointmentResponse": true,
	"Schedule":            true,
	"Slot":                true,
	"Observation":         true,
	"Condition":           true,
	"Procedure":           true,
	"MedicationRequest":   true,
	"AllergyIntolerance":  true,
	"Immunization":        true,
	"DiagnosticReport":    true,
	"DocumentReference":   true,
}

// Allowed reports whether the proxy forwards requests for this resource type.
func Allowed(resource string) bool {
	return allowedResources[resource]
}

// Fetch performs a GET against the upstream server for one resource type,
// forwarding query parameters. A non-200 upstream answer is turned into an
// OperationOutcome body, matching FHIR error conventions.
func (c *Client) Fetch(ctx context.Context, resource string, params url.Values) ([]byte, error) {
	u := c.base + "/" + resource
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/fhir+json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fhir upstream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return OperationOutcome("not-found", "Resource not found"), nil
	}
	return io.ReadAll(resp.Body)
}

// OperationOutcome builds the standard FHIR error envelope.
func OperationOutcome(code, text string) []byte {
	out := map[string]any{
		"resourceType": "OperationOutcome",
		"issue": []map[string]any{
			{
				"severity": "error",
				"code":     code,
				"details":  map[string]string{"text": text},
			},
		},
	}
	b, _ := json.Marshal(out)
	return b
}

// resourceHeader identifies what kind of payload we got back.
type resourceHeader struct {
	ResourceType string `json:"resourceType"`
	ID           string `json:"id"`
}

// Bundle mirrors the parts of a searchset bundle the dedup pass touches.
type Bundle struct {
	ResourceType string        `json:"resourceType"`
	Type         string        `json:"type,omitempty"`
	Total        int           `json:"total"`
	Entry        []BundleEntry `json:"entry"`
}

type BundleEntry struct {
	FullURL  string          `json:"fullUrl,omitempty"`
	Resource json.RawMessage `json:"resource"`
}

// DedupBundle removes bundle entries that repeat a resourceType/id pair,
// keeping the first occurrence. Upstream searches routinely return the same
// resource through several include paths. Non-bundle payloads pass through
// untouched.
func DedupBundle(data []byte) ([]byte, error) {
	var hdr resourceHeader
	if err := json.Unmarshal(data, &hdr); err != nil {
		return nil, fmt.Errorf("failed to decode resourceType: %w", err)
	}
	if hdr.ResourceType != "Bundle" {
		return data, nil
	}

	var bundle Bundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return nil, fmt.Errorf("error unmarshalling bundle: %w", err)
	}

	seen := make(map[string]bool, len(bundle.Entry))
	kept := bundle.Entry[:0]
	for _, entry := range bundle.Entry {
		var rh resourceHeader
		if err := json.Unmarshal(entry.Resource, &rh); err != nil {
			// entry without a readable header is kept as-is
			kept = append(kept, entry)
			continue
		}
		key := rh.ResourceType + "/" + rh.ID
		if rh.ID != "" && seen[key] {
			continue
		}
		seen[key] = true
		kept = append(kept, entry)
	}
	bundle.Entry = kept
	bundle.Total = len(kept)
	return json.Marshal(bundle)
}
