package fhir

import (
	"encoding/json"
	"testing"
)

func bundleWith(entries ...string) []byte {
	b := `{"resourceType":"Bundle","type":"searchset","total":` +
		// total deliberately wrong; dedup recomputes it
		`99,"entry":[`
	for i, e := range entries {
		if i > 0 {
			b += ","
		}
		b += `{"resource":` + e + `}`
	}
	return []byte(b + `]}`)
}

func TestDedupBundleRemovesRepeats(t *testing.T) {
	data := bundleWith(
		`{"resourceType":"Patient","id":"p1"}`,
		`{"resourceType":"Patient","id":"p2"}`,
		`{"resourceType":"Patient","id":"p1"}`,
		`{"resourceType":"Appointment","id":"p1"}`,
	)
	out, err := DedupBundle(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var bundle Bundle
	if err := json.Unmarshal(out, &bundle); err != nil {
		t.Fatalf("output not valid json: %v", err)
	}
	if len(bundle.Entry) != 3 {
		t.Fatalf("expected 3 distinct entries, got %d", len(bundle.Entry))
	}
	if bundle.Total != 3 {
		t.Fatalf("expected recomputed total 3, got %d", bundle.Total)
	}
}

func TestDedupBundleKeepsFirstOccurrence(t *testing.T) {
	data := bundleWith(
		`{"resourceType":"Patient","id":"p1","name":[{"family":"First"}]}`,
		`{"resourceType":"Patient","id":"p1","name":[{"family":"Second"}]}`,
	)
	out, err := DedupBundle(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var bundle Bundle
	_ = json.Unmarshal(out, &bundle)
	if len(bundle.Entry) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(bundle.Entry))
	}
	var res struct {
		Name []struct {
			Family string `json:"family"`
		} `json:"name"`
	}
	_ = json.Unmarshal(bundle.Entry[0].Resource, &res)
	if len(res.Name) == 0 || res.Name[0].Family != "First" {
		t.Fatalf("expected first occurrence to win")
	}
}

func TestDedupBundlePassthroughForSingleResource(t *testing.T) {
	data := []byte(`{"resourceType":"Patient","id":"p1"}`)
	out, err := DedupBundle(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != string(data) {
		t.Fatalf("non-bundle payload must pass through untouched")
	}
}

func TestDedupBundleKeepsIdlessEntries(t *testing.T) {
	data := bundleWith(
		`{"resourceType":"OperationOutcome"}`,
		`{"resourceType":"OperationOutcome"}`,
	)
	out, err := DedupBundle(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var bundle Bundle
	_ = json.Unmarshal(out, &bundle)
	if len(bundle.Entry) != 2 {
		t.Fatalf("entries without ids must never be collapsed, got %d", len(bundle.Entry))
	}
}

func TestAllowed(t *testing.T) {
	if !Allowed("Patient") || !Allowed("Slot") {
		t.Fatalf("expected core resources to be allowlisted")
	}
	if Allowed("Basic") || Allowed("") {
		t.Fatalf("unexpected resource allowed")
	}
}

func TestOperationOutcomeShape(t *testing.T) {
	var out struct {
		ResourceType string `json:"resourceType"`
		Issue        []struct {
			Severity string `json:"severity"`
			Code     string `json:"code"`
		} `json:"issue"`
	}
	if err := json.Unmarshal(OperationOutcome("not-found", "gone"), &out); err != nil {
		t.Fatalf("outcome not valid json: %v", err)
	}
	if out.ResourceType != "OperationOutcome" || len(out.Issue) != 1 || out.Issue[0].Code != "not-found" {
		t.Fatalf("unexpected outcome shape: %+v", out)
	}
}
