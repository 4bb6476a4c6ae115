// Seed script for loading demo claims into claimgate.
// Run with: go run ./scripts/seed.go
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type evidence struct {
	URIOrBlobRef string  `json:"uri_or_blob_ref"`
	Snippet      string  `json:"snippet,omitempty"`
	SourceType   string  `json:"source_type"`
	QualityScore float64 `json:"quality_score"`
}

type proposal struct {
	SubjectID   string         `json:"subject_id"`
	Predicate   string         `json:"predicate"`
	ObjectKind  string         `json:"object_kind"`
	ObjectValue string         `json:"object_value"`
	ModelConf   float64        `json:"model_conf"`
	Evidence    []evidence     `json:"evidence"`
	Provenance  map[string]any `json:"provenance,omitempty"`
}

var (
	gateway string
	apiKey  string
	client  = &http.Client{Timeout: 30 * time.Second}
)

func main() {
	// Load environment
	envFile := os.Getenv("CLAIMGATE_ENV")
	if envFile == "" {
		envFile = ".env"
	}
	_ = godotenv.Load(envFile)
	_ = godotenv.Load(envFile + ".secret")

	gateway = os.Getenv("GATEWAY_URL")
	if gateway == "" {
		gateway = "http://localhost:7000"
	}
	apiKey = os.Getenv("GATEWAY_API_KEY")

	health := get("/health")
	fmt.Printf("Gateway healthy: %s\n\n", health)

	now := float64(time.Now().Unix())
	seeds := []proposal{
		// Strong first-party evidence on an allowlisted predicate: auto-merges.
		{
			SubjectID: "Run:demo", Predicate: "USES", ObjectKind: "entity", ObjectValue: "Model:v2",
			ModelConf: 0.9,
			Evidence: []evidence{{
				URIOrBlobRef: "log://run/demo", Snippet: "loaded checkpoint model-v2.pt",
				SourceType: "first_party_log", QualityScore: 0.95,
			}},
			Provenance: map[string]any{"who": "seed", "when": now, "run_id": "demo"},
		},
		{
			SubjectID: "Run:demo", Predicate: "INGESTS", ObjectKind: "entity", ObjectValue: "Dataset:sensor-2024",
			ModelConf: 0.88,
			Evidence: []evidence{{
				URIOrBlobRef: "run://demo/manifest.json",
				SourceType:   "run_artifact", QualityScore: 0.9,
			}},
			Provenance: map[string]any{"who": "seed", "when": now, "run_id": "demo"},
		},
		{
			SubjectID: "Run:demo", Predicate: "PRODUCES", ObjectKind: "entity", ObjectValue: "Artifact:map-tiles",
			ModelConf: 0.92,
			Evidence: []evidence{{
				URIOrBlobRef: "run://demo/outputs",
				SourceType:   "run_artifact", QualityScore: 0.85,
			}},
			Provenance: map[string]any{"who": "seed", "when": now, "run_id": "demo"},
		},
		// Predicate outside the auto-merge set: parked for review.
		{
			SubjectID: "Model:v2", Predicate: "VERSION_OF", ObjectKind: "entity", ObjectValue: "Model:base",
			ModelConf: 0.95,
			Evidence: []evidence{{
				URIOrBlobRef: "config://models/v2.yaml",
				SourceType:   "config", QualityScore: 0.9,
			}},
		},
		// Conflicts with the USES->Model:v2 edge created above: review.
		{
			SubjectID: "Run:demo", Predicate: "USES", ObjectKind: "entity", ObjectValue: "Model:v3",
			ModelConf: 0.9,
			Evidence: []evidence{{
				URIOrBlobRef: "log://run/demo",
				SourceType:   "first_party_log", QualityScore: 0.95,
			}},
		},
		// Web-sourced evidence misses the first-party bonus and the bar: review.
		{
			SubjectID: "Incident:742", Predicate: "FIXED_BY", ObjectKind: "entity", ObjectValue: "Commit:8c1d2aa",
			ModelConf: 0.6,
			Evidence: []evidence{{
				URIOrBlobRef: "https://tracker.example/incident/742",
				SourceType:   "web", QualityScore: 0.5,
			}},
		},
		// Literal object: additive note, never auto-merged.
		{
			SubjectID: "Run:demo", Predicate: "MENTIONS", ObjectKind: "literal", ObjectValue: "calibration drift at frame 2310",
			ModelConf: 0.7,
			Evidence: []evidence{{
				URIOrBlobRef: "log://run/demo",
				SourceType:   "first_party_log", QualityScore: 0.8,
			}},
		},
	}

	for _, p := range seeds {
		resp := post("/propose_claim", p)
		var out struct {
			Decision string  `json:"decision"`
			Trust    float64 `json:"trust"`
		}
		if err := json.Unmarshal(resp, &out); err != nil {
			log.Fatalf("Failed to decode response: %v", err)
		}
		fmt.Printf("%-12s %-10s %-32s -> %s (trust %.2f)\n",
			p.SubjectID, p.Predicate, p.ObjectValue, out.Decision, out.Trust)
	}

	fmt.Println("\n=== Seed Complete ===")
	fmt.Println("\nExplore the graph:")
	fmt.Printf("curl -X POST %s/neighbors -H 'X-API-Key: %s' -d '{\"id\":\"Run:demo\",\"depth\":1}'\n", gateway, apiKey)
	fmt.Println("\nAsk the agent:")
	fmt.Printf("curl -X POST %s/query -H 'X-API-Key: %s' -d '{\"question\":\"List neighbors of Entity `Run:demo` depth 1.\"}'\n", gateway, apiKey)
	fmt.Println("\nReview pending claims:")
	fmt.Printf("curl -X POST %s/cypher -H 'X-API-Key: %s' -d '{\"query\":\"MATCH (c:Claim {status:\\\"pending\\\"}) RETURN c\"}'\n", gateway, apiKey)
}

func post(path string, body any) []byte {
	buf, err := json.Marshal(body)
	if err != nil {
		log.Fatalf("Failed to encode request: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, gateway+path, bytes.NewReader(buf))
	if err != nil {
		log.Fatalf("Failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	return do(req)
}

func get(path string) []byte {
	req, err := http.NewRequest(http.MethodGet, gateway+path, nil)
	if err != nil {
		log.Fatalf("Failed to build request: %v", err)
	}
	return do(req)
}

func do(req *http.Request) []byte {
	resp, err := client.Do(req)
	if err != nil {
		log.Fatalf("Request to %s failed: %v", req.URL.Path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Fatalf("Failed to read response: %v", err)
	}
	if resp.StatusCode >= 400 {
		log.Fatalf("%s returned %d: %s", req.URL.Path, resp.StatusCode, data)
	}
	return data
}
