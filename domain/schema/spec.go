package schema

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// blockReference documents the content-block variants a frontend must be
// able to render. Kept as a fixed literal so the spec document stays
// deterministic across renders.
const blockReference = `CONTENT BLOCK REFERENCE
-----------------------
Pages built against this schema are composed of blocks. Supported types:

  text     { type: "text", content: string }
  heading  { type: "heading", content: string, level?: 1-6 }
  image    { type: "image", src: string, alt?: string, caption?: string }
  quote    { type: "quote", content: string, attribution?: string }
  list     { type: "list", items: string[], ordered?: boolean }
  video    { type: "video", src: string, caption?: string }

Fields marked with ? are optional; all others are required.`

// RenderSpec produces the deterministic, human- and LLM-readable plaintext
// spec document for a schema. pageCount is the number of pages referencing
// the schema; baseURL is the externally visible origin used in the worked
// claim example.
// This is a PURE function.
func RenderSpec(s Schema, pageCount int, baseURL string) string {
	var b strings.Builder

	banner := strings.Repeat("=", 64)
	fmt.Fprintf(&b, "%s\nCONTENT SCHEMA SPEC: %s\n%s\n\n", banner, s.Name, banner)

	fmt.Fprintf(&b, "Name:        %s\n", s.Name)
	fmt.Fprintf(&b, "Slug:        %s\n", s.Slug)
	fmt.Fprintf(&b, "Status:      %s\n", s.RegistrationStatus)
	fmt.Fprintf(&b, "Default:     %t\n", s.IsDefault)
	fmt.Fprintf(&b, "Pages:       %d\n", pageCount)
	fmt.Fprintf(&b, "Created:     %s\n", s.CreatedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "Updated:     %s\n", s.UpdatedAt.UTC().Format(time.RFC3339))
	if s.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", s.Description)
	}
	b.WriteString("\n")

	b.WriteString("SCHEMA DEFINITION\n-----------------\n")
	b.WriteString(indentedJSON(s.Definition))
	b.WriteString("\n\n")

	b.WriteString(blockReference)
	b.WriteString("\n\n")

	if s.LLMInstructions != "" {
		b.WriteString("INSTRUCTIONS FOR AGENTS\n-----------------------\n")
		b.WriteString(s.LLMInstructions)
		b.WriteString("\n\n")
	}

	switch s.RegistrationStatus {
	case StatusRegistered:
		b.WriteString("FRONTEND BINDING\n----------------\n")
		fmt.Fprintf(&b, "Frontend URL:   %s\n", s.FrontendURL)
		if s.RevalidationEndpoint != "" {
			fmt.Fprintf(&b, "Revalidation:   %s\n", s.RevalidationEndpoint)
		}
		fmt.Fprintf(&b, "Slug structure: %s\n", s.SlugStructure)
	case StatusWaiting:
		b.WriteString("REGISTRATION\n------------\n")
		fmt.Fprintf(&b, "This schema is awaiting registration. Claim it with code: %s\n\n", s.RegistrationCode)
		fmt.Fprintf(&b, "Example claim request:\n\n")
		fmt.Fprintf(&b, "  POST %s/api/schemas/%s/register\n", baseURL, s.Slug)
		fmt.Fprintf(&b, "  Content-Type: application/json\n\n")
		fmt.Fprintf(&b, "  {\n")
		fmt.Fprintf(&b, "    \"code\": %q,\n", s.RegistrationCode)
		fmt.Fprintf(&b, "    \"frontend_url\": \"https://your-site.example\",\n")
		fmt.Fprintf(&b, "    \"revalidation_endpoint\": \"/api/revalidate\",\n")
		fmt.Fprintf(&b, "    \"revalidation_secret\": \"optional-shared-secret\",\n")
		fmt.Fprintf(&b, "    \"slug_structure\": \"/:slug\"\n")
		fmt.Fprintf(&b, "  }\n")
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

// indentedJSON renders an opaque definition as two-space indented JSON.
// Invalid or empty definitions render as an empty object rather than
// failing the whole document.
func indentedJSON(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "{}"
	}
	var buf strings.Builder
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return "{}"
	}
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "{}"
	}
	return strings.TrimRight(buf.String(), "\n")
}
