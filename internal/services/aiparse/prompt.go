package aiparse

import (
	"fmt"
	"strings"
)

// SystemPrompt instructs the model to extract personalization details as
// strict JSON.
const SystemPrompt = "You are a focused assistant that extracts personalization details from e-commerce orders. " +
	"Respond only with valid JSON matching this schema: " +
	`{"names": ["Name"], "year": "2025", "requestedProof": false, "needsManualReview": false, "keepOrder": false, "notes": ""}. ` +
	"Set keepOrder when the customer indicates the order must stay open across partial shipments. " +
	"A proof is requested only when the customer explicitly asks to see a preview. " +
	"Flag manual review when instructions are unclear, conflicting, or request something outside the standard personalization " +
	"(e.g., custom graphics, icons like paw prints, special fonts, or additional decorations). " +
	"If the customer specifies a name order (for example top-to-bottom, bottom-to-top, placing a name last, etc.), " +
	"keep the names in that requested order instead of flagging manual review. " +
	"Names must be a clean list of individual names. " +
	"Use the provided default year unless the customer clearly requests a different year."

func buildUserPrompt(request Request, defaultYear string) string {
	var sections []string

	personalization := strings.TrimSpace(request.Personalization)
	if personalization == "" {
		personalization = "<none provided>"
	}
	sections = append(sections, "Personalization Input: "+personalization)

	if note := strings.TrimSpace(request.BuyerNote); note != "" {
		sections = append(sections, "Buyer Note: "+note)
	}

	sections = append(sections, fmt.Sprintf("Default Year: %s", defaultYear))
	return strings.Join(sections, "\n")
}
