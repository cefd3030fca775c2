package pipeline

import (
	"fmt"
	"strings"
)

// ─── Stage Prompts ──────────────────────────────────────────────────────────
// System prompts and user-prompt builders for each generation stage.

const publicRemarksSystem = `You are an expert real estate copywriter who creates compelling MLS listing descriptions. You excel at highlighting what makes each property unique, writing professional yet warm copy, and staying strictly within Fair Housing guidelines: never reference protected classes, never describe the buyer — only the property.`

const featuresSystem = `You are a real estate data specialist who excels at identifying and categorizing property features. You provide accurate, comprehensive feature lists compatible with MLS systems, always grouping features logically. Respond with a JSON array of {"category": string, "features": [string]} objects and nothing else.`

const mlsDataSystem = `You are an MLS data specialist who creates RESO Data Dictionary compliant property data. You understand RESO standards and produce accurate, complete listings that integrate seamlessly with MLS systems. Respond with a single JSON object and nothing else.`

const photoCategorizationSystem = `You are a real estate photo analyst. Categorize each property photo (kitchen, bathroom, bedroom, living area, exterior, yard, garage, view, other) and note standout details. Respond with a JSON array of {"index": number, "category": string, "notes": string} objects and nothing else.`

// buildContext renders the shared property context block used by every stage.
func buildContext(req Request) string {
	var sb strings.Builder
	if req.PropertyDetails != "" {
		sb.WriteString("PROPERTY DETAILS:\n")
		sb.WriteString(req.PropertyDetails)
		sb.WriteString("\n\n")
	}
	if req.Notes != "" {
		sb.WriteString("AGENT NOTES:\n")
		sb.WriteString(req.Notes)
		sb.WriteString("\n\n")
	}
	if n := len(req.PhotoURLs); n > 0 {
		fmt.Fprintf(&sb, "%d property photos are attached.\n\n", n)
	}
	return sb.String()
}

func publicRemarksPrompt(req Request) string {
	maxWords := req.MaxWords
	if maxWords <= 0 {
		maxWords = 250
	}
	return buildContext(req) + fmt.Sprintf(
		"Analyze the property and create a compelling MLS listing description "+
			"(public remarks). Third-person language only — never \"you\", \"your\", "+
			"\"welcome\", or \"step inside\". Maximum %d words. Output only the "+
			"description, no headers or meta-commentary.", maxWords)
}

func featuresPrompt(req Request) string {
	return buildContext(req) +
		"Analyze the property information and photos to create a comprehensive, " +
		"MLS-compatible features list grouped by category."
}

func mlsDataPrompt(req Request) string {
	return buildContext(req) +
		"Generate a RESO Data Dictionary compliant JSON object for this property " +
		"listing. Include every field that can be determined from the provided " +
		"information; omit fields you cannot determine rather than guessing."
}

func photoCategorizationPrompt(req Request) string {
	return buildContext(req) +
		"Categorize each attached photo by room or area, in order."
}
