package comparison

import "fmt"

const sectionSystemInstruction = "You compare research paper sections. Respond with strict JSON only."

func sectionPrompt(sectionName string, docA, docB DocInfo, textA, textB string) string {
	return fmt.Sprintf(`Compare the %s sections of two research papers. Summarize each paper's section in 3-4 sentences and highlight similarities and differences.

Return JSON with this structure (no markdown, no commentary):
{
  "paper_a_summary": "...",
  "paper_b_summary": "...",
  "similarities": "...",
  "differences": "...",
  "notes": "..."
}

Paper A: %s (ID: %s)
Section content:
<<<
%s
>>>

Paper B: %s (ID: %s)
Section content:
<<<
%s
>>>
`,
		sectionName,
		docA.Title, docA.DocID, orNotAvailable(textA),
		docB.Title, docB.DocID, orNotAvailable(textB),
	)
}

func overallSummaryPrompt(docA, docB DocInfo, textA, textB string) string {
	return fmt.Sprintf(`Provide an overall comparative summary of two research papers.
Summarize the main goals, core approaches, and headline results, and highlight the most important similarities and differences.

Paper A (%s):
%s

Paper B (%s):
%s

Respond with 2-3 concise paragraphs.
`,
		docA.Title, textA,
		docB.Title, textB,
	)
}

func orNotAvailable(text string) string {
	if text == "" {
		return "Not available."
	}
	return text
}
