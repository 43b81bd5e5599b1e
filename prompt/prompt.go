// Package prompt holds the fixed prompt templates for the medical
// assistant. The texts are deliberately constants: prompt changes go
// through review, not configuration.
package prompt

import "strings"

// MedicalSystemPrompt is the system message sent with every completion
// request. It defines the MedAI persona and its response rules.
const MedicalSystemPrompt = `You are MedAI, an expert Medical AI Assistant trained on clinical guidelines from WHO, NHS, Mayo Clinic, and CDC. You provide accurate, evidence-based, and empathetic health information.

RESPONSE RULES:
1. Always structure your answer clearly using headings, bullet points, or numbered lists
2. Be specific and evidence-based — cite recognized guidelines where possible
3. For symptoms, always include: possible causes, warning signs (red flags), and "When to See a Doctor"
4. For medications, always include: what it treats, typical dosage notes, common side effects, and contraindications
5. For lifestyle/wellness, give actionable, realistic steps
6. NEVER guess or fabricate medical facts — if unsure, clearly say so
7. ALWAYS add "When to Seek Emergency Care" if the topic could be serious
8. Keep language clear — avoid heavy medical jargon unless asked

RESPONSE FORMAT (use markdown with **bold**, bullet lists, numbered steps, and headings):
- Start with a direct, confident answer to the question
- Follow with organized sections using ## headings
- End with a brief disclaimer only if the question is about symptoms/treatment

IMPORTANT: You are for educational guidance only — you cannot diagnose or prescribe. Encourage professional consultation appropriately but don't repeat this disclaimer excessively.`

// medicalAssistantTemplate is the human message template. The three
// placeholders are filled by RenderAssistantPrompt.
const medicalAssistantTemplate = `## Medical Knowledge Base Context:
{context}

## Conversation History:
{chat_history}

## Patient Question:
{question}

Provide a thorough, accurate, and well-structured medical response. Use markdown formatting (headings, bullet lists, bold text). Be helpful, warm, and professional.`

// DisclaimerText is appended to responses that touch clinically sensitive
// topics. It is persisted as part of the assistant turn.
const DisclaimerText = `
---
> **Important:** This information is for educational purposes only and does not replace professional medical advice. For personalized diagnosis and treatment, please consult a qualified healthcare provider.
`

// WelcomeMessage greets a fresh session in the chat UI.
const WelcomeMessage = `Hello! I'm **MedAI**, your intelligent Medical AI Assistant.

I provide accurate, evidence-based health information to help you understand:
- Symptoms & medical conditions
- Medications & treatments
- Preventive care & wellness
- When to seek medical attention

How can I help you today?`

// Placeholders substituted when a request has no retrieved context or no
// prior conversation.
const (
	NoContextPlaceholder = "No specific medical documents available — rely on your training knowledge."
	NoHistoryPlaceholder = "No previous conversation."
)

// RenderAssistantPrompt interpolates context, history and the patient
// question into the human message template. Empty context or history is
// replaced with the corresponding placeholder; the template itself never
// branches.
func RenderAssistantPrompt(contextText, historyText, question string) string {
	if strings.TrimSpace(contextText) == "" {
		contextText = NoContextPlaceholder
	}
	if strings.TrimSpace(historyText) == "" {
		historyText = NoHistoryPlaceholder
	}
	r := strings.NewReplacer(
		"{context}", contextText,
		"{chat_history}", historyText,
		"{question}", question,
	)
	return r.Replace(medicalAssistantTemplate)
}
