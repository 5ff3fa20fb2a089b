package contact

import "fmt"

const parsePrompt = `You extract contact details from web text.

Target persona: %s

Text (%s):
"""
%s
"""

Find email addresses of real individual people in the text who match the target persona.
Only include genuine personal addresses. Exclude role-based or shared inboxes such as info@, sales@, support@, hello@, contact@, admin@ or noreply@.
Do not invent addresses that do not appear in the text.

Respond with only a JSON object in this exact shape:
{"emails": [{"email": "", "name": "", "company": "", "title": "", "source": ""}]}

Use an empty string for any field you cannot determine. If no address qualifies, respond with {"emails": []}.`

func buildPrompt(persona string, origin Origin, text string) string {
	label := "search result snippets"
	if origin == OriginPage {
		label = "web page content"
	}
	return fmt.Sprintf(parsePrompt, persona, label, text)
}
