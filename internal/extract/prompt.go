package extract

import "fmt"

// promptTemplate describes the recognized referral formats and the exact
// output schema. The thread summary and thread id are interpolated.
const promptTemplate = `
Extract CLIENT information from this agent referral email.

RECOGNIZED AGENT FORMATS (7 total):

**Daniel Berman (danielberman.ushealth@gmail.com):**
- "Monthly Premium: $XXX.XX", app number, email, phone

**Jordan Gassner (jordang.ushealth@gmail.com):**
- Subject "ACA Signup", simple format with income

**Richard Odle (richardodle.ushealth@gmail.com):**
- Subject "[Name] ACA", informal notes

**Carlos Varona (carlosvarona.ushealth@gmail.com):**
- Demographics format, "Premium: $XX"

**Miguel Garcia (miguelgarcia.unitedhealth@gmail.com):**
- Subject "[Name] - ACA wrap", multiple phones, dual premiums

**Charlie Rios (charlie.ushealth@gmail.com):**
- Subject "[Name] (Phone)", APPLICATION SUMMARY

**Nick Salamanca (nick.unitedhealth@gmail.com):**
- "Quoted on [Plan] for $X/month. Total quoted monthly was $XX.XX"

EXTRACT PRIMARY CLIENT DATA:
1. client_name: Full name (NOT agent/spouse unless primary)
2. client_phone: Phone (xxx-xxx-xxxx format)
3. client_email: Email if present
4. monthly_premium: Total recurring monthly cost
5. aca_premium: ACA marketplace premium if mentioned
6. annual_income: Income (convert "20k" to 20000)
7. referring_agent: Agent name (Daniel Berman, Jordan Gassner, etc.)
8. application_number: App/control number if present
9. policy_numbers: Array of policy numbers if present
10. household_size: Number in household
11. zip_code: Zip code if mentioned
12. date_of_birth: Client DOB if mentioned (YYYY-MM-DD format)
13. dependents: Spouse/children info if mentioned
14. contact_notes: Any special contact instructions

CRITICAL RULES:
- NEVER extract Christopher Shannahan, Tanya Centore, Sevy as client
- NEVER extract @cjsinsurancesolutions.com or @tdcempoweredhealth.com as client email
- If client_email matches any agent email exactly, set to null
- Agent is the SENDER, not the client
- For families, extract PRIMARY applicant (usually first mentioned adult)

EMAIL THREAD:
%s

Return ONLY valid JSON:
{
  "client_name": "",
  "client_phone": "",
  "client_email": null,
  "monthly_premium": null,
  "aca_premium": null,
  "annual_income": null,
  "referring_agent": "",
  "application_number": null,
  "policy_numbers": null,
  "household_size": null,
  "zip_code": null,
  "date_of_birth": null,
  "dependents": null,
  "contact_notes": null,
  "thread_id": "%s",
  "confidence": "high|medium|low"
}

Use null for missing fields.
`

func buildPrompt(threadSummary, threadID string) string {
	return fmt.Sprintf(promptTemplate, threadSummary, threadID)
}
