package descriptions

import "sort"

// Tool descriptions with practical examples and use cases

const (
	// Page Scanning Tools
	FormScanHTMLDescription = `List the form controls of an HTML page and the field type of each one.

**When to use:** You have the markup of a page (pasted, or saved under the server directory) and want to know which fields it asks for before extracting anything.

**Why it's useful:** Every control comes back with the label text found around it, its current value and state, an XPath to address it, and a canonical type such as name, phone or idcard.

**Examples:**
• Inspect a signup page: "Which fields does signup.html ask for?"
• Check a saved page: "Scan forms/order.htm and tell me which fields are required"

**Common workflows:**
1. Scan → review classified fields → form_extract with the same page
2. Scan → form_fill_plan with explicit data

**Best practices:** Give either html or path. Markup has no layout, so visibility is decided from inline styles and the hidden attribute only.`

	FormScanSnapshotDescription = `List the form controls of a page captured as a JSON snapshot.

**When to use:** A browser or crawler already captured the page with layout (bounding boxes, computed styles) and you want visibility decided from real geometry.

**Examples:**
• "Scan the snapshot in captures/checkout.json"
• "Here is a page snapshot, which of its inputs are visible?"

**Common workflows:**
1. Capture page → form_scan_snapshot → form_extract with the same snapshot

**Best practices:** The snapshot format is {url, title, root} where every node has tag, attrs, children, style, rect and the control state. Files must end in .json.`

	FormScanURLDescription = `Open a live page in a headless browser and list its form controls.

**When to use:** The form is behind a URL and you want to see it as rendered, including controls created by scripts.

**Examples:**
• "What does https://example.com/apply ask for?"
• Rescan a page after it changed: "Scan the registration page again"

**Common workflows:**
1. form_scan_url → form_fill_url with dry_run → form_fill_url

**Best practices:** Only available when the server was started with --browser. Each call opens a fresh tab, so calling it again is the way to rescan.`

	// Extraction Tools
	FormExtractDescription = `Extract field values from free text for a page, or for a list of labels.

**When to use:** You have text such as an email signature, an ID card transcript or a chat message, and a form that should be filled from it.

**Why it's useful:** Values are keyed by the page's own labels, so they can be written straight back. Phone numbers, ID numbers, emails and dates are normalised to their usual shapes.

**Examples:**
• "Fill signup.html from: 姓名：张三，手机：138 1234 5678"
• "Pull 联系人 and 联系电话 out of this paragraph" (labels only, no page)

**Common workflows:**
1. form_extract → form_fill_plan with the returned data
2. session_login → form_extract with use_remote

**Best practices:** With use_remote the remote extraction service is used when it is configured; it needs a login and falls back to local rules on any failure. Failures come back as {success:false, code, reason}.`

	FormExtractGenericDescription = `Extract canonical values (name, phone, email, address, idcard and more) from free text.

**When to use:** There is no form yet and you just want structured contact details out of text.

**Examples:**
• "Get the contact details from this business card text"
• "What phone number and email are in this message?"

**Best practices:** Keys are canonical type names. Use form_extract when you have a page so keys follow its labels.`

	FormExtractFieldDescription = `Extract the value for a single form control.

**When to use:** One field is left over after a page extraction, or you want a value for a control described by its label text.

**Examples:**
• "What should go into the #mobile field, given this text?"
• "Extract the value for a field labelled 紧急联系人电话"

**Best practices:** Pick the control from a page with selector (XPath, id or name), or describe it with evidence (text before it) and after (text following it).`

	// Fill Tools
	FormFillPlanDescription = `Plan how extracted values would be written into a page's controls.

**When to use:** You have values (extracted or given as data) and want the exact set of writes for each control without touching a browser.

**Examples:**
• "Plan filling order.html from this address text"
• "Plan filling signup.html with {name: 张三, phone: 13812345678}"
• Log-in pages: "Plan filling login.html as alice" (username and password instead of text)

**Common workflows:**
1. form_extract → form_fill_plan with data → apply the actions yourself

**Best practices:** Controls that already hold a value are skipped. Each value fills one control only. Dates are written as YYYY-MM-DD.`

	FormFillURLDescription = `Fill a live page from free text.

**When to use:** You want the form at a URL filled in, not just planned.

**Examples:**
• "Fill https://example.com/register from my profile text"
• "Show what would be filled on the page first" (dry_run)

**Best practices:** Requires --browser. Use dry_run to review the plan. The page is not submitted.`

	// PDF Tools
	PDFFormFieldsDescription = `List the AcroForm fields of a fillable PDF and classify them.

**When to use:** You have a PDF form and want to know which of its fields are names, phone numbers and so on.

**Examples:**
• "Which fields does application.pdf have?"

**Best practices:** Paths are resolved inside the server directory. Push buttons are not listed. Scanned PDFs without a form layer have no fields.`

	PDFExtractDescription = `Extract values for the fields of a PDF form.

**When to use:** A PDF form should be completed from some text, or from the text printed on the PDF itself.

**Examples:**
• "Extract the applicant details for application.pdf from this email"
• "Extract values for invoice.pdf from its own text"

**Best practices:** Without text the PDF's text layer is read, which is empty for scanned documents.`

	// Session Tools
	SessionLoginDescription = `Log in so remote extraction can be used.

**When to use:** Before any call with use_remote when a remote extraction service is configured.

**Best practices:** The password is never stored. The session expires after the configured TTL.`

	SessionLogoutDescription = `Log out and forget the last extraction result.`

	SessionStatusDescription = `Report whether someone is logged in, who, and when the session expires.`

	FormLastResultDescription = `Return the last successful extraction, with its text, values and source.

**When to use:** Reuse values from a previous extraction without sending the text again.`

	ServerInfoDescription = `Get server information, enabled features, known field types and the tool list.

**When to use:** At the start of a session, to learn whether live pages and remote extraction are available.`
)

// ToolDescriptions maps tool names to their descriptions
var ToolDescriptions = map[string]string{
	"form_scan_html":       FormScanHTMLDescription,
	"form_scan_snapshot":   FormScanSnapshotDescription,
	"form_scan_url":        FormScanURLDescription,
	"form_extract":         FormExtractDescription,
	"form_extract_generic": FormExtractGenericDescription,
	"form_extract_field":   FormExtractFieldDescription,
	"form_fill_plan":       FormFillPlanDescription,
	"form_fill_url":        FormFillURLDescription,
	"pdf_form_fields":      PDFFormFieldsDescription,
	"pdf_extract":          PDFExtractDescription,
	"session_login":        SessionLoginDescription,
	"session_logout":       SessionLogoutDescription,
	"session_status":       SessionStatusDescription,
	"form_last_result":     FormLastResultDescription,
	"server_info":          ServerInfoDescription,
}

// GetToolDescription returns the description for a tool
func GetToolDescription(toolName string) string {
	if desc, exists := ToolDescriptions[toolName]; exists {
		return desc
	}
	return "Tool description not available"
}

// GetAllToolNames returns the names of all tools, sorted
func GetAllToolNames() []string {
	names := make([]string, 0, len(ToolDescriptions))
	for name := range ToolDescriptions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Summary returns the first line of a tool's description.
func Summary(toolName string) string {
	desc := GetToolDescription(toolName)
	for i, r := range desc {
		if r == '\n' {
			return desc[:i]
		}
	}
	return desc
}
