package pipeline

import "github.com/ppiankov/yojana/internal/model"

// SampleSchemes returns built-in scheme descriptions used by the demo
// program and tests
func SampleSchemes() []model.RawDocument {
	return []model.RawDocument{
		{
			SchemeID:  "young-farmers-support",
			SourceURL: "https://raitamitra.karnataka.gov.in/schemes/young-farmers-support",
			Title:     "Young Farmers Support Scheme",
			Format:    model.FormatMarkdown,
			Content: `# Young Farmers Support Scheme

Support for young people taking up agriculture.

## Eligibility

- Farmers aged between 18 and 35 years
- Annual family income below Rs. 5 lakh
- Resident of Karnataka

## Benefits

A one-time grant for seeds and equipment.
`,
		},
		{
			SchemeID:  "senior-citizens-health-aid",
			SourceURL: "https://sjsa.maharashtra.gov.in/schemes/senior-citizens-health-aid",
			Title:     "Senior Citizens Health Aid",
			Format:    model.FormatHTML,
			Content: `<html><head><title>Senior Citizens Health Aid</title></head><body>
<h1>Senior Citizens Health Aid</h1>
<h2>Who can apply</h2>
<p>Senior citizens with an annual income below Rs. 4 lakh.</p>
<p>The applicant must be a resident of Maharashtra.</p>
<h2>Documents</h2>
<p>Age proof and income certificate.</p>
</body></html>`,
		},
		{
			SchemeID:  "women-entrepreneur-grant",
			SourceURL: "https://www.myscheme.gov.in/schemes/women-entrepreneur-grant",
			Title:     "Women Entrepreneur Grant",
			Format:    model.FormatText,
			Content: "Grant for women entrepreneurs starting a small business. " +
				"Applicants must have a household income below Rs. 8 lakh per year.",
		},
		{
			SchemeID:  "farmer-income-support",
			SourceURL: "https://www.myscheme.gov.in/schemes/farmer-income-support",
			Title:     "Farmer Income Support",
			Format:    model.FormatMarkdown,
			Content: `## Eligibility Criteria

All landholding farmer families are eligible. Income tax payers and government employees are not eligible.
`,
		},
	}
}

// SampleProfile is an applicant used to demonstrate matching
func SampleProfile() model.UserProfile {
	return model.UserProfile{
		model.FieldAge:        28,
		model.FieldIncome:     "3,00,000",
		model.FieldState:      "Karnataka",
		model.FieldOccupation: "farmer",
		model.FieldGender:     "male",
	}
}
