package catalog

var stringFields = []string{"title", "description", "thumbnail", "code"}

// Validate checks a new record against the required-field and type
// contract. Every check runs; all findings come back in one
// *ValidationError. A missing field is reported once, as missing.
func Validate(p Product) error {
	var findings []Finding
	for _, f := range RequiredFields {
		if _, ok := p[f]; !ok {
			findings = append(findings, Finding{Field: f, Problem: "missing"})
		}
	}
	findings = append(findings, checkFields(p)...)

	if len(findings) == 0 {
		return nil
	}
	return &ValidationError{Findings: findings}
}

// ValidatePatch runs the type and range checks for the keys present in a
// partial record.
func ValidatePatch(p Product) error {
	if findings := checkFields(p); len(findings) > 0 {
		return &ValidationError{Findings: findings}
	}
	return nil
}

func checkFields(p Product) []Finding {
	var findings []Finding

	for _, f := range stringFields {
		v, ok := p[f]
		if !ok {
			continue
		}
		if _, isString := v.(string); !isString {
			findings = append(findings, Finding{Field: f, Problem: "must be a string"})
		}
	}

	if v, ok := p["price"]; ok {
		switch n, isNum := toFloat64(v); {
		case !isNum:
			findings = append(findings, Finding{Field: "price", Problem: "must be a number"})
		case n <= 0:
			findings = append(findings, Finding{Field: "price", Problem: "must be greater than 0"})
		}
	}

	if v, ok := p["stock"]; ok {
		switch n, isNum := toFloat64(v); {
		case !isNum:
			findings = append(findings, Finding{Field: "stock", Problem: "must be a number"})
		case n < 0:
			findings = append(findings, Finding{Field: "stock", Problem: "must not be negative"})
		}
	}

	return findings
}
