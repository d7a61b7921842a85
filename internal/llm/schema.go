package llm

func nullable(t string) map[string]any {
	return map[string]any{"type": []any{t, "null"}}
}

func partnershipDeedSchema() map[string]any {
	return map[string]any{
		"$schema":              "https://json-schema.org/draft/2020-12/schema",
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"dateOfExecution": nullable("string"),
			"partners": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"properties": map[string]any{
						"name":             map[string]any{"type": "string", "minLength": 1},
						"profitPercentage": map[string]any{"type": []any{"number", "null"}, "minimum": 0, "maximum": 100},
						"lossPercentage":   map[string]any{"type": []any{"number", "null"}, "minimum": 0, "maximum": 100},
					},
					"required": []any{"name"},
				},
			},
		},
		"required": []any{"partners"},
	}
}

func bankStatementSchema() map[string]any {
	return map[string]any{
		"$schema":              "https://json-schema.org/draft/2020-12/schema",
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"bankName":      nullable("string"),
			"accountHolder": nullable("string"),
			"accountNumber": nullable("string"),
			"periodFrom":    nullable("string"),
			"periodTo":      nullable("string"),
		},
	}
}
