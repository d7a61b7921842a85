package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryStopsAfterMaxAttempts(t *testing.T) {
	p := RetryPolicy{
		MaxAttempts:  3,
		InitialDelay: 10 * time.Millisecond,
		Multiplier:   2,
		Retryable:    IsRateLimited,
	}
	var delays []time.Duration
	p.OnRetry = func(_ int, d time.Duration, _ error) { delays = append(delays, d) }

	calls := 0
	start := time.Now()
	_, err := Retry(context.Background(), p, func(context.Context, int) (string, error) {
		calls++
		return "", &StatusError{Code: 429}
	})
	require.Error(t, err)
	assert.True(t, IsRateLimited(err))
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}, delays)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestRetryDoesNotRetryTerminalErrors(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), DefaultRetryPolicy(), func(context.Context, int) (int, error) {
		calls++
		return 0, &StatusError{Code: 500}
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.False(t, IsRateLimited(err))
}

func TestRetrySucceedsOnLaterAttempt(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 3, InitialDelay: time.Millisecond, Retryable: IsRateLimited}
	v, err := Retry(context.Background(), p, func(_ context.Context, attempt int) (int, error) {
		if attempt < 2 {
			return 0, &StatusError{Code: 429}
		}
		return attempt, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestRetryHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := RetryPolicy{MaxAttempts: 5, InitialDelay: time.Hour, Retryable: IsRateLimited}
	p.OnRetry = func(int, time.Duration, error) { cancel() }

	calls := 0
	_, err := Retry(ctx, p, func(context.Context, int) (int, error) {
		calls++
		return 0, &StatusError{Code: 429}
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestKindOf(t *testing.T) {
	err := &AIError{Kind: KindRateLimited, Op: "classify", Message: RateLimitMessage}
	assert.Equal(t, KindRateLimited, KindOf(err))
	assert.Equal(t, KindRateLimited, KindOf(errors.Join(errors.New("x"), err)))
	assert.Equal(t, KindTerminal, KindOf(errors.New("boom")))
}

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
		ok      bool
	}{
		{"bare object", `{"a":1}`, `{"a":1}`, true},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`, true},
		{"prose around", "Here you go: {\"a\":{\"b\":2}} thanks", `{"a":{"b":2}}`, true},
		{"trailing brace in prose", `{"a":"}"} and then }`, `{"a":"}"}`, true},
		{"no object", "UNKNOWN", "", false},
		{"broken", `{"a":`, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractJSONObject(tt.content)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.JSONEq(t, tt.want, string(got))
			}
		})
	}
}

func TestCheckTargetJSONSanitizesDeed(t *testing.T) {
	raw := []byte(`{
		"dateOfExecution": "N/A",
		"partners": [
			{"name": " RAMESH KUMAR ", "profitPercentage": "60%", "lossPercentage": 40},
			{"name": "", "profitPercentage": 10},
			{"name": "SUNITA DEVI", "profitPercentage": "see clause 7", "lossPercentage": null}
		],
		"notes": "extra"
	}`)
	out, err := CheckTargetJSON(PartnershipDeedTarget{}, raw, nil)
	require.NoError(t, err)

	data, err := PartnershipDeedTarget{}.Decode(out)
	require.NoError(t, err)
	d := data.(*PartnershipDeedData)
	assert.Nil(t, d.DateOfExecution)
	require.Len(t, d.Partners, 2)
	assert.Equal(t, "RAMESH KUMAR", d.Partners[0].Name)
	require.NotNil(t, d.Partners[0].ProfitPercentage)
	assert.Equal(t, 60.0, *d.Partners[0].ProfitPercentage)
	assert.Equal(t, 40.0, *d.Partners[0].LossPercentage)
	assert.Nil(t, d.Partners[1].ProfitPercentage)
	assert.True(t, PartnershipDeedTarget{}.Usable(d))
}

func TestCheckTargetJSONValidPassesThrough(t *testing.T) {
	raw := []byte(`{"bankName":"STATE BANK OF INDIA","accountHolder":null,"accountNumber":"1234","periodFrom":null,"periodTo":null}`)
	out, err := CheckTargetJSON(BankStatementTarget{}, raw, nil)
	require.NoError(t, err)
	assert.Equal(t, raw, out)
}

func TestSanitizeBank(t *testing.T) {
	out, changed, err := SanitizeTargetJSON(TargetBankStatement, []byte(`{"bankName":"N/A","accountNumber":123456789,"periodTo":"31/03/2024"}`))
	require.NoError(t, err)
	assert.NotEmpty(t, changed)

	var m map[string]any
	require.NoError(t, json.Unmarshal(out, &m))
	assert.Nil(t, m["bankName"])
	assert.Equal(t, "123456789", m["accountNumber"])
	assert.Equal(t, "31/03/2024", m["periodTo"])

	data, err := BankStatementTarget{}.Decode(out)
	require.NoError(t, err)
	assert.True(t, BankStatementTarget{}.Usable(data))
	assert.False(t, BankStatementTarget{}.Usable(&BankStatementData{}))
}

func TestTargetFor(t *testing.T) {
	tg, err := TargetFor(TargetBankStatement)
	require.NoError(t, err)
	assert.Equal(t, TargetBankStatement, tg.Kind())

	_, err = TargetFor("receipt")
	assert.Error(t, err)
}

func TestImageMimeType(t *testing.T) {
	assert.Equal(t, "image/png", ImageMimeType("scan.PNG"))
	assert.Equal(t, "image/jpeg", ImageMimeType("scan.jpg"))
	assert.Equal(t, "image/jpeg", ImageMimeType("scan.jpeg"))
}

func TestClassificationPromptListsCandidates(t *testing.T) {
	p := ClassificationPrompt("pan.pdf", "INCOME TAX DEPARTMENT", []string{"PAN Card of Ravi", "Aadhar Card of Ravi"})
	assert.Contains(t, p, "1. PAN Card of Ravi")
	assert.Contains(t, p, "2. Aadhar Card of Ravi")
	assert.Contains(t, p, "Filename: pan.pdf")
	assert.Contains(t, p, "UNKNOWN")
}

func TestExcerptKeepsRunesWhole(t *testing.T) {
	s := "ab€cd" // € is three bytes
	assert.Equal(t, "ab", excerpt(s, 3))
	assert.Equal(t, s, excerpt(s, 100))
}
