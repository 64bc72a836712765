package dashboard

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfidencePercent(t *testing.T) {
	assertKnown(t, "82", ConfidencePercent(known(decimal.RequireFromString("0.82"))))
	assertKnown(t, "100", ConfidencePercent(known(decimal.NewFromInt(1))))
	assertKnown(t, "75", ConfidencePercent(known(decimal.NewFromInt(75))))
	assert.False(t, ConfidencePercent(decimal.NullDecimal{}).Valid)
}

func TestSentimentTone(t *testing.T) {
	score := func(s string) decimal.NullDecimal { return known(decimal.RequireFromString(s)) }
	cases := []struct {
		name string
		in   Sentiment
		want Tone
	}{
		{"positive score", Sentiment{Score: score("0.21")}, TonePositive},
		{"boundary is neutral", Sentiment{Score: score("0.2")}, ToneNeutral},
		{"negative score", Sentiment{Score: score("-0.5")}, ToneNegative},
		{"score beats label", Sentiment{Label: "bullish", Score: score("-0.9")}, ToneNegative},
		{"bull label", Sentiment{Label: "Bullish"}, TonePositive},
		{"positive label", Sentiment{Label: "positif"}, TonePositive},
		{"bear label", Sentiment{Label: "BEARISH"}, ToneNegative},
		{"negative label", Sentiment{Label: "negatif"}, ToneNegative},
		{"unknown", Sentiment{Label: "Neutre"}, ToneNeutral},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, SentimentTone(tc.in))
		})
	}
}

func TestDescribeRecord(t *testing.T) {
	rec := mustRecord(t, `{
		"price": 42000,
		"decision": {"symbol":"ETHUSDT","action_fr":"VENTE","confidence":0.64,"reason":"r","risk_note":"n"},
		"gemini_error": "quota"
	}`)

	got := DescribeRecord(rec)
	assert.Equal(t, "ETHUSDT", got.Symbol)
	assert.Equal(t, ActionSell, got.Action)
	assertKnown(t, "64", got.ConfidencePct)
	assert.Equal(t, "N/A", got.SentimentLabel)
	assert.Equal(t, ToneNeutral, got.SentimentTone)
	assert.Equal(t, "r", got.Reason)
	assert.Equal(t, "n", got.RiskNote)
	assert.Equal(t, "quota", got.Error)
	require.Len(t, got.Scoped, 1)

	assert.Equal(t, "-", DescribeRecord(mustRecord(t, `{}`)).Symbol)
}

func TestRecentDecisions_NewestFirst(t *testing.T) {
	records := []Record{
		mustRecord(t, `{"symbol":"A"}`),
		mustRecord(t, `{"symbol":"B"}`),
		mustRecord(t, `{"symbol":"C"}`),
	}

	got := RecentDecisions(records, 2)
	require.Len(t, got, 2)
	assert.Equal(t, "C", got[0].Symbol)
	assert.Equal(t, "B", got[1].Symbol)
	assert.Len(t, RecentDecisions(records, 0), 3)
	assert.Len(t, RecentDecisions(records, 10), 3)
	assert.Empty(t, RecentDecisions(nil, 5))
}
