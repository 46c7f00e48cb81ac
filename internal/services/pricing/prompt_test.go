package pricing

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/folio/internal/models"
)

var testNow = time.Date(2024, 7, 1, 15, 30, 0, 0, time.UTC)

func TestBuildOraclePrompt(t *testing.T) {
	instrument := models.Instrument{
		Symbol:      "119019",
		AssetClass:  models.AssetFund,
		DisplayName: "HDFC Mid-Cap Opportunities Fund",
	}

	prompt := buildOraclePrompt(instrument, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), 7)

	assert.Contains(t, prompt, "119019")
	assert.Contains(t, prompt, "HDFC Mid-Cap Opportunities Fund")
	assert.Contains(t, prompt, "2024-03-15")
	assert.Contains(t, prompt, "within 7 days")
	assert.Contains(t, prompt, "DATE|PRICE|CATEGORY")
	assert.Contains(t, prompt, "mutual fund")
}

func TestBuildOraclePromptAssetKinds(t *testing.T) {
	equity := buildOraclePrompt(models.Instrument{Symbol: "RELIANCE", AssetClass: models.AssetEquity}, testNow, 7)
	assert.Contains(t, equity, "listed stock")

	vehicle := buildOraclePrompt(models.Instrument{Symbol: "INP000006387", AssetClass: models.AssetPrivateVehicle}, testNow, 7)
	assert.Contains(t, vehicle, "PMS/AIF")
}

func TestParseOracleReplyValid(t *testing.T) {
	point, err := parseOracleReply("2024-03-15|146.58|Mid Cap Fund", "119019", testNow)
	require.NoError(t, err)
	assert.Equal(t, "119019", point.Symbol)
	assert.Equal(t, 146.58, point.Price)
	assert.Equal(t, "Mid Cap Fund", point.Category)
	assert.Equal(t, models.SourceGenerativeModel, point.Source)
	assert.True(t, point.Date.Equal(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)))
}

func TestParseOracleReplySkipsNoise(t *testing.T) {
	reply := "Here is the value:\n\n2024-03-15|146.58|Mid Cap Fund\n"
	point, err := parseOracleReply(reply, "119019", testNow)
	require.NoError(t, err)
	assert.Equal(t, 146.58, point.Price)
}

func TestParseOracleReplyMissingCategory(t *testing.T) {
	point, err := parseOracleReply("2024-03-15|146.58", "119019", testNow)
	require.NoError(t, err)
	assert.Equal(t, "UNKNOWN", point.Category)
}

func TestParseOracleReplyRejectsCode(t *testing.T) {
	replies := []string{
		"import requests\nnav = fetch('119019')",
		"def get_nav():\n    return 146.58",
		"```python\nprint(146.58)\n```",
		"class NavFetcher:\n  pass",
	}
	for _, reply := range replies {
		_, err := parseOracleReply(reply, "119019", testNow)
		assert.ErrorIs(t, err, ErrCodeLikeReply, "reply: %q", reply)
	}
}

func TestParseOracleReplyRejectsRefusal(t *testing.T) {
	replies := []string{
		"I am sorry, I cannot provide real-time data.",
		"I'm sorry, but as an AI I do not have access to live NAV data.",
		"NOT_FOUND",
	}
	for _, reply := range replies {
		_, err := parseOracleReply(reply, "119019", testNow)
		assert.ErrorIs(t, err, ErrRefusalReply, "reply: %q", reply)
	}
}

func TestParseOracleReplyCodeCheckedBeforeRefusal(t *testing.T) {
	// A reply containing both must be classified as code.
	reply := "import sys  # I am sorry"
	_, err := parseOracleReply(reply, "119019", testNow)
	assert.ErrorIs(t, err, ErrCodeLikeReply)
}

func TestParseOracleReplyRejectsFutureDate(t *testing.T) {
	future := models.DateKey(testNow.AddDate(0, 0, 3))
	_, err := parseOracleReply(future+"|146.58|Mid Cap Fund", "119019", testNow)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "future")
}

func TestParseOracleReplySameDayAccepted(t *testing.T) {
	// Same calendar date is not "future" even though the timestamp midnight
	// precedes the current wall clock.
	point, err := parseOracleReply("2024-07-01|146.58|Mid Cap Fund", "119019", testNow)
	require.NoError(t, err)
	assert.Equal(t, 146.58, point.Price)
}

func TestParseOracleReplyRejectsNonPositivePrice(t *testing.T) {
	for _, reply := range []string{
		"2024-03-15|0|Energy",
		"2024-03-15|-12.5|Energy",
	} {
		_, err := parseOracleReply(reply, "RELIANCE", testNow)
		require.Error(t, err, "reply: %q", reply)
		assert.Contains(t, err.Error(), "non-positive")
	}
}

func TestParseOracleReplyUnparseable(t *testing.T) {
	_, err := parseOracleReply("the NAV is around 146 rupees", "119019", testNow)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "no parseable line"))
}
