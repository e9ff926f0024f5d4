package stripe

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "whsec_test_secret"

func TestVerifyAndParse_ValidSignature(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"invoice.paid","data":{"object":{"id":"in_1"}}}`)
	header := SignPayload(payload, testSecret, time.Now())

	event, err := VerifyAndParse(payload, header, testSecret, 5*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "evt_1", event.ID)
	assert.Equal(t, "invoice.paid", event.Type)
}

func TestVerifyAndParse_WrongSecret(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"invoice.paid"}`)
	header := SignPayload(payload, "whsec_other", time.Now())

	_, err := VerifyAndParse(payload, header, testSecret, 5*time.Minute)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifyAndParse_TamperedPayload(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"invoice.paid"}`)
	header := SignPayload(payload, testSecret, time.Now())

	_, err := VerifyAndParse([]byte(`{"id":"evt_2","type":"invoice.paid"}`), header, testSecret, 5*time.Minute)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifyAndParse_StaleTimestamp(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"invoice.paid"}`)
	header := SignPayload(payload, testSecret, time.Now().Add(-time.Hour))

	_, err := VerifyAndParse(payload, header, testSecret, 5*time.Minute)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifyAndParse_MissingHeader(t *testing.T) {
	_, err := VerifyAndParse([]byte(`{}`), "", testSecret, 0)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestParseSignatureHeader(t *testing.T) {
	ts, sigs, err := parseSignatureHeader("t=1492774577,v1=abc,v0=ignored, v1=def")
	require.NoError(t, err)
	assert.Equal(t, "1492774577", ts)
	assert.Equal(t, []string{"abc", "def"}, sigs)

	_, _, err = parseSignatureHeader("v1=abc")
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, _, err = parseSignatureHeader("t=1492774577,garbage")
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifyAndParse_EmptyEventID(t *testing.T) {
	payload := []byte(`{"type":"invoice.paid"}`)
	header := SignPayload(payload, testSecret, time.Now())

	_, err := VerifyAndParse(payload, header, testSecret, 0)
	assert.ErrorIs(t, err, ErrInvalidPayload)
}
