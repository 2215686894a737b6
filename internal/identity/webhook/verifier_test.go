package webhook

import (
	"encoding/base64"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	svix "github.com/svix/svix-webhooks/go"
)

var testSecret = "whsec_" + base64.StdEncoding.EncodeToString([]byte("super-secret-key"))

func signed(t *testing.T, id string, at time.Time, body []byte) http.Header {
	t.Helper()
	wh, err := svix.NewWebhook(testSecret)
	require.NoError(t, err)
	sig, err := wh.Sign(id, at, body)
	require.NoError(t, err)

	h := http.Header{}
	h.Set(HeaderID, id)
	h.Set(HeaderTimestamp, strconv.FormatInt(at.Unix(), 10))
	h.Set(HeaderSignature, sig)
	return h
}

func TestNewVerifier_RejectsBadSecret(t *testing.T) {
	_, err := NewVerifier("whsec_not base64!")
	require.ErrorIs(t, err, ErrInvalidSecret)
	_, err = NewVerifier("")
	require.ErrorIs(t, err, ErrInvalidSecret)
}

func TestVerify(t *testing.T) {
	v, err := NewVerifier(testSecret)
	require.NoError(t, err)

	body := []byte(`{"type":"user.created"}`)
	h := signed(t, "msg_1", time.Now(), body)

	id, err := v.Verify(h, body)
	require.NoError(t, err)
	assert.Equal(t, "msg_1", id)

	_, err = v.Verify(h, []byte(`{"type":"user.deleted"}`))
	require.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerify_AcceptsAnyListedSignature(t *testing.T) {
	v, err := NewVerifier(testSecret)
	require.NoError(t, err)

	body := []byte(`{}`)
	h := signed(t, "msg_2", time.Now(), body)
	h.Set(HeaderSignature, "v1,bm9wZQ== "+h.Get(HeaderSignature))

	_, err = v.Verify(h, body)
	require.NoError(t, err)
}

func TestVerify_Timestamp(t *testing.T) {
	v, err := NewVerifier(testSecret)
	require.NoError(t, err)
	now := time.Now()

	body := []byte(`{}`)
	_, err = v.Verify(signed(t, "old", now.Add(-6*time.Minute), body), body)
	require.ErrorIs(t, err, ErrInvalidSignature)
	_, err = v.Verify(signed(t, "future", now.Add(6*time.Minute), body), body)
	require.ErrorIs(t, err, ErrInvalidSignature)
	_, err = v.Verify(signed(t, "recent", now.Add(-4*time.Minute), body), body)
	require.NoError(t, err)

	h := signed(t, "bad", now, body)
	h.Set(HeaderTimestamp, "yesterday")
	_, err = v.Verify(h, body)
	require.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerify_MissingHeaders(t *testing.T) {
	v, err := NewVerifier(testSecret)
	require.NoError(t, err)

	h := signed(t, "msg", time.Now(), nil)
	h.Del(HeaderID)
	_, err = v.Verify(h, nil)
	require.ErrorIs(t, err, ErrMissingHeaders)
}
