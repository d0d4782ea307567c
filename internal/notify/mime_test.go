package notify

import (
	"bytes"
	"testing"

	"github.com/jhillyerd/enmime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testFrom = Address{Name: "UPTC Auth", Email: "no-reply@uptc.edu.co"}

func TestEncodeMIME_RoundTrip(t *testing.T) {
	m := Message{
		To:      "student@uptc.edu.co",
		Subject: SubjectPasswordReset,
		HTML:    "<p>código <b>123456</b></p>",
		Text:    "código 123456",
	}

	raw, err := EncodeMIME(testFrom, m)
	require.NoError(t, err)

	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	require.NoError(t, err)

	assert.Equal(t, SubjectPasswordReset, env.GetHeader("Subject"))
	assert.Contains(t, env.GetHeader("To"), "student@uptc.edu.co")
	assert.Contains(t, env.GetHeader("From"), "no-reply@uptc.edu.co")
	assert.Contains(t, env.HTML, "<b>123456</b>")
	assert.Contains(t, env.Text, "código 123456")
}

func TestEncodeMIME_MissingRecipient(t *testing.T) {
	_, err := EncodeMIME(testFrom, Message{Subject: "x", Text: "y"})
	require.Error(t, err)
}
