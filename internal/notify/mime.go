package notify

import (
	"bytes"
	"fmt"

	"github.com/jhillyerd/enmime"
)

func builder(from Address, m Message) enmime.MailBuilder {
	b := enmime.Builder().
		From(from.Name, from.Email).
		Subject(m.Subject)
	if m.To != "" {
		b = b.To("", m.To)
	}
	if m.HTML != "" {
		b = b.HTML([]byte(m.HTML))
	}
	if m.Text != "" {
		b = b.Text([]byte(m.Text))
	}
	return b
}

// EncodeMIME renders m as an RFC 5322 message.
func EncodeMIME(from Address, m Message) ([]byte, error) {
	part, err := builder(from, m).Build()
	if err != nil {
		return nil, fmt.Errorf("build mime: %w", err)
	}

	var buf bytes.Buffer
	if err := part.Encode(&buf); err != nil {
		return nil, fmt.Errorf("encode mime: %w", err)
	}
	return buf.Bytes(), nil
}
