package notify

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jhillyerd/enmime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/uptcauth/internal/logging"
)

type fakeSMTP struct {
	from string
	to   []string
	msg  []byte
	err  error
}

func (f *fakeSMTP) Send(reversePath string, recipients []string, msg []byte) error {
	f.from, f.to, f.msg = reversePath, recipients, msg
	return f.err
}

func TestSMTPSender_Send(t *testing.T) {
	fake := &fakeSMTP{}
	s := &SMTPSender{from: testFrom, transport: fixed(fake)}

	err := s.Send(context.Background(), Message{To: "student@uptc.edu.co", Subject: "Hola", Text: "cuerpo"})
	require.NoError(t, err)

	assert.Equal(t, "no-reply@uptc.edu.co", fake.from)
	assert.Equal(t, []string{"student@uptc.edu.co"}, fake.to)

	env, err := enmime.ReadEnvelope(bytes.NewReader(fake.msg))
	require.NoError(t, err)
	assert.Equal(t, "Hola", env.GetHeader("Subject"))
}

func TestSMTPSender_TransportError(t *testing.T) {
	boom := errors.New("550 rejected")
	s := &SMTPSender{from: testFrom, transport: fixed(&fakeSMTP{err: boom})}

	err := s.Send(context.Background(), Message{To: "a@uptc.edu.co", Subject: "x", Text: "y"})
	assert.ErrorIs(t, err, boom)
}

func TestSMTPSender_CancelledContext(t *testing.T) {
	fake := &fakeSMTP{}
	s := &SMTPSender{from: testFrom, transport: fixed(fake)}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Send(ctx, Message{To: "a@uptc.edu.co", Subject: "x", Text: "y"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, fake.msg)
}

func TestSMTPConfig_Addr(t *testing.T) {
	assert.Equal(t, "smtp.gmail.com:587", SMTPConfig{Host: "smtp.gmail.com", Port: 587}.Addr())
}

type fakePutter struct {
	in   *s3.PutObjectInput
	body []byte
	err  error
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.in = in
	if in.Body != nil {
		f.body, _ = io.ReadAll(in.Body)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func TestS3DropSender_Send(t *testing.T) {
	p := &fakePutter{}
	s := NewS3DropSender(p, "mail-drop", testFrom)
	s.now = func() time.Time { return time.Date(2025, 3, 7, 23, 0, 0, 0, time.UTC) }

	require.NoError(t, s.Send(context.Background(), Message{To: "a@uptc.edu.co", Subject: "x", Text: "y"}))

	require.NotNil(t, p.in)
	assert.Equal(t, "mail-drop", *p.in.Bucket)
	assert.Equal(t, "message/rfc822", *p.in.ContentType)
	assert.True(t, strings.HasPrefix(*p.in.Key, "mail/2025/03/07/"), *p.in.Key)
	assert.True(t, strings.HasSuffix(*p.in.Key, ".eml"))
	assert.Contains(t, string(p.body), "Subject: x")
}

func TestS3DropSender_PutError(t *testing.T) {
	boom := errors.New("access denied")
	s := NewS3DropSender(&fakePutter{err: boom}, "b", testFrom)

	err := s.Send(context.Background(), Message{To: "a@uptc.edu.co", Subject: "x", Text: "y"})
	assert.ErrorIs(t, err, boom)
}

func TestLogSender_DoesNotLogBody(t *testing.T) {
	var buf bytes.Buffer
	s := NewLogSender(logging.NewJSONLogger(&buf, "info"))

	require.NoError(t, s.Send(context.Background(), Message{To: "a@uptc.edu.co", Subject: "x", HTML: "<b>654321</b>", Text: "654321"}))

	out := buf.String()
	assert.Contains(t, out, "a@uptc.edu.co")
	assert.NotContains(t, out, "654321")
}
