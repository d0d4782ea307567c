package notify

import (
	"context"
	"net"
	"net/textproto"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jhillyerd/enmime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/uptcauth/internal/logging"
)

func fixed(s enmime.Sender) func(context.Context) enmime.Sender {
	return func(context.Context) enmime.Sender { return s }
}

func listen(t *testing.T) net.Listener {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func smtpConfigFor(t *testing.T, l net.Listener) SMTPConfig {
	t.Helper()
	host, port, err := net.SplitHostPort(l.Addr().String())
	require.NoError(t, err)
	p, err := strconv.Atoi(port)
	require.NoError(t, err)
	return SMTPConfig{Host: host, Port: p}
}

// silentServer accepts connections and never writes a greeting.
func silentServer(t *testing.T) net.Listener {
	l := listen(t)
	var mu sync.Mutex
	var conns []net.Conn
	go func() {
		for {
			c, err := l.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, c)
			mu.Unlock()
		}
	}()
	t.Cleanup(func() {
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			c.Close()
		}
	})
	return l
}

type receivedMail struct {
	from string
	to   []string
	data string
}

// smtpServer answers one plain SMTP conversation and reports what it got.
func smtpServer(t *testing.T) (net.Listener, <-chan receivedMail) {
	l := listen(t)
	out := make(chan receivedMail, 1)

	go func() {
		c, err := l.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		tp := textproto.NewConn(c)

		var got receivedMail
		tp.PrintfLine("220 localhost ready")
		for {
			line, err := tp.ReadLine()
			if err != nil {
				return
			}
			verb := strings.ToUpper(strings.SplitN(line, " ", 2)[0])
			switch {
			case verb == "EHLO":
				tp.PrintfLine("250 localhost")
			case strings.HasPrefix(strings.ToUpper(line), "MAIL FROM:"):
				got.from = strings.Trim(line[len("MAIL FROM:"):], "<> ")
				tp.PrintfLine("250 ok")
			case strings.HasPrefix(strings.ToUpper(line), "RCPT TO:"):
				got.to = append(got.to, strings.Trim(line[len("RCPT TO:"):], "<> "))
				tp.PrintfLine("250 ok")
			case verb == "DATA":
				tp.PrintfLine("354 go ahead")
				lines, err := tp.ReadDotLines()
				if err != nil {
					return
				}
				got.data = strings.Join(lines, "\n")
				tp.PrintfLine("250 queued")
			case verb == "QUIT":
				tp.PrintfLine("221 bye")
				out <- got
				return
			default:
				tp.PrintfLine("502 unsupported")
			}
		}
	}()

	return l, out
}

func TestSMTPSender_DeliversOverTheWire(t *testing.T) {
	l, received := smtpServer(t)
	s := NewSMTPSender(smtpConfigFor(t, l), testFrom)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := s.Send(ctx, Message{To: "student@uptc.edu.co", Subject: "Código", Text: "123456"})
	require.NoError(t, err)

	select {
	case got := <-received:
		assert.Equal(t, "no-reply@uptc.edu.co", got.from)
		assert.Equal(t, []string{"student@uptc.edu.co"}, got.to)
		assert.Contains(t, got.data, "123456")
	case <-time.After(5 * time.Second):
		t.Fatal("server did not receive the message")
	}
}

func TestSMTPSender_TimesOutOnSilentServer(t *testing.T) {
	l := silentServer(t)
	s := NewSMTPSender(smtpConfigFor(t, l), testFrom)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := s.Send(ctx, Message{To: "a@uptc.edu.co", Subject: "x", Text: "y"})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestSMTPSender_CancelUnblocksSilentServer(t *testing.T) {
	l := silentServer(t)
	s := NewSMTPSender(smtpConfigFor(t, l), testFrom)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	err := s.Send(ctx, Message{To: "a@uptc.edu.co", Subject: "x", Text: "y"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDispatcher_DrainsPastSilentSMTPServer(t *testing.T) {
	l := silentServer(t)
	s := NewSMTPSender(smtpConfigFor(t, l), testFrom)

	d := NewDispatcher(s, 1, 4, 200*time.Millisecond, logging.Nop{})
	d.Start(context.Background())

	require.True(t, d.Dispatch(context.Background(), Message{To: "a@uptc.edu.co", Subject: "one", Text: "x"}))
	require.True(t, d.Dispatch(context.Background(), Message{To: "b@uptc.edu.co", Subject: "two", Text: "x"}))
	d.Close()

	done := make(chan struct{})
	go func() {
		d.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("queue did not drain within the per-message timeout")
	}
}
