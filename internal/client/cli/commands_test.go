package cli

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/uptcauth/internal/client/client"
	"github.com/dmitrijs2005/uptcauth/internal/client/repositories/session"
)

type memSession map[string]string

func (m memSession) Get(_ context.Context, k string) (string, error) { return m[k], nil }
func (m memSession) Set(_ context.Context, k, v string) error        { m[k] = v; return nil }
func (m memSession) Delete(_ context.Context, k string) error        { delete(m, k); return nil }
func (m memSession) Clear(_ context.Context) error {
	for k := range m {
		delete(m, k)
	}
	return nil
}

type fakeAPI struct {
	client.Client

	codes      map[string]string
	passwords  map[string]string
	registered *client.Profile
	loggedOut  []string
	profileErr error
	logoutErr  error
	resetArgs  []string
}

func (f *fakeAPI) RequestVerification(_ context.Context, email string) (string, error) {
	if !strings.HasSuffix(email, "@uptc.edu.co") {
		return "", &client.APIError{Status: 400, Detail: "validation error", Fields: map[string]string{"email": "must be institutional"}}
	}
	return "code sent", nil
}

func (f *fakeAPI) VerifyCode(_ context.Context, email, code string) (string, error) {
	if f.codes[email] != code {
		return "", &client.APIError{Status: 400, Detail: "invalid or expired code"}
	}
	return "reg-" + email, nil
}

func (f *fakeAPI) Register(_ context.Context, token, email, password string, p client.Profile) (*client.User, error) {
	if token != "reg-"+email {
		return nil, &client.APIError{Status: 400, Detail: "invalid registration token"}
	}
	f.registered = &p
	f.passwords[email] = password
	return &client.User{Email: email, Role: "estudiante"}, nil
}

func (f *fakeAPI) Login(_ context.Context, email, password string) (string, error) {
	if f.passwords[email] != password {
		return "", &client.APIError{Status: 401, Detail: "incorrect email or password"}
	}
	return "jwt-" + email, nil
}

func (f *fakeAPI) Profile(_ context.Context, token string) (*client.User, error) {
	if f.profileErr != nil {
		return nil, f.profileErr
	}
	return &client.User{Email: strings.TrimPrefix(token, "jwt-"), FirstName: "Ana", LastName: "Pérez", Role: "estudiante"}, nil
}

func (f *fakeAPI) Logout(_ context.Context, token string) error {
	f.loggedOut = append(f.loggedOut, token)
	return f.logoutErr
}

func (f *fakeAPI) ForgotPassword(context.Context, string) (string, error) {
	return "reset requested", nil
}

func (f *fakeAPI) ResetPassword(_ context.Context, email, code, pw string) (string, error) {
	f.resetArgs = []string{email, code, pw}
	return "password updated", nil
}

func newTestApp(t *testing.T, api *fakeAPI, input string, passwords ...string) (*App, memSession, *[]string) {
	t.Helper()
	lines := capturePrint(t)

	orig := readPassword
	t.Cleanup(func() { readPassword = orig })
	readPassword = func(int) ([]byte, error) {
		if len(passwords) == 0 {
			return nil, errors.New("no password queued")
		}
		pw := passwords[0]
		passwords = passwords[1:]
		return []byte(pw), nil
	}

	store := memSession{}
	return &App{
		api:     api,
		session: store,
		reader:  bufio.NewReader(strings.NewReader(input)),
		out:     io.Discard,
	}, store, lines
}

func TestApp_RegistrationFlow(t *testing.T) {
	api := &fakeAPI{codes: map[string]string{"student@uptc.edu.co": "123456"}, passwords: map[string]string{}}
	input := strings.Join([]string{
		"student@uptc.edu.co",
		"123456",
		"Ana", "Pérez", "2001-05-17", "Sistemas", "",
		"student@uptc.edu.co",
	}, "\n") + "\n"
	a, store, lines := newTestApp(t, api, input, "Abcdef1!", "Abcdef1!")
	ctx := context.Background()

	require.NoError(t, a.RequestVerification(ctx))
	require.NoError(t, a.ConfirmCode(ctx))
	require.NoError(t, a.Register(ctx))

	require.NotNil(t, api.registered)
	assert.Equal(t, "Ana", api.registered.FirstName)
	require.NotNil(t, api.registered.Program)
	assert.Equal(t, "Sistemas", *api.registered.Program)
	assert.Nil(t, api.registered.Group)
	assert.Empty(t, a.regToken, "registration token is single use on the client too")

	require.NoError(t, a.Login(ctx))
	assert.True(t, a.isLoggedIn())
	assert.Equal(t, "jwt-student@uptc.edu.co", store[session.KeyToken])
	assert.Equal(t, "student@uptc.edu.co", store[session.KeyEmail])
	assert.Equal(t, "(student@uptc.edu.co)", a.getStatus())

	require.NoError(t, a.Profile(ctx))
	assert.Contains(t, strings.Join(*lines, "\n"), "Ana Pérez <student@uptc.edu.co>")
}

func TestApp_RegisterWithoutToken(t *testing.T) {
	a, _, lines := newTestApp(t, &fakeAPI{}, "")

	assert.Error(t, a.Register(context.Background()))
	assert.Contains(t, strings.Join(*lines, "\n"), "verify your email first")
}

func TestApp_ReportsAPIErrors(t *testing.T) {
	api := &fakeAPI{passwords: map[string]string{}}
	a, _, lines := newTestApp(t, api, "someone@gmail.com\nsomeone@uptc.edu.co\n", "nope")
	ctx := context.Background()

	assert.Error(t, a.RequestVerification(ctx))
	assert.Error(t, a.Login(ctx))
	assert.False(t, a.isLoggedIn())

	out := strings.Join(*lines, "\n")
	assert.Contains(t, out, "email: must be institutional")
	assert.Contains(t, out, "incorrect email or password")
}

func TestApp_ExpiredSessionIsForgotten(t *testing.T) {
	api := &fakeAPI{profileErr: &client.APIError{Status: 401, Detail: "not authenticated"}}
	a, store, lines := newTestApp(t, api, "")
	store[session.KeyToken] = "old"
	store[session.KeyEmail] = "student@uptc.edu.co"
	require.NoError(t, a.restoreSession(context.Background()))
	require.True(t, a.isLoggedIn())

	err := a.Profile(context.Background())
	assert.ErrorIs(t, err, client.ErrUnauthorized)
	assert.False(t, a.isLoggedIn())
	assert.Empty(t, store)
	assert.Contains(t, strings.Join(*lines, "\n"), "Session expired")
}

func TestApp_LogoutClearsEvenWhenServerDown(t *testing.T) {
	api := &fakeAPI{logoutErr: client.ErrUnavailable}
	a, store, lines := newTestApp(t, api, "")
	store[session.KeyToken] = "jwt"
	require.NoError(t, a.restoreSession(context.Background()))

	require.NoError(t, a.Logout(context.Background()))
	assert.Equal(t, []string{"jwt"}, api.loggedOut)
	assert.Empty(t, store)
	assert.False(t, a.isLoggedIn())
	assert.Contains(t, strings.Join(*lines, "\n"), "server logout failed")

	require.NoError(t, a.Logout(context.Background()))
	assert.Len(t, api.loggedOut, 1)
}

func TestApp_PasswordReset(t *testing.T) {
	api := &fakeAPI{}
	a, _, lines := newTestApp(t, api, "a@uptc.edu.co\na@uptc.edu.co\n654321\n", "Nuevo123!")
	ctx := context.Background()

	require.NoError(t, a.ForgotPassword(ctx))
	require.NoError(t, a.ResetPassword(ctx))

	assert.Equal(t, []string{"a@uptc.edu.co", "654321", "Nuevo123!"}, api.resetArgs)
	out := strings.Join(*lines, "\n")
	assert.Contains(t, out, "reset requested")
	assert.Contains(t, out, "password updated")
}

func TestApp_Unavailable(t *testing.T) {
	a, _, lines := newTestApp(t, &fakeAPI{}, "")
	a.report(client.ErrUnavailable)
	assert.Contains(t, strings.Join(*lines, "\n"), "Server unavailable")
}
