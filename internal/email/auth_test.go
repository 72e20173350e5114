package email

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticatePlainLoginFirst(t *testing.T) {
	conn := newFakeConn()
	auth := NewAuthenticator(testCreds(), "INBOX", testLogger())

	mech, err := auth.Authenticate(conn)
	require.NoError(t, err)

	assert.Equal(t, MechLogin, mech)
	assert.Equal(t, []string{"LOGIN"}, conn.attemptLog())
	assert.Equal(t, "INBOX", conn.selected)
	assert.True(t, conn.readOnly, "mailbox must be opened read-only")
}

func TestAuthenticateFallsBackInOrder(t *testing.T) {
	conn := newFakeConn()
	conn.acceptLogin = false
	conn.acceptSASL["CRAM-MD5"] = true

	auth := NewAuthenticator(testCreds(), "Archive", testLogger())

	mech, err := auth.Authenticate(conn)
	require.NoError(t, err)

	assert.Equal(t, MechCRAMMD5, mech)
	assert.Equal(t, []string{
		"LOGIN",
		"AUTHENTICATE PLAIN",
		"AUTHENTICATE LOGIN",
		"AUTHENTICATE CRAM-MD5",
	}, conn.attemptLog())
	assert.Equal(t, "Archive", conn.selected)
}

func TestAuthenticateStopsAtFirstSuccess(t *testing.T) {
	conn := newFakeConn()
	conn.acceptLogin = false
	conn.acceptSASL["PLAIN"] = true
	conn.acceptSASL["CRAM-MD5"] = true

	mech, err := NewAuthenticator(testCreds(), "", testLogger()).Authenticate(conn)
	require.NoError(t, err)

	assert.Equal(t, MechPlain, mech)
	assert.Equal(t, []string{"LOGIN", "AUTHENTICATE PLAIN"}, conn.attemptLog())
}

func TestAuthenticateExhausted(t *testing.T) {
	conn := newFakeConn()
	conn.acceptLogin = false

	_, err := NewAuthenticator(testCreds(), "INBOX", testLogger()).Authenticate(conn)
	require.Error(t, err)

	var exhausted *AuthExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, DefaultMechanisms, exhausted.Attempts)
	assert.ErrorIs(t, err, errRejected)
	assert.Empty(t, conn.selected, "no folder selected after failed auth")
}

func TestAuthenticateSelectFailure(t *testing.T) {
	conn := newFakeConn()
	conn.selectErr = errors.New("NO no such mailbox")

	_, err := NewAuthenticator(testCreds(), "Missing", testLogger()).Authenticate(conn)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Missing")
}

func TestMechanismString(t *testing.T) {
	assert.Equal(t, "LOGIN", MechLogin.String())
	assert.Equal(t, "SASL CRAM-MD5", MechCRAMMD5.String())
	assert.Equal(t, "Mechanism(9)", Mechanism(9).String())
}
