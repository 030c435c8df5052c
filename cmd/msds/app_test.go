package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/msds/internal/audit"
	"github.com/erazemk/msds/internal/config"
	"github.com/erazemk/msds/internal/controller"
	"github.com/erazemk/msds/internal/db"
	"github.com/erazemk/msds/internal/model"
	"github.com/erazemk/msds/internal/server"
	"github.com/erazemk/msds/internal/store"
)

const testPassword = "correct-horse"

func setup(t *testing.T) (*app, *bytes.Buffer, *audit.Logger) {
	t.Helper()
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, err := server.CreateUser(ctx, database, "alice", testPassword, model.AccountInfo{
		FirstName: "Ana", LastName: "Novak", Rank: "Sergeant",
	})
	require.NoError(t, err)
	_, err = store.CreateItem(ctx, database, "Rope")
	require.NoError(t, err)
	_, err = store.CreateItem(ctx, database, "Sleeping Bag")
	require.NoError(t, err)
	require.NoError(t, store.SetHolding(ctx, database, user.ID, "Rope", "2"))

	ts := httptest.NewServer(server.NewRouter(database, server.Config{}))
	t.Cleanup(ts.Close)

	cfg := config.Default()
	cfg.Server.URL = ts.URL + server.BasePath
	ctrl, auditLog := newController(cfg)

	out := &bytes.Buffer{}
	a := &app{
		ctrl:         ctrl,
		out:          out,
		readPassword: func(string) (string, error) { return testPassword, nil },
	}
	return a, out, auditLog
}

func TestAppSession(t *testing.T) {
	a, out, auditLog := setup(t)
	defer auditLog.Wait()
	ctx := context.Background()

	require.NoError(t, a.exec(ctx, []string{"login", "alice"}))
	assert.Contains(t, out.String(), "Logged in as alice.")

	out.Reset()
	require.NoError(t, a.exec(ctx, []string{"account"}))
	assert.Contains(t, out.String(), "Ana Novak")
	assert.Contains(t, out.String(), "Sergeant")

	out.Reset()
	require.NoError(t, a.exec(ctx, []string{"inventory"}))
	assert.Contains(t, out.String(), "ITEM")
	assert.Contains(t, out.String(), "Rope")

	out.Reset()
	require.NoError(t, a.exec(ctx, []string{"request", "Sleeping", "Bag", "4"}))
	assert.Equal(t, controller.MsgRequestSent+"\n", out.String())

	out.Reset()
	require.NoError(t, a.exec(ctx, []string{"request", "Unicorn", "1"}))
	assert.Equal(t, controller.MsgRequestFailed+"\n", out.String())

	out.Reset()
	require.NoError(t, a.exec(ctx, []string{"status"}))
	assert.Contains(t, out.String(), "Session ends in: ")

	out.Reset()
	require.NoError(t, a.exec(ctx, []string{"logout"}))
	require.NoError(t, a.exec(ctx, []string{"inventory"}))
	assert.Contains(t, out.String(), controller.MsgNotAuthenticated)
}

func TestAppLoginFailures(t *testing.T) {
	a, out, auditLog := setup(t)
	defer auditLog.Wait()
	ctx := context.Background()

	a.readPassword = func(string) (string, error) { return "wrong-password", nil }
	require.NoError(t, a.exec(ctx, []string{"login", "alice"}))
	assert.Equal(t, controller.MsgInvalidCredentials+"\n", out.String())

	out.Reset()
	a.readPassword = func(string) (string, error) { return "", nil }
	require.NoError(t, a.exec(ctx, []string{"login", "alice"}))
	assert.Equal(t, controller.MsgMissingCredentials+"\n", out.String())
}

func TestAppCommands(t *testing.T) {
	a, out, auditLog := setup(t)
	defer auditLog.Wait()
	ctx := context.Background()

	assert.ErrorIs(t, a.exec(ctx, []string{"quit"}), errQuit)
	assert.ErrorIs(t, a.exec(ctx, []string{"EXIT"}), errQuit)
	assert.Error(t, a.exec(ctx, []string{"dance"}))
	assert.NoError(t, a.exec(ctx, nil))

	require.NoError(t, a.exec(ctx, []string{"help"}))
	assert.Contains(t, out.String(), "request <item> <qty>")

	out.Reset()
	require.NoError(t, a.exec(ctx, []string{"status"}))
	assert.Equal(t, "Not logged in.\n", out.String())

	out.Reset()
	require.NoError(t, a.exec(ctx, []string{"login", "alice"}))
	out.Reset()
	require.NoError(t, a.exec(ctx, []string{"request", "Rope"}))
	assert.Equal(t, controller.MsgInvalidRequest+"\n", out.String())
}

func TestRunOnce(t *testing.T) {
	a, _, auditLog := setup(t)
	defer auditLog.Wait()
	ctx := context.Background()

	out := &bytes.Buffer{}
	require.NoError(t, runOnce(ctx, a.ctrl, out, "alice", testPassword, []string{"inventory"}))
	assert.Contains(t, out.String(), "Rope")

	_, ok := a.ctrl.Store().Current()
	assert.False(t, ok, "session should end after a one-shot command")

	err := runOnce(ctx, a.ctrl, out, "alice", "wrong-password", []string{"account"})
	require.Error(t, err)
	assert.Equal(t, controller.MsgInvalidCredentials, err.Error())

	err = runOnce(ctx, a.ctrl, out, "alice", testPassword, []string{"dance"})
	assert.ErrorContains(t, err, "unknown command")
}
