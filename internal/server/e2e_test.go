package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erazemk/msds/internal/api"
	"github.com/erazemk/msds/internal/audit"
	"github.com/erazemk/msds/internal/controller"
	"github.com/erazemk/msds/internal/model"
	"github.com/erazemk/msds/internal/session"
	"github.com/erazemk/msds/internal/store"
)

// newClient wires the client stack against the test server.
func newClient(t *testing.T, s *testServer) (*controller.Controller, *audit.Logger, *session.Store) {
	t.Helper()
	client := api.New(s.URL + BasePath)
	sessions := session.NewStore()
	auditLog := audit.New(sessions, client)
	ctrl := controller.New(client, sessions, auditLog,
		controller.WithClock(func() time.Time { return time.Unix(s.now.Load(), 0) }),
	)
	return ctrl, auditLog, sessions
}

func activity(t *testing.T, s *testServer) []string {
	t.Helper()
	logs, err := store.ListActivityLogs(context.Background(), s.db, "alice", 0)
	if err != nil {
		t.Fatalf("ListActivityLogs: %v", err)
	}
	out := make([]string, len(logs))
	for i, l := range logs {
		out[i] = l.Description
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func TestEndToEndInventory(t *testing.T) {
	s := setupTestServer(t)
	ctrl, auditLog, _ := newClient(t, s)
	ctx := context.Background()

	if _, err := ctrl.Login(ctx, "alice", testPassword); err != nil {
		t.Fatalf("Login: %v", err)
	}

	items, err := ctrl.FetchInventory(ctx)
	if err != nil {
		t.Fatalf("FetchInventory: %v", err)
	}
	if got := model.SummarizeInventory(items); got != "Rope:2 Tent:1" {
		t.Errorf("expected 'Rope:2 Tent:1', got %q", got)
	}

	info, err := ctrl.FetchAccount(ctx)
	if err != nil {
		t.Fatalf("FetchAccount: %v", err)
	}
	if info.FullName() != "Ana Novak" {
		t.Errorf("expected 'Ana Novak', got %q", info.FullName())
	}

	if err := ctrl.RequestItem(ctx, "Rope", "3"); err != nil {
		t.Fatalf("RequestItem: %v", err)
	}
	err = ctrl.RequestItem(ctx, "Unicorn", "1")
	if !errors.Is(err, api.ErrApplication) {
		t.Errorf("expected application error for unknown item, got %v", err)
	}
	if controller.Message(err) != controller.MsgRequestFailed {
		t.Errorf("unexpected message %q", controller.Message(err))
	}

	auditLog.Wait()
	logs := activity(t, s)
	for _, want := range []string{
		"Logged In",
		"Accessed inventory page",
		"Inventory page loaded with data: Rope:2 Tent:1",
		"Inventory update request created with data: Rope:3",
		"Failed to submit inventory update request",
	} {
		if !contains(logs, want) {
			t.Errorf("activity log missing %q: %v", want, logs)
		}
	}
}

func TestEndToEndInvalidCredentials(t *testing.T) {
	s := setupTestServer(t)
	ctrl, _, sessions := newClient(t, s)

	_, err := ctrl.Login(context.Background(), "alice", "wrong-password")
	if !errors.Is(err, controller.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, ok := sessions.Current(); ok {
		t.Error("expected no session after failed login")
	}
}

func TestEndToEndDatabaseFailure(t *testing.T) {
	s := setupTestServer(t)
	ctrl, _, _ := newClient(t, s)
	s.db.Close()

	_, err := ctrl.Login(context.Background(), "alice", testPassword)
	if errors.Is(err, controller.ErrInvalidCredentials) {
		t.Fatalf("server failure reported as invalid credentials: %v", err)
	}
	if !errors.Is(err, api.ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if controller.Message(err) != controller.MsgNetworkError {
		t.Errorf("unexpected message %q", controller.Message(err))
	}
}

func TestEndToEndServerSideExpiry(t *testing.T) {
	s := setupTestServer(t)
	ctrl, auditLog, sessions := newClient(t, s)
	ctx := context.Background()

	if _, err := ctrl.Login(ctx, "alice", testPassword); err != nil {
		t.Fatalf("Login: %v", err)
	}

	s.now.Add(1800)
	_, err := ctrl.FetchInventory(ctx)
	if !errors.Is(err, controller.ErrSessionRevoked) {
		t.Fatalf("expected ErrSessionRevoked, got %v", err)
	}
	if !controller.NeedsLogin(err) {
		t.Error("expected NeedsLogin")
	}
	if _, ok := sessions.Current(); ok {
		t.Error("expected session to be cleared")
	}
	auditLog.Wait()
}

func TestEndToEndTimeout(t *testing.T) {
	s := setupTestServer(t)
	client := api.New(s.URL + BasePath)
	sessions := session.NewStore()
	auditLog := audit.New(sessions, client)

	clock := func() time.Time { return time.Unix(s.now.Load(), 0) }
	ctrl := controller.New(client, sessions, auditLog,
		controller.WithClock(clock),
		controller.WithTickInterval(10*time.Millisecond),
	)

	if _, err := ctrl.Login(context.Background(), "alice", testPassword); err != nil {
		t.Fatalf("Login: %v", err)
	}

	m, err := ctrl.Watch(context.Background(), nil)
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}

	s.now.Add(1800)

	select {
	case <-m.Expired():
	case <-time.After(2 * time.Second):
		t.Fatal("session did not expire")
	}
	if _, ok := sessions.Current(); ok {
		t.Error("expected session to be cleared")
	}

	auditLog.Wait()
	logs := activity(t, s)
	if !contains(logs, "Accessed home page") {
		t.Errorf("activity log missing home page visit: %v", logs)
	}
}
