package main

import (
	"bytes"
	"errors"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"chatsync/internal/auth"
	"chatsync/internal/server"
	"chatsync/internal/store"
)

type mapEnv map[string]string

func (m mapEnv) Getenv(key string) string { return m[key] }

func newBackend(t *testing.T) string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	st, err := store.Open(filepath.Join(t.TempDir(), "chat.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	srv := httptest.NewServer(server.NewRouter(server.Deps{
		Store:       st,
		TokenConfig: auth.DefaultTokenConfig("secret"),
		Logger:      zerolog.Nop(),
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

// clientEnv gives each simulated user their own session file.
func clientEnv(t *testing.T, baseURL, user string) mapEnv {
	t.Helper()
	return mapEnv{
		"CHAT_BASE_URL":     baseURL,
		"CHAT_SESSION_FILE": filepath.Join(t.TempDir(), user+".json"),
	}
}

func run(t *testing.T, env mapEnv, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd(env)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func mustRun(t *testing.T, env mapEnv, args ...string) string {
	t.Helper()
	out, errOut, err := run(t, env, args...)
	if err != nil {
		t.Fatalf("chat %s: %v\nstderr: %s", strings.Join(args, " "), err, errOut)
	}
	return out
}

func TestVersionCmd(t *testing.T) {
	out := mustRun(t, mapEnv{}, "version")
	if !strings.Contains(out, "chat dev") {
		t.Errorf("expected output to contain 'chat dev', got: %s", out)
	}
}

func TestRootCmdHelp(t *testing.T) {
	out := mustRun(t, mapEnv{}, "--help")
	for _, sub := range []string{"login", "register", "logout", "whoami", "chats", "open", "send", "users", "group", "profile"} {
		if !strings.Contains(out, sub) {
			t.Errorf("expected help to list %q, got: %s", sub, out)
		}
	}
}

func TestGroupCmd_Subcommands(t *testing.T) {
	cmd := newGroupCmd(&rootOptions{}, mapEnv{})
	if !cmd.HasSubCommands() {
		t.Fatal("group command should have subcommands")
	}
}

func TestSignedOutCommandsFail(t *testing.T) {
	env := clientEnv(t, newBackend(t), "nobody")
	for _, args := range [][]string{{"whoami"}, {"chats"}, {"open", "--user", "1"}} {
		_, _, err := run(t, env, args...)
		if !errors.Is(err, errSignedOut) {
			t.Errorf("chat %s: expected errSignedOut, got %v", strings.Join(args, " "), err)
		}
	}
}

func TestOpenRequiresExactlyOneTarget(t *testing.T) {
	env := clientEnv(t, newBackend(t), "x")
	if _, _, err := run(t, env, "open"); err == nil {
		t.Fatal("expected error without target")
	}
	if _, _, err := run(t, env, "open", "--user", "1", "--group", "2"); err == nil {
		t.Fatal("expected error with two targets")
	}
}

func TestLoginFailurePrintsNotice(t *testing.T) {
	env := clientEnv(t, newBackend(t), "ghost")
	_, errOut, err := run(t, env, "login", "-u", "ghost", "-p", "pw")
	if !errors.Is(err, errReported) {
		t.Fatalf("expected errReported, got %v", err)
	}
	if !strings.Contains(errOut, "! Invalid credentials") {
		t.Fatalf("expected notice on stderr, got: %s", errOut)
	}
}

func TestConversationFlow(t *testing.T) {
	base := newBackend(t)
	// maria registers first and gets id 1; alex gets id 2.
	alex := clientEnv(t, base, "alex")
	maria := clientEnv(t, base, "maria")

	if out := mustRun(t, maria, "register", "-u", "maria", "-p", "pw"); !strings.Contains(out, "Signed in as maria") {
		t.Fatalf("unexpected register output: %s", out)
	}
	alex["CHAT_PASSWORD"] = "pw"
	mustRun(t, alex, "register", "-u", "alex")

	if out := mustRun(t, alex, "whoami"); !strings.Contains(out, "@alex") {
		t.Fatalf("unexpected whoami: %s", out)
	}

	out := mustRun(t, alex, "users", "mar")
	if !strings.Contains(out, "maria") {
		t.Fatalf("expected maria in search, got: %s", out)
	}

	mustRun(t, alex, "send", "--user", "1", "hello", "maria")
	out = mustRun(t, maria, "chats")
	if !strings.Contains(out, "alex") || !strings.Contains(out, "hello maria") {
		t.Fatalf("expected alex's chat for maria, got: %s", out)
	}

	out = mustRun(t, maria, "open", "--user", "2")
	if !strings.Contains(out, "alex: hello maria") {
		t.Fatalf("expected history, got: %s", out)
	}

	out = mustRun(t, alex, "group", "create", "--name", "Team")
	if !strings.Contains(out, `Created group 1 "Team"`) {
		t.Fatalf("unexpected group create: %s", out)
	}
	mustRun(t, alex, "group", "add-member", "--group", "1", "--member", "1")
	mustRun(t, maria, "send", "--group", "1", "hi", "team")

	out = mustRun(t, alex, "open", "--group", "1")
	if !strings.Contains(out, "== Team ==") || !strings.Contains(out, "maria: hi team") {
		t.Fatalf("unexpected group history: %s", out)
	}

	out = mustRun(t, alex, "chats", "--filter", "TEA")
	if !strings.Contains(out, "Team") || strings.Contains(out, "maria") {
		t.Fatalf("unexpected filtered chats: %s", out)
	}

	mustRun(t, alex, "profile", "set", "--nickname", "Alexander")
	out = mustRun(t, alex, "profile", "show")
	if !strings.Contains(out, "Nickname: Alexander") {
		t.Fatalf("unexpected profile: %s", out)
	}

	mustRun(t, alex, "logout")
	if _, _, err := run(t, alex, "whoami"); !errors.Is(err, errSignedOut) {
		t.Fatalf("expected signed out after logout, got %v", err)
	}
}

func TestBlankSendIsRejectedLocally(t *testing.T) {
	base := newBackend(t)
	env := clientEnv(t, base, "neo")
	mustRun(t, env, "register", "-u", "neo", "-p", "pw")
	_, _, err := run(t, env, "send", "--user", "1", "   ")
	if err == nil || errors.Is(err, errReported) {
		t.Fatalf("expected a validation error, got %v", err)
	}
}
