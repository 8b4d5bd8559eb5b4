package cli

import (
	"bufio"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubExec struct {
	loggedIn bool
	calls    []string
	errOn    string
}

func (s *stubExec) record(name string) error {
	s.calls = append(s.calls, name)
	if s.errOn == name {
		return errors.New("command failed")
	}
	return nil
}

func (s *stubExec) isLoggedIn() bool { return s.loggedIn }

func (s *stubExec) Register(ctx context.Context) error { return s.record("register") }
func (s *stubExec) Login(ctx context.Context) error    { return s.record("login") }
func (s *stubExec) Refresh(ctx context.Context) error  { return s.record("refresh") }
func (s *stubExec) Upgrade(ctx context.Context) error  { return s.record("upgrade") }
func (s *stubExec) Pair(ctx context.Context) error     { return s.record("pair") }
func (s *stubExec) Redeem(ctx context.Context) error   { return s.record("redeem") }
func (s *stubExec) Logout(ctx context.Context) error   { return s.record("logout") }

func runScript(t *testing.T, a *stubExec, script string) []string {
	t.Helper()
	var lines []string
	old := printlnFn
	printlnFn = func(args ...any) (int, error) {
		parts := make([]string, 0, len(args))
		for _, v := range args {
			parts = append(parts, strings.TrimSpace(toString(v)))
		}
		lines = append(lines, strings.Join(parts, " "))
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = old })

	scanner := bufio.NewScanner(strings.NewReader(script))
	runREPL(context.Background(), a, func() string { return "status" }, scanner)
	return lines
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if e, ok := v.(error); ok {
		return e.Error()
	}
	return ""
}

func TestREPLDispatch(t *testing.T) {
	a := &stubExec{}
	runScript(t, a, "register\nlogin\nrefresh\npair\nredeem\nupgrade\nlogout\nexit\n")
	assert.Equal(t, []string{"register", "login", "refresh", "pair", "redeem", "upgrade", "logout"}, a.calls)
}

func TestREPLUnknownCommand(t *testing.T) {
	a := &stubExec{}
	lines := runScript(t, a, "frobnicate\nexit\n")
	assert.Contains(t, lines, "Unknown command: frobnicate")
	assert.Empty(t, a.calls)
}

func TestREPLReportsCommandErrors(t *testing.T) {
	a := &stubExec{errOn: "login"}
	lines := runScript(t, a, "login\nexit\n")
	assert.Contains(t, lines, "Error: command failed")
}

func TestREPLHelpDependsOnLoginState(t *testing.T) {
	out := runScript(t, &stubExec{}, "help\nexit\n")
	assert.Contains(t, strings.Join(out, "\n"), "register, login, redeem")

	out = runScript(t, &stubExec{loggedIn: true}, "help\nexit\n")
	assert.Contains(t, strings.Join(out, "\n"), "pair, upgrade, refresh")
}

func TestREPLExitsOnEOF(t *testing.T) {
	a := &stubExec{}
	runScript(t, a, "register\n")
	assert.Equal(t, []string{"register"}, a.calls)
}
