package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output.
var printlnFn = fmt.Println

// execIface is the command surface the loop dispatches to. App satisfies
// it; tests can provide a stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Refresh(ctx context.Context) error
	Upgrade(ctx context.Context) error
	Pair(ctx context.Context) error
	Redeem(ctx context.Context) error
	Logout(ctx context.Context) error
}

// runREPL reads a command per line and dispatches to 'a'. The loop exits on
// scanner EOF or "exit"/"quit". Handlers report their own errors; the loop
// only echoes them so a failed command never kills the session.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("srpvault> %s > ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}

		var err error
		switch cmd := parts[0]; cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: pair, upgrade, refresh, logout, exit")
			} else {
				printlnFn("Available commands: register, login, redeem, exit")
			}
		case "register":
			err = a.Register(ctx)
		case "login":
			err = a.Login(ctx)
		case "refresh":
			err = a.Refresh(ctx)
		case "upgrade":
			err = a.Upgrade(ctx)
		case "pair":
			err = a.Pair(ctx)
		case "redeem":
			err = a.Redeem(ctx)
		case "logout":
			err = a.Logout(ctx)
		case "exit", "quit":
			printlnFn("Bye!")
			return
		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			printlnFn("Error:", err.Error())
		}
	}
}
