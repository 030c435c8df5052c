package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/erazemk/msds/internal/controller"
	"github.com/erazemk/msds/internal/model"
	"github.com/erazemk/msds/internal/session"
)

var errQuit = errors.New("quit")

// app runs client commands and prints their results.
type app struct {
	ctrl *controller.Controller
	out  io.Writer

	// readPassword prompts for a password without echo.
	readPassword func(prompt string) (string, error)
	// readLine prompts for a line of input.
	readLine func(prompt string) (string, error)
}

const helpText = `Commands:
  login [username]         log in (prompts for the password)
  account                  show your account details
  inventory                list the items you hold
  request <item> <qty>     request more of an item
  status                   show who is logged in and the time left
  logout                   end the session
  help                     show this help
  quit                     log out and exit
`

// exec runs one command line. User-facing failures are printed, not returned;
// the returned error is errQuit or an unknown-command error.
func (a *app) exec(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return nil
	}

	var err error
	switch cmd := strings.ToLower(args[0]); cmd {
	case "login":
		err = a.login(ctx, args[1:])
	case "account":
		err = a.account(ctx)
	case "inventory", "inv":
		err = a.inventory(ctx)
	case "request", "req":
		err = a.request(ctx, args[1:])
	case "status":
		a.status()
	case "logout":
		a.ctrl.Logout()
		fmt.Fprintln(a.out, "Logged out.")
	case "help", "?":
		fmt.Fprint(a.out, helpText)
	case "quit", "exit":
		return errQuit
	default:
		return fmt.Errorf("unknown command %q, type help for a list", cmd)
	}

	if err != nil {
		fmt.Fprintln(a.out, controller.Message(err))
		if controller.NeedsLogin(err) && !errors.Is(err, controller.ErrNotAuthenticated) {
			fmt.Fprintln(a.out, "Please log in again.")
		}
	}
	return nil
}

func (a *app) login(ctx context.Context, args []string) error {
	var username string
	if len(args) > 0 {
		username = args[0]
	} else if a.readLine != nil {
		var err error
		if username, err = a.readLine("Username: "); err != nil {
			return err
		}
	}

	var password string
	if a.readPassword != nil {
		var err error
		if password, err = a.readPassword("Password: "); err != nil {
			return err
		}
	}

	sess, err := a.ctrl.Login(ctx, username, password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Logged in as %s.\n", sess.Username)
	return nil
}

func (a *app) account(ctx context.Context) error {
	info, err := a.ctrl.FetchAccount(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	for _, row := range [][2]string{
		{"Name", info.FullName()},
		{"Gender", info.Gender},
		{"Date of birth", info.DOB},
		{"Rank", info.Rank},
		{"Contact", info.Contact},
		{"Address", info.Address},
	} {
		fmt.Fprintf(tw, "%s:\t%s\n", row[0], row[1])
	}
	return tw.Flush()
}

func (a *app) inventory(ctx context.Context) error {
	items, err := a.ctrl.FetchInventory(ctx)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Fprintln(a.out, "No items.")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ITEM\tQUANTITY")
	for _, item := range items {
		fmt.Fprintf(tw, "%s\t%s\n", item.Name, item.Quantity)
	}
	return tw.Flush()
}

func (a *app) request(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return controller.ErrInvalidRequest
	}
	// Item names may contain spaces; the quantity is the last word.
	item := strings.Join(args[:len(args)-1], " ")
	quantity := model.Quantity(args[len(args)-1])

	if err := a.ctrl.SelectItem(item); err != nil {
		return err
	}
	if err := a.ctrl.RequestItem(ctx, item, quantity); err != nil {
		return err
	}
	fmt.Fprintln(a.out, controller.MsgRequestSent)
	return nil
}

func (a *app) status() {
	sess, ok := a.ctrl.Store().Current()
	if !ok {
		fmt.Fprintln(a.out, "Not logged in.")
		return
	}
	remaining, _ := a.ctrl.Remaining()
	fmt.Fprintf(a.out, "Logged in as %s. Session ends in: %s\n", sess.Username, session.FormatRemaining(remaining))
}
