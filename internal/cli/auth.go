package cli

import (
	"context"
	"fmt"
	"strings"

	"shoe_pos/internal/session"

	"go.uber.org/zap"
)

func (r *Runner) login(ctx context.Context, args []string) error {
	fs := r.flags("login")
	email := fs.String("email", "", "Account email")
	password := fs.String("password", "", "Account password (prompted when empty)")
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}
	if strings.TrimSpace(*email) == "" {
		return fmt.Errorf("--email is required")
	}
	if *password == "" {
		p, err := r.prompt("Password: ")
		if err != nil {
			return err
		}
		*password = p
	}
	if *password == "" {
		return fmt.Errorf("password is required")
	}

	res, err := r.api.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	sess := session.Session{
		User: session.User{
			ID:    res.User.ID,
			Name:  res.User.Name,
			Email: res.User.Email,
			Role:  res.User.Role,
		},
		Token: res.Token,
	}
	if err := r.session.Set(sess); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	if r.globals.JSON {
		return r.printJSON(sess.User)
	}
	fmt.Fprintf(r.out, "Logged in as %s <%s>\n", displayName(sess.User), sess.User.Email)
	return nil
}

// logout ends the local session even when the backend call fails.
func (r *Runner) logout(ctx context.Context, _ []string) error {
	if r.session.Token() != "" {
		if err := r.api.Logout(ctx); err != nil {
			r.logger.Warn("backend logout failed", zap.Error(err))
		}
	}
	if err := r.session.Clear(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	fmt.Fprintln(r.out, "Logged out.")
	return nil
}

func (r *Runner) whoami(_ context.Context, _ []string) error {
	sess, err := r.session.Require()
	if err != nil {
		return err
	}
	if r.globals.JSON {
		return r.printJSON(sess.User)
	}
	fmt.Fprintf(r.out, "%s <%s>", displayName(sess.User), sess.User.Email)
	if sess.User.Role != "" {
		fmt.Fprintf(r.out, " (%s)", sess.User.Role)
	}
	fmt.Fprintln(r.out)
	return nil
}

func displayName(u session.User) string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}
