package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"yt2mp3/internal/models"
	"yt2mp3/internal/shared"
)

// AuthLogin authenticates with the conversion service.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	if err := r.ensureSession(ctx, cmd); err != nil {
		return err
	}

	current := r.session.Current()
	if current.IsAdmin {
		return r.writePlain("✓ Logged in as %s (admin)\n", current.Username)
	}
	return r.writePlain("✓ Logged in as %s\n", current.Username)
}

// AuthLogout clears the session, cancels background polling and drops all
// cached state.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	r.session.Logout()
	return r.writePlain("✓ Logged out\n")
}

// AuthRegister creates a new account. Registration does not log in; the
// reset word is the only recovery credential, so it is echoed back once.
func (r *Runner) AuthRegister(ctx context.Context, cmd *cli.Command) error {
	username := strings.TrimSpace(cmd.StringArg("username"))
	password := cmd.String("new-password")
	resetWord := strings.TrimSpace(cmd.String("reset-word"))

	if username == "" || password == "" || resetWord == "" {
		return fmt.Errorf("%w: username, --new-password and --reset-word are required", shared.ErrValidation)
	}

	body := map[string]string{
		"username":   username,
		"password":   password,
		"reset_word": resetWord,
	}
	if err := r.client.PostJSON(ctx, "/register", body, nil); err != nil {
		return err
	}

	r.logger.Info("account registered", "user", username)
	r.writePlain("✓ Account %s created\n", username)
	return r.writePlain("Keep your reset word safe; it is the only way to recover the password.\n")
}

// AuthSelfReset resets a forgotten password using the recovery word.
func (r *Runner) AuthSelfReset(ctx context.Context, cmd *cli.Command) error {
	username := strings.TrimSpace(cmd.StringArg("username"))
	resetWord := strings.TrimSpace(cmd.String("reset-word"))
	newPassword := cmd.String("new-password")

	if username == "" || resetWord == "" || newPassword == "" {
		return fmt.Errorf("%w: username, --reset-word and --new-password are required", shared.ErrValidation)
	}

	body := map[string]string{
		"username":     username,
		"reset_word":   resetWord,
		"new_password": newPassword,
	}
	if err := r.client.PostJSON(ctx, "/self_reset", body, nil); err != nil {
		return err
	}

	return r.writePlain("✓ Password updated for %s\n", username)
}

// AuthWhoami shows the identity behind the current token.
func (r *Runner) AuthWhoami(ctx context.Context, cmd *cli.Command) error {
	if err := r.ensureSession(ctx, cmd); err != nil {
		return err
	}

	var me models.MeResponse
	if err := r.client.GetJSON(ctx, "/me", &me); err != nil {
		return err
	}

	if me.IsAdmin {
		return r.writePlain("%s (admin)\n", me.User)
	}
	return r.writePlain("%s\n", me.User)
}
