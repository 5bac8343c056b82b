package main

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/urfave/cli/v3"

	"yt2mp3/internal/models"
	"yt2mp3/internal/shared"
)

// AdminUsers lists every account.
func (r *Runner) AdminUsers(ctx context.Context, cmd *cli.Command) error {
	if err := r.ensureAdmin(ctx, cmd); err != nil {
		return err
	}

	var users []models.Account
	if err := r.client.GetJSON(ctx, "/users", &users); err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(users, true)
	}

	if len(users) == 0 {
		return r.writePlain("No accounts\n")
	}

	headers := []string{"USERNAME", "ADMIN", "CREATED"}
	rows := make([][]string, 0, len(users))
	for _, u := range users {
		admin := ""
		if u.IsAdmin {
			admin = "✓"
		}
		rows = append(rows, []string{u.Username, admin, u.CreatedAt})
	}

	if stdoutIsTerminal() {
		return r.writePlain("%s\n", renderTable(headers, rows, nil))
	}
	for _, row := range rows {
		if err := r.writePlain("%s\n", strings.Join(row, "\t")); err != nil {
			return err
		}
	}
	return nil
}

// AdminResetPassword resets an account's password to a server-generated
// temporary one, shown exactly once.
func (r *Runner) AdminResetPassword(ctx context.Context, cmd *cli.Command) error {
	username := strings.TrimSpace(cmd.StringArg("username"))
	if username == "" {
		return fmt.Errorf("%w: a username is required", shared.ErrValidation)
	}

	if err := r.ensureAdmin(ctx, cmd); err != nil {
		return err
	}

	var resp models.ResetPasswordResponse
	path := "/users/" + url.PathEscape(username) + "/reset_password"
	if err := r.client.PostJSON(ctx, path, nil, &resp); err != nil {
		return err
	}

	r.writePlain("✓ Password reset for %s\n", username)
	return r.writePlain("Temporary password (shown once): %s\n", resp.TempPassword)
}

// AdminDeleteUser deletes an account and its downloads.
func (r *Runner) AdminDeleteUser(ctx context.Context, cmd *cli.Command) error {
	username := strings.TrimSpace(cmd.StringArg("username"))
	if username == "" {
		return fmt.Errorf("%w: a username is required", shared.ErrValidation)
	}

	if err := r.ensureAdmin(ctx, cmd); err != nil {
		return err
	}

	if username == r.session.Username() {
		return fmt.Errorf("%w: refusing to delete the logged-in account", shared.ErrValidation)
	}

	if !cmd.Bool("yes") {
		return fmt.Errorf("%w: pass --yes to confirm deleting %s and all their downloads", shared.ErrValidation, username)
	}

	if _, err := r.client.Delete(ctx, "/admin/delete_user/"+url.PathEscape(username)); err != nil {
		return err
	}

	r.logger.Info("account deleted", "user", username)
	return r.writePlain("✓ Deleted account %s\n", username)
}

func (r *Runner) ensureAdmin(ctx context.Context, cmd *cli.Command) error {
	if err := r.ensureSession(ctx, cmd); err != nil {
		return err
	}
	if !r.session.IsAdmin() {
		return fmt.Errorf("%w: this command requires an admin account", shared.ErrValidation)
	}
	return nil
}
