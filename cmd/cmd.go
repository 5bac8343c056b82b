// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// authCommand handles account and session operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage accounts and the session",
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Authenticate and (with [session] persist = true) save the token locally",
				Action: r.AuthLogin,
			},
			{
				Name:   "logout",
				Usage:  "Clear the session, stop polling and drop cached state",
				Action: r.AuthLogout,
			},
			{
				Name:  "register",
				Usage: "Create a new account",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "username"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "new-password",
						Usage:    "Password for the new account",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "reset-word",
						Usage:    "Recovery word used for self-service password reset",
						Required: true,
					},
				},
				Action: r.AuthRegister,
			},
			{
				Name:  "self-reset",
				Usage: "Reset a forgotten password using the recovery word",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "username"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "reset-word",
						Usage:    "Recovery word chosen at registration",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "new-password",
						Usage:    "New password",
						Required: true,
					},
				},
				Action: r.AuthSelfReset,
			},
			{
				Name:   "whoami",
				Usage:  "Show the identity behind the current token",
				Action: r.AuthWhoami,
			},
		},
	}
}

// convertCommand submits a conversion job
func convertCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "convert",
		Aliases: []string{"submit"},
		Usage:   "Submit a YouTube URL for MP3 conversion",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "url"},
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "wait",
				Aliases: []string{"w"},
				Usage:   "Block until the job is ready",
			},
			&cli.BoolFlag{
				Name:  "save",
				Usage: "Fetch the MP3 once ready (implies --wait)",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output file path (with --save)",
			},
		},
		Action: r.Convert,
	}
}

// statusCommand checks job status on demand
func statusCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Check a job's status (defaults to the active job)",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "id"},
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Status,
	}
}

// getCommand fetches a finished MP3
func getCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "get",
		Aliases: []string{"fetch"},
		Usage:   "Download a finished MP3 (defaults to the active job)",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "id"},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output file path",
			},
		},
		Action: r.Get,
	}
}

// deleteCommand removes a job server-side
func deleteCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "delete",
		Aliases: []string{"rm"},
		Usage:   "Delete a download from the server",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "id"},
		},
		Action: r.Delete,
	}
}

// downloadsCommand lists downloads
func downloadsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "downloads",
		Aliases: []string{"ls"},
		Usage:   "List downloads",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List your downloads (admins: --all for every user)",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "all",
						Usage: "List every user's downloads (admin only)",
					},
					&cli.StringFlag{
						Name:    "search",
						Aliases: []string{"s"},
						Usage:   "Filter by filename or owner; groups duplicate titles",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "cached",
						Usage: "Show the locally mirrored listing without contacting the server",
					},
				},
				Action: r.DownloadsList,
			},
			{
				Name:  "user",
				Usage: "List another user's downloads",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "username"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.DownloadsUser,
			},
		},
	}
}

// adminCommand exposes the administrative surface
func adminCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "admin",
		Usage: "Administrative operations",
		Commands: []*cli.Command{
			{
				Name:  "users",
				Usage: "List accounts",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.AdminUsers,
			},
			{
				Name:  "reset-password",
				Usage: "Reset an account's password to a temporary one",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "username"},
				},
				Action: r.AdminResetPassword,
			},
			{
				Name:  "delete-user",
				Usage: "Delete an account and its downloads",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "username"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "yes",
						Aliases: []string{"y"},
						Usage:   "Skip the confirmation prompt",
					},
				},
				Action: r.AdminDeleteUser,
			},
		},
	}
}

// watchCommand launches the interactive TUI
func watchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "watch",
		Aliases: []string{"tui"},
		Usage:   "Live download listing with search and grouping",
		Action:  r.Watch,
	}
}

// setupCommand handles local setup operations
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "database",
				Usage: "Initialize the local database and run migrations",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
				},
				Action: r.SetupDatabase,
			},
			{
				Name:  "config",
				Usage: "Write a config.toml from the embedded template",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "path",
						Usage: "Destination path",
						Value: "config.toml",
					},
				},
				Action: r.SetupConfig,
			},
		},
	}
}
