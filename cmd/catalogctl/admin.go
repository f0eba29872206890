package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/layarapp/layar-server/internal/domain"
)

func (r *runner) grantAdmin(ctx context.Context, cmd *cli.Command) error {
	p, err := r.open(cmd)
	if err != nil {
		return err
	}
	defer p.Close()

	role := domain.RoleAdmin
	if cmd.Bool("revoke") {
		role = domain.RoleUser
	}

	email := cmd.String("email")
	uid, err := p.auth.GrantRole(ctx, email, role)
	if err != nil {
		return err
	}
	r.printf("%s (%s) is now %s; the change applies at their next sign-in", email, uid, role)
	return nil
}

func grantAdminCommand(r *runner) *cli.Command {
	return &cli.Command{
		Name:  "grant-admin",
		Usage: "Give an account the admin role",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "email",
				Usage:    "Account email",
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "revoke",
				Usage: "Set the role back to user instead",
			},
		},
		Action: r.grantAdmin,
	}
}
