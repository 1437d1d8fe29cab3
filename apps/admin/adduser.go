package main

import (
	"context"

	"github.com/studyhub/studyhub/core"
	"github.com/studyhub/studyhub/core/session"
)

// addUser registers an account with the configured auth provider. An already
// registered email is reported, not overwritten; the provider owns passwords.
func (cli *commandLine) addUser(email, pwd string) error {
	email = core.CleanString(email, true /* lower */)

	ident, err := cli.auth.SignUp(context.Background(), email, pwd)
	if err != nil {
		if err == session.ErrEmailTaken {
			logger.Printf("account %s already exists\n", email)
			return nil
		}
		return err
	}
	logger.Printf("account %s created (id %s)\n", ident.Email, ident.ID)
	return nil
}
