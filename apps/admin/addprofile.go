package main

import (
	"context"

	"github.com/wakahia/baraza/core/profile"
)

// addProfile seeds a profile. Day-to-day profile creation belongs to the
// identity collaborator; this exists for bootstrap and test environments.
func (cli *commandLine) addProfile(name, handle, role string) error {
	np := profile.NewProfile{
		Name:   name,
		Handle: handle,
		Role:   role,
	}
	if err := np.Validate(cli.profSvc); err != nil {
		return err
	}
	prof, err := cli.profSvc.Create(context.Background(), np)
	if err != nil {
		return err
	}
	logger.Printf("profile created: %s (@%s)", prof.ID, prof.Handle)
	return nil
}
