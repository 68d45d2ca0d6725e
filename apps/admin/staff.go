package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"

	"github.com/trezcool/admissions/core/staff"
)

// addStaff creates a staff account, or resets the password of an existing one.
func (cli *commandLine) addStaff(ns staff.NewStaff) error {
	s, err := cli.staffSvc.UpdateOrCreate(context.Background(), ns)
	if err != nil {
		return err
	}
	fmt.Fprintln(cli.out, color.GreenString("staff %q is ready", s.Username))
	return nil
}
