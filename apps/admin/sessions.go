package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/trezcool/admissions/core/session"
)

func (cli *commandLine) addSession(ns session.NewSession) error {
	s, err := cli.sessionSvc.Create(context.Background(), ns)
	if err != nil {
		return err
	}
	fmt.Fprintln(cli.out, color.GreenString("session %q created (%s)", s.Name, s.ID))
	return nil
}

func (cli *commandLine) listSessions() error {
	sessions, err := cli.sessionSvc.List(context.Background())
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(cli.out)
	table.SetHeader([]string{"ID", "Name", "Starts On", "Ends On", "Open"})
	for _, s := range sessions {
		open := color.RedString("no")
		if s.IsActive {
			open = color.GreenString("yes")
		}
		table.Append([]string{s.ID, s.Name, s.StartsOn, s.EndsOn, open})
	}
	table.Render()
	return nil
}
