package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"golang.org/x/term"

	"github.com/trezcool/admissions/core/admission"
	"github.com/trezcool/admissions/core/session"
	"github.com/trezcool/admissions/core/staff"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db           *sql.DB
	out          io.Writer
	staffSvc     *staff.Service
	sessionSvc   *session.Service
	admissionSvc *admission.Service
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS]                          - run a goose command (up, down, status, ...)")
	fmt.Fprintln(cli.out, "  addstaff -username USERNAME [-name NAME]        - create a staff account or reset its password")
	fmt.Fprintln(cli.out, "  addsession -name NAME [-starts DATE] [-ends DATE] [-closed]")
	fmt.Fprintln(cli.out, "                                                  - create an academic session")
	fmt.Fprintln(cli.out, "  sessions                                        - list academic sessions")
	fmt.Fprintln(cli.out, "  applications [-status S] [-trade T] [-search Q] [-page N]")
	fmt.Fprintln(cli.out, "                                                  - list applications")
	fmt.Fprintln(cli.out, "  export [-type all|regular|scc] [-status S] [-trade T] [-o FILE]")
	fmt.Fprintln(cli.out, "                                                  - export applications as CSV")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addStaffCmd := flag.NewFlagSet("addstaff", flag.ExitOnError)
	addStaffUname := addStaffCmd.String("username", "", "The staff's username. The password will be prompted next.")
	addStaffName := addStaffCmd.String("name", "", "The staff's full name.")

	addSessionCmd := flag.NewFlagSet("addsession", flag.ExitOnError)
	addSessionName := addSessionCmd.String("name", "", "The session's name, e.g. 2026-27.")
	addSessionStarts := addSessionCmd.String("starts", "", "First day of the session (YYYY-MM-DD).")
	addSessionEnds := addSessionCmd.String("ends", "", "Last day of the session (YYYY-MM-DD).")
	addSessionClosed := addSessionCmd.Bool("closed", false, "Create the session closed for admissions.")

	listAppsCmd := flag.NewFlagSet("applications", flag.ExitOnError)
	listAppsFilter := bindFilterFlags(listAppsCmd)
	listAppsPage := listAppsCmd.Int("page", 1, "Page number.")

	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
	exportFilter := bindFilterFlags(exportCmd)
	exportType := exportCmd.String("type", string(admission.ExportAll), "Export type: all, regular or scc.")
	exportOut := exportCmd.String("o", "", "Output file. Defaults to the export's own filename.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "addstaff":
		if err := addStaffCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addStaffUname == "" {
			addStaffCmd.Usage()
			return errHelp
		}
		fmt.Fprint(cli.out, "Enter password:")
		pwd, err := readPasswordFunc(int(syscall.Stdin))
		fmt.Fprintln(cli.out)
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			addStaffCmd.Usage()
			return errHelp
		}
		return cli.addStaff(staff.NewStaff{Username: *addStaffUname, Name: *addStaffName, Password: string(pwd)})

	case "addsession":
		if err := addSessionCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addSessionName == "" {
			addSessionCmd.Usage()
			return errHelp
		}
		active := !*addSessionClosed
		return cli.addSession(session.NewSession{
			Name:     *addSessionName,
			StartsOn: *addSessionStarts,
			EndsOn:   *addSessionEnds,
			IsActive: &active,
		})

	case "sessions":
		return cli.listSessions()

	case "applications":
		if err := listAppsCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.listApplications(listAppsFilter.filter(), *listAppsPage)

	case "export":
		if err := exportCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.export(exportFilter.filter(), *exportType, *exportOut)

	default:
		cli.printUsage()
		return errHelp
	}
}

type filterFlags struct {
	status, trade, search *string
}

func bindFilterFlags(fs *flag.FlagSet) filterFlags {
	return filterFlags{
		status: fs.String("status", "", "Only applications with this status: pending, approved or rejected."),
		trade:  fs.String("trade", "", "Only applications for this trade."),
		search: fs.String("search", "", "Match on application ID, name, mobile or email."),
	}
}

func (f filterFlags) filter() admission.QueryFilter {
	return admission.QueryFilter{Status: *f.status, Trade: *f.trade, Search: *f.search}
}
