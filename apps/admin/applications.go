package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/trezcool/admissions/core"
	"github.com/trezcool/admissions/core/admission"
)

var statusColors = map[admission.Status]func(format string, a ...interface{}) string{
	admission.StatusPending:  color.YellowString,
	admission.StatusApproved: color.GreenString,
	admission.StatusRejected: color.RedString,
}

func (cli *commandLine) listApplications(filter admission.QueryFilter, page int) error {
	p, err := cli.admissionSvc.Query(context.Background(), filter, page)
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(cli.out)
	table.SetHeader([]string{"Application ID", "Name", "Mobile", "Trade", "Status", "Submitted"})
	for _, app := range p.Items {
		status := string(app.Status)
		if colorize, ok := statusColors[app.Status]; ok {
			status = colorize(status)
		}
		table.Append([]string{
			app.ApplicationID,
			app.Name,
			app.Mobile,
			app.Trade,
			status,
			app.DateSubmitted.Format("2006-01-02 15:04"),
		})
	}
	table.SetFooter([]string{"", "", "", "", "Total", strconv.Itoa(p.Total)})
	table.Render()

	fmt.Fprintf(cli.out, "page %d of %d | pending: %d, approved: %d, rejected: %d\n",
		p.Page, p.TotalPages, p.Stats.Pending, p.Stats.Approved, p.Stats.Rejected)
	return nil
}

// export writes the CSV to `out`, or to the export's default filename if `out` is empty.
func (cli *commandLine) export(filter admission.QueryFilter, typ, out string) error {
	exportType, err := admission.ParseExportType(typ)
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "type", Error: err.Error()})
	}

	var buf bytes.Buffer
	n, err := cli.admissionSvc.Export(context.Background(), filter, exportType, &buf)
	if err != nil {
		return err
	}
	if out == "" {
		out = admission.ExportFilename(exportType, time.Now())
	}
	if err = os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
		return err
	}
	fmt.Fprintln(cli.out, color.GreenString("%d application(s) exported to %s", n, out))
	return nil
}
