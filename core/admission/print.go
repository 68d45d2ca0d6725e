package admission

import (
	htmltmpl "html/template"
	"io"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/admissions/core/site"
	"github.com/trezcool/admissions/fs"
)

var (
	printTmpls    map[string]*htmltmpl.Template
	printTmplsErr error
	printOnce     sync.Once
)

type printData struct {
	Site          site.Settings
	App           Application
	SessionName   string
	DateSubmitted string
	Slots         []SlotStatus
}

func loadPrintTemplates() {
	printTmpls = make(map[string]*htmltmpl.Template, 2)
	for _, name := range []string{"application", "receipt"} {
		tmpl, err := htmltmpl.ParseFS(appfs.FS, "templates/print/"+name+".gohtml", "templates/print/_layout.gohtml")
		if err != nil {
			printTmplsErr = errors.Wrapf(err, "parsing %s template", name)
			return
		}
		printTmpls[name] = tmpl
	}
}

func render(out io.Writer, name string, app Application, settings site.Settings, sessionName string) error {
	printOnce.Do(loadPrintTemplates)
	if printTmplsErr != nil {
		return printTmplsErr
	}
	data := printData{
		Site:        settings,
		App:         app,
		SessionName: sessionName,
		Slots:       app.DocumentSlots(),
	}
	if !app.DateSubmitted.IsZero() {
		data.DateSubmitted = app.DateSubmitted.Format("02 Jan 2006")
	}
	return printTmpls[name].Execute(out, data)
}

// RenderPrintForm writes the printable application form: letterhead, sectioned fields,
// document badges & signature lines. The page opens the print dialog on load.
func RenderPrintForm(out io.Writer, app Application, settings site.Settings, sessionName string) error {
	return render(out, "application", app, settings, sessionName)
}

// RenderReceipt writes the applicant's receipt.
func RenderReceipt(out io.Writer, app Application, settings site.Settings, sessionName string) error {
	return render(out, "receipt", app, settings, sessionName)
}
