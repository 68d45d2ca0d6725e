package sqlxrepos

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/admissions/core"
	"github.com/trezcool/admissions/core/admission"
)

const uidaiConstraint = "applications_uidai_number_key"

type applicationRow struct {
	ID                       string      `db:"id"`
	ApplicationID            string      `db:"application_id"`
	Name                     string      `db:"name"`
	FatherName               string      `db:"father_name"`
	MotherName               string      `db:"mother_name"`
	Mobile                   string      `db:"mobile"`
	Email                    string      `db:"email"`
	DOB                      string      `db:"dob"`
	Gender                   string      `db:"gender"`
	Category                 string      `db:"category"`
	UIDAINumber              null.String `db:"uidai_number"`
	VillageTownCity          string      `db:"village_town_city"`
	Nearby                   string      `db:"nearby"`
	PoliceStation            string      `db:"police_station"`
	PostOffice               string      `db:"post_office"`
	Block                    string      `db:"block"`
	District                 string      `db:"district"`
	State                    string      `db:"state"`
	Pincode                  string      `db:"pincode"`
	Class10thSchool          string      `db:"class_10th_school"`
	Class10thSubject         string      `db:"class_10th_subject"`
	Class10thMarksObtained   string      `db:"class_10th_marks_obtained"`
	Class10thTotalMarks      string      `db:"class_10th_total_marks"`
	Class10thPercentage      string      `db:"class_10th_percentage"`
	Class12thSchool          string      `db:"class_12th_school"`
	Class12thSubject         string      `db:"class_12th_subject"`
	Class12thMarksObtained   string      `db:"class_12th_marks_obtained"`
	Class12thTotalMarks      string      `db:"class_12th_total_marks"`
	Class12thPercentage      string      `db:"class_12th_percentage"`
	Trade                    string      `db:"trade"`
	Qualification            string      `db:"qualification"`
	SessionID                null.String `db:"session_id"`
	Shift                    string      `db:"shift"`
	PWDClaim                 string      `db:"pwd_claim"`
	PWDCategory              string      `db:"pwd_category"`
	StudentCreditCard        string      `db:"student_credit_card"`
	StudentCreditCardDetails null.JSON   `db:"student_credit_card_details"`
	RegistrationType         string      `db:"registration_type"`
	Documents                null.JSON   `db:"documents"`
	Status                   string      `db:"status"`
	DateSubmitted            time.Time   `db:"date_submitted"`
	UpdatedAt                time.Time   `db:"updated_at"`
}

// newest first; application_id breaks ties within the same second
var applicationsOrdering = []core.DBOrdering{
	{Field: "date_submitted"},
	{Field: "application_id"},
}

// order matters: used for both INSERT column list & named values
var applicationColumns = []string{
	"id", "application_id", "name", "father_name", "mother_name", "mobile", "email", "dob", "gender", "category",
	"uidai_number", "village_town_city", "nearby", "police_station", "post_office", "block", "district", "state",
	"pincode", "class_10th_school", "class_10th_subject", "class_10th_marks_obtained", "class_10th_total_marks",
	"class_10th_percentage", "class_12th_school", "class_12th_subject", "class_12th_marks_obtained",
	"class_12th_total_marks", "class_12th_percentage", "trade", "qualification", "session_id", "shift", "pwd_claim",
	"pwd_category", "student_credit_card", "student_credit_card_details", "registration_type", "documents", "status",
	"date_submitted", "updated_at",
}

// columns an edit can change
var applicationEditableColumns = []string{
	"name", "father_name", "mother_name", "mobile", "email", "dob", "gender", "category", "uidai_number",
	"village_town_city", "nearby", "police_station", "post_office", "block", "district", "state", "pincode",
	"class_10th_school", "class_10th_subject", "class_10th_marks_obtained", "class_10th_total_marks",
	"class_10th_percentage", "class_12th_school", "class_12th_subject", "class_12th_marks_obtained",
	"class_12th_total_marks", "class_12th_percentage", "trade", "qualification", "session_id", "shift", "pwd_claim",
	"pwd_category", "student_credit_card", "student_credit_card_details", "registration_type", "documents", "status",
	"updated_at",
}

var (
	insertApplicationQuery = fmt.Sprintf(
		"INSERT INTO applications (%s) VALUES (:%s)",
		strings.Join(applicationColumns, ", "), strings.Join(applicationColumns, ", :"),
	)
	updateApplicationQuery = "UPDATE applications SET " + setClause(applicationEditableColumns) + " WHERE id = :id"
)

func setClause(cols []string) string {
	sets := make([]string, 0, len(cols))
	for _, c := range cols {
		sets = append(sets, c+" = :"+c)
	}
	return strings.Join(sets, ", ")
}

type applicationRepository struct {
	db *sqlx.DB
}

var _ admission.Repository = (*applicationRepository)(nil) // interface compliance check

func NewApplicationRepository(db *sqlx.DB) *applicationRepository {
	return &applicationRepository{db: db}
}

func (repo applicationRepository) toRow(app admission.Application) (applicationRow, error) {
	row := applicationRow{
		ID:                     app.DBID,
		ApplicationID:          app.ApplicationID,
		Name:                   app.Name,
		FatherName:             app.FatherName,
		MotherName:             app.MotherName,
		Mobile:                 app.Mobile,
		Email:                  app.Email,
		DOB:                    app.DOB,
		Gender:                 app.Gender,
		Category:               app.Category,
		UIDAINumber:            null.NewString(app.UIDAINumber, app.UIDAINumber != ""),
		VillageTownCity:        app.VillageTownCity,
		Nearby:                 app.Nearby,
		PoliceStation:          app.PoliceStation,
		PostOffice:             app.PostOffice,
		Block:                  app.Block,
		District:               app.District,
		State:                  app.State,
		Pincode:                app.Pincode,
		Class10thSchool:        app.Class10thSchool,
		Class10thSubject:       app.Class10thSubject,
		Class10thMarksObtained: app.Class10thMarksObtained,
		Class10thTotalMarks:    app.Class10thTotalMarks,
		Class10thPercentage:    app.Class10thPercentage,
		Class12thSchool:        app.Class12thSchool,
		Class12thSubject:       app.Class12thSubject,
		Class12thMarksObtained: app.Class12thMarksObtained,
		Class12thTotalMarks:    app.Class12thTotalMarks,
		Class12thPercentage:    app.Class12thPercentage,
		Trade:                  app.Trade,
		Qualification:          app.Qualification,
		SessionID:              null.NewString(app.SessionID, app.SessionID != ""),
		Shift:                  app.Shift,
		PWDClaim:               app.PWDClaim,
		PWDCategory:            app.PWDCategory,
		StudentCreditCard:      app.StudentCreditCard,
		RegistrationType:       app.RegistrationType,
		Status:                 string(app.Status),
		DateSubmitted:          app.DateSubmitted.UTC(),
		UpdatedAt:              app.UpdatedAt.UTC(),
	}
	if app.StudentCreditCardDetails != nil {
		if err := row.StudentCreditCardDetails.Marshal(app.StudentCreditCardDetails); err != nil {
			return applicationRow{}, errors.Wrap(err, "marshalling credit card details")
		}
	}
	docs, err := json.Marshal(app.Documents)
	if err != nil {
		return applicationRow{}, errors.Wrap(err, "marshalling documents")
	}
	row.Documents = null.JSONFrom(docs)
	return row, nil
}

func (repo applicationRepository) fromRow(row applicationRow) (admission.Application, error) {
	app := admission.Application{
		DBID:                   row.ID,
		ApplicationID:          row.ApplicationID,
		Name:                   row.Name,
		FatherName:             row.FatherName,
		MotherName:             row.MotherName,
		Mobile:                 row.Mobile,
		Email:                  row.Email,
		DOB:                    row.DOB,
		Gender:                 row.Gender,
		Category:               row.Category,
		UIDAINumber:            row.UIDAINumber.String,
		VillageTownCity:        row.VillageTownCity,
		Nearby:                 row.Nearby,
		PoliceStation:          row.PoliceStation,
		PostOffice:             row.PostOffice,
		Block:                  row.Block,
		District:               row.District,
		State:                  row.State,
		Pincode:                row.Pincode,
		Class10thSchool:        row.Class10thSchool,
		Class10thSubject:       row.Class10thSubject,
		Class10thMarksObtained: row.Class10thMarksObtained,
		Class10thTotalMarks:    row.Class10thTotalMarks,
		Class10thPercentage:    row.Class10thPercentage,
		Class12thSchool:        row.Class12thSchool,
		Class12thSubject:       row.Class12thSubject,
		Class12thMarksObtained: row.Class12thMarksObtained,
		Class12thTotalMarks:    row.Class12thTotalMarks,
		Class12thPercentage:    row.Class12thPercentage,
		Trade:                  row.Trade,
		Qualification:          row.Qualification,
		SessionID:              row.SessionID.String,
		Shift:                  row.Shift,
		PWDClaim:               row.PWDClaim,
		PWDCategory:            row.PWDCategory,
		StudentCreditCard:      row.StudentCreditCard,
		RegistrationType:       row.RegistrationType,
		Status:                 admission.Status(row.Status),
		DateSubmitted:          row.DateSubmitted.UTC(),
		UpdatedAt:              row.UpdatedAt.UTC(),
	}
	if row.StudentCreditCardDetails.Valid && string(row.StudentCreditCardDetails.JSON) != "null" {
		var details admission.CreditCardDetails
		if err := row.StudentCreditCardDetails.Unmarshal(&details); err != nil {
			return admission.Application{}, errors.Wrap(err, "unmarshalling credit card details")
		}
		app.StudentCreditCardDetails = &details
	}
	if row.Documents.Valid {
		if err := row.Documents.Unmarshal(&app.Documents); err != nil {
			return admission.Application{}, errors.Wrap(err, "unmarshalling documents")
		}
	}
	return app, nil
}

func (repo applicationRepository) fromRows(rows []applicationRow) ([]admission.Application, error) {
	apps := make([]admission.Application, 0, len(rows))
	for _, row := range rows {
		app, err := repo.fromRow(row)
		if err != nil {
			return nil, err
		}
		apps = append(apps, app)
	}
	return apps, nil
}

// trapErr maps "no rows" to admission.ErrNotFound & the UIDAI unique violation to admission.ErrUIDAIExists.
func (repo applicationRepository) trapErr(err error, msg string) error {
	switch {
	case isNoRows(err):
		return admission.ErrNotFound
	case isUniqueViolation(err, uidaiConstraint):
		return admission.ErrUIDAIExists
	}
	return errors.Wrap(err, msg)
}

func (repo applicationRepository) CreateApplication(ctx context.Context, app admission.Application) (admission.Application, error) {
	row, err := repo.toRow(app)
	if err != nil {
		return admission.Application{}, err
	}
	if _, err = repo.db.NamedExecContext(ctx, insertApplicationQuery, row); err != nil {
		return admission.Application{}, repo.trapErr(err, "inserting application")
	}
	return repo.GetApplication(ctx, app.DBID)
}

func (repo applicationRepository) GetApplication(ctx context.Context, dbID string) (admission.Application, error) {
	var row applicationRow
	if err := repo.db.GetContext(ctx, &row, "SELECT * FROM applications WHERE id = $1", dbID); err != nil {
		return admission.Application{}, repo.trapErr(err, "selecting application")
	}
	return repo.fromRow(row)
}

func (repo applicationRepository) GetApplicationByUIDAI(ctx context.Context, number string) (admission.Application, error) {
	if number == "" {
		return admission.Application{}, admission.ErrNotFound
	}
	var row applicationRow
	if err := repo.db.GetContext(ctx, &row, "SELECT * FROM applications WHERE uidai_number = $1", number); err != nil {
		return admission.Application{}, repo.trapErr(err, "selecting application by uidai")
	}
	return repo.fromRow(row)
}

func (repo applicationRepository) where(filter admission.QueryFilter) (string, []interface{}) {
	var conds []string
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Status != "" {
		conds = append(conds, "status = "+arg(filter.Status))
	}
	if filter.Trade != "" {
		conds = append(conds, "trade = "+arg(filter.Trade))
	}
	if filter.RegistrationType != "" {
		conds = append(conds, "registration_type = "+arg(filter.RegistrationType))
	}
	if filter.StudentCreditCard != "" {
		conds = append(conds, "student_credit_card = "+arg(filter.StudentCreditCard))
	}
	if filter.Search != "" {
		p := arg(likePattern(filter.Search))
		conds = append(conds, fmt.Sprintf(
			"(application_id ILIKE %[1]s OR name ILIKE %[1]s OR mobile ILIKE %[1]s OR email ILIKE %[1]s)", p,
		))
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (repo applicationRepository) QueryApplications(
	ctx context.Context,
	filter admission.QueryFilter,
	limit, offset int,
) ([]admission.Application, int, error) {
	where, args := repo.where(filter)

	var total int
	if err := repo.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM applications"+where, args...); err != nil {
		return nil, 0, errors.Wrap(err, "counting applications")
	}

	q := "SELECT * FROM applications" + where + core.OrderBy(applicationsOrdering...)
	if limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", limit)
	}
	if offset > 0 {
		q += fmt.Sprintf(" OFFSET %d", offset)
	}
	var rows []applicationRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, 0, errors.Wrap(err, "selecting applications")
	}
	apps, err := repo.fromRows(rows)
	if err != nil {
		return nil, 0, err
	}
	return apps, total, nil
}

func (repo applicationRepository) UpdateApplication(ctx context.Context, app admission.Application) (admission.Application, error) {
	row, err := repo.toRow(app)
	if err != nil {
		return admission.Application{}, err
	}
	res, err := repo.db.NamedExecContext(ctx, updateApplicationQuery, row)
	if err != nil {
		return admission.Application{}, repo.trapErr(err, "updating application")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return admission.Application{}, admission.ErrNotFound
	}
	return repo.GetApplication(ctx, app.DBID)
}

func (repo applicationRepository) UpdateApplicationStatus(
	ctx context.Context,
	dbID string,
	status admission.Status,
	at time.Time,
) (admission.Application, error) {
	var row applicationRow
	q := "UPDATE applications SET status = $1, updated_at = $2 WHERE id = $3 RETURNING *"
	if err := repo.db.GetContext(ctx, &row, q, string(status), at.UTC(), dbID); err != nil {
		return admission.Application{}, repo.trapErr(err, "updating application status")
	}
	return repo.fromRow(row)
}
