package admission

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var (
	ErrNotFound      = errors.New("application not found")
	ErrUIDAIExists   = errors.New("an application with this UIDAI number already exists")
	ErrDocNotFound   = errors.New("document not found")
	ErrSessionClosed = errors.New("session is not open for admissions")
)

// CreditCardDetails is the bank account an applicant's student credit card is paid into.
type CreditCardDetails struct {
	BankName      string `json:"bank_name"`
	AccountNumber string `json:"account_number"`
}

// Documents holds the stored filename of each DocumentSlot. An empty filename means the slot is absent.
type Documents struct {
	Photo                string `json:"photo,omitempty"`
	Aadhaar              string `json:"aadhaar,omitempty"`
	Marksheet            string `json:"marksheet,omitempty"`
	StudentCreditCardDoc string `json:"student_credit_card_doc,omitempty"`
}

func (d Documents) Get(slot DocumentSlot) string {
	switch slot {
	case SlotPhoto:
		return d.Photo
	case SlotAadhaar:
		return d.Aadhaar
	case SlotMarksheet:
		return d.Marksheet
	case SlotStudentCreditCardDoc:
		return d.StudentCreditCardDoc
	}
	return ""
}

func (d *Documents) Set(slot DocumentSlot, filename string) {
	switch slot {
	case SlotPhoto:
		d.Photo = filename
	case SlotAadhaar:
		d.Aadhaar = filename
	case SlotMarksheet:
		d.Marksheet = filename
	case SlotStudentCreditCardDoc:
		d.StudentCreditCardDoc = filename
	}
}

// Filenames returns the stored filenames of the present slots.
func (d Documents) Filenames() []string {
	names := make([]string, 0, len(DocumentSlots))
	for _, slot := range DocumentSlots {
		if fn := d.Get(slot); fn != "" {
			names = append(names, fn)
		}
	}
	return names
}

// SlotStatus reports whether a document slot is filled.
type SlotStatus struct {
	Slot     DocumentSlot `json:"slot"`
	Label    string       `json:"label"`
	Filename string       `json:"filename,omitempty"`
	Present  bool         `json:"present"`
}

type Application struct {
	DBID          string `json:"id"`
	ApplicationID string `json:"application_id"`

	// personal
	Name        string `json:"name"`
	FatherName  string `json:"father_name"`
	MotherName  string `json:"mother_name"`
	Mobile      string `json:"mobile"`
	Email       string `json:"email"`
	DOB         string `json:"dob"` // YYYY-MM-DD
	Gender      string `json:"gender"`
	Category    string `json:"category"`
	UIDAINumber string `json:"uidai_number"`

	// address
	VillageTownCity string `json:"village_town_city"`
	Nearby          string `json:"nearby"`
	PoliceStation   string `json:"police_station"`
	PostOffice      string `json:"post_office"`
	Block           string `json:"block"`
	District        string `json:"district"`
	State           string `json:"state"`
	Pincode         string `json:"pincode"`

	// education
	Class10thSchool        string `json:"class_10th_school"`
	Class10thSubject       string `json:"class_10th_subject"`
	Class10thMarksObtained string `json:"class_10th_marks_obtained"`
	Class10thTotalMarks    string `json:"class_10th_total_marks"`
	Class10thPercentage    string `json:"class_10th_percentage"`
	Class12thSchool        string `json:"class_12th_school"`
	Class12thSubject       string `json:"class_12th_subject"`
	Class12thMarksObtained string `json:"class_12th_marks_obtained"`
	Class12thTotalMarks    string `json:"class_12th_total_marks"`
	Class12thPercentage    string `json:"class_12th_percentage"`

	// preferences
	Trade         string `json:"trade"`
	Qualification string `json:"qualification"`
	SessionID     string `json:"session_id"`
	Shift         string `json:"shift"`

	PWDClaim    string `json:"pwd_claim"`
	PWDCategory string `json:"pwd_category"`

	StudentCreditCard        string             `json:"student_credit_card"`
	StudentCreditCardDetails *CreditCardDetails `json:"student_credit_card_details"`
	RegistrationType         string             `json:"registration_type"`

	Documents     Documents `json:"documents"`
	Status        Status    `json:"status"`
	DateSubmitted time.Time `json:"date_submitted"` // UTC
	UpdatedAt     time.Time `json:"updated_at"`     // UTC
}

// DocumentSlots reports the presence of every document slot, in display order.
func (a Application) DocumentSlots() []SlotStatus {
	slots := make([]SlotStatus, 0, len(DocumentSlots))
	for _, slot := range DocumentSlots {
		fn := a.Documents.Get(slot)
		slots = append(slots, SlotStatus{Slot: slot, Label: slot.Label(), Filename: fn, Present: fn != ""})
	}
	return slots
}

func (a Application) HasClass12th() bool {
	return a.Class12thSchool != "" || a.Class12thMarksObtained != "" || a.Class12thTotalMarks != ""
}

// normalize enforces the derived fields & the flag-dependent ones.
func (a *Application) normalize() {
	a.Class10thPercentage = CalcPercentage(a.Class10thMarksObtained, a.Class10thTotalMarks)
	a.Class12thPercentage = CalcPercentage(a.Class12thMarksObtained, a.Class12thTotalMarks)

	if a.PWDClaim != Yes {
		a.PWDClaim = No
		a.PWDCategory = ""
	}
	if a.StudentCreditCard != Yes {
		a.StudentCreditCard = No
		a.StudentCreditCardDetails = nil
	} else if a.StudentCreditCardDetails != nil &&
		a.StudentCreditCardDetails.BankName == "" && a.StudentCreditCardDetails.AccountNumber == "" {
		a.StudentCreditCardDetails = nil
	}
	a.RegistrationType = RegistrationTypeFor(a.StudentCreditCard)
}

// NewApplicationID returns a human readable application id, eg: ADM2026A1B2C3.
func NewApplicationID(now time.Time) string {
	hex := strings.ReplaceAll(uuid.New().String(), "-", "")
	return fmt.Sprintf("ADM%d%s", now.Year(), strings.ToUpper(hex[:6]))
}

// Upload is a document file received from an applicant.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Uploads maps each filled slot to its file.
type Uploads map[DocumentSlot]Upload

func (u Uploads) Has(slot DocumentSlot) bool {
	up, ok := u[slot]
	return ok && len(up.Data) > 0
}

func creditCardDetails(bank, account string) *CreditCardDetails {
	bank, account = strings.TrimSpace(bank), strings.TrimSpace(account)
	if bank == "" && account == "" {
		return nil
	}
	return &CreditCardDetails{BankName: bank, AccountNumber: account}
}

// NewApplication is the wizard's payload. Percentages are computed, never read from the client.
type NewApplication struct {
	Name        string `json:"name" form:"name" validate:"required,max=100"`
	FatherName  string `json:"father_name" form:"father_name" validate:"required,max=100"`
	MotherName  string `json:"mother_name" form:"mother_name" validate:"required,max=100"`
	Mobile      string `json:"mobile" form:"mobile" validate:"required,mobile"`
	Email       string `json:"email" form:"email" validate:"required,email_tld"`
	DOB         string `json:"dob" form:"dob" validate:"required,isodate"`
	Gender      string `json:"gender" form:"gender" validate:"required,oneof=Male Female Other"`
	Category    string `json:"category" form:"category" validate:"required,oneof=GEN OBC SC ST EWS"`
	UIDAINumber string `json:"uidai_number" form:"uidai_number" validate:"required,uidai"`

	VillageTownCity string `json:"village_town_city" form:"village_town_city" validate:"required"`
	Nearby          string `json:"nearby" form:"nearby"`
	PoliceStation   string `json:"police_station" form:"police_station" validate:"required"`
	PostOffice      string `json:"post_office" form:"post_office" validate:"required"`
	Block           string `json:"block" form:"block" validate:"required"`
	District        string `json:"district" form:"district" validate:"required"`
	State           string `json:"state" form:"state" validate:"required"`
	Pincode         string `json:"pincode" form:"pincode" validate:"required,pincode"`

	Class10thSchool        string `json:"class_10th_school" form:"class_10th_school" validate:"required"`
	Class10thSubject       string `json:"class_10th_subject" form:"class_10th_subject"`
	Class10thMarksObtained string `json:"class_10th_marks_obtained" form:"class_10th_marks_obtained" validate:"required,marks"`
	Class10thTotalMarks    string `json:"class_10th_total_marks" form:"class_10th_total_marks" validate:"required,marks"`
	Class10thPercentage    string `json:"class_10th_percentage" form:"-"`
	Class12thSchool        string `json:"class_12th_school" form:"class_12th_school"`
	Class12thSubject       string `json:"class_12th_subject" form:"class_12th_subject"`
	Class12thMarksObtained string `json:"class_12th_marks_obtained" form:"class_12th_marks_obtained" validate:"omitempty,marks"`
	Class12thTotalMarks    string `json:"class_12th_total_marks" form:"class_12th_total_marks" validate:"omitempty,marks"`
	Class12thPercentage    string `json:"class_12th_percentage" form:"-"`

	Trade         string `json:"trade" form:"trade" validate:"required,trade"`
	Qualification string `json:"qualification" form:"qualification"`
	SessionID     string `json:"session_id" form:"session_id" validate:"required"`
	Shift         string `json:"shift" form:"shift" validate:"omitempty,oneof=Morning Evening"`

	PWDClaim    string `json:"pwd_claim" form:"pwd_claim" validate:"omitempty,yesno"`
	PWDCategory string `json:"pwd_category" form:"pwd_category"`

	StudentCreditCard        string `json:"student_credit_card" form:"student_credit_card" validate:"omitempty,yesno"`
	StudentCreditCardBank    string `json:"student_credit_card_bank" form:"student_credit_card_bank"`
	StudentCreditCardAccount string `json:"student_credit_card_account" form:"student_credit_card_account"`

	Declaration bool `json:"declaration" form:"declaration"`
}

func (na NewApplication) application() Application {
	return Application{
		Name:                     strings.TrimSpace(na.Name),
		FatherName:               strings.TrimSpace(na.FatherName),
		MotherName:               strings.TrimSpace(na.MotherName),
		Mobile:                   strings.TrimSpace(na.Mobile),
		Email:                    strings.TrimSpace(na.Email),
		DOB:                      strings.TrimSpace(na.DOB),
		Gender:                   na.Gender,
		Category:                 na.Category,
		UIDAINumber:              strings.TrimSpace(na.UIDAINumber),
		VillageTownCity:          strings.TrimSpace(na.VillageTownCity),
		Nearby:                   strings.TrimSpace(na.Nearby),
		PoliceStation:            strings.TrimSpace(na.PoliceStation),
		PostOffice:               strings.TrimSpace(na.PostOffice),
		Block:                    strings.TrimSpace(na.Block),
		District:                 strings.TrimSpace(na.District),
		State:                    strings.TrimSpace(na.State),
		Pincode:                  strings.TrimSpace(na.Pincode),
		Class10thSchool:          strings.TrimSpace(na.Class10thSchool),
		Class10thSubject:         strings.TrimSpace(na.Class10thSubject),
		Class10thMarksObtained:   strings.TrimSpace(na.Class10thMarksObtained),
		Class10thTotalMarks:      strings.TrimSpace(na.Class10thTotalMarks),
		Class12thSchool:          strings.TrimSpace(na.Class12thSchool),
		Class12thSubject:         strings.TrimSpace(na.Class12thSubject),
		Class12thMarksObtained:   strings.TrimSpace(na.Class12thMarksObtained),
		Class12thTotalMarks:      strings.TrimSpace(na.Class12thTotalMarks),
		Trade:                    na.Trade,
		Qualification:            strings.TrimSpace(na.Qualification),
		SessionID:                na.SessionID,
		Shift:                    na.Shift,
		PWDClaim:                 na.PWDClaim,
		PWDCategory:              strings.TrimSpace(na.PWDCategory),
		StudentCreditCard:        na.StudentCreditCard,
		StudentCreditCardDetails: creditCardDetails(na.StudentCreditCardBank, na.StudentCreditCardAccount),
		Status:                   StatusPending,
	}
}

// NewManualApplication is an application keyed in by staff, bypassing the wizard.
type NewManualApplication struct {
	Name        string `json:"name" validate:"required,max=100"`
	FatherName  string `json:"father_name" validate:"required,max=100"`
	MotherName  string `json:"mother_name" validate:"max=100"`
	Mobile      string `json:"mobile" validate:"required,mobile"`
	Email       string `json:"email" validate:"omitempty,email_tld"`
	DOB         string `json:"dob" validate:"omitempty,isodate"`
	Gender      string `json:"gender" validate:"omitempty,oneof=Male Female Other"`
	Category    string `json:"category" validate:"required,oneof=GEN OBC SC ST EWS"`
	UIDAINumber string `json:"uidai_number" validate:"omitempty,uidai"`

	VillageTownCity string `json:"village_town_city"`
	District        string `json:"district"`
	State           string `json:"state"`
	Pincode         string `json:"pincode" validate:"omitempty,pincode"`

	Class10thMarksObtained string `json:"class_10th_marks_obtained" validate:"omitempty,marks"`
	Class10thTotalMarks    string `json:"class_10th_total_marks" validate:"omitempty,marks"`

	Trade         string `json:"trade" validate:"required,trade"`
	Qualification string `json:"qualification" validate:"required"`
	SessionID     string `json:"session_id"`
	Shift         string `json:"shift" validate:"omitempty,oneof=Morning Evening"`

	StudentCreditCard        string `json:"student_credit_card" validate:"omitempty,yesno"`
	StudentCreditCardBank    string `json:"student_credit_card_bank"`
	StudentCreditCardAccount string `json:"student_credit_card_account"`

	Status string `json:"status" validate:"omitempty,status"`
}

func (nm NewManualApplication) application() Application {
	status, err := ParseStatus(nm.Status)
	if err != nil {
		status = StatusPending
	}
	return Application{
		Name:                     strings.TrimSpace(nm.Name),
		FatherName:               strings.TrimSpace(nm.FatherName),
		MotherName:               strings.TrimSpace(nm.MotherName),
		Mobile:                   strings.TrimSpace(nm.Mobile),
		Email:                    strings.TrimSpace(nm.Email),
		DOB:                      strings.TrimSpace(nm.DOB),
		Gender:                   nm.Gender,
		Category:                 nm.Category,
		UIDAINumber:              strings.TrimSpace(nm.UIDAINumber),
		VillageTownCity:          strings.TrimSpace(nm.VillageTownCity),
		District:                 strings.TrimSpace(nm.District),
		State:                    strings.TrimSpace(nm.State),
		Pincode:                  strings.TrimSpace(nm.Pincode),
		Class10thMarksObtained:   strings.TrimSpace(nm.Class10thMarksObtained),
		Class10thTotalMarks:      strings.TrimSpace(nm.Class10thTotalMarks),
		Trade:                    nm.Trade,
		Qualification:            strings.TrimSpace(nm.Qualification),
		SessionID:                nm.SessionID,
		Shift:                    nm.Shift,
		StudentCreditCard:        nm.StudentCreditCard,
		StudentCreditCardDetails: creditCardDetails(nm.StudentCreditCardBank, nm.StudentCreditCardAccount),
		Status:                   status,
	}
}

// UpdateApplication replaces every editable field of an Application. Documents & identity are kept.
// Status accepts any casing.
type UpdateApplication struct {
	Name        string `json:"name" validate:"required,max=100"`
	FatherName  string `json:"father_name" validate:"required,max=100"`
	MotherName  string `json:"mother_name" validate:"max=100"`
	Mobile      string `json:"mobile" validate:"required,mobile"`
	Email       string `json:"email" validate:"omitempty,email_tld"`
	DOB         string `json:"dob" validate:"omitempty,isodate"`
	Gender      string `json:"gender" validate:"omitempty,oneof=Male Female Other"`
	Category    string `json:"category" validate:"required,oneof=GEN OBC SC ST EWS"`
	UIDAINumber string `json:"uidai_number" validate:"omitempty,uidai"`

	VillageTownCity string `json:"village_town_city"`
	Nearby          string `json:"nearby"`
	PoliceStation   string `json:"police_station"`
	PostOffice      string `json:"post_office"`
	Block           string `json:"block"`
	District        string `json:"district"`
	State           string `json:"state"`
	Pincode         string `json:"pincode" validate:"omitempty,pincode"`

	Class10thSchool        string `json:"class_10th_school"`
	Class10thSubject       string `json:"class_10th_subject"`
	Class10thMarksObtained string `json:"class_10th_marks_obtained" validate:"omitempty,marks"`
	Class10thTotalMarks    string `json:"class_10th_total_marks" validate:"omitempty,marks"`
	Class12thSchool        string `json:"class_12th_school"`
	Class12thSubject       string `json:"class_12th_subject"`
	Class12thMarksObtained string `json:"class_12th_marks_obtained" validate:"omitempty,marks"`
	Class12thTotalMarks    string `json:"class_12th_total_marks" validate:"omitempty,marks"`

	Trade         string `json:"trade" validate:"required,trade"`
	Qualification string `json:"qualification"`
	SessionID     string `json:"session_id"`
	Shift         string `json:"shift" validate:"omitempty,oneof=Morning Evening"`

	PWDClaim    string `json:"pwd_claim" validate:"omitempty,yesno"`
	PWDCategory string `json:"pwd_category"`

	StudentCreditCard        string `json:"student_credit_card" validate:"omitempty,yesno"`
	StudentCreditCardBank    string `json:"student_credit_card_bank"`
	StudentCreditCardAccount string `json:"student_credit_card_account"`

	Status string `json:"status" validate:"required,status"`
}

// EditForm returns the edit form's view of `a`: flat credit card fields & capitalised status.
func EditForm(a Application) UpdateApplication {
	ua := UpdateApplication{
		Name:                   a.Name,
		FatherName:             a.FatherName,
		MotherName:             a.MotherName,
		Mobile:                 a.Mobile,
		Email:                  a.Email,
		DOB:                    a.DOB,
		Gender:                 a.Gender,
		Category:               a.Category,
		UIDAINumber:            a.UIDAINumber,
		VillageTownCity:        a.VillageTownCity,
		Nearby:                 a.Nearby,
		PoliceStation:          a.PoliceStation,
		PostOffice:             a.PostOffice,
		Block:                  a.Block,
		District:               a.District,
		State:                  a.State,
		Pincode:                a.Pincode,
		Class10thSchool:        a.Class10thSchool,
		Class10thSubject:       a.Class10thSubject,
		Class10thMarksObtained: a.Class10thMarksObtained,
		Class10thTotalMarks:    a.Class10thTotalMarks,
		Class12thSchool:        a.Class12thSchool,
		Class12thSubject:       a.Class12thSubject,
		Class12thMarksObtained: a.Class12thMarksObtained,
		Class12thTotalMarks:    a.Class12thTotalMarks,
		Trade:                  a.Trade,
		Qualification:          a.Qualification,
		SessionID:              a.SessionID,
		Shift:                  a.Shift,
		PWDClaim:               a.PWDClaim,
		PWDCategory:            a.PWDCategory,
		StudentCreditCard:      a.StudentCreditCard,
		Status:                 a.Status.Title(),
	}
	if d := a.StudentCreditCardDetails; d != nil {
		ua.StudentCreditCardBank = d.BankName
		ua.StudentCreditCardAccount = d.AccountNumber
	}
	return ua
}

// apply returns `orig` with every editable field replaced by those of `ua`.
func (ua UpdateApplication) apply(orig Application) Application {
	app := orig
	app.Name = strings.TrimSpace(ua.Name)
	app.FatherName = strings.TrimSpace(ua.FatherName)
	app.MotherName = strings.TrimSpace(ua.MotherName)
	app.Mobile = strings.TrimSpace(ua.Mobile)
	app.Email = strings.TrimSpace(ua.Email)
	app.DOB = strings.TrimSpace(ua.DOB)
	app.Gender = ua.Gender
	app.Category = ua.Category
	app.UIDAINumber = strings.TrimSpace(ua.UIDAINumber)
	app.VillageTownCity = strings.TrimSpace(ua.VillageTownCity)
	app.Nearby = strings.TrimSpace(ua.Nearby)
	app.PoliceStation = strings.TrimSpace(ua.PoliceStation)
	app.PostOffice = strings.TrimSpace(ua.PostOffice)
	app.Block = strings.TrimSpace(ua.Block)
	app.District = strings.TrimSpace(ua.District)
	app.State = strings.TrimSpace(ua.State)
	app.Pincode = strings.TrimSpace(ua.Pincode)
	app.Class10thSchool = strings.TrimSpace(ua.Class10thSchool)
	app.Class10thSubject = strings.TrimSpace(ua.Class10thSubject)
	app.Class10thMarksObtained = strings.TrimSpace(ua.Class10thMarksObtained)
	app.Class10thTotalMarks = strings.TrimSpace(ua.Class10thTotalMarks)
	app.Class12thSchool = strings.TrimSpace(ua.Class12thSchool)
	app.Class12thSubject = strings.TrimSpace(ua.Class12thSubject)
	app.Class12thMarksObtained = strings.TrimSpace(ua.Class12thMarksObtained)
	app.Class12thTotalMarks = strings.TrimSpace(ua.Class12thTotalMarks)
	app.Trade = ua.Trade
	app.Qualification = strings.TrimSpace(ua.Qualification)
	app.SessionID = ua.SessionID
	app.Shift = ua.Shift
	app.PWDClaim = ua.PWDClaim
	app.PWDCategory = strings.TrimSpace(ua.PWDCategory)
	app.StudentCreditCard = ua.StudentCreditCard
	app.StudentCreditCardDetails = creditCardDetails(ua.StudentCreditCardBank, ua.StudentCreditCardAccount)
	if status, err := ParseStatus(ua.Status); err == nil {
		app.Status = status
	}
	return app
}
