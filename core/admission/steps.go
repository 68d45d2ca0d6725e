package admission

import (
	"strings"
	"unicode"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/admissions/core"
)

// Step is a page of the application wizard. Steps are walked in order, one at a time.
type Step int

const (
	StepPersonal Step = iota + 1
	StepAddress
	StepEducation
	StepPreferences
	StepDocuments
	StepReview
	StepSubmitted // terminal
)

var stepNames = map[Step]string{
	StepPersonal:    "personal",
	StepAddress:     "address",
	StepEducation:   "education",
	StepPreferences: "preferences",
	StepDocuments:   "documents",
	StepReview:      "review",
	StepSubmitted:   "submitted",
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return "unknown"
}

// struct fields checked by each step (Go names, as expected by validator.StructPartial)
var stepFields = map[Step][]string{
	StepPersonal: {
		"Name", "FatherName", "MotherName", "Mobile", "Email", "DOB", "Gender", "Category", "UIDAINumber",
	},
	StepAddress: {
		"VillageTownCity", "PoliceStation", "PostOffice", "Block", "District", "State", "Pincode",
	},
	StepEducation: {
		"Class10thSchool", "Class10thMarksObtained", "Class10thTotalMarks", "Class12thMarksObtained", "Class12thTotalMarks",
	},
	StepPreferences: {
		"Trade", "SessionID", "Shift", "PWDClaim", "StudentCreditCard",
	},
}

var (
	// custom validation tags & texts
	uidaiTag  = "uidai"
	uidaiText = "UIDAI number must be exactly 12 digits"

	marksTag  = "marks"
	marksText = "{0} must be a non-negative number"

	tradeTag  = "trade"
	tradeText = "select a trade from the list"

	statusTag  = "status"
	statusText = "status must be one of [pending, approved, rejected]"

	requiredText      = "this field is required"
	marksExceedText   = "marks obtained cannot exceed total marks"
	accountNumberText = "account number must be 9 to 18 digits"
	declarationText   = "you must accept the declaration"
	documentText      = "please upload this document"
)

// Validator checks wizard steps & the console's inputs.
type Validator struct {
	validate      *validator.Validate
	translator    ut.Translator
	trades        []string
	requireSCCDoc bool
}

// NewValidator registers the admission validation tags on `validate`.
// It must be called before `validate` is used concurrently.
func NewValidator(validate *validator.Validate, translator ut.Translator, conf core.AdmissionConfig) *Validator {
	v := &Validator{
		validate:      validate,
		translator:    translator,
		trades:        append([]string(nil), conf.Trades...),
		requireSCCDoc: conf.RequireSCCDocument,
	}

	_ = validate.RegisterValidation(uidaiTag, func(fl validator.FieldLevel) bool {
		return core.IsDigits(fl.Field().String(), 12)
	})
	core.RegisterCustomTranslation(validate, translator, uidaiTag, uidaiText)

	_ = validate.RegisterValidation(marksTag, func(fl validator.FieldLevel) bool {
		f, ok := parseNumber(fl.Field().String())
		return ok && f >= 0
	})
	core.RegisterCustomTranslation(validate, translator, marksTag, marksText)

	_ = validate.RegisterValidation(tradeTag, func(fl validator.FieldLevel) bool {
		return v.IsTrade(fl.Field().String())
	})
	core.RegisterCustomTranslation(validate, translator, tradeTag, tradeText)

	_ = validate.RegisterValidation(statusTag, func(fl validator.FieldLevel) bool {
		_, err := ParseStatus(fl.Field().String())
		return err == nil
	})
	core.RegisterCustomTranslation(validate, translator, statusTag, statusText)

	return v
}

// Trades returns the configured trades.
func (v *Validator) Trades() []string {
	return append([]string(nil), v.trades...)
}

func (v *Validator) IsTrade(trade string) bool {
	for _, t := range v.trades {
		if t == trade {
			return true
		}
	}
	return false
}

// ValidateStep checks the fields owned by `step`. It has no side effects.
func (v *Validator) ValidateStep(na NewApplication, uploads Uploads, step Step) error {
	var errs []error
	switch step {
	case StepPersonal, StepAddress, StepEducation, StepPreferences:
		if err := v.validate.StructPartial(na, stepFields[step]...); err != nil {
			errs = append(errs, core.TranslateErrors(err, v.translator))
		}
		errs = append(errs, v.crossFieldErrors(na, step))
	case StepDocuments:
		errs = append(errs, v.documentErrors(na, uploads))
	case StepReview:
		if !na.Declaration {
			errs = append(errs, core.NewValidationError(nil, core.FieldError{Field: "declaration", Error: declarationText}))
		}
	}
	return core.MergeValidationErrors(errs...)
}

// ValidateNew checks a complete wizard submission, declaration included.
func (v *Validator) ValidateNew(na NewApplication, uploads Uploads) error {
	errs := make([]error, 0, StepReview)
	for step := StepPersonal; step <= StepReview; step++ {
		errs = append(errs, v.ValidateStep(na, uploads, step))
	}
	return core.MergeValidationErrors(errs...)
}

func (v *Validator) ValidateManual(nm NewManualApplication) error {
	var errs []error
	if err := v.validate.Struct(nm); err != nil {
		errs = append(errs, core.TranslateErrors(err, v.translator))
	}
	var flds []core.FieldError
	flds = appendMarksErrors(flds, "class_10th_marks_obtained", nm.Class10thMarksObtained, nm.Class10thTotalMarks)
	if nm.StudentCreditCard == Yes {
		flds = appendAccountErrors(flds, nm.StudentCreditCardAccount)
	}
	if len(flds) > 0 {
		errs = append(errs, core.NewValidationError(nil, flds...))
	}
	return core.MergeValidationErrors(errs...)
}

func (v *Validator) ValidateUpdate(ua UpdateApplication) error {
	var errs []error
	if err := v.validate.Struct(ua); err != nil {
		errs = append(errs, core.TranslateErrors(err, v.translator))
	}
	var flds []core.FieldError
	flds = appendMarksErrors(flds, "class_10th_marks_obtained", ua.Class10thMarksObtained, ua.Class10thTotalMarks)
	flds = appendMarksErrors(flds, "class_12th_marks_obtained", ua.Class12thMarksObtained, ua.Class12thTotalMarks)
	if ua.PWDClaim == Yes && strings.TrimSpace(ua.PWDCategory) == "" {
		flds = append(flds, core.FieldError{Field: "pwd_category", Error: requiredText})
	}
	if ua.StudentCreditCard == Yes {
		flds = appendAccountErrors(flds, ua.StudentCreditCardAccount)
	}
	if len(flds) > 0 {
		errs = append(errs, core.NewValidationError(nil, flds...))
	}
	return core.MergeValidationErrors(errs...)
}

// ValidateStatus returns the canonical Status for `s`, in any casing.
func (v *Validator) ValidateStatus(s string) (Status, error) {
	status, err := ParseStatus(s)
	if err != nil {
		return "", core.NewValidationError(nil, core.FieldError{Field: "status", Error: statusText})
	}
	return status, nil
}

// crossFieldErrors holds the rules involving more than one field of a step.
func (v *Validator) crossFieldErrors(na NewApplication, step Step) error {
	var flds []core.FieldError
	switch step {
	case StepEducation:
		flds = appendMarksErrors(flds, "class_10th_marks_obtained", na.Class10thMarksObtained, na.Class10thTotalMarks)
		flds = appendMarksErrors(flds, "class_12th_marks_obtained", na.Class12thMarksObtained, na.Class12thTotalMarks)
		m12, t12 := strings.TrimSpace(na.Class12thMarksObtained), strings.TrimSpace(na.Class12thTotalMarks)
		if m12 != "" && t12 == "" {
			flds = append(flds, core.FieldError{Field: "class_12th_total_marks", Error: requiredText})
		} else if m12 == "" && t12 != "" {
			flds = append(flds, core.FieldError{Field: "class_12th_marks_obtained", Error: requiredText})
		}
	case StepPreferences:
		if na.PWDClaim == Yes && strings.TrimSpace(na.PWDCategory) == "" {
			flds = append(flds, core.FieldError{Field: "pwd_category", Error: requiredText})
		}
		if na.StudentCreditCard == Yes {
			if strings.TrimSpace(na.StudentCreditCardBank) == "" {
				flds = append(flds, core.FieldError{Field: "student_credit_card_bank", Error: requiredText})
			}
			if strings.TrimSpace(na.StudentCreditCardAccount) == "" {
				flds = append(flds, core.FieldError{Field: "student_credit_card_account", Error: requiredText})
			} else {
				flds = appendAccountErrors(flds, na.StudentCreditCardAccount)
			}
		}
	}
	if len(flds) == 0 {
		return nil
	}
	return core.NewValidationError(nil, flds...)
}

func (v *Validator) documentErrors(na NewApplication, uploads Uploads) error {
	required := []DocumentSlot{SlotPhoto, SlotAadhaar, SlotMarksheet}
	if v.requireSCCDoc && na.StudentCreditCard == Yes {
		required = append(required, SlotStudentCreditCardDoc)
	}
	var flds []core.FieldError
	for _, slot := range required {
		if !uploads.Has(slot) {
			flds = append(flds, core.FieldError{Field: string(slot), Error: documentText})
		}
	}
	if len(flds) == 0 {
		return nil
	}
	return core.NewValidationError(nil, flds...)
}

func appendMarksErrors(flds []core.FieldError, field, marks, total string) []core.FieldError {
	m, mOk := parseNumber(marks)
	t, tOk := parseNumber(total)
	if mOk && tOk && m > t {
		flds = append(flds, core.FieldError{Field: field, Error: marksExceedText})
	}
	return flds
}

func appendAccountErrors(flds []core.FieldError, account string) []core.FieldError {
	account = strings.TrimSpace(account)
	if account == "" {
		return flds
	}
	if len(account) < 9 || len(account) > 18 {
		return append(flds, core.FieldError{Field: "student_credit_card_account", Error: accountNumberText})
	}
	for _, r := range account {
		if r > unicode.MaxASCII || !unicode.IsDigit(r) {
			return append(flds, core.FieldError{Field: "student_credit_card_account", Error: accountNumberText})
		}
	}
	return flds
}
