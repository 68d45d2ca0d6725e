package admission

import (
	"strings"

	"github.com/pkg/errors"
)

// Status is the review state of an Application. Any status can move to any other.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

var (
	ErrInvalidStatus = errors.New("status must be one of [pending, approved, rejected]")

	Statuses = []Status{StatusPending, StatusApproved, StatusRejected}
)

// ParseStatus accepts any casing ("Approved", "APPROVED") and returns the canonical lowercase Status.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", ErrInvalidStatus
	}
	return st, nil
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Title returns the capitalised label, eg: "Approved".
func (s Status) Title() string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(string(s[:1])) + string(s[1:])
}

const (
	Yes = "Yes"
	No  = "No"
)

const (
	GenderMale   = "Male"
	GenderFemale = "Female"
	GenderOther  = "Other"
)

var Genders = []string{GenderMale, GenderFemale, GenderOther}

const (
	CategoryGEN = "GEN"
	CategoryOBC = "OBC"
	CategorySC  = "SC"
	CategoryST  = "ST"
	CategoryEWS = "EWS"
)

var Categories = []string{CategoryGEN, CategoryOBC, CategorySC, CategoryST, CategoryEWS}

const (
	ShiftMorning = "Morning"
	ShiftEvening = "Evening"
)

const (
	RegistrationRegular           = "Regular"
	RegistrationStudentCreditCard = "Student Credit Card"
)

// RegistrationTypeFor derives the registration type from the student credit card flag.
func RegistrationTypeFor(studentCreditCard string) string {
	if studentCreditCard == Yes {
		return RegistrationStudentCreditCard
	}
	return RegistrationRegular
}

// DocumentSlot names one of the files attached to an Application.
type DocumentSlot string

const (
	SlotPhoto                DocumentSlot = "photo"
	SlotAadhaar              DocumentSlot = "aadhaar"
	SlotMarksheet            DocumentSlot = "marksheet"
	SlotStudentCreditCardDoc DocumentSlot = "student_credit_card_doc"
)

var (
	ErrUnknownSlot = errors.New("unknown document slot")

	DocumentSlots = []DocumentSlot{SlotPhoto, SlotAadhaar, SlotMarksheet, SlotStudentCreditCardDoc}

	slotLabels = map[DocumentSlot]string{
		SlotPhoto:                "Photo",
		SlotAadhaar:              "Aadhaar",
		SlotMarksheet:            "Marksheet",
		SlotStudentCreditCardDoc: "Student Credit Card Document",
	}
)

func ParseDocumentSlot(s string) (DocumentSlot, error) {
	slot := DocumentSlot(s)
	if _, ok := slotLabels[slot]; !ok {
		return "", errors.Wrapf(ErrUnknownSlot, "%q", s)
	}
	return slot, nil
}

func (s DocumentSlot) Label() string {
	return slotLabels[s]
}
