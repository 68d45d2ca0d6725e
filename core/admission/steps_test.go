package admission

import (
	"math/rand"
	"reflect"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/admissions/core"
)

func newTestValidator(requireSCCDoc bool) *Validator {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	return NewValidator(validate, translator, core.AdmissionConfig{
		Trades:             []string{"Electrician", "Fitter", "Welder"},
		RequireSCCDocument: requireSCCDoc,
	})
}

func validApplication() NewApplication {
	return NewApplication{
		Name:                   "Ravi Kumar",
		FatherName:             "Suresh Kumar",
		MotherName:             "Sunita Devi",
		Mobile:                 "9876543210",
		Email:                  "ravi@example.com",
		DOB:                    "2006-05-14",
		Gender:                 GenderMale,
		Category:               CategoryOBC,
		UIDAINumber:            "123456789012",
		VillageTownCity:        "Danapur",
		PoliceStation:          "Danapur",
		PostOffice:             "Danapur Cantt",
		Block:                  "Danapur",
		District:               "Patna",
		State:                  "Bihar",
		Pincode:                "801503",
		Class10thSchool:        "Govt High School",
		Class10thMarksObtained: "425",
		Class10thTotalMarks:    "500",
		Trade:                  "Electrician",
		SessionID:              "6b1f4a3e-0c55-4f0f-9d2a-8f7b2c1d9e10",
		Shift:                  ShiftMorning,
		PWDClaim:               No,
		StudentCreditCard:      No,
		Declaration:            true,
	}
}

func validUploads() Uploads {
	return Uploads{
		SlotPhoto:     {Filename: "photo.jpg", Data: []byte("photo")},
		SlotAadhaar:   {Filename: "aadhaar.pdf", Data: []byte("aadhaar")},
		SlotMarksheet: {Filename: "marksheet.pdf", Data: []byte("marksheet")},
	}
}

// fieldErrors returns the {field: message} of a *core.ValidationError, or fails.
func fieldErrors(t *testing.T, err error) map[string]string {
	t.Helper()
	require.Error(t, err)
	vErr, ok := errors.Cause(err).(*core.ValidationError)
	require.True(t, ok, "got %T: %v", err, err)
	flds := make(map[string]string, len(vErr.Fields))
	for _, f := range vErr.Fields {
		if _, ok := flds[f.Field]; !ok {
			flds[f.Field] = f.Error
		}
	}
	return flds
}

func TestValidator_ValidateStep(t *testing.T) {
	v := newTestValidator(false)

	tests := []struct {
		name    string
		step    Step
		modify  func(na *NewApplication, ups Uploads)
		wantErr map[string]string
	}{
		{name: "personal: valid", step: StepPersonal},
		{
			name: "personal: malformed",
			step: StepPersonal,
			modify: func(na *NewApplication, _ Uploads) {
				na.Mobile = "98765"
				na.Email = "ravi@localhost"
				na.DOB = "14/05/2006"
				na.UIDAINumber = "1234 5678 9012"
				na.Gender = "M"
			},
			wantErr: map[string]string{
				"mobile":       "mobile number must be exactly 10 digits",
				"email":        "enter a valid email address",
				"dob":          "enter a date as YYYY-MM-DD",
				"uidai_number": uidaiText,
				"gender":       "gender must be one of [Male, Female, Other]",
			},
		},
		{
			name:   "personal: other steps are not checked",
			step:   StepPersonal,
			modify: func(na *NewApplication, _ Uploads) { na.Pincode = ""; na.Trade = "" },
		},
		{
			name:    "address: bad pincode",
			step:    StepAddress,
			modify:  func(na *NewApplication, _ Uploads) { na.Pincode = "80150" },
			wantErr: map[string]string{"pincode": "pincode must be exactly 6 digits"},
		},
		{
			name:    "address: nearby is optional",
			step:    StepAddress,
			modify:  func(na *NewApplication, _ Uploads) { na.Nearby = "" },
			wantErr: nil,
		},
		{
			name:    "education: marks exceed total",
			step:    StepEducation,
			modify:  func(na *NewApplication, _ Uploads) { na.Class10thMarksObtained = "501" },
			wantErr: map[string]string{"class_10th_marks_obtained": marksExceedText},
		},
		{
			name:    "education: negative marks",
			step:    StepEducation,
			modify:  func(na *NewApplication, _ Uploads) { na.Class10thMarksObtained = "-5" },
			wantErr: map[string]string{"class_10th_marks_obtained": "class_10th_marks_obtained must be a non-negative number"},
		},
		{
			name:    "education: 12th needs both marks",
			step:    StepEducation,
			modify:  func(na *NewApplication, _ Uploads) { na.Class12thMarksObtained = "300" },
			wantErr: map[string]string{"class_12th_total_marks": requiredText},
		},
		{
			name: "education: 12th is optional",
			step: StepEducation,
			modify: func(na *NewApplication, _ Uploads) {
				na.Class12thSchool = "Govt Inter College"
				na.Class12thMarksObtained = "300"
				na.Class12thTotalMarks = "500"
			},
		},
		{
			name:    "preferences: unknown trade",
			step:    StepPreferences,
			modify:  func(na *NewApplication, _ Uploads) { na.Trade = "Astronaut" },
			wantErr: map[string]string{"trade": tradeText},
		},
		{
			name:    "preferences: pwd category",
			step:    StepPreferences,
			modify:  func(na *NewApplication, _ Uploads) { na.PWDClaim = Yes },
			wantErr: map[string]string{"pwd_category": requiredText},
		},
		{
			name:   "preferences: credit card details",
			step:   StepPreferences,
			modify: func(na *NewApplication, _ Uploads) { na.StudentCreditCard = Yes },
			wantErr: map[string]string{
				"student_credit_card_bank":    requiredText,
				"student_credit_card_account": requiredText,
			},
		},
		{
			name: "preferences: bad account number",
			step: StepPreferences,
			modify: func(na *NewApplication, _ Uploads) {
				na.StudentCreditCard = Yes
				na.StudentCreditCardBank = "SBI"
				na.StudentCreditCardAccount = "12AB5678"
			},
			wantErr: map[string]string{"student_credit_card_account": accountNumberText},
		},
		{
			name: "documents: missing",
			step: StepDocuments,
			modify: func(_ *NewApplication, ups Uploads) {
				delete(ups, SlotAadhaar)
				ups[SlotMarksheet] = Upload{Filename: "empty.pdf"}
			},
			wantErr: map[string]string{"aadhaar": documentText, "marksheet": documentText},
		},
		{
			name: "documents: scc document not required by default",
			step: StepDocuments,
			modify: func(na *NewApplication, _ Uploads) {
				na.StudentCreditCard = Yes
			},
		},
		{
			name:    "review: declaration",
			step:    StepReview,
			modify:  func(na *NewApplication, _ Uploads) { na.Declaration = false },
			wantErr: map[string]string{"declaration": declarationText},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			na, ups := validApplication(), validUploads()
			if tt.modify != nil {
				tt.modify(&na, ups)
			}
			err := v.ValidateStep(na, ups, tt.step)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.wantErr, fieldErrors(t, err))
		})
	}

	t.Run("documents: scc document required when configured", func(t *testing.T) {
		na := validApplication()
		na.StudentCreditCard = Yes
		err := newTestValidator(true).ValidateStep(na, validUploads(), StepDocuments)
		assert.Equal(t, map[string]string{"student_credit_card_doc": documentText}, fieldErrors(t, err))
	})
}

// The personal step passes whatever order its fields are filled in, and fails as soon as one is missing.
func TestValidator_ValidateStep_orderIndependent(t *testing.T) {
	v := newTestValidator(false)
	full := validApplication()
	values := map[string]string{
		"name": full.Name, "father_name": full.FatherName, "mother_name": full.MotherName,
		"mobile": full.Mobile, "email": full.Email, "dob": full.DOB, "gender": full.Gender,
		"category": full.Category, "uidai_number": full.UIDAINumber,
	}
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}

	rnd := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		rnd.Shuffle(len(names), func(a, b int) { names[a], names[b] = names[b], names[a] })

		var na NewApplication
		for _, name := range names {
			setField(&na, name, values[name])
		}
		require.NoError(t, v.ValidateStep(na, nil, StepPersonal), "order %v", names)
		require.NoError(t, v.ValidateStep(na, nil, StepPersonal), "validation must be repeatable")

		for _, missing := range names {
			na2 := na
			setField(&na2, missing, "")
			flds := fieldErrors(t, v.ValidateStep(na2, nil, StepPersonal))
			assert.Equal(t, requiredText, flds[missing], missing)
		}
	}
}

func setField(na *NewApplication, name, value string) {
	reflect.ValueOf(na).Elem().Field(wizardFields[name]).SetString(value)
}

func TestValidator_ValidateStatus(t *testing.T) {
	v := newTestValidator(false)

	st, err := v.ValidateStatus("Approved")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, st)

	_, err = v.ValidateStatus("archived")
	assert.Equal(t, map[string]string{"status": statusText}, fieldErrors(t, err))
}

func TestValidator_ValidateUpdate(t *testing.T) {
	v := newTestValidator(false)
	ua := EditForm(validApplication().application())
	ua.Status = "Rejected"
	require.NoError(t, v.ValidateUpdate(ua))

	ua.Class12thMarksObtained, ua.Class12thTotalMarks = "600", "500"
	ua.StudentCreditCard = Yes
	ua.StudentCreditCardAccount = "123"
	assert.Equal(t, map[string]string{
		"class_12th_marks_obtained":   marksExceedText,
		"student_credit_card_account": accountNumberText,
	}, fieldErrors(t, v.ValidateUpdate(ua)))
}
