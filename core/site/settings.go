package site

import (
	"github.com/trezcool/admissions/core"
)

type (
	Highlight struct {
		Icon  Icon   `json:"icon"`
		Title string `json:"title"`
		Text  string `json:"text"`
	}

	// Settings is the public site content: config defaults with any saved Overrides merged on top.
	Settings struct {
		CollegeName     string      `json:"college_name"`
		Tagline         string      `json:"tagline"`
		Address         string      `json:"address"`
		Phone           string      `json:"phone"`
		Email           string      `json:"email"`
		AffiliationCode string      `json:"affiliation_code"`
		AdmissionsOpen  bool        `json:"admissions_open"`
		Highlights      []Highlight `json:"highlights"`
	}

	// Overrides holds the staff-edited values. A nil field keeps the default.
	Overrides struct {
		CollegeName     *string      `json:"college_name,omitempty"`
		Tagline         *string      `json:"tagline,omitempty"`
		Address         *string      `json:"address,omitempty"`
		Phone           *string      `json:"phone,omitempty"`
		Email           *string      `json:"email,omitempty" validate:"omitempty,email_tld"`
		AffiliationCode *string      `json:"affiliation_code,omitempty"`
		AdmissionsOpen  *bool        `json:"admissions_open,omitempty"`
		Highlights      *[]Highlight `json:"highlights,omitempty" validate:"omitempty,dive"`
	}
)

var defaultHighlights = []Highlight{
	{Icon: IconGraduationCap, Title: "Certified Trades", Text: "NCVT affiliated courses"},
	{Icon: IconWrench, Title: "Practical Training", Text: "Fully equipped workshops"},
	{Icon: IconBriefcase, Title: "Placements", Text: "Campus recruitment drives"},
}

// Defaults builds the Settings used when nothing has been saved.
func Defaults(conf *core.Config) Settings {
	hls := make([]Highlight, len(defaultHighlights))
	copy(hls, defaultHighlights)
	return Settings{
		CollegeName:     conf.Site.CollegeName,
		Tagline:         conf.Site.Tagline,
		Address:         conf.Site.Address,
		Phone:           conf.Site.Phone,
		Email:           conf.Site.Email,
		AffiliationCode: conf.Site.AffiliationCode,
		AdmissionsOpen:  true,
		Highlights:      hls,
	}
}

// Apply returns a copy of s with every set field of o merged on top.
func (s Settings) Apply(o Overrides) Settings {
	if o.CollegeName != nil {
		s.CollegeName = *o.CollegeName
	}
	if o.Tagline != nil {
		s.Tagline = *o.Tagline
	}
	if o.Address != nil {
		s.Address = *o.Address
	}
	if o.Phone != nil {
		s.Phone = *o.Phone
	}
	if o.Email != nil {
		s.Email = *o.Email
	}
	if o.AffiliationCode != nil {
		s.AffiliationCode = *o.AffiliationCode
	}
	if o.AdmissionsOpen != nil {
		s.AdmissionsOpen = *o.AdmissionsOpen
	}
	if o.Highlights != nil {
		s.Highlights = *o.Highlights
	}
	s.Highlights = append([]Highlight(nil), s.Highlights...)
	return s
}

// Merge returns o with every set field of newer taking precedence.
func (o Overrides) Merge(newer Overrides) Overrides {
	if newer.CollegeName != nil {
		o.CollegeName = newer.CollegeName
	}
	if newer.Tagline != nil {
		o.Tagline = newer.Tagline
	}
	if newer.Address != nil {
		o.Address = newer.Address
	}
	if newer.Phone != nil {
		o.Phone = newer.Phone
	}
	if newer.Email != nil {
		o.Email = newer.Email
	}
	if newer.AffiliationCode != nil {
		o.AffiliationCode = newer.AffiliationCode
	}
	if newer.AdmissionsOpen != nil {
		o.AdmissionsOpen = newer.AdmissionsOpen
	}
	if newer.Highlights != nil {
		o.Highlights = newer.Highlights
	}
	return o
}
