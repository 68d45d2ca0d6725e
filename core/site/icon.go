package site

import (
	"sort"

	"github.com/pkg/errors"
)

// Icon names a symbol the frontend knows how to draw.
// Only registered icons can be decoded, so a typo in saved content fails validation instead of silently falling back.
type Icon string

const (
	IconGraduationCap Icon = "GraduationCap"
	IconBookOpen      Icon = "BookOpen"
	IconUsers         Icon = "Users"
	IconAward         Icon = "Award"
	IconBuilding      Icon = "Building"
	IconWrench        Icon = "Wrench"
	IconBriefcase     Icon = "Briefcase"
	IconPhone         Icon = "Phone"
	IconMail          Icon = "Mail"
	IconMapPin        Icon = "MapPin"
)

var (
	ErrUnknownIcon = errors.New("unknown icon")

	icons = map[Icon]struct{}{
		IconGraduationCap: {},
		IconBookOpen:      {},
		IconUsers:         {},
		IconAward:         {},
		IconBuilding:      {},
		IconWrench:        {},
		IconBriefcase:     {},
		IconPhone:         {},
		IconMail:          {},
		IconMapPin:        {},
	}
)

// ParseIcon returns the registered Icon named `name`.
func ParseIcon(name string) (Icon, error) {
	icon := Icon(name)
	if !icon.Valid() {
		return "", errors.Wrapf(ErrUnknownIcon, "%q", name)
	}
	return icon, nil
}

func (i Icon) Valid() bool {
	_, ok := icons[i]
	return ok
}

func (i Icon) String() string {
	return string(i)
}

func (i Icon) MarshalText() ([]byte, error) {
	if !i.Valid() {
		return nil, errors.Wrapf(ErrUnknownIcon, "%q", string(i))
	}
	return []byte(i), nil
}

func (i *Icon) UnmarshalText(text []byte) error {
	icon, err := ParseIcon(string(text))
	if err != nil {
		return err
	}
	*i = icon
	return nil
}

// Icons lists the registered icons, sorted by name.
func Icons() []Icon {
	all := make([]Icon, 0, len(icons))
	for i := range icons {
		all = append(all, i)
	}
	sort.Slice(all, func(a, b int) bool { return all[a] < all[b] })
	return all
}
