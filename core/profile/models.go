package profile

import (
	"github.com/studyhub/studyhub/core"
)

// Profile is the student profile stored under the identity's document.
type Profile struct {
	Name           string `json:"name"`
	Branch         string `json:"branch"`
	Semester       string `json:"semester"`
	EnrollmentNo   string `json:"enrollmentNo"`
	ClassSection   string `json:"classSection"`
	CollegeName    string `json:"collegeName"`
	UniversityName string `json:"universityName"`
	AvatarID       string `json:"avatarId"`
}

// IsComplete reports whether every profile field is non-empty. Downstream
// features gate on this.
func (p Profile) IsComplete() bool {
	return p.Name != "" &&
		p.Branch != "" &&
		p.Semester != "" &&
		p.EnrollmentNo != "" &&
		p.ClassSection != "" &&
		p.CollegeName != "" &&
		p.UniversityName != "" &&
		p.AvatarID != ""
}

// NewProfile contains information needed to create or replace a Profile.
type NewProfile struct {
	Name           string `json:"name" validate:"required"`
	Branch         string `json:"branch" validate:"required"`
	Semester       string `json:"semester" validate:"required"`
	EnrollmentNo   string `json:"enrollmentNo" validate:"required"`
	ClassSection   string `json:"classSection" validate:"required"`
	CollegeName    string `json:"collegeName" validate:"required,min=3"`
	UniversityName string `json:"universityName" validate:"required,min=3"`
	AvatarID       string `json:"avatarId" validate:"required,avatar"`
}

func (np *NewProfile) Validate() error {
	np.Name = core.CleanString(np.Name)
	np.Branch = core.CleanString(np.Branch)
	np.Semester = core.CleanString(np.Semester)
	np.EnrollmentNo = core.CleanString(np.EnrollmentNo)
	np.ClassSection = core.CleanString(np.ClassSection)
	np.CollegeName = core.CleanString(np.CollegeName)
	np.UniversityName = core.CleanString(np.UniversityName)
	return core.Validate.Struct(np)
}

func (np NewProfile) data() map[string]interface{} {
	return map[string]interface{}{
		"name":           np.Name,
		"branch":         np.Branch,
		"semester":       np.Semester,
		"enrollmentNo":   np.EnrollmentNo,
		"classSection":   np.ClassSection,
		"collegeName":    np.CollegeName,
		"universityName": np.UniversityName,
		"avatarId":       np.AvatarID,
	}
}

func fromData(data map[string]interface{}) Profile {
	str := func(key string) string {
		s, _ := data[key].(string)
		return s
	}
	return Profile{
		Name:           str("name"),
		Branch:         str("branch"),
		Semester:       str("semester"),
		EnrollmentNo:   str("enrollmentNo"),
		ClassSection:   str("classSection"),
		CollegeName:    str("collegeName"),
		UniversityName: str("universityName"),
		AvatarID:       str("avatarId"),
	}
}
