package profile

import (
	"github.com/go-playground/validator/v10"

	"github.com/studyhub/studyhub/core"
)

// Avatar is a predefined profile picture choice.
type Avatar struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

var Avatars = []Avatar{
	{ID: "male_1", Label: "Male Avatar 1"},
	{ID: "male_2", Label: "Male Avatar 2"},
	{ID: "male_3", Label: "Male Avatar 3"},
	{ID: "male_4", Label: "Male Avatar 4"},
	{ID: "male_5", Label: "Male Avatar 5"},
	{ID: "male_6", Label: "Male Avatar 6"},
	{ID: "female_1", Label: "Female Avatar 1"},
	{ID: "female_2", Label: "Female Avatar 2"},
	{ID: "female_3", Label: "Female Avatar 3"},
	{ID: "female_4", Label: "Female Avatar 4"},
	{ID: "female_5", Label: "Female Avatar 5"},
	{ID: "female_6", Label: "Female Avatar 6"},
}

func IsValidAvatarID(id string) bool {
	for _, a := range Avatars {
		if a.ID == id {
			return true
		}
	}
	return false
}

const (
	avatarTag  = "avatar"
	avatarText = "unknown avatar"
)

func init() {
	_ = core.Validate.RegisterValidation(avatarTag, func(fl validator.FieldLevel) bool {
		return IsValidAvatarID(fl.Field().String())
	})
	core.RegisterCustomTranslation(core.Validate, core.Translator, avatarTag, avatarText)
}
