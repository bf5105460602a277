package sprites

import (
	"time"

	"github.com/slok/sprites/internal/model"
)

type urlSettingsJSON struct {
	Auth string `json:"auth,omitempty"`
}

type spriteJSON struct {
	ID                 string           `json:"id"`
	Name               string           `json:"name"`
	Status             string           `json:"status"`
	Version            string           `json:"version"`
	URL                string           `json:"url"`
	URLSettings        *urlSettingsJSON `json:"url_settings"`
	Organization       string           `json:"organization"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
	EnvironmentVersion *string          `json:"environment_version"`
}

func (s spriteJSON) toModel() model.Sprite {
	sp := model.Sprite{
		ID:           s.ID,
		Name:         s.Name,
		Status:       model.SpriteStatus(s.Status),
		Version:      s.Version,
		URL:          s.URL,
		Organization: s.Organization,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
	if s.URLSettings != nil {
		sp.URLSettings = model.URLSettings{Auth: model.URLAuth(s.URLSettings.Auth)}
	}
	if s.EnvironmentVersion != nil {
		sp.EnvironmentVersion = *s.EnvironmentVersion
	}
	return sp
}

type listJSON struct {
	Sprites               []spriteJSON `json:"sprites"`
	HasMore               bool         `json:"has_more"`
	NextContinuationToken *string      `json:"next_continuation_token"`
}

func (l listJSON) toModel() model.Collection {
	sprites := make([]model.Sprite, 0, len(l.Sprites))
	for _, s := range l.Sprites {
		sprites = append(sprites, s.toModel())
	}

	return model.Collection{
		Sprites:               sprites,
		RawHasMore:            l.HasMore,
		NextContinuationToken: l.NextContinuationToken,
	}
}

type createJSON struct {
	Name string `json:"name"`
}

type updateJSON struct {
	URLSettings *urlSettingsJSON `json:"url_settings,omitempty"`
}

func newUpdateJSON(u model.SpriteUpdate) updateJSON {
	var j updateJSON
	if u.URLSettings != nil {
		j.URLSettings = &urlSettingsJSON{Auth: string(u.URLSettings.Auth)}
	}
	return j
}
