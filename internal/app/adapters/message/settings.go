package message

import (
	"streambot/internal/app/domain/moderation"
	"streambot/internal/app/infrastructure/config"
)

// ModerationSettings adapts the live moderation section to the guard's view of it.
func ModerationSettings(manager *config.Manager) func() moderation.Config {
	return func() moderation.Config {
		mc := manager.Get().Moderation
		return moderation.Config{
			Enabled:        mc.Enabled,
			BlockLinks:     mc.BlockLinks,
			BlockWords:     mc.BlockWords,
			Blacklist:      mc.Blacklist,
			Action:         moderation.Action(mc.PunishAction),
			TimeoutSeconds: mc.TimeoutSeconds,
			NoticeEnabled:  mc.PunishMessageEnabled,
			Notice:         mc.PunishMessage,
		}
	}
}
