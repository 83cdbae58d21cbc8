package handler

import (
	"pokerchat/internal/app/chat"
	"pokerchat/internal/configs"
)

// AppDeps bundles the collaborators the handlers need.
type AppDeps struct {
	Hub      *chat.Hub
	Config   *configs.AppConfig
	Profiles chat.ProfileStore
}
