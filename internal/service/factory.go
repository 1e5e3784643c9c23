package service

import (
	"namibialove.app/messaging/core/config"
	"namibialove.app/messaging/internal/cache"
	"namibialove.app/messaging/internal/store"
)

type ServicesConfig struct {
	Stores        *store.Stores
	TxRunner      TxRunner
	Notifier      Notifier
	Conversations cache.ConversationCache // nil disables caching
	Messages      config.MessagesConfig
}

type Services struct {
	cfg ServicesConfig
}

func NewServices(cfg ServicesConfig) *Services {
	return &Services{cfg: cfg}
}

func (s *Services) Messages() MessageService {
	return NewMessageService(
		s.cfg.Stores.Messages(),
		s.cfg.TxRunner,
		s.cfg.Notifier,
		s.cfg.Conversations,
		s.cfg.Messages,
	)
}

func (s *Services) Conversations() ConversationService {
	return NewConversationService(s.cfg.Stores.Messages(), s.cfg.Conversations)
}
