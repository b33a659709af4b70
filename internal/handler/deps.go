package handler

import (
	"guruvani/internal/app/db"
	"guruvani/internal/app/egress"
	"guruvani/internal/app/ledger"
	"guruvani/internal/app/session"
	"guruvani/internal/app/storage"
	"guruvani/internal/app/token"
	"guruvani/internal/app/trial"
	"guruvani/internal/configs"
)

type AppDeps struct {
	Config         *configs.AppConfig
	Sessions       *session.Manager
	Issuer         *token.Issuer
	Egress         *egress.Service
	Ledger         *ledger.Client
	Trial          *trial.Service
	StorageService storage.StorageService
	DB             *db.Queries
}
