package providers

import (
	"github.com/locafrota/fleetsla/internal/providers/email"
	"github.com/locafrota/fleetsla/internal/providers/pdf"
	"github.com/locafrota/fleetsla/internal/providers/redisconn"
	"github.com/locafrota/fleetsla/internal/providers/storage"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	email.Module,
	pdf.Module,
	storage.Module,
	redisconn.Module,
)
