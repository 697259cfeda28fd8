package syncengine

import (
	"github.com/IgraLabs/kaswallet/infrastructure/logger"
)

var log = logger.RegisterSubSystem("SYNC")
