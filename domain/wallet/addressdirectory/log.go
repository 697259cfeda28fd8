package addressdirectory

import (
	"github.com/IgraLabs/kaswallet/infrastructure/logger"
)

var log = logger.RegisterSubSystem("ADDR")
